package hashutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Walk returns the file paths under root, relative to root, in
// deterministic sorted order. ignore holds absolute-style patterns
// ("/name", "/dir/name") matched against an entry's name at the level
// implied by the pattern's position: a single-component pattern
// ("/vendor") matches an entry with that name at the directory it is
// evaluated in; a multi-component pattern ("/build/cache") only
// applies once the first component has matched a directory, and is
// passed down stripped of that component ("/cache") for the
// recursive walk of that one subtree. Patterns not starting with "/"
// are rejected.
//
// A matched entry - file or directory - is skipped entirely, along
// with everything under it.
func Walk(root string, ignore []string) ([]string, error) {
	for _, p := range ignore {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("ignore pattern %q is not absolute (must start with /)", p)
		}
	}

	var out []string
	if err := walkDir(root, "", ignore, &out); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func walkDir(dir, relPrefix string, patterns []string, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := e.Name()

		skip := false
		var childPatterns []string
		for _, p := range patterns {
			parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
			if parts[0] != name {
				continue
			}
			if len(parts) == 1 {
				skip = true
				break
			}
			childPatterns = append(childPatterns, "/"+strings.Join(parts[1:], "/"))
		}
		if skip {
			continue
		}

		relPath := name
		if relPrefix != "" {
			relPath = relPrefix + "/" + name
		}
		full := filepath.Join(dir, name)

		if e.IsDir() {
			if err := walkDir(full, relPath, childPatterns, out); err != nil {
				return err
			}
			continue
		}

		*out = append(*out, relPath)
	}
	return nil
}
