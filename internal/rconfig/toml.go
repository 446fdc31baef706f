package rconfig

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// loadTOMLOverride reads an optional r3.toml in dir for host-side tool
// preferences (editor, lock-timeout) that a contributor may prefer to
// hand-edit over YAML. It is CLI-only: the core library never reads
// it, and it never carries repository-format data (that lives in
// r3.yaml). A missing or unparsable file is silently ignored - this is
// a convenience override, not a second source of truth.
func loadTOMLOverride(dir string) map[string]interface{} {
	path := filepath.Join(dir, "r3.toml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	var out map[string]interface{}
	if _, err := toml.DecodeFile(path, &out); err != nil {
		return nil
	}
	return out
}
