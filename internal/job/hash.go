package job

import (
	"sort"
	"strings"

	"github.com/r3store/r3/internal/hashutil"
	"github.com/r3store/r3/internal/rerr"
)

// FileHash pairs a destination path inside the job's checkout with the
// content hash that lives there, for a plain file contributed by the
// job itself (as opposed to a dependency).
type FileHash struct {
	Destination string
	Hash        string
}

// MerkleHash computes a job's content hash: every file
// the job contributes directly, plus every resolved dependency's own
// Hash(), sorted by destination path and concatenated as "{dest}
// {hash}\n" lines, then hashed as one string. Metadata, timestamps,
// ignore patterns, and dependency provenance never enter the hash -
// only file contents, resolved dependency identities, and the
// destination paths they land at.
func MerkleHash(files []FileHash, deps []Dependency) (string, error) {
	type line struct {
		dest string
		hash string
	}
	lines := make([]line, 0, len(files)+len(deps))

	for _, f := range files {
		lines = append(lines, line{dest: f.Destination, hash: f.Hash})
	}
	for _, d := range deps {
		if !d.Resolved() {
			return "", rerr.Newf(rerr.Unresolved, "dependency at %q is not resolved", d.Destination)
		}
		h, err := d.Hash()
		if err != nil {
			return "", err
		}
		lines = append(lines, line{dest: d.Destination, hash: h})
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].dest < lines[j].dest })

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.dest)
		b.WriteByte(' ')
		b.WriteString(l.hash)
		b.WriteByte('\n')
	}
	return hashutil.HashString(b.String()), nil
}
