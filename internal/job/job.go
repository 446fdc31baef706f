package job

import (
	"path/filepath"
	"time"

	"github.com/r3store/r3/internal/hashutil"
	"github.com/r3store/r3/internal/rerr"
)

// State tracks where a Job sits in its commit lifecycle.
type State int

const (
	// StateUncommitted: built from a source directory, no id, mutable.
	StateUncommitted State = iota
	// StateResolved: every dependency is concrete, but not yet on disk.
	StateResolved
	// StateCommitted: id assigned, files copied and write-protected.
	StateCommitted
	// StateRemoved: directory deleted. A Job in this state is only a
	// handle kept around by a caller that already deleted it; no
	// operation should accept it.
	StateRemoved
)

// Job is a directory of source files plus a config document,
// optionally bound to a committed id.
type Job struct {
	ID    string
	State State

	// Dir is the job's own directory: the source directory pre-commit,
	// <jobs-root>/<id> post-commit.
	Dir string

	Dependencies []Dependency

	// Files maps a relative destination path to the absolute path of
	// the source file that will be copied there on commit.
	Files map[string]string

	// Ignore holds the absolute-style patterns applied when
	// Files was populated by walking Dir; nil for a Job loaded from an
	// already-committed directory, where Files need not be recomputed.
	Ignore []string

	Metadata  map[string]interface{}
	Timestamp *time.Time
	Hash      string
}

// FromDirectory builds an uncommitted Job by walking dir for source
// files (honoring ignore) and parsing its r3.yaml and metadata.yaml.
// readConfig and readMetadata are injected so callers can supply the
// real filesystem or a fake in tests.
func FromDirectory(dir string, ignore []string, readConfig func() (Config, error), readMetadata func() (map[string]interface{}, error)) (*Job, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	meta, err := readMetadata()
	if err != nil {
		return nil, err
	}

	allIgnore := append([]string{}, ignore...)
	allIgnore = append(allIgnore, cfg.Ignore...)
	for _, d := range cfg.Dependencies {
		allIgnore = append(allIgnore, "/"+d.Destination)
	}

	paths, err := hashutil.Walk(dir, allIgnore)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(paths))
	for _, rel := range paths {
		files[rel] = filepath.Join(dir, rel)
	}

	return &Job{
		State:        StateUncommitted,
		Dir:          dir,
		Dependencies: cfg.Dependencies,
		Files:        files,
		Ignore:       allIgnore,
		Metadata:     meta,
	}, nil
}

// Resolved reports whether every dependency is concrete.
func (j *Job) Resolved() bool {
	for _, d := range j.Dependencies {
		if !d.Resolved() {
			return false
		}
	}
	return true
}

// ComputeHash recomputes the Merkle hash over the job's current file
// set and dependency list. It does not mutate j.Hash;
// callers decide when a freshly computed hash becomes authoritative.
func (j *Job) ComputeHash(fileHashes map[string]string) (string, error) {
	if !j.Resolved() {
		return "", rerr.New(rerr.Unresolved, "cannot hash a job with unresolved dependencies")
	}
	files := make([]FileHash, 0, len(fileHashes))
	for dest, h := range fileHashes {
		files = append(files, FileHash{Destination: dest, Hash: h})
	}
	return MerkleHash(files, j.Dependencies)
}

// ToConfig projects the job's current state into its canonical
// on-disk document, including the hash table once the job
// carries one.
func (j *Job) ToConfig(hashes map[string]string) Config {
	return Config{
		Dependencies: j.Dependencies,
		Ignore:       j.Ignore,
		Timestamp:    j.Timestamp,
		Hashes:       hashes,
	}
}

// Destinations returns the set of destination paths this job's
// dependencies will occupy in a checkout, for conflict detection
// before commit.
func (j *Job) Destinations() []string {
	out := make([]string, 0, len(j.Dependencies))
	for _, d := range j.Dependencies {
		out = append(out, d.Destination)
	}
	return out
}
