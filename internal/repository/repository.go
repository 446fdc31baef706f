// Package repository is a thin
// composition of jobstore.Storage and index.Index, plus the
// deferred-dependency resolver (resolve.go), that turns the public
// operations (resolve, commit, checkout, remove, contains) into the
// right sequence of calls across those collaborators. This package
// never writes into a job directory or issues a SQL statement - that
// stays in jobstore and index; it only stats paths inside committed
// jobs for presence checks, and writes the repository manifest on Init.
package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/r3store/r3/internal/index"
	"github.com/r3store/r3/internal/jobstore"
	"github.com/r3store/r3/internal/rerr"
	"github.com/r3store/r3/internal/rlog"
)

const (
	lockFileName  = ".r3.lock"
	indexFileName = "index.db"
)

// Repository binds a Storage, an Index, and a Reporter to a single
// repository root.
type Repository struct {
	Root     string
	Storage  *jobstore.Storage
	Index    *index.Index
	Reporter rlog.Reporter
}

// Open opens the repository rooted at root, opening (and, for a fresh
// root, creating) its index database.
func Open(root string, reporter rlog.Reporter) (*Repository, error) {
	if reporter == nil {
		reporter = rlog.Discard
	}
	if err := checkVersion(root); err != nil {
		return nil, err
	}
	ix, err := index.Open(filepath.Join(root, indexFileName))
	if err != nil {
		return nil, err
	}
	return &Repository{
		Root:     root,
		Storage:  jobstore.New(root, reporter),
		Index:    ix,
		Reporter: reporter,
	}, nil
}

// Close releases the index's database connection.
func (r *Repository) Close() error { return r.Index.Close() }

// withLock advisory-locks the repository root for the duration of fn,
// commit, remove, and rebuild-index must be serialized
// against each other to prevent torn indices and duplicate id
// creation. Readers (find, jobs, contains on non-VCS items) never take
// this lock.
func (r *Repository) withLock(fn func() error) error {
	lockPath := filepath.Join(r.Root, lockFileName)
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return rerr.Wrap(rerr.External, "acquiring repository lock", err)
	}
	if !locked {
		return rerr.New(rerr.Conflict, "another r3 operation is already in progress on this repository")
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// RebuildIndex drops and repopulates the index from Storage (spec
// §4.E's rebuild, always correct because Storage is canonical truth).
func (r *Repository) RebuildIndex(ctx context.Context) error {
	return r.withLock(func() error {
		return r.Index.Rebuild(ctx, r.Storage)
	})
}

// ensureRepositoryLayout creates the jobs/ and git/ subdirectories of a
// fresh repository root; used by Init.
func ensureRepositoryLayout(root string) error {
	if err := os.MkdirAll(filepath.Join(root, "jobs"), 0o755); err != nil {
		return rerr.Wrap(rerr.External, "creating jobs directory", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "git"), 0o755); err != nil {
		return rerr.Wrap(rerr.External, "creating git cache directory", err)
	}
	return nil
}
