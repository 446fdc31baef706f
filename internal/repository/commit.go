package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/rerr"
	"github.com/r3store/r3/internal/vcsgit"
)

// Commit resolves j, verifies every dependency is present, and
// delegates to Storage.Add and Index.Add. Storage.Add and Index.Add run
// under the repository lock so a concurrent commit cannot observe a
// torn index; resolution and the presence checks run before the lock
// is taken.
func (r *Repository) Commit(ctx context.Context, j *job.Job) (*job.Job, error) {
	resolved, err := r.ResolveJob(ctx, j)
	if err != nil {
		return nil, err
	}

	for _, d := range resolved.Dependencies {
		ok, err := r.dependencyPresent(ctx, d)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, rerr.Newf(rerr.Conflict, "unmet dependency at %q", d.Destination)
		}
	}

	var committed *job.Job
	err = r.withLock(func() error {
		c, err := r.Storage.Add(ctx, resolved)
		if err != nil {
			return err
		}
		if err := r.Index.Add(ctx, c); err != nil {
			return err
		}
		committed = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// dependencyPresent checks that a resolved dependency's target already
// exists, without performing Contains's on-demand clone/fetch - commit
// must fail rather than silently fetch a dependency that isn't already
// available.
func (r *Repository) dependencyPresent(ctx context.Context, d job.Dependency) (bool, error) {
	switch d.Kind {
	case job.KindJob:
		if !r.Storage.ContainsID(d.JobID) {
			return false, nil
		}
		if d.Source == "" || d.Source == "." {
			return true, nil
		}
		target, err := r.Storage.Get(d.JobID)
		if err != nil {
			return false, err
		}
		if _, err := os.Stat(filepath.Join(target.Dir, filepath.FromSlash(d.Source))); err != nil {
			if os.IsNotExist(err) {
				return false, nil
			}
			return false, rerr.Wrap(rerr.External, "checking dependency source path", err)
		}
		return true, nil
	case job.KindGit:
		cacheDir, err := r.Storage.GitCacheDir(d.Remote)
		if err != nil {
			return false, err
		}
		if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
			return false, nil
		} else if err != nil {
			return false, rerr.Wrap(rerr.External, "checking git cache directory", err)
		}
		client := vcsgit.New(cacheDir)
		exists, err := client.CommitExists(ctx, d.Commit)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
		return client.PathExists(ctx, d.Commit, d.Source)
	default:
		return false, rerr.Newf(rerr.Unresolved, "dependency kind %v must be resolved before commit", d.Kind)
	}
}
