package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/rerr"
)

// ContainsDependency resolves d (if needed) then checks whether its
// target is actually present: a job's source sub-path on disk, or a
// git commit's source sub-path in the cached bare clone - cloning and
// fetching on demand (unlike Commit's stricter
// dependencyPresent, which never fetches).
func (r *Repository) ContainsDependency(ctx context.Context, d job.Dependency) (bool, error) {
	resolved, err := r.ResolveDependency(ctx, d)
	if err != nil {
		return false, err
	}
	for _, rd := range resolved {
		ok, err := r.containsOne(ctx, rd)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

func (r *Repository) containsOne(ctx context.Context, d job.Dependency) (bool, error) {
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
		_, err = os.Stat(filepath.Join(target.Dir, filepath.FromSlash(d.Source)))
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, rerr.Wrap(rerr.External, "checking dependency source path", err)
		}
		return true, nil

	case job.KindGit:
		client, err := r.Storage.GitClient(ctx, d.Remote)
		if err != nil {
			return false, err
		}
		exists, err := client.CommitExists(ctx, d.Commit)
		if err != nil {
			return false, err
		}
		if !exists {
			if err := client.ForceFetchAll(ctx); err != nil {
				return false, err
			}
			exists, err = client.CommitExists(ctx, d.Commit)
			if err != nil {
				return false, err
			}
			if !exists {
				return false, nil
			}
		}
		return client.PathExists(ctx, d.Commit, d.Source)

	default:
		return false, rerr.Newf(rerr.Unresolved, "dependency kind %v cannot be checked for presence", d.Kind)
	}
}
