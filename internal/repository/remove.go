package repository

import (
	"context"

	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/rerr"
)

// Remove verifies id has no dependents, then removes it from Storage
// and the Index. Both checks and mutations run under the
// repository lock.
func (r *Repository) Remove(ctx context.Context, id string) error {
	return r.withLock(func() error {
		dependents, err := r.Index.FindDependents(ctx, id, false)
		if err != nil {
			return err
		}
		if len(dependents) > 0 {
			return rerr.Newf(rerr.Conflict, "job %s still has dependents: %v", id, dependents)
		}

		if err := r.Storage.Remove(&job.Job{ID: id}); err != nil {
			return err
		}
		return r.Index.Remove(ctx, id)
	})
}
