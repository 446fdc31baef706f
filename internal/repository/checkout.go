package repository

import "context"

// Checkout resolves nothing further (a committed job's dependencies
// are already concrete) and delegates straight to Storage: a working
// view of the committed job id at path, dependencies and all (spec
// §4.F/§4.D).
func (r *Repository) Checkout(ctx context.Context, id, path string) error {
	return r.Storage.CheckoutJob(ctx, id, path)
}
