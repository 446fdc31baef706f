package repository

import (
	"context"

	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/rerr"
)

// ResolveJob replaces every deferred dependency in j with its concrete
// form, flattening list-returning resolutions (FindAll, QueryAll) into
// the dependency sequence in order, and returns a new Job carrying the
// resolved list. j itself is left untouched.
func (r *Repository) ResolveJob(ctx context.Context, j *job.Job) (*job.Job, error) {
	if j.Resolved() {
		return j, nil
	}

	resolved := make([]job.Dependency, 0, len(j.Dependencies))
	for _, d := range j.Dependencies {
		rs, err := r.ResolveDependency(ctx, d)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rs...)
	}

	out := *j
	out.Dependencies = resolved
	out.State = job.StateResolved
	return &out, nil
}

// ResolveDependency resolves a single dependency to one or more
// concrete Job/Git dependencies. An already-resolved
// dependency is returned unchanged, as a single-element slice.
func (r *Repository) ResolveDependency(ctx context.Context, d job.Dependency) ([]job.Dependency, error) {
	switch d.Kind {
	case job.KindJob:
		return []job.Dependency{d}, nil

	case job.KindGit:
		if d.Commit != "" {
			return []job.Dependency{d}, nil
		}
		resolved, err := r.resolveGit(ctx, d)
		if err != nil {
			return nil, err
		}
		return []job.Dependency{resolved}, nil

	case job.KindFindLatest:
		return r.resolveFindLatest(ctx, d.Query, d.Source, d.Destination, d.RecursiveCheckout)

	case job.KindFindAll:
		return r.resolveFindAll(ctx, d.Query, d.Destination)

	case job.KindQuery:
		r.Reporter.Warnf("dependency uses deprecated \"query\" sugar; prefer find_latest")
		return r.resolveFindLatest(ctx, legacyTagQuery(d.Tags), d.Source, d.Destination, d.RecursiveCheckout)

	case job.KindQueryAll:
		r.Reporter.Warnf("dependency uses deprecated \"query_all\" sugar; prefer find_all")
		return r.resolveFindAll(ctx, legacyTagQuery(d.Tags), d.Destination)

	default:
		return nil, rerr.Newf(rerr.Invalid, "unknown dependency kind %v", d.Kind)
	}
}

func legacyTagQuery(tags []string) map[string]interface{} {
	values := make([]interface{}, len(tags))
	for i, t := range tags {
		values[i] = t
	}
	return map[string]interface{}{"tags": map[string]interface{}{"$all": values}}
}

func (r *Repository) resolveFindLatest(ctx context.Context, query map[string]interface{}, source, destination string, recursiveCheckout bool) ([]job.Dependency, error) {
	recs, err := r.Index.Find(ctx, query, true)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, rerr.New(rerr.NotFound, "find_latest matched no jobs")
	}
	if source == "" {
		source = "."
	}
	return []job.Dependency{{
		Kind:              job.KindJob,
		JobID:             recs[0].ID,
		Source:            source,
		Destination:       destination,
		RecursiveCheckout: recursiveCheckout,
		Provenance:        query,
	}}, nil
}

func (r *Repository) resolveFindAll(ctx context.Context, query map[string]interface{}, destination string) ([]job.Dependency, error) {
	recs, err := r.Index.Find(ctx, query, false)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, rerr.New(rerr.NotFound, "find_all matched no jobs")
	}
	out := make([]job.Dependency, 0, len(recs))
	for _, rec := range recs {
		out = append(out, job.Dependency{
			Kind:        job.KindJob,
			JobID:       rec.ID,
			Source:      ".",
			Destination: destination + "/" + rec.ID,
			Provenance:  query,
		})
	}
	return out, nil
}

// resolveGit resolves a commitless Git dependency from, in order of
// specificity, branch, tag, or remote HEAD, cloning the
// bare cache on demand first.
func (r *Repository) resolveGit(ctx context.Context, d job.Dependency) (job.Dependency, error) {
	client, err := r.Storage.GitClient(ctx, d.Remote)
	if err != nil {
		return job.Dependency{}, err
	}

	var commit string
	switch {
	case d.Branch != "":
		commit, err = client.BranchHead(ctx, d.Remote, d.Branch)
	case d.Tag != "":
		commit, err = client.TagCommit(ctx, d.Remote, d.Tag)
	default:
		commit, err = client.RemoteHead(ctx, d.Remote)
	}
	if err != nil {
		return job.Dependency{}, err
	}

	d.Commit = commit
	return d, nil
}
