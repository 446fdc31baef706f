// Package job holds the job model: the typed Dependency sum type,
// the Job value itself, Merkle hashing, and canonical (de)serialization
// of r3.yaml. The deferred dependency shapes are parsed
// once at the document boundary (FromConfigValue) into a discriminated Go
// struct rather than dispatched on string-keyed documents at runtime.
package job

import (
	"fmt"

	"github.com/r3store/r3/internal/hashutil"
	"github.com/r3store/r3/internal/rerr"
	"github.com/r3store/r3/internal/vcsgit"
)

// Kind discriminates which of the five dependency shapes a Dependency
// carries.
type Kind int

const (
	// KindJob is a resolved reference to another committed job.
	KindJob Kind = iota
	// KindGit is a (possibly unresolved) reference to an external
	// commit; resolved iff Commit is set.
	KindGit
	// KindFindLatest is a deferred query resolving to the single
	// latest-by-timestamp matching Job dependency.
	KindFindLatest
	// KindFindAll is a deferred query resolving to one Job dependency
	// per match.
	KindFindAll
	// KindQuery is the legacy hash-tag sugar for FindLatest.
	KindQuery
	// KindQueryAll is the legacy hash-tag sugar for FindAll.
	KindQueryAll
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindGit:
		return "git"
	case KindFindLatest:
		return "find_latest"
	case KindFindAll:
		return "find_all"
	case KindQuery:
		return "query"
	case KindQueryAll:
		return "query_all"
	default:
		return "unknown"
	}
}

// defaultSource is the whole-job default (superseding
// the "." vs "" ambiguity across prior on-disk format versions).
const defaultSource = "."

// Dependency is the discriminated union of the five dependency
// shapes. Only the fields relevant to Kind are populated; the others
// are zero.
type Dependency struct {
	Kind Kind

	// Common to Job, Git, FindLatest: where inside the target the
	// dependency's content comes from, and where it lands in the
	// depending job's checkout.
	Source      string
	Destination string

	// KindJob
	JobID             string
	RecursiveCheckout bool
	// Provenance carries the query that produced this dependency, when
	// it was materialized by resolving a FindLatest/FindAll/Query/
	// QueryAll. It is never part of hashing.
	Provenance map[string]interface{}

	// KindGit
	Remote string
	Commit string
	Branch string
	Tag    string

	// KindFindLatest, KindFindAll
	Query map[string]interface{}

	// KindQuery, KindQueryAll (legacy)
	Tags []string
}

// Resolved reports whether this dependency names a concrete target:
// true for KindJob, true for KindGit iff Commit is set, false for the
// deferred variants.
func (d Dependency) Resolved() bool {
	switch d.Kind {
	case KindJob:
		return true
	case KindGit:
		return d.Commit != ""
	default:
		return false
	}
}

// Validate checks the invariants that are independent of
// any particular resolution step: at most one of Branch/Tag for Git.
func (d Dependency) Validate() error {
	if d.Kind == KindGit && d.Branch != "" && d.Tag != "" {
		return rerr.New(rerr.Invalid, "git dependency cannot set both branch and tag")
	}
	return nil
}

// Hash returns the dependency's stable digest, used as one line of the
// job's Merkle hash. Only resolved dependencies are
// hashable; gitCachePath resolves a Git dependency's canonical
// repository_path component (the git/<host>/<user>/<repo>
// layout), independent of any particular repository root.
func (d Dependency) Hash() (string, error) {
	switch d.Kind {
	case KindJob:
		return hashutil.HashString(fmt.Sprintf("jobs/%s/%s", d.JobID, d.Source)), nil
	case KindGit:
		if d.Commit == "" {
			return "", rerr.New(rerr.Unresolved, "git dependency has no pinned commit")
		}
		repoPath, err := vcsgit.CachePath(d.Remote)
		if err != nil {
			return "", err
		}
		return hashutil.HashString(fmt.Sprintf("%s@%s/%s", repoPath, d.Commit, d.Source)), nil
	default:
		return "", rerr.Newf(rerr.Unresolved, "%s dependency has no defined hash until resolved", d.Kind)
	}
}
