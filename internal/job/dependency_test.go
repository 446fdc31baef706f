package job

import (
	"testing"

	"github.com/r3store/r3/internal/rerr"
)

func TestDependencyResolved(t *testing.T) {
	tests := []struct {
		name string
		dep  Dependency
		want bool
	}{
		{"job always resolved", Dependency{Kind: KindJob, JobID: "abc123"}, true},
		{"git with commit resolved", Dependency{Kind: KindGit, Remote: "https://github.com/a/b", Commit: "deadbeef"}, true},
		{"git without commit unresolved", Dependency{Kind: KindGit, Remote: "https://github.com/a/b"}, false},
		{"find_latest never resolved", Dependency{Kind: KindFindLatest}, false},
		{"find_all never resolved", Dependency{Kind: KindFindAll}, false},
		{"query never resolved", Dependency{Kind: KindQuery}, false},
		{"query_all never resolved", Dependency{Kind: KindQueryAll}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dep.Resolved(); got != tt.want {
				t.Errorf("Resolved() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDependencyValidateGitBranchTagExclusive(t *testing.T) {
	dep := Dependency{Kind: KindGit, Remote: "https://github.com/a/b", Branch: "main", Tag: "v1"}
	err := dep.Validate()
	if err == nil {
		t.Fatal("expected error when both branch and tag are set")
	}
	if kind, ok := rerr.KindOf(err); !ok || kind != rerr.Invalid {
		t.Errorf("expected rerr.Invalid, got %v (ok=%v)", kind, ok)
	}
}

func TestDependencyValidateGitBranchOnly(t *testing.T) {
	dep := Dependency{Kind: KindGit, Remote: "https://github.com/a/b", Branch: "main"}
	if err := dep.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDependencyHashJob(t *testing.T) {
	dep := Dependency{Kind: KindJob, JobID: "abc123", Source: "."}
	h, err := dep.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	again, err := dep.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h != again {
		t.Error("Hash is not deterministic")
	}

	other := Dependency{Kind: KindJob, JobID: "abc123", Source: "subdir"}
	otherHash, err := other.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h == otherHash {
		t.Error("different source paths should hash differently")
	}
}

func TestDependencyHashGitRequiresCommit(t *testing.T) {
	dep := Dependency{Kind: KindGit, Remote: "https://github.com/a/b", Source: "."}
	_, err := dep.Hash()
	if err == nil {
		t.Fatal("expected error for unresolved git dependency")
	}
	if kind, ok := rerr.KindOf(err); !ok || kind != rerr.Unresolved {
		t.Errorf("expected rerr.Unresolved, got %v (ok=%v)", kind, ok)
	}
}

func TestDependencyHashGitResolved(t *testing.T) {
	dep := Dependency{Kind: KindGit, Remote: "https://github.com/a/b", Commit: "deadbeef", Source: "."}
	h, err := dep.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h == "" {
		t.Error("expected non-empty hash")
	}
}

func TestDependencyHashDeferredKindsUnresolved(t *testing.T) {
	deferred := []Dependency{
		{Kind: KindFindLatest},
		{Kind: KindFindAll},
		{Kind: KindQuery},
		{Kind: KindQueryAll},
	}
	for _, dep := range deferred {
		_, err := dep.Hash()
		if err == nil {
			t.Errorf("%s: expected error before resolution", dep.Kind)
			continue
		}
		if kind, ok := rerr.KindOf(err); !ok || kind != rerr.Unresolved {
			t.Errorf("%s: expected rerr.Unresolved, got %v", dep.Kind, err)
		}
	}
}
