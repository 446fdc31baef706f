package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/rerr"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("Init: %v", err)
	}
	repo, err := Open(root, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mkSourceDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func buildUncommitted(t *testing.T, srcDir string, deps []job.Dependency, metadata map[string]interface{}) *job.Job {
	t.Helper()
	j, err := job.FromDirectory(srcDir, nil,
		func() (job.Config, error) { return job.Config{Dependencies: deps}, nil },
		func() (map[string]interface{}, error) { return metadata, nil },
	)
	if err != nil {
		t.Fatalf("FromDirectory: %v", err)
	}
	return j
}

func TestScenarioCommitFreshJob(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	uncommitted := buildUncommitted(t, src, nil, map[string]interface{}{"tags": []interface{}{"test"}})

	j1, err := repo.Commit(ctx, uncommitted)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if j1.ID == "" {
		t.Fatal("expected assigned id")
	}

	runPath := filepath.Join(repo.Storage.JobDir(j1.ID), "run.py")
	info, err := os.Stat(runPath)
	if err != nil {
		t.Fatalf("stat run.py: %v", err)
	}
	if info.Mode().Perm()&0o222 != 0 {
		t.Errorf("expected run.py read-only, got %v", info.Mode())
	}

	rec, err := repo.Index.Get(ctx, j1.ID)
	if err != nil {
		t.Fatalf("Index.Get: %v", err)
	}
	if rec.ID != j1.ID {
		t.Errorf("indexed id = %s, want %s", rec.ID, j1.ID)
	}
}

func TestScenarioFindLatestDependencyResolvesAndCommits(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	src1 := mkSourceDir(t, map[string]string{"a.txt": "a\n"})
	j1, err := repo.Commit(ctx, buildUncommitted(t, src1, nil, map[string]interface{}{"tags": []interface{}{"test"}}))
	if err != nil {
		t.Fatalf("Commit j1: %v", err)
	}

	src2 := mkSourceDir(t, map[string]string{"b.txt": "b\n"})
	deps := []job.Dependency{{Kind: job.KindFindLatest, Query: map[string]interface{}{"tags": "test"}, Source: ".", Destination: "prev"}}
	j2, err := repo.Commit(ctx, buildUncommitted(t, src2, deps, nil))
	if err != nil {
		t.Fatalf("Commit j2: %v", err)
	}

	if len(j2.Dependencies) != 1 {
		t.Fatalf("expected 1 resolved dependency, got %d", len(j2.Dependencies))
	}
	got := j2.Dependencies[0]
	if got.Kind != job.KindJob || got.JobID != j1.ID || got.Source != "." {
		t.Errorf("unexpected resolved dependency: %+v", got)
	}
}

func TestScenarioCommitMissingSourcePathFails(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	src1 := mkSourceDir(t, map[string]string{"a.txt": "a\n"})
	j1, err := repo.Commit(ctx, buildUncommitted(t, src1, nil, nil))
	if err != nil {
		t.Fatalf("Commit j1: %v", err)
	}

	src2 := mkSourceDir(t, map[string]string{"b.txt": "b\n"})
	deps := []job.Dependency{{Kind: job.KindJob, JobID: j1.ID, Source: "does/not/exist", Destination: "x"}}
	_, err = repo.Commit(ctx, buildUncommitted(t, src2, deps, nil))
	if err == nil {
		t.Fatal("expected commit to fail for a nonexistent source sub-path")
	}
}

func TestScenarioRemoveWithDependentsConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	src1 := mkSourceDir(t, map[string]string{"a.txt": "a\n"})
	j1, err := repo.Commit(ctx, buildUncommitted(t, src1, nil, nil))
	if err != nil {
		t.Fatalf("Commit j1: %v", err)
	}

	src2 := mkSourceDir(t, map[string]string{"b.txt": "b\n"})
	deps := []job.Dependency{{Kind: job.KindJob, JobID: j1.ID, Source: ".", Destination: "input"}}
	j2, err := repo.Commit(ctx, buildUncommitted(t, src2, deps, nil))
	if err != nil {
		t.Fatalf("Commit j2: %v", err)
	}

	if err := repo.Remove(ctx, j1.ID); err == nil {
		t.Fatal("expected Remove to fail while a dependent exists")
	}

	if err := repo.Remove(ctx, j2.ID); err != nil {
		t.Fatalf("Remove j2: %v", err)
	}
	if err := repo.Remove(ctx, j1.ID); err != nil {
		t.Fatalf("Remove j1 after j2 removed: %v", err)
	}
}

func TestScenarioFindFiltersByListSemantics(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	sizes := []float64{10, 32, 64}
	for i, size := range sizes {
		src := mkSourceDir(t, map[string]string{"f.txt": "x\n"})
		meta := map[string]interface{}{"tags": []interface{}{"a", "b"}, "image_size": size}
		if _, err := repo.Commit(ctx, buildUncommitted(t, src, nil, meta)); err != nil {
			t.Fatalf("Commit job %d: %v", i, err)
		}
	}

	recs, err := repo.Index.Find(ctx, map[string]interface{}{
		"tags":       map[string]interface{}{"$all": []interface{}{"a"}},
		"image_size": map[string]interface{}{"$gt": 28.0},
	}, false)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 matches (32, 64), got %d", len(recs))
	}
}

func TestScenarioCheckoutDependencyCreatesSymlink(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	src := mkSourceDir(t, map[string]string{"model.bin": "weights\n"})
	j1, err := repo.Commit(ctx, buildUncommitted(t, src, nil, nil))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	checkoutDir := t.TempDir()
	if err := repo.Checkout(ctx, j1.ID, filepath.Join(checkoutDir, "work")); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if _, err := os.Stat(filepath.Join(checkoutDir, "work", "model.bin")); err != nil {
		t.Errorf("expected model.bin in checkout: %v", err)
	}
}

func TestRebuildIndexIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	src := mkSourceDir(t, map[string]string{"f.txt": "x\n"})
	j1, err := repo.Commit(ctx, buildUncommitted(t, src, nil, map[string]interface{}{"tags": "x"}))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := repo.RebuildIndex(ctx); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	if err := repo.RebuildIndex(ctx); err != nil {
		t.Fatalf("second RebuildIndex: %v", err)
	}

	rec, err := repo.Index.Get(ctx, j1.ID)
	if err != nil {
		t.Fatalf("Index.Get after rebuild: %v", err)
	}
	if rec.ID != j1.ID {
		t.Errorf("unexpected record after rebuild: %+v", rec)
	}
}

func TestScenarioCommitGitDependencyWithoutCacheConflicts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	src := mkSourceDir(t, map[string]string{"b.txt": "b\n"})
	deps := []job.Dependency{{
		Kind:        job.KindGit,
		Remote:      "https://github.com/nonexistent/repo.git",
		Commit:      "0123456789012345678901234567890123456789",
		Source:      ".",
		Destination: "dep",
	}}

	_, err := repo.Commit(ctx, buildUncommitted(t, src, deps, nil))
	if err == nil {
		t.Fatal("expected commit to fail for a git dependency whose cache was never cloned")
	}
	if kind, ok := rerr.KindOf(err); !ok || kind != rerr.Conflict {
		t.Errorf("expected rerr.Conflict, got %v (ok=%v)", err, ok)
	}

	cacheDir, err := repo.Storage.GitCacheDir(deps[0].Remote)
	if err != nil {
		t.Fatalf("GitCacheDir: %v", err)
	}
	if _, err := os.Stat(cacheDir); !os.IsNotExist(err) {
		t.Errorf("expected no clone to have been attempted, cache dir state: %v", err)
	}
}

func TestOpenRejectsMismatchedVersion(t *testing.T) {
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("Init: %v", err)
	}
	manifestPath := filepath.Join(root, "r3.yaml")
	if err := os.WriteFile(manifestPath, []byte("version: v99.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(root, nil)
	if err == nil {
		t.Fatal("expected Open to reject a mismatched format version")
	}
}
