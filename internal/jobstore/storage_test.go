package jobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/r3store/r3/internal/job"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	root := t.TempDir()
	return New(root, nil)
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

func TestStorageAddAssignsIDAndWriteProtects(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	uncommitted := buildUncommitted(t, src, nil, map[string]interface{}{"tags": []interface{}{"demo"}})

	committed, err := s.Add(ctx, uncommitted)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if committed.ID == "" {
		t.Fatal("expected assigned id")
	}
	if committed.Hash == "" {
		t.Error("expected computed hash")
	}

	runPath := filepath.Join(s.JobDir(committed.ID), "run.py")
	info, err := os.Stat(runPath)
	if err != nil {
		t.Fatalf("stat run.py: %v", err)
	}
	if info.Mode().Perm()&0o222 != 0 {
		t.Errorf("expected run.py to be read-only, got mode %v", info.Mode())
	}

	cfgPath := filepath.Join(s.JobDir(committed.ID), configFileName)
	cfgInfo, err := os.Stat(cfgPath)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if cfgInfo.Mode().Perm()&0o222 != 0 {
		t.Errorf("expected config to be read-only, got mode %v", cfgInfo.Mode())
	}

	metaPath := filepath.Join(s.JobDir(committed.ID), metadataFileName)
	metaInfo, err := os.Stat(metaPath)
	if err != nil {
		t.Fatalf("stat metadata: %v", err)
	}
	if metaInfo.Mode().Perm()&0o200 == 0 {
		t.Error("expected metadata to remain writable")
	}
}

func TestStorageAddRejectsUnresolved(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	uncommitted := buildUncommitted(t, src, []job.Dependency{{Kind: job.KindFindLatest}}, nil)

	_, err := s.Add(ctx, uncommitted)
	if err == nil {
		t.Fatal("expected error committing a job with an unresolved dependency")
	}
}

func TestStorageGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	uncommitted := buildUncommitted(t, src, nil, map[string]interface{}{"tags": []interface{}{"demo"}})

	committed, err := s.Add(ctx, uncommitted)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.Get(committed.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Hash != committed.Hash {
		t.Errorf("hash mismatch: got %s want %s", got.Hash, committed.Hash)
	}
	if got.Timestamp == nil {
		t.Error("expected a timestamp")
	}
}

func TestStorageContainsID(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	uncommitted := buildUncommitted(t, src, nil, nil)

	committed, err := s.Add(ctx, uncommitted)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !s.ContainsID(committed.ID) {
		t.Error("expected ContainsID true for a committed job")
	}
	if s.ContainsID("does-not-exist") {
		t.Error("expected ContainsID false for a missing id")
	}
}

func TestStorageJobsLists(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	empty, err := s.Jobs()
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no jobs in a fresh repository, got %v", empty)
	}

	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	committed, err := s.Add(ctx, buildUncommitted(t, src, nil, nil))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	ids, err := s.Jobs()
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(ids) != 1 || ids[0] != committed.ID {
		t.Errorf("expected [%s], got %v", committed.ID, ids)
	}
}

func TestStorageRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	committed, err := s.Add(ctx, buildUncommitted(t, src, nil, nil))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Remove(committed); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.ContainsID(committed.ID) {
		t.Error("expected job to be gone after Remove")
	}
}

func TestStorageRemoveMissingIsNotFound(t *testing.T) {
	s := newTestStorage(t)
	err := s.Remove(&job.Job{ID: "does-not-exist"})
	if err == nil {
		t.Fatal("expected error removing a job that was never committed")
	}
}

func TestStorageCheckoutJobDependencySymlink(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	src := mkSourceDir(t, map[string]string{"model.bin": "weights\n"})
	base, err := s.Add(ctx, buildUncommitted(t, src, nil, nil))
	if err != nil {
		t.Fatalf("Add base job: %v", err)
	}

	dep := job.Dependency{Kind: job.KindJob, JobID: base.ID, Source: ".", Destination: "input"}
	checkoutDir := t.TempDir()
	if err := s.CheckoutDependency(ctx, dep, checkoutDir); err != nil {
		t.Fatalf("CheckoutDependency: %v", err)
	}

	linkPath := filepath.Join(checkoutDir, "input")
	target, err := os.Readlink(linkPath)
	if err != nil {
		t.Fatalf("expected a symlink at %s: %v", linkPath, err)
	}
	if target != s.JobDir(base.ID) {
		t.Errorf("symlink target = %s, want %s", target, s.JobDir(base.ID))
	}
}

func TestStorageCheckoutJobCopiesFilesAndSymlinksOutput(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	src := mkSourceDir(t, map[string]string{"run.py": "print(1)\n"})
	committed, err := s.Add(ctx, buildUncommitted(t, src, nil, nil))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	checkoutDir := t.TempDir()
	if err := s.CheckoutJob(ctx, committed.ID, filepath.Join(checkoutDir, "work")); err != nil {
		t.Fatalf("CheckoutJob: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(checkoutDir, "work", "run.py"))
	if err != nil {
		t.Fatalf("reading checked-out run.py: %v", err)
	}
	if string(data) != "print(1)\n" {
		t.Errorf("unexpected content: %q", data)
	}

	outputLink := filepath.Join(checkoutDir, "work", outputDirName)
	if target, err := os.Readlink(outputLink); err != nil {
		t.Fatalf("expected output/ symlink: %v", err)
	} else if target != filepath.Join(s.JobDir(committed.ID), outputDirName) {
		t.Errorf("output symlink target = %s", target)
	}
}
