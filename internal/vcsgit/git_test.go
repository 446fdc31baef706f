package vcsgit

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// requireGit skips the test if no git binary is on PATH, mirroring the
// teacher's tolerance for environments without a real git toolchain.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// newLocalRepo creates a small non-bare repo with one commit and
// returns its path and the commit hash.
func newLocalRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "r3@example.com")
	run("config", "user.name", "r3")
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "world")
	run("add", ".")
	run("commit", "-q", "-m", "initial")

	out, err := exec.Command("git", "-C", dir, "rev-parse", "HEAD").Output()
	if err != nil {
		t.Fatalf("rev-parse HEAD: %v", err)
	}
	commit := string(out)
	for len(commit) > 0 && (commit[len(commit)-1] == '\n' || commit[len(commit)-1] == '\r') {
		commit = commit[:len(commit)-1]
	}
	return dir, commit
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestClientCommitAndPathExists(t *testing.T) {
	requireGit(t)
	repo, commit := newLocalRepo(t)
	c := New(repo)
	ctx := context.Background()

	exists, err := c.CommitExists(ctx, commit)
	if err != nil || !exists {
		t.Fatalf("CommitExists(%s) = %v, %v, want true, nil", commit, exists, err)
	}

	missing, err := c.CommitExists(ctx, "0000000000000000000000000000000000000000")
	if err != nil || missing {
		t.Fatalf("CommitExists(missing) = %v, %v, want false, nil", missing, err)
	}

	whole, err := c.PathExists(ctx, commit, ".")
	if err != nil || !whole {
		t.Fatalf("PathExists(., whole) = %v, %v", whole, err)
	}

	ok, err := c.PathExists(ctx, commit, "sub/b.txt")
	if err != nil || !ok {
		t.Fatalf("PathExists(sub/b.txt) = %v, %v", ok, err)
	}

	ok, err = c.PathExists(ctx, commit, "sub")
	if err != nil || !ok {
		t.Fatalf("PathExists(sub dir) = %v, %v", ok, err)
	}

	ok, err = c.PathExists(ctx, commit, "nope")
	if err != nil || ok {
		t.Fatalf("PathExists(nope) = %v, %v, want false", ok, err)
	}
}

func TestCloneBareAndTagPin(t *testing.T) {
	requireGit(t)
	repo, commit := newLocalRepo(t)

	bareDir := filepath.Join(t.TempDir(), "bare.git")
	bare := New(bareDir)
	if err := bare.CloneBare(context.Background(), repo); err != nil {
		t.Fatalf("CloneBare: %v", err)
	}

	if err := bare.TagPin(context.Background(), "r3/job1", commit); err != nil {
		t.Fatalf("TagPin: %v", err)
	}

	exists, err := bare.CommitExists(context.Background(), commit)
	if err != nil || !exists {
		t.Fatalf("CommitExists after clone = %v, %v", exists, err)
	}
}
