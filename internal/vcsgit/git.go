// Package vcsgit is a thin adapter over the git executable: commit and
// path existence checks, ref resolution, bare clones, fetches, and
// lightweight tag pins. A failed git invocation gives callers an
// *rerr.Error classified as External with the combined output
// attached, except in CommitExists, which reports any failure of
// `git cat-file` as a missing commit (false, nil) without inspecting
// the exit code.
package vcsgit

import (
	"context"
	"os/exec"
	"strings"

	"github.com/r3store/r3/internal/rerr"
)

// Client runs git against a single repository directory (typically the
// bare clone under <root>/git/<host>/<user>/<repo>).
type Client struct {
	Dir string // working directory for git invocations; "" uses the process cwd
}

// New returns a Client bound to dir.
func New(dir string) *Client {
	return &Client{Dir: dir}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", rerr.Wrapf(rerr.External, err, "git %s failed: %s", strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// CommitExists reports whether commit resolves to a commit object.
func (c *Client) CommitExists(ctx context.Context, commit string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "cat-file", "-t", commit)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		// A missing object is a normal "false", not an External error:
		// git exits non-zero and prints "fatal: Not a valid object name".
		return false, nil
	}
	return strings.TrimSpace(string(out)) == "commit", nil
}

// PathExists reports whether source exists in the tree at commit.
// source == "." degenerates to CommitExists (the whole job).
func (c *Client) PathExists(ctx context.Context, commit, source string) (bool, error) {
	if source == "" || source == "." {
		return c.CommitExists(ctx, commit)
	}

	cmd := exec.CommandContext(ctx, "git", "ls-tree", "-r", "--name-only", commit)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return false, rerr.Wrapf(rerr.External, err, "git ls-tree failed: %s", strings.TrimSpace(string(out)))
	}

	prefix := strings.TrimSuffix(source, "/") + "/"
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		if line == source || strings.HasPrefix(line, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// RemoteHead resolves the HEAD of the given remote URL without
// requiring a local clone (git ls-remote).
func (c *Client) RemoteHead(ctx context.Context, remote string) (string, error) {
	return c.lsRemote(ctx, remote, "HEAD")
}

// BranchHead resolves branch on remote.
func (c *Client) BranchHead(ctx context.Context, remote, branch string) (string, error) {
	commit, err := c.lsRemote(ctx, remote, "refs/heads/"+branch)
	if err != nil {
		return "", err
	}
	if commit == "" {
		return "", rerr.Newf(rerr.NotFound, "branch %q not found on %s", branch, remote)
	}
	return commit, nil
}

// TagCommit resolves tag on remote (annotated tags are peeled to the
// commit they point at).
func (c *Client) TagCommit(ctx context.Context, remote, tag string) (string, error) {
	if commit, err := c.lsRemote(ctx, remote, "refs/tags/"+tag+"^{}"); err == nil && commit != "" {
		return commit, nil
	}
	commit, err := c.lsRemote(ctx, remote, "refs/tags/"+tag)
	if err != nil {
		return "", err
	}
	if commit == "" {
		return "", rerr.Newf(rerr.NotFound, "tag %q not found on %s", tag, remote)
	}
	return commit, nil
}

func (c *Client) lsRemote(ctx context.Context, remote, ref string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-remote", remote, ref)
	cmd.Dir = c.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", rerr.Wrapf(rerr.External, err, "git ls-remote %s %s failed: %s", remote, ref, strings.TrimSpace(string(out)))
	}
	line := strings.TrimSpace(string(out))
	if line == "" {
		return "", nil
	}
	fields := strings.Fields(line)
	return fields[0], nil
}

// CloneBare creates a bare clone of remote at c.Dir.
func (c *Client) CloneBare(ctx context.Context, remote string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--bare", remote, c.Dir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return rerr.Wrapf(rerr.External, err, "git clone --bare %s failed: %s", remote, strings.TrimSpace(string(out)))
	}
	return nil
}

// ForceFetchAll force-fetches every ref from origin into the bare
// clone, overwriting local refs that diverged (origin is the source of
// truth for a cache).
func (c *Client) ForceFetchAll(ctx context.Context) error {
	_, err := c.run(ctx, "fetch", "--force", "origin", "+refs/*:refs/*")
	return err
}

// TagPin creates (or replaces) a lightweight tag named name pointing at
// commit. This pins a referenced commit so it survives an origin
// force-push or git gc.
func (c *Client) TagPin(ctx context.Context, name, commit string) error {
	_, err := c.run(ctx, "tag", "-f", name, commit)
	return err
}

// Version returns the git client version string as reported by `git
// version` (e.g. "git version 2.39.2").
func (c *Client) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", rerr.Wrapf(rerr.External, err, "git version failed")
	}
	return strings.TrimSpace(string(out)), nil
}

// SupportsShallowFetch reports whether the installed git is new enough
// (>= 2.5) to fetch a single commit from a local bare repository by
// object id, the precondition for the minimal-clone checkout strategy.
func (c *Client) SupportsShallowFetch(ctx context.Context) (bool, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return false, err
	}
	return AtLeast(v, 2, 5), nil
}

// Init creates an empty repository at c.Dir.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.run(ctx, "init")
	return err
}

// AddOrigin wires originPath as the "origin" remote.
func (c *Client) AddOrigin(ctx context.Context, originPath string) error {
	_, err := c.run(ctx, "remote", "add", "origin", originPath)
	return err
}

// FetchDepth1AndCheckout fetches only commit at depth 1 from origin and
// checks it out, the minimal-clone path for a git new enough to fetch
// by object id from a local repository.
func (c *Client) FetchDepth1AndCheckout(ctx context.Context, commit string) error {
	if _, err := c.run(ctx, "fetch", "--depth", "1", "origin", commit); err != nil {
		return err
	}
	_, err := c.run(ctx, "checkout", "FETCH_HEAD")
	return err
}

// FetchAllAndCheckout fetches every ref from origin and checks out
// commit, the fallback path for git older than 2.5.
func (c *Client) FetchAllAndCheckout(ctx context.Context, commit string) error {
	if _, err := c.run(ctx, "fetch", "origin"); err != nil {
		return err
	}
	_, err := c.run(ctx, "checkout", commit)
	return err
}
