// Package jobstore owns the committed-jobs directory and the VCS cache:
// id assignment, write-protection, and checkout of a
// committed job or a single dependency onto a filesystem path. It never
// decides whether a dependency is safe to remove or resolves deferred
// dependencies - that is the repository facade's and the resolver's
// job respectively; jobstore only knows how to materialize and tear
// down what is already concrete.
package jobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/r3store/r3/internal/hashutil"
	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/rerr"
	"github.com/r3store/r3/internal/rlog"
	"github.com/r3store/r3/internal/vcsgit"
)

const (
	configFileName   = "r3.yaml"
	metadataFileName = "metadata.yaml"
	outputDirName    = "output"
	jobsDirName      = "jobs"
	gitCacheDirName  = "git"
)

// Storage is bound to a single repository root.
type Storage struct {
	Root     string
	Reporter rlog.Reporter
}

// New returns a Storage rooted at root. reporter may be nil, in which
// case warnings are discarded.
func New(root string, reporter rlog.Reporter) *Storage {
	if reporter == nil {
		reporter = rlog.Discard
	}
	return &Storage{Root: root, Reporter: reporter}
}

// JobsDir is <root>/jobs.
func (s *Storage) JobsDir() string { return filepath.Join(s.Root, jobsDirName) }

// JobDir is <root>/jobs/<id>.
func (s *Storage) JobDir(id string) string { return filepath.Join(s.JobsDir(), id) }

// GitCacheDir is <root>/git/<host>/<user>/<repo>, the bare clone of
// remote.
func (s *Storage) GitCacheDir(remote string) (string, error) {
	rel, err := vcsgit.CachePath(remote)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, gitCacheDirName, rel), nil
}

// GitClient returns a vcsgit.Client bound to remote's bare cache,
// cloning it on first use if it does not yet exist.
func (s *Storage) GitClient(ctx context.Context, remote string) (*vcsgit.Client, error) {
	dir, err := s.GitCacheDir(remote)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return nil, rerr.Wrap(rerr.External, "creating git cache parent directory", err)
		}
		client := vcsgit.New(dir)
		if err := client.CloneBare(ctx, remote); err != nil {
			return nil, err
		}
		return client, nil
	} else if err != nil {
		return nil, rerr.Wrap(rerr.External, "statting git cache directory", err)
	}
	return vcsgit.New(dir), nil
}

// Add commits j: assigns a fresh id, recomputes the hash table, tags
// every Git dependency's pinned commit, writes the tree write-protected
// in a fixed order, and returns the committed Job.
func (s *Storage) Add(ctx context.Context, j *job.Job) (*job.Job, error) {
	if !j.Resolved() {
		return nil, rerr.New(rerr.Unresolved, "cannot commit a job with unresolved dependencies")
	}

	id := uuid.NewString()
	dir := s.JobDir(id)
	if _, err := os.Stat(dir); err == nil {
		return nil, rerr.Newf(rerr.AlreadyExists, "job id %s already exists", id)
	} else if !os.IsNotExist(err) {
		return nil, rerr.Wrap(rerr.External, "statting new job directory", err)
	}

	now := time.Now().UTC()

	fileHashes := make(map[string]string, len(j.Files))
	for dest, src := range j.Files {
		h, err := hashutil.HashFile(src)
		if err != nil {
			return nil, rerr.Wrapf(rerr.External, err, "hashing %s", src)
		}
		fileHashes[dest] = h
	}

	jobHash, err := j.ComputeHash(fileHashes)
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]string, len(fileHashes)+1)
	for k, v := range fileHashes {
		hashes[k] = v
	}
	hashes["."] = jobHash

	for _, d := range j.Dependencies {
		if d.Kind != job.KindGit {
			continue
		}
		client, err := s.GitClient(ctx, d.Remote)
		if err != nil {
			return nil, err
		}
		if err := client.TagPin(ctx, "r3/"+id, d.Commit); err != nil {
			return nil, err
		}
	}

	committed := &job.Job{
		ID:           id,
		State:        job.StateCommitted,
		Dir:          dir,
		Dependencies: j.Dependencies,
		Ignore:       j.Ignore,
		Metadata:     j.Metadata,
		Timestamp:    &now,
		Hash:         jobHash,
	}

	if err := s.writeCommittedTree(dir, j, committed, hashes); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	return committed, nil
}

func (s *Storage) writeCommittedTree(dir string, j *job.Job, committed *job.Job, hashes map[string]string) error {
	if err := os.MkdirAll(filepath.Join(dir, outputDirName), 0o755); err != nil {
		return rerr.Wrap(rerr.External, "creating job directory", err)
	}

	cfg := committed.ToConfig(hashes)
	cfgBytes, err := cfg.ToConfigBytes(yaml.Marshal)
	if err != nil {
		return rerr.Wrap(rerr.Invalid, "rendering job config", err)
	}
	configPath := filepath.Join(dir, configFileName)
	if err := os.WriteFile(configPath, cfgBytes, writableFileMode); err != nil {
		return rerr.Wrap(rerr.External, "writing job config", err)
	}
	if err := lockdownFile(configPath); err != nil {
		return rerr.Wrap(rerr.External, "write-protecting job config", err)
	}

	metaBytes, err := yaml.Marshal(j.Metadata)
	if err != nil {
		return rerr.Wrap(rerr.Invalid, "rendering job metadata", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFileName), metaBytes, writableFileMode); err != nil {
		return rerr.Wrap(rerr.External, "writing job metadata", err)
	}

	destinations := make([]string, 0, len(j.Files))
	for dest := range j.Files {
		destinations = append(destinations, dest)
	}
	sort.Strings(destinations)
	for _, dest := range destinations {
		src := j.Files[dest]
		dstPath := filepath.Join(dir, filepath.FromSlash(dest))
		if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
			return rerr.Wrap(rerr.External, "creating destination directory", err)
		}
		if err := copyFile(src, dstPath); err != nil {
			return rerr.Wrapf(rerr.External, err, "copying %s", src)
		}
		if err := lockdownFile(dstPath); err != nil {
			return rerr.Wrap(rerr.External, "write-protecting source file", err)
		}
	}

	if err := lockdownDir(dir); err != nil {
		return rerr.Wrap(rerr.External, "write-protecting job directory", err)
	}
	return nil
}

// Remove deletes j's directory. The caller (the repository facade)
// must already have verified no dependents exist.
func (s *Storage) Remove(j *job.Job) error {
	if j.ID == "" {
		return rerr.New(rerr.Invalid, "cannot remove a job with no id")
	}
	dir := s.JobDir(j.ID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return rerr.Newf(rerr.NotFound, "job %s not found", j.ID)
	}
	if err := unlockTree(dir); err != nil {
		return rerr.Wrap(rerr.External, "restoring write permission before removal", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return rerr.Wrap(rerr.External, "removing job directory", err)
	}
	return nil
}

// ContainsID reports whether a committed job with this id exists.
func (s *Storage) ContainsID(id string) bool {
	info, err := os.Stat(s.JobDir(id))
	return err == nil && info.IsDir()
}

// ContainsPath reports whether path names a location under the jobs
// root, by id or by path equality.
func (s *Storage) ContainsPath(path string) bool {
	rel, err := filepath.Rel(s.JobsDir(), path)
	if err != nil || rel == "." {
		return err == nil
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != ".."
}

// Get constructs a Job bound to the stored directory id, reading its
// config and metadata from disk.
func (s *Storage) Get(id string) (*job.Job, error) {
	dir := s.JobDir(id)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return nil, rerr.Newf(rerr.NotFound, "job %s not found", id)
	} else if err != nil {
		return nil, rerr.Wrap(rerr.External, "statting job directory", err)
	}

	cfgBytes, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		return nil, rerr.Wrap(rerr.External, "reading job config", err)
	}
	cfg, err := job.FromConfigBytes(cfgBytes, yaml.Unmarshal)
	if err != nil {
		return nil, err
	}

	var metadata map[string]interface{}
	metaBytes, err := os.ReadFile(filepath.Join(dir, metadataFileName))
	if err == nil {
		if err := yaml.Unmarshal(metaBytes, &metadata); err != nil {
			return nil, rerr.Wrap(rerr.Invalid, "parsing job metadata", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, rerr.Wrap(rerr.External, "reading job metadata", err)
	}

	jobHash := ""
	if cfg.Hashes != nil {
		jobHash = cfg.Hashes["."]
	}

	return &job.Job{
		ID:           id,
		State:        job.StateCommitted,
		Dir:          dir,
		Dependencies: cfg.Dependencies,
		Ignore:       cfg.Ignore,
		Metadata:     metadata,
		Timestamp:    cfg.Timestamp,
		Hash:         jobHash,
	}, nil
}

// Jobs enumerates every committed job id, one directory entry under
// the jobs root per job, in sorted order.
func (s *Storage) Jobs() ([]string, error) {
	entries, err := os.ReadDir(s.JobsDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, rerr.Wrap(rerr.External, "listing jobs directory", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, writableFileMode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, writableDirMode)
		}
		return copyFile(path, target)
	})
}

