package jobstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/rerr"
	"github.com/r3store/r3/internal/vcsgit"
)

// CheckoutJob materializes a working-directory view of the committed
// job id at path: every child of the job directory except the config,
// the metadata, and output/ is copied; output/ becomes a symlink back
// into the committed job; then every dependency is checked out into
// the same path, so dependencies land at their declared destinations
// relative to the checkout root.
func (s *Storage) CheckoutJob(ctx context.Context, id, path string) error {
	j, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.checkoutJobInto(ctx, j, path)
}

func (s *Storage) checkoutJobInto(ctx context.Context, j *job.Job, path string) error {
	if err := os.MkdirAll(path, writableDirMode); err != nil {
		return rerr.Wrap(rerr.External, "creating checkout directory", err)
	}

	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		return rerr.Wrap(rerr.External, "reading committed job directory", err)
	}
	for _, e := range entries {
		name := e.Name()
		if name == configFileName || name == metadataFileName || name == outputDirName {
			continue
		}
		src := filepath.Join(j.Dir, name)
		dst := filepath.Join(path, name)
		if e.IsDir() {
			if err := copyDir(src, dst); err != nil {
				return rerr.Wrapf(rerr.External, err, "copying %s", src)
			}
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return rerr.Wrapf(rerr.External, err, "copying %s", src)
		}
	}

	outputLink := filepath.Join(path, outputDirName)
	if _, err := os.Lstat(outputLink); os.IsNotExist(err) {
		if err := os.Symlink(filepath.Join(j.Dir, outputDirName), outputLink); err != nil {
			return rerr.Wrap(rerr.External, "symlinking output directory", err)
		}
	}

	for _, d := range j.Dependencies {
		if err := s.CheckoutDependency(ctx, d, path); err != nil {
			return err
		}
	}
	return nil
}

// CheckoutDependency places a single resolved dependency at
// path/<destination>, dispatching on Kind.
func (s *Storage) CheckoutDependency(ctx context.Context, d job.Dependency, path string) error {
	if !d.Resolved() {
		return rerr.Newf(rerr.Unresolved, "cannot checkout unresolved %s dependency", d.Kind)
	}

	dst := filepath.Join(path, filepath.FromSlash(d.Destination))

	switch d.Kind {
	case job.KindJob:
		if d.Source == "." && d.RecursiveCheckout {
			sub, err := s.Get(d.JobID)
			if err != nil {
				return err
			}
			return s.checkoutJobInto(ctx, sub, dst)
		}
		target := filepath.Join(s.JobDir(d.JobID), filepath.FromSlash(d.Source))
		if err := os.MkdirAll(filepath.Dir(dst), writableDirMode); err != nil {
			return rerr.Wrap(rerr.External, "creating destination parent directory", err)
		}
		if err := os.Symlink(target, dst); err != nil {
			return rerr.Wrapf(rerr.External, err, "symlinking %s", dst)
		}
		return nil

	case job.KindGit:
		return s.checkoutGit(ctx, d, dst)

	default:
		return rerr.Newf(rerr.Unresolved, "%s dependencies cannot be checked out directly", d.Kind)
	}
}

// checkoutGit performs the minimal-clone checkout strategy of spec
// §4.D: an empty repository, the bare cache wired as origin, a depth-1
// fetch of the pinned commit, checkout, then the source sub-path moved
// to its destination. Older git falls back to a full clone+checkout,
// with a warning through the injected reporter.
func (s *Storage) checkoutGit(ctx context.Context, d job.Dependency, dst string) error {
	cacheDir, err := s.GitCacheDir(d.Remote)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "r3-checkout-*")
	if err != nil {
		return rerr.Wrap(rerr.External, "creating temporary checkout directory", err)
	}
	defer os.RemoveAll(tmp)

	client := vcsgit.New(tmp)
	supportsShallow, err := client.SupportsShallowFetch(ctx)
	if err != nil {
		return err
	}

	if err := client.Init(ctx); err != nil {
		return err
	}
	if err := client.AddOrigin(ctx, cacheDir); err != nil {
		return err
	}

	if supportsShallow {
		if err := client.FetchDepth1AndCheckout(ctx, d.Commit); err != nil {
			return err
		}
	} else {
		s.Reporter.Warnf("git is older than 2.5: falling back to full clone for %s", d.Remote)
		if err := client.FetchAllAndCheckout(ctx, d.Commit); err != nil {
			return err
		}
	}

	src := filepath.Join(tmp, filepath.FromSlash(d.Source))
	if err := os.MkdirAll(filepath.Dir(dst), writableDirMode); err != nil {
		return rerr.Wrap(rerr.External, "creating destination parent directory", err)
	}
	if err := os.Rename(src, dst); err != nil {
		// Rename can fail across filesystem boundaries (tmp vs. the
		// checkout target); fall back to a copy.
		if copyErr := copyDir(src, dst); copyErr != nil {
			return rerr.Wrapf(rerr.External, copyErr, "moving checked-out git source %s", src)
		}
	}
	return nil
}
