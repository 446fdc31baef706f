package repository

import (
	"os"
	"path/filepath"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/r3store/r3/internal/rerr"
)

// FormatVersion is the on-disk repository format this implementation
// understands.
const FormatVersion = "v1.0.0"

type repositoryManifest struct {
	Version string `yaml:"version"`
}

// Init creates a fresh repository at root: the jobs/ and git/
// directories, and a root r3.yaml pinning FormatVersion. It fails if
// root already contains a repository manifest.
func Init(root string) error {
	manifestPath := filepath.Join(root, "r3.yaml")
	if _, err := os.Stat(manifestPath); err == nil {
		return rerr.Newf(rerr.AlreadyExists, "%s is already an r3 repository", root)
	} else if !os.IsNotExist(err) {
		return rerr.Wrap(rerr.External, "statting repository manifest", err)
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return rerr.Wrap(rerr.External, "creating repository root", err)
	}
	if err := ensureRepositoryLayout(root); err != nil {
		return err
	}

	data, err := yaml.Marshal(repositoryManifest{Version: FormatVersion})
	if err != nil {
		return rerr.Wrap(rerr.Invalid, "rendering repository manifest", err)
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return rerr.Wrap(rerr.External, "writing repository manifest", err)
	}
	return nil
}

// checkVersion reads root's manifest, if any, and fails with a
// rerr.Version error when its format version differs from
// FormatVersion - migration is handled by external tooling, never
// silently by the core.
func checkVersion(root string) error {
	data, err := os.ReadFile(filepath.Join(root, "r3.yaml"))
	if os.IsNotExist(err) {
		return nil // a repository created before this check existed; tolerate it
	}
	if err != nil {
		return rerr.Wrap(rerr.External, "reading repository manifest", err)
	}

	var manifest repositoryManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return rerr.Wrap(rerr.Invalid, "parsing repository manifest", err)
	}
	if manifest.Version == "" {
		return nil
	}
	if semver.Compare(normalizeSemver(manifest.Version), normalizeSemver(FormatVersion)) != 0 {
		return rerr.Newf(rerr.Version, "repository format %s does not match %s supported by this build; migration required", manifest.Version, FormatVersion)
	}
	return nil
}

func normalizeSemver(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		return "v" + v
	}
	return v
}
