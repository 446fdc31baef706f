// Package rconfig resolves the CLI-level settings r3 needs before it
// can even open a repository: which directory is "the" repository, and
// whether debug diagnostics are on. Through a viper.Viper instance it
// reads one YAML config file - the nearest .r3rc.yaml found walking
// upward from cwd, otherwise the user config file - and R3_-prefixed
// environment variables, which win over the file. An optional r3.toml
// in cwd only replaces the built-in defaults, so the YAML file and the
// environment both take precedence over it.
//
// rconfig never reads job documents, and never shares a filename with
// one. jobs/<id>/r3.yaml, the repository manifest r3.yaml, and
// metadata.yaml are canonical, typed documents loaded directly with
// gopkg.in/yaml.v3 by internal/job and internal/repository -
// round-tripping them through a global viper singleton would risk
// losing the byte-exact shape the Merkle hash depends on, and an
// upward search for a file named r3.yaml would resolve to the
// repository manifest itself whenever cwd sits inside a repository.
package rconfig

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved set of CLI-level settings for one process.
type Config struct {
	// Repository is the resolved repository root: the directory
	// containing r3.yaml, jobs/, and git/.
	Repository string
	// Debug enables rlog's stderr diagnostics.
	Debug bool
	// LockTimeout is the resolved lock-timeout setting. Nothing reads
	// it: commit/remove/rebuild-index make a single non-blocking attempt
	// at the repository's advisory lock and fail at once if it is held.
	LockTimeout time.Duration
	// Editor is the command CLI's edit subcommand shells out to.
	Editor string
}

// Load resolves a Config for a process started in cwd. explicitRoot, if
// non-empty, is a --repository flag value and wins over every other
// source.
func Load(cwd, explicitRoot string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	configFileSet := false
	if configPath, ok := findUpward(cwd, ".r3rc.yaml"); ok {
		v.SetConfigFile(configPath)
		configFileSet = true
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			p := filepath.Join(configDir, "r3", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				v.SetConfigFile(p)
				configFileSet = true
			}
		}
	}
	if !configFileSet {
		if home, err := os.UserHomeDir(); err == nil {
			p := filepath.Join(home, ".r3", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				v.SetConfigFile(p)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("R3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("repository", cwd)
	v.SetDefault("debug", false)
	v.SetDefault("lock-timeout", "30s")
	v.SetDefault("editor", "")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	if t := loadTOMLOverride(cwd); t != nil {
		for key, val := range t {
			v.SetDefault(key, val)
		}
	}

	repo := v.GetString("repository")
	if explicitRoot != "" {
		repo = explicitRoot
	}
	if abs, err := filepath.Abs(repo); err == nil {
		repo = abs
	}

	lockTimeout, err := time.ParseDuration(v.GetString("lock-timeout"))
	if err != nil {
		lockTimeout = 30 * time.Second
	}

	editor := v.GetString("editor")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	return Config{
		Repository:  repo,
		Debug:       v.GetBool("debug"),
		LockTimeout: lockTimeout,
		Editor:      editor,
	}, nil
}

// findUpward walks from dir to the filesystem root looking for name.
func findUpward(dir, name string) (string, bool) {
	for d := dir; ; {
		candidate := filepath.Join(d, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", false
		}
		d = parent
	}
}
