// Command r3 is the CLI front end for the r3 job repository: init,
// commit, checkout, remove, find, rebuild-index, edit, and the repo
// inspection group.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/r3store/r3/internal/rconfig"
	"github.com/r3store/r3/internal/repository"
	"github.com/r3store/r3/internal/rlog"
)

var (
	flagRepository string
	flagJSON       bool
	flagDebug      bool
)

var rootCmd = &cobra.Command{
	Use:           "r3",
	Short:         "Content-addressed repository for reproducible computational jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRepository, "repository", "", "repository root (default: discovered from the current directory, or $R3_REPOSITORY)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable diagnostic logging on stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced commands:"},
	)

	rootCmd.AddCommand(initCmd, commitCmd, checkoutCmd, removeCmd, findCmd, rebuildIndexCmd, editCmd)
	rootCmd.AddCommand(repoCmd)
}

// loadConfig resolves the CLI config for the current invocation,
// honoring --repository/--debug before environment and file defaults.
func loadConfig() (rconfig.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return rconfig.Config{}, fmt.Errorf("determining working directory: %w", err)
	}
	cfg, err := rconfig.Load(cwd, flagRepository)
	if err != nil {
		return rconfig.Config{}, err
	}
	if flagDebug {
		cfg.Debug = true
	}
	return cfg, nil
}

// openRepository loads config and opens the resolved repository root.
func openRepository() (*repository.Repository, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return repository.Open(cfg.Repository, rlog.Stderr(cfg.Debug))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "r3:", err)
		os.Exit(1)
	}
}
