package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var repoCmd = &cobra.Command{
	Use:     "repo",
	GroupID: "advanced",
	Short:   "Inspect repository state without mutating it",
	Long: `Read-only inspection commands layered over the core repository
operations: never duplicate commit/remove/resolve logic, only report
on what is already there.`,
}

var repoInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the repository root, format version, and job count",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		jobs, err := repo.Storage.Jobs()
		if err != nil {
			return err
		}

		info := map[string]interface{}{
			"root":      repo.Root,
			"job_count": len(jobs),
		}
		if flagJSON {
			return printJSON(cmd, info)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "root: %s\njobs: %d\n", repo.Root, len(jobs))
		return nil
	},
}

var repoDependentsCmd = &cobra.Command{
	Use:   "dependents <id>",
	Short: "List jobs that depend on id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		recursive, _ := cmd.Flags().GetBool("recursive")
		dependents, err := repo.Index.FindDependents(context.Background(), args[0], recursive)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd, dependents)
		}
		for _, id := range dependents {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	repoDependentsCmd.Flags().Bool("recursive", false, "follow the transitive dependent closure")
	repoCmd.AddCommand(repoInfoCmd, repoDependentsCmd)
}
