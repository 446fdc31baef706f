package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:     "commit <job-dir>",
	GroupID: "core",
	Short:   "Commit a source directory as a new job",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		uncommitted, err := loadUncommittedJob(args[0])
		if err != nil {
			return fmt.Errorf("reading job directory: %w", err)
		}

		committed, err := repo.Commit(context.Background(), uncommitted)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd, map[string]string{"id": committed.ID, "hash": committed.Hash})
		}
		fmt.Fprintln(cmd.OutOrStdout(), committed.ID)
		return nil
	},
}
