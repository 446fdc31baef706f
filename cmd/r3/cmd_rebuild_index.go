package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildIndexCmd = &cobra.Command{
	Use:     "rebuild-index",
	GroupID: "advanced",
	Short:   "Rebuild the index from the committed jobs on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		if err := repo.RebuildIndex(context.Background()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "index rebuilt")
		return nil
	},
}
