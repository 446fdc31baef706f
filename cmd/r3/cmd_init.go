package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/r3store/r3/internal/repository"
)

var initCmd = &cobra.Command{
	Use:     "init [path]",
	GroupID: "core",
	Short:   "Create a new, empty job repository",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := flagRepository
		if len(args) == 1 {
			root = args[0]
		}
		if root == "" {
			root = "."
		}
		if err := repository.Init(root); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "initialized empty r3 repository at %s\n", root)
		return nil
	},
}
