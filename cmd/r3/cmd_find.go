package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagFindTags   []string
	flagFindLatest bool
	flagFindLong   bool
)

var findCmd = &cobra.Command{
	Use:     "find",
	GroupID: "core",
	Short:   "Find committed jobs by tag",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		query := map[string]interface{}{}
		if len(flagFindTags) > 0 {
			values := make([]interface{}, len(flagFindTags))
			for i, t := range flagFindTags {
				values[i] = t
			}
			query["tags"] = map[string]interface{}{"$all": values}
		}

		records, err := repo.Index.Find(context.Background(), query, flagFindLatest)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd, records)
		}
		for _, rec := range records {
			if flagFindLong {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", rec.ID, rec.Timestamp.Format("2006-01-02T15:04:05Z07:00"), rec.Metadata)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
			}
		}
		return nil
	},
}

func init() {
	findCmd.Flags().StringArrayVar(&flagFindTags, "tag", nil, "match jobs carrying all given tags (repeatable)")
	findCmd.Flags().BoolVar(&flagFindLatest, "latest", false, "return only the single most recent match")
	findCmd.Flags().BoolVar(&flagFindLong, "long", false, "print timestamp and metadata alongside each id")
}
