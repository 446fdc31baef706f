package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// printJSON marshals v indented and writes it to cmd's stdout, for
// --json output across every subcommand.
func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}
