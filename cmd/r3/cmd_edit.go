package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var editCmd = &cobra.Command{
	Use:     "edit <id>",
	GroupID: "advanced",
	Short:   "Open a committed job's metadata.yaml in $EDITOR",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		repo, err := openRepository()
		if err != nil {
			return err
		}
		defer repo.Close()

		id := args[0]
		j, err := repo.Storage.Get(id)
		if err != nil {
			return err
		}

		metadataPath := filepath.Join(j.Dir, "metadata.yaml")
		if err := runEditor(cfg.Editor, metadataPath); err != nil {
			return err
		}

		data, err := os.ReadFile(metadataPath)
		if err != nil {
			return fmt.Errorf("reading edited metadata: %w", err)
		}
		var meta map[string]interface{}
		if err := yaml.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("parsing edited metadata: %w", err)
		}

		j.Metadata = meta
		return repo.Index.Update(context.Background(), j)
	},
}

func runEditor(editor, path string) error {
	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
