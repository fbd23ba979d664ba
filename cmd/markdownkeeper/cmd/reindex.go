package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/indexgen"
)

func newReindexCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Regenerate the derived index Markdown artifacts from the current store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := openApp(cmd.Context(), configFlag)
			if err != nil {
				return err
			}
			defer closeApp()

			dir := outDir
			if dir == "" {
				dir = filepath.Join(a.root, "index")
			}

			if err := indexgen.Generate(cmd.Context(), a.store, dir); err != nil {
				return fmt.Errorf("generate index artifacts: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote index artifacts to %s\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "directory to write index artifacts into (default: <root>/index)")
	return cmd
}
