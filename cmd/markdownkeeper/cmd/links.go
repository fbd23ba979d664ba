package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/linkcheck"
)

func newLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Link checking commands",
	}
	cmd.AddCommand(newLinksCheckCmd())
	return cmd
}

func newLinksCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate internal links and report the broken ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := openApp(cmd.Context(), configFlag)
			if err != nil {
				return err
			}
			defer closeApp()

			results, err := linkcheck.Validate(cmd.Context(), a.store, a.root)
			if err != nil {
				return fmt.Errorf("check links: %w", err)
			}

			broken := linkcheck.Broken(results)
			out := cmd.OutOrStdout()
			if len(broken) == 0 {
				fmt.Fprintf(out, "checked %d links, none broken\n", len(results))
				return nil
			}

			fmt.Fprintf(out, "checked %d links, %d broken:\n", len(results), len(broken))
			for _, r := range broken {
				fmt.Fprintf(out, "  %s -> %s\n", r.DocumentPath, r.Target)
			}
			return nil
		},
	}
}
