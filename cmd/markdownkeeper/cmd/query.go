package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Run a one-shot semantic query against the local index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeApp, err := openApp(cmd.Context(), configFlag)
			if err != nil {
				return err
			}
			defer closeApp()

			text := args[0]
			for _, extra := range args[1:] {
				text += " " + extra
			}

			results, err := a.query.Search(cmd.Context(), text, maxResults)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "no matches")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "SCORE\tID\tTITLE\tPATH")
			_, _ = fmt.Fprintln(w, "-----\t--\t-----\t----")
			for _, r := range results {
				_, _ = fmt.Fprintf(w, "%.4f\t%d\t%s\t%s\n", r.Score, r.Document.ID, r.Document.Title, r.Document.Path)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&maxResults, "max-results", 10, "maximum number of results to print")
	return cmd
}
