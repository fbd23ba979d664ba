package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/daemon"
)

type lastDrainRecord struct {
	Created   int    `json:"created"`
	Modified  int    `json:"modified"`
	Deleted   int    `json:"deleted"`
	DrainedAt string `json:"drained_at"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report daemon liveness, index size, and the last drain",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := resolvePidPath(configFlag)
			if err != nil {
				return err
			}
			sup := daemon.NewSupervisor(pidPath)
			out := cmd.OutOrStdout()

			if sup.IsRunning() {
				fmt.Fprintf(out, "running (pid %d)\n", sup.Pid())
			} else {
				fmt.Fprintln(out, "not running")
			}

			a, closeApp, err := openApp(context.Background(), configFlag)
			if err != nil {
				fmt.Fprintf(out, "index: unavailable (%v)\n", err)
				return nil
			}
			defer closeApp()

			docs, err := a.store.ListDocuments(context.Background())
			if err != nil {
				fmt.Fprintf(out, "index: unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "indexed documents: %d\n", len(docs))

			drainPath := filepath.Join(filepath.Dir(a.dbPath), lastDrainFile)
			data, err := os.ReadFile(drainPath)
			if err != nil {
				fmt.Fprintln(out, "last drain: none recorded")
				return nil
			}
			var record lastDrainRecord
			if err := json.Unmarshal(data, &record); err != nil {
				fmt.Fprintln(out, "last drain: unreadable")
				return nil
			}
			fmt.Fprintf(out, "last drain: %s (created=%d modified=%d deleted=%d)\n",
				record.DrainedAt, record.Created, record.Modified, record.Deleted)
			return nil
		},
	}
}
