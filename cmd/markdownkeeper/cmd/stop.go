package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/daemon"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background watch loop and RPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := resolvePidPath(configFlag)
			if err != nil {
				return err
			}
			sup := daemon.NewSupervisor(pidPath)
			if !sup.IsRunning() {
				fmt.Fprintln(cmd.OutOrStdout(), "not running")
				return nil
			}
			pid := sup.Pid()
			if err := sup.Stop(10 * time.Second); err != nil {
				return fmt.Errorf("stop daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopped (was pid %d)\n", pid)
			return nil
		},
	}
}
