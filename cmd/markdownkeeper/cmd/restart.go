package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/daemon"
)

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the background watch loop and RPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := resolvePidPath(configFlag)
			if err != nil {
				return err
			}
			sup := daemon.NewSupervisor(pidPath)

			execPath, err := daemon.CurrentExecutable()
			if err != nil {
				return err
			}

			pid, err := sup.Restart(execPath, []string{"watch", "--config", configFlag}, 10*time.Second)
			if err != nil {
				return fmt.Errorf("restart daemon: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restarted (pid %d)\n", pid)
			return nil
		},
	}
}
