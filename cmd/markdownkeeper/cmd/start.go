package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/config"
	"github.com/markdownkeeper/markdownkeeper/internal/daemon"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the watch loop and RPC server in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath, err := resolvePidPath(configFlag)
			if err != nil {
				return err
			}
			cfg, err := config.Load(configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			sup := daemon.NewSupervisor(pidPath)
			if sup.IsRunning() {
				fmt.Fprintf(cmd.OutOrStdout(), "already running (pid %d)\n", sup.Pid())
				return nil
			}

			execPath, err := daemon.CurrentExecutable()
			if err != nil {
				return err
			}

			pid, err := sup.Start(execPath, []string{"watch", "--config", configFlag})
			if err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			healthURL := fmt.Sprintf("http://%s:%d/health", cfg.API.Host, cfg.API.Port)
			healthy := daemon.WaitUntilHealthy(20, 250*time.Millisecond, func() bool {
				resp, err := http.Get(healthURL)
				if err != nil {
					return false
				}
				defer resp.Body.Close()
				return resp.StatusCode == http.StatusOK
			})
			if !healthy {
				fmt.Fprintf(cmd.OutOrStdout(), "started (pid %d) but health check did not pass yet\n", pid)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "started (pid %d)\n", pid)
			return nil
		},
	}
}
