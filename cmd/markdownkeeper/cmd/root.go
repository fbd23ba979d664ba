package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/logging"
)

var loggingCleanup func()

// NewRootCmd creates the root markdownkeeper command.
func NewRootCmd() *cobra.Command {
	var debugMode bool

	cmd := &cobra.Command{
		Use:   "markdownkeeper",
		Short: "Local semantic index over a Markdown document tree",
		Long: `markdownkeeper watches a collection of Markdown files, keeps a durable
local index of their headings, tags, concepts, and embeddings, and answers
semantic and structured queries over a small local HTTP surface.`,
	}

	cmd.PersistentFlags().StringVar(&configFlag, "config", "markdownkeeper.toml", "path to the TOML config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logCfg := logging.DefaultConfig()
		if debugMode {
			logCfg = logging.DebugConfig()
		}
		logger, cleanup, err := logging.Setup(logCfg)
		if err != nil {
			return err
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		return nil
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
		return nil
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newRestartCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newLinksCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
