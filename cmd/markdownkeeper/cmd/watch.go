package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markdownkeeper/markdownkeeper/internal/api"
	"github.com/markdownkeeper/markdownkeeper/internal/store"
	"github.com/markdownkeeper/markdownkeeper/internal/watcher"
)

// lastDrainFile is a small sidecar JSON file recording the most recent
// drain's counters, read by `status` without needing a running daemon.
const lastDrainFile = "last_drain.json"

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the watch loop and RPC server in the foreground",
		Long: `Runs the filesystem watcher and the local HTTP query surface without
forking. This is what 'start' runs in the background; use 'watch' directly
for interactive debugging.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command) error {
	a, closeApp, err := openApp(ctx, configFlag)
	if err != nil {
		return err
	}
	defer closeApp()

	sup := a.supervisor()
	if err := sup.RecordSelf(); err != nil {
		return fmt.Errorf("record pid: %w", err)
	}
	defer func() { _ = sup.ReleaseSelf() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := a.watcherOptions()

	counters, err := a.engine.Reconcile(ctx, opts)
	if err != nil {
		return fmt.Errorf("startup reconcile: %w", err)
	}
	writeLastDrain(filepath.Dir(a.dbPath), counters)
	slog.Info("startup_reconcile_complete",
		slog.Int("created", counters.Created), slog.Int("modified", counters.Modified), slog.Int("deleted", counters.Deleted))

	srv := api.New(a.query, a.retrieval, slog.Default())
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", a.cfg.API.Host, a.cfg.API.Port),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("api_listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	live, err := watcher.NewLiveWatcher(a.roots, a.root, opts)
	if err != nil {
		return fmt.Errorf("start watcher on %v: %w", a.roots, err)
	}

	watchErr := make(chan error, 1)
	go func() {
		err := a.engine.RunLive(ctx, live, func(c store.DrainCounters) {
			writeLastDrain(filepath.Dir(a.dbPath), c)
			slog.Info("drain_complete",
				slog.Int("created", c.Created), slog.Int("modified", c.Modified), slog.Int("deleted", c.Deleted))
		})
		if err != nil && ctx.Err() == nil {
			watchErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("api server: %w", err)
	case err := <-watchErr:
		return fmt.Errorf("watcher: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func writeLastDrain(dir string, counters store.DrainCounters) {
	record := struct {
		Created   int       `json:"created"`
		Modified  int       `json:"modified"`
		Deleted   int       `json:"deleted"`
		DrainedAt time.Time `json:"drained_at"`
	}{counters.Created, counters.Modified, counters.Deleted, time.Now()}

	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, lastDrainFile), data, 0o644)
}
