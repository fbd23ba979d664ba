// Package cmd provides the markdownkeeper CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/markdownkeeper/markdownkeeper/internal/chunk"
	"github.com/markdownkeeper/markdownkeeper/internal/config"
	"github.com/markdownkeeper/markdownkeeper/internal/daemon"
	"github.com/markdownkeeper/markdownkeeper/internal/embed"
	"github.com/markdownkeeper/markdownkeeper/internal/ingest"
	"github.com/markdownkeeper/markdownkeeper/internal/query"
	"github.com/markdownkeeper/markdownkeeper/internal/retrieval"
	"github.com/markdownkeeper/markdownkeeper/internal/store"
	"github.com/markdownkeeper/markdownkeeper/internal/watcher"
)

// configFlag is the shared --config persistent flag, bound in NewRootCmd
// so every subcommand resolves the same config file.
var configFlag string

func durationMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// app bundles the services every subcommand needs, built once per
// invocation from the resolved config.
type app struct {
	root      string
	roots     []string
	dbPath    string
	cfg       *config.AppConfig
	store     *store.Store
	embedder  embed.Embedder
	engine    *ingest.Engine
	query     *query.Engine
	retrieval *retrieval.Helpers
}

// openApp loads the config, opens the index, resolves the embedder, and
// wires C1-C7 together. close must be deferred by the caller.
func openApp(ctx context.Context, cfgPath string) (*app, func(), error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	dbPath := cfg.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}

	roots := make([]string, 0, len(cfg.Watch.Roots))
	for _, r := range cfg.Watch.Roots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(root, r)
		}
		roots = append(roots, r)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}

	embedder := embed.Resolve(ctx)
	parser := chunk.New()
	engine := ingest.New(st, parser, embedder, roots, root)

	queryEngine, err := query.New(st, embedder)
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("build query engine: %w", err)
	}

	a := &app{
		root:      root,
		roots:     roots,
		dbPath:    dbPath,
		cfg:       cfg,
		store:     st,
		embedder:  embedder,
		engine:    engine,
		query:     queryEngine,
		retrieval: retrieval.New(st),
	}

	return a, func() { _ = st.Close() }, nil
}

// watcherOptions derives watcher.Options from the resolved config.
func (a *app) watcherOptions() watcher.Options {
	return watcher.Options{
		Extensions:      a.cfg.Watch.Extensions,
		DebounceWindow:  durationMs(a.cfg.Watch.DebounceMs),
		StorageDir:      filepath.Dir(a.dbPath),
		EventBufferSize: 256,
	}.WithDefaults()
}

// pidPath is the supervisor's pidfile, a sibling of the index file per
// the persisted state layout.
func (a *app) pidPath() string {
	return filepath.Join(filepath.Dir(a.dbPath), "watch.pid")
}

func (a *app) supervisor() *daemon.Supervisor {
	return daemon.NewSupervisor(a.pidPath())
}

// resolvePidPath loads just enough config to locate the pidfile, without
// opening the index or resolving an embedder. Used by commands (stop,
// status, restart) that manage the daemon process rather than the index.
func resolvePidPath(cfgPath string) (string, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}

	root, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}

	dbPath := cfg.Storage.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(root, dbPath)
	}
	return filepath.Join(filepath.Dir(dbPath), "watch.pid"), nil
}
