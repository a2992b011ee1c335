package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/store"

	// Importing the backends registers them with the factory.
	"github.com/linkstash/linkstash/internal/store/flatfile"
	"github.com/linkstash/linkstash/internal/store/sqlite"
)

// cfg is the resolved configuration, populated before any command runs.
var cfg *config.Config

var (
	flagConfig  string
	flagDataDir string
	flagBackend string
)

var rootCmd = &cobra.Command{
	Use:   "stash",
	Short: "Local-first bookmarking for social posts and web pages",
	Long: `stash saves social posts and web pages into a local store and keeps
them synchronized with an optional cloud database.

Posts live in a local SQLite database (or a JSON flatfile when SQLite
is unavailable) under the data directory. Sync is opportunistic: the
daemon pushes queued changes and reconciles remote state whenever
connectivity allows, and everything keeps working offline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}
		if flagBackend != "" {
			cfg.Backend = flagBackend
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: linkstash.toml in data dir or cwd)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory (default: ~/.linkstash)")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "backend", "", "Storage backend: auto, sqlite, or flatfile")

	rootCmd.AddGroup(
		&cobra.Group{ID: "posts", Title: "Posts:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)
}

// openStore creates and initializes the local store per the resolved
// configuration. Callers own Close.
func openStore(ctx context.Context, opts ...store.Option) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	factoryOpts := []store.FactoryOption{
		store.WithFactoryLogger(log.New(os.Stderr, "[store] ", log.LstdFlags)),
	}
	switch cfg.Backend {
	case "", "auto":
		// Default probe order: sqlite, then flatfile.
	case "sqlite":
		factoryOpts = append(factoryOpts, store.WithPreferredKind(store.KindSQLite))
	case "flatfile":
		factoryOpts = append(factoryOpts,
			store.WithPreferredKind(store.KindFlatfile),
			store.WithFallbackKind(store.KindFlatfile))
	default:
		return nil, fmt.Errorf("unknown backend %q (want auto, sqlite, or flatfile)", cfg.Backend)
	}

	opts = append(opts, store.WithFactory(store.NewFactory(factoryOpts...)))
	st := store.New(cfg.DataDir, opts...)
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// dataFilePath returns the on-disk file backing the given store, used by
// the daemon's file watcher.
func dataFilePath(st *store.Store) string {
	name := sqlite.FileName
	if st.Kind() == store.KindFlatfile {
		name = flatfile.FileName
	}
	return filepath.Join(cfg.DataDir, name)
}
