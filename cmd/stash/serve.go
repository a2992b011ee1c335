package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/daemon"
	"github.com/linkstash/linkstash/internal/dashboard"
	"github.com/linkstash/linkstash/internal/remote"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "advanced",
	Short:   "Start the real-time WebSocket dashboard",
	Long: `Start a WebSocket server broadcasting store changes to connected
grid views.

Messages include:
- post_update: a post was added, updated, or deleted
- stats: collection statistics (total, by platform, tag count)
- sync_complete: a sync cycle finished

When signed in, the sync daemon runs alongside the server so remote
changes land in the store and reach connected clients.

Example usage:
  stash serve                # default port 8080
  stash serve --port 9000

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		if !cmd.Flags().Changed("port") && cfg.Dashboard.Port != 0 {
			port = cfg.Dashboard.Port
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
		})

		// When signed in, store mutations chain through the dashboard
		// handler into the syncer's queue; otherwise they stop at the
		// broadcast.
		var syncer sync.Syncer
		var client *remote.Client
		sess := session.New()
		if cfg.Remote.User != "" && cfg.Remote.URL != "" {
			var err error
			client, err = remote.Open(cfg.Remote.URL, cfg.Remote.AuthToken)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer client.Close()
		}

		var handler *dashboard.Handler
		st, err := openStoreWithOutbox(ctx, func(st *store.Store) store.Outbox {
			var next store.Outbox
			if client != nil {
				syncer = sync.New(st, client, sess, nil)
				next = syncer
			}
			handler = dashboard.NewHandler(server, next, log.New(os.Stderr, "[dashboard] ", log.LstdFlags))
			return handler
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}

		// Stats are recomputed from the store on every broadcast so the
		// counters track deletes and platform changes exactly.
		handler.SetStatsSource(func() dashboard.StatsData {
			return currentStats(ctx, st)
		})

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		if syncer != nil {
			sess.SetUser(cfg.Remote.User)
			d, err := daemon.NewWithConfig(syncer, dataFilePath(st), &daemon.Config{
				ProbeInterval:    cfg.Daemon.ProbeInterval,
				DebounceInterval: cfg.Daemon.DebounceInterval,
				Probe:            daemon.ProbeURL(cfg.Remote.URL),
				Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			go func() {
				if err := d.Start(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Error: daemon stopped: %v\n", err)
				}
			}()
		}

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Dashboard server stopped")
	},
}

// openStoreWithOutbox opens the store with an outbox built once the
// store value exists, breaking the store/consumer construction cycle.
func openStoreWithOutbox(ctx context.Context, build func(*store.Store) store.Outbox) (*store.Store, error) {
	var outbox store.Outbox
	st, err := openStore(ctx, store.WithOutbox(store.OutboxFunc(func(m store.Mutation) {
		if outbox != nil {
			outbox.Publish(m)
		}
	})))
	if err != nil {
		return nil, err
	}
	outbox = build(st)
	return st, nil
}

// currentStats derives dashboard counters from the store's state.
func currentStats(ctx context.Context, st *store.Store) dashboard.StatsData {
	posts := st.GetAllPosts(ctx, store.Query{})
	byPlatform := make(map[string]int)
	for _, p := range posts {
		byPlatform[string(p.Platform)]++
	}
	return dashboard.StatsData{
		Total:      len(posts),
		ByPlatform: byPlatform,
		TagCount:   len(st.GetAllTags(ctx)),
	}
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
