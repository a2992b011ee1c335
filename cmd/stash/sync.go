package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/daemon"
	"github.com/linkstash/linkstash/internal/remote"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/sync"
	"github.com/linkstash/linkstash/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one sync cycle now",
	Long: `Run a single sync cycle against the remote database:

  1. Push queued local mutations (none for a one-shot run)
  2. Pull the remote post set
  3. Reconcile: insert missing posts, overwrite local copies that are
     strictly older than the remote (last write wins)
  4. Push local posts the remote has never seen

Requires being signed in (see 'stash login').`,
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Remote.User == "" || cfg.Remote.URL == "" {
			fmt.Fprintf(os.Stderr, "Error: not signed in; run 'stash login' first\n")
			os.Exit(1)
		}

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		client, err := remote.Open(cfg.Remote.URL, cfg.Remote.AuthToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer client.Close()

		sess := session.New()
		syncer := sync.New(st, client, sess, log.New(os.Stderr, "[sync] ", log.LstdFlags))
		sess.SetUser(cfg.Remote.User)

		probe := daemon.ProbeURL(cfg.Remote.URL)
		if !probe(ctx) {
			fmt.Fprintf(os.Stderr, "Error: remote %s is unreachable\n", cfg.Remote.URL)
			os.Exit(1)
		}
		syncer.SetOnline(true)

		fmt.Printf("%s Syncing with %s...\n", ui.RenderAccent("🔄"), cfg.Remote.URL)
		start := time.Now()

		if err := syncer.Sync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: sync failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
