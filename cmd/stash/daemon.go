package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/linkstash/linkstash/internal/daemon"
	"github.com/linkstash/linkstash/internal/remote"
	"github.com/linkstash/linkstash/internal/session"
	"github.com/linkstash/linkstash/internal/sync"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the background sync daemon (foreground)",
	Long: `Run the sync daemon in the foreground.

The daemon:
  1. Watches the local data file for changes made by other processes
  2. Probes remote connectivity on an interval
  3. Runs a sync cycle on file changes (debounced) and when
     connectivity returns after an outage

Logs go to stderr by default; set daemon.log_file in the config to
write rotated log files instead.

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Remote.User == "" || cfg.Remote.URL == "" {
			fmt.Fprintf(os.Stderr, "Error: not signed in; run 'stash login' first\n")
			os.Exit(1)
		}

		logger := daemonLogger()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

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
		syncer := sync.New(st, client, sess, logger)
		sess.SetUser(cfg.Remote.User)

		dcfg := &daemon.Config{
			ProbeInterval:    cfg.Daemon.ProbeInterval,
			DebounceInterval: cfg.Daemon.DebounceInterval,
			Probe:            daemon.ProbeURL(cfg.Remote.URL),
			Logger:           logger,
		}
		d, err := daemon.NewWithConfig(syncer, dataFilePath(st), dcfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Sync daemon started (user: %s, remote: %s)\n", cfg.Remote.User, cfg.Remote.URL)
		fmt.Println("Press Ctrl+C to stop")

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: daemon stopped: %v\n", err)
			os.Exit(1)
		}
	},
}

// daemonLogger builds the daemon's logger, rotating through lumberjack
// when a log file is configured.
func daemonLogger() *log.Logger {
	if cfg.Daemon.LogFile == "" {
		return log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   cfg.Daemon.LogFile,
		MaxSize:    cfg.Daemon.LogMaxSizeMB,
		MaxBackups: 3,
		Compress:   true,
	}, "[daemon] ", log.LstdFlags)
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
