package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/loadtest"
	"github.com/linkstash/linkstash/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "advanced",
	Short:   "Run a store load test",
	Long: `Seed a throwaway store with generated posts and hammer it with
concurrent readers and writers, reporting latency percentiles.

The test runs against a temporary data directory; your real store is
never touched.`,
	Run: func(cmd *cobra.Command, args []string) {
		seedPosts, _ := cmd.Flags().GetInt("posts")
		readers, _ := cmd.Flags().GetInt("readers")
		writers, _ := cmd.Flags().GetInt("writers")

		tmpDir, err := os.MkdirTemp("", "stash-bench-")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmpDir)

		savedDataDir := cfg.DataDir
		cfg.DataDir = tmpDir
		defer func() { cfg.DataDir = savedDataDir }()

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		opts := loadtest.DefaultOptions()
		if seedPosts > 0 {
			opts.SeedPosts = seedPosts
		}
		if readers > 0 {
			opts.Readers = readers
		}
		if writers > 0 {
			opts.Writers = writers
		}

		fmt.Printf("%s Running load test (%s backend, %d posts, %d readers, %d writers)...\n",
			ui.RenderAccent("⏱"), st.Kind(), opts.SeedPosts, opts.Readers, opts.Writers)

		result, err := loadtest.Run(ctx, st, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: load test failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\nReads:  %s\n", result.Reads)
		fmt.Printf("Writes: %s\n", result.Writes)
	},
}

func init() {
	benchCmd.Flags().Int("posts", 0, "Posts to seed before measuring")
	benchCmd.Flags().Int("readers", 0, "Concurrent reader goroutines")
	benchCmd.Flags().Int("writers", 0, "Concurrent writer goroutines")
	rootCmd.AddCommand(benchCmd)
}
