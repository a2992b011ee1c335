package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/ui"
)

var rmCmd = &cobra.Command{
	Use:     "rm <id>...",
	GroupID: "posts",
	Short:   "Delete saved posts",
	Long: `Delete posts from the local store.

Deletion never propagates to other devices: the remote row is removed,
but a copy already pulled to another device stays there.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		failed := 0
		for _, id := range args {
			if err := st.DeletePost(ctx, id, true); err != nil {
				if store.IsNotFound(err) {
					fmt.Fprintf(os.Stderr, "Error: post %s not found\n", id)
				} else {
					fmt.Fprintf(os.Stderr, "Error: failed to delete %s: %v\n", id, err)
				}
				failed++
				continue
			}
			fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), id)
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
