package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "posts",
	Short:   "Show a single post",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		post := st.GetPostByID(ctx, args[0])
		if post == nil {
			fmt.Fprintf(os.Stderr, "Error: post %s not found\n", args[0])
			os.Exit(1)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(post); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		fmt.Printf("%s\n", ui.RenderAccent(post.ID))
		fmt.Printf("URL:         %s\n", post.URL)
		fmt.Printf("Platform:    %s\n", ui.RenderPlatform(post.Platform))
		if post.Title != "" {
			fmt.Printf("Title:       %s\n", post.Title)
		}
		if post.Description != "" {
			fmt.Printf("Description: %s\n", post.Description)
		}
		if len(post.Tags) > 0 {
			fmt.Printf("Tags:        %s\n", ui.RenderTag(strings.Join(post.Tags, ", ")))
		}
		fmt.Printf("Added:       %s\n", post.DateAdded.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:     %s\n", post.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		if post.Owner != "" {
			fmt.Printf("Owner:       %s\n", post.Owner)
		}
	},
}

func init() {
	showCmd.Flags().Bool("json", false, "Output JSON")
	rootCmd.AddCommand(showCmd)
}
