package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/suggest"
	"github.com/linkstash/linkstash/internal/ui"
)

var suggestCmd = &cobra.Command{
	Use:     "suggest <id>",
	GroupID: "advanced",
	Short:   "Suggest tags for a post using Claude",
	Long: `Ask Claude for tag suggestions based on the post's URL, title, and
description.

Requires an Anthropic API key via --api-key or the ANTHROPIC_API_KEY
environment variable. Use --apply to add the suggested tags directly.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		apiKey, _ := cmd.Flags().GetString("api-key")
		apply, _ := cmd.Flags().GetBool("apply")

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

		tags, err := suggest.New(apiKey).Tags(ctx, post)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(tags) == 0 {
			fmt.Println("No suggestions")
			return
		}

		fmt.Printf("Suggested tags: %s\n", ui.RenderTag(strings.Join(tags, ", ")))

		if !apply {
			return
		}
		post.Tags = schema.NormalizeTags(append(post.Tags, tags...))
		if _, err := st.UpdatePost(ctx, post, true); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to apply tags: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Applied to %s\n", ui.RenderPass("✓"), post.ID)
	},
}

func init() {
	suggestCmd.Flags().String("api-key", "", "Anthropic API key (default: ANTHROPIC_API_KEY)")
	suggestCmd.Flags().Bool("apply", false, "Add the suggested tags to the post")
	rootCmd.AddCommand(suggestCmd)
}
