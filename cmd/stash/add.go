package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add <url>",
	GroupID: "posts",
	Short:   "Save a post or web page",
	Long: `Save a URL into the local store.

The platform is detected from the URL host (twitter, instagram,
youtube, linkedin) and defaults to "website" for anything else.
Tags are comma-separated; duplicates and surrounding whitespace are
dropped.

Examples:
  stash add https://x.com/golang/status/123 --tags go,release
  stash add https://example.com/article --title "Good read" -t reading`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetString("tags")
		platform, _ := cmd.Flags().GetString("platform")

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		post := &schema.Post{
			URL:         args[0],
			Platform:    schema.Platform(platform),
			Title:       title,
			Description: description,
			Tags:        splitTags(tags),
		}

		stored, err := st.AddPost(ctx, post, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save post: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Saved %s\n", ui.RenderPass("✓"), stored.ID)
		fmt.Printf("   %s  %s\n", ui.RenderPlatform(stored.Platform), stored.URL)
		if len(stored.Tags) > 0 {
			fmt.Printf("   Tags: %s\n", ui.RenderTag(strings.Join(stored.Tags, ", ")))
		}
	},
}

// splitTags parses a comma-separated tag list.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return schema.NormalizeTags(strings.Split(s, ","))
}

func init() {
	addCmd.Flags().String("title", "", "Post title")
	addCmd.Flags().String("description", "", "Post description")
	addCmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	addCmd.Flags().String("platform", "", "Override platform detection (twitter, instagram, youtube, linkedin, website)")

	rootCmd.AddCommand(addCmd)
}
