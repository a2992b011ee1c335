package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	GroupID: "posts",
	Short:   "Update a saved post",
	Long: `Update fields on an existing post.

--tags replaces the full tag list; --add-tag and --remove-tag edit it
incrementally. Tag counts in the store are adjusted to match.

Examples:
  stash update post-1a2b --title "Better title"
  stash update post-1a2b --add-tag go --remove-tag draft`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
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

		if cmd.Flags().Changed("url") {
			post.URL, _ = cmd.Flags().GetString("url")
		}
		if cmd.Flags().Changed("title") {
			post.Title, _ = cmd.Flags().GetString("title")
		}
		if cmd.Flags().Changed("description") {
			post.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("platform") {
			p, _ := cmd.Flags().GetString("platform")
			post.Platform = schema.Platform(p)
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetString("tags")
			post.Tags = splitTags(tags)
		}
		if addTags, _ := cmd.Flags().GetStringArray("add-tag"); len(addTags) > 0 {
			post.Tags = schema.NormalizeTags(append(post.Tags, addTags...))
		}
		if rmTags, _ := cmd.Flags().GetStringArray("remove-tag"); len(rmTags) > 0 {
			drop := make(map[string]bool, len(rmTags))
			for _, t := range rmTags {
				drop[t] = true
			}
			kept := post.Tags[:0]
			for _, t := range post.Tags {
				if !drop[t] {
					kept = append(kept, t)
				}
			}
			post.Tags = kept
		}

		stored, err := st.UpdatePost(ctx, post, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to update post: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Updated %s\n", ui.RenderPass("✓"), stored.ID)
	},
}

func init() {
	updateCmd.Flags().String("url", "", "New URL")
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().String("description", "", "New description")
	updateCmd.Flags().String("platform", "", "New platform")
	updateCmd.Flags().StringP("tags", "t", "", "Replace tags (comma-separated)")
	updateCmd.Flags().StringArray("add-tag", nil, "Add a tag (repeatable)")
	updateCmd.Flags().StringArray("remove-tag", nil, "Remove a tag (repeatable)")

	rootCmd.AddCommand(updateCmd)
}
