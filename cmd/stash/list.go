package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/schema"
	"github.com/linkstash/linkstash/internal/store"
	"github.com/linkstash/linkstash/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "posts",
	Short:   "List saved posts",
	Long: `List posts from the local store, filtered, sorted, and paginated.

Multiple --tag flags combine with AND: a post must carry every listed
tag. --search matches url, title, description, and tags
case-insensitively. --since accepts natural language ("yesterday",
"2 weeks ago") as well as RFC 3339 timestamps.

Examples:
  stash list --tag go --tag release
  stash list --platform youtube --limit 10
  stash list --search kubernetes --since "last monday"
  stash list --json`,
	Run: func(cmd *cobra.Command, args []string) {
		tags, _ := cmd.Flags().GetStringArray("tag")
		search, _ := cmd.Flags().GetString("search")
		platform, _ := cmd.Flags().GetString("platform")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		sortBy, _ := cmd.Flags().GetString("sort")
		order, _ := cmd.Flags().GetString("order")
		since, _ := cmd.Flags().GetString("since")
		asJSON, _ := cmd.Flags().GetBool("json")

		var sinceTime time.Time
		if since != "" {
			t, err := parseSince(since)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			sinceTime = t
		}

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		q := store.Query{
			Limit:      limit,
			Offset:     offset,
			SortBy:     sortBy,
			SortOrder:  order,
			FilterTags: tags,
			SearchTerm: search,
			Platform:   schema.Platform(platform),
		}
		posts := st.GetAllPosts(ctx, q)

		if !sinceTime.IsZero() {
			filtered := posts[:0]
			for _, p := range posts {
				if !p.DateAdded.Before(sinceTime) {
					filtered = append(filtered, p)
				}
			}
			posts = filtered
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(posts); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if len(posts) == 0 {
			fmt.Println("No posts found")
			return
		}

		for _, p := range posts {
			fmt.Printf("%s  %s  %s\n",
				ui.RenderAccent(p.ID),
				ui.RenderPlatform(p.Platform),
				ui.RenderFaint(p.DateAdded.Local().Format("2006-01-02 15:04")))
			if p.Title != "" {
				fmt.Printf("   %s\n", p.Title)
			}
			fmt.Printf("   %s\n", p.URL)
			if len(p.Tags) > 0 {
				fmt.Printf("   %s\n", ui.RenderTag(strings.Join(p.Tags, ", ")))
			}
			fmt.Println()
		}
		fmt.Printf("%d post(s)\n", len(posts))
	},
}

// parseSince accepts RFC 3339 timestamps and natural-language times.
func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		return time.Time{}, fmt.Errorf("cannot parse time %q", s)
	}
	return r.Time, nil
}

func init() {
	listCmd.Flags().StringArray("tag", nil, "Filter by tag (repeatable, all must match)")
	listCmd.Flags().StringP("search", "s", "", "Search url, title, description, and tags")
	listCmd.Flags().StringP("platform", "p", "", "Filter by platform")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum number of posts (0 = all)")
	listCmd.Flags().Int("offset", 0, "Skip the first N posts")
	listCmd.Flags().String("sort", store.SortByDateAdded, "Sort key: dateAdded or platform")
	listCmd.Flags().String("order", store.SortDesc, "Sort order: asc or desc")
	listCmd.Flags().String("since", "", "Only posts added since this time")
	listCmd.Flags().Bool("json", false, "Output JSON")

	rootCmd.AddCommand(listCmd)
}
