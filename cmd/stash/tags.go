package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/linkstash/linkstash/internal/ui"
)

var tagsCmd = &cobra.Command{
	Use:     "tags",
	GroupID: "posts",
	Short:   "List tags and their post counts",
	Run: func(cmd *cobra.Command, args []string) {
		asYAML, _ := cmd.Flags().GetBool("yaml")

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		tags := st.GetAllTags(ctx)
		sort.Slice(tags, func(i, j int) bool {
			if tags[i].Count != tags[j].Count {
				return tags[i].Count > tags[j].Count
			}
			return tags[i].Name < tags[j].Name
		})

		if asYAML {
			data, err := yaml.Marshal(tags)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			os.Stdout.Write(data)
			return
		}

		if len(tags) == 0 {
			fmt.Println("No tags")
			return
		}
		for _, tag := range tags {
			fmt.Printf("%4d  %s\n", tag.Count, ui.RenderTag(tag.Name))
		}
	},
}

func init() {
	tagsCmd.Flags().Bool("yaml", false, "Output YAML")
	rootCmd.AddCommand(tagsCmd)
}
