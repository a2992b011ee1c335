package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/migrate"
	"github.com/linkstash/linkstash/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export <file>",
	GroupID: "advanced",
	Short:   "Export all posts to a file",
	Long: `Export every post to a file, oldest first.

The format is inferred from the extension (.jsonl, .yaml, .yml) unless
--format is given. The file is written atomically.

Examples:
  stash export backup.jsonl
  stash export posts.yaml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		n, err := migrate.Export(ctx, st, args[0], migrateFormat(args[0], format))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: export failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Exported %d post(s) to %s\n", ui.RenderPass("✓"), n, args[0])
	},
}

// migrateFormat resolves the encoding from an explicit flag or the file
// extension, defaulting to JSONL.
func migrateFormat(path, flag string) migrate.Format {
	switch flag {
	case "yaml":
		return migrate.FormatYAML
	case "jsonl":
		return migrate.FormatJSONL
	}
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return migrate.FormatYAML
	default:
		return migrate.FormatJSONL
	}
}

func init() {
	exportCmd.Flags().String("format", "", "Export format: jsonl or yaml (default: by extension)")
	rootCmd.AddCommand(exportCmd)
}
