package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkstash/linkstash/internal/migrate"
	"github.com/linkstash/linkstash/internal/ui"
)

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "advanced",
	Short:   "Import posts from a file",
	Long: `Import posts from a JSONL or YAML file created by 'stash export'
(or any file in the same shape).

Existing posts with matching IDs are overwritten; timestamps from the
file are preserved. Records that fail validation are reported and
skipped, not fatal. Use --dry-run to validate without writing.

Examples:
  stash import backup.jsonl
  stash import posts.yaml --dry-run`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		result, err := migrate.Import(ctx, st, migrate.ImportOptions{
			Path:   args[0],
			Format: migrateFormat(args[0], format),
			DryRun: dryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: import failed: %v\n", err)
			os.Exit(1)
		}

		for _, msg := range result.Errors {
			fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderWarn("⚠"), msg)
		}
		if dryRun {
			fmt.Printf("%s Validated %d post(s), %d error(s)\n", ui.RenderPass("✓"), result.PostsRead, len(result.Errors))
			return
		}
		fmt.Printf("%s Imported %d of %d post(s)\n", ui.RenderPass("✓"), result.PostsWritten, result.PostsRead)
	},
}

func init() {
	importCmd.Flags().String("format", "", "Import format: jsonl or yaml (default: by extension)")
	importCmd.Flags().Bool("dry-run", false, "Validate without writing")
	rootCmd.AddCommand(importCmd)
}
