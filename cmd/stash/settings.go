package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	GroupID: "advanced",
	Short:   "Read and write store settings",
	Long: `Settings are free-form key/value pairs stored alongside posts.
The grid UI keeps its display preferences here; scripts may use any
keys they like.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a setting value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		value := st.GetSetting(ctx, args[0], nil)
		if value == nil {
			fmt.Fprintf(os.Stderr, "Error: setting %s not found\n", args[0])
			os.Exit(1)
		}
		data, err := json.Marshal(value)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting value",
	Long: `Set a setting. The value is stored as JSON when it parses as JSON
(numbers, booleans, objects) and as a plain string otherwise.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		var value any
		if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
			value = args[1]
		}

		if err := st.SetSetting(ctx, args[0], value); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to set %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("%s = %v\n", args[0], value)
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
