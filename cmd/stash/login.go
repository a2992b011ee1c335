package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/linkstash/linkstash/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "sync",
	Short:   "Sign in and configure remote sync",
	Long: `Store the remote database URL, auth token, and user identity in the
config file. All three can be given as flags; missing values are asked
for interactively when running in a terminal.

Signing in enables sync: the daemon pushes local changes and pulls the
user's posts from the remote database.`,
	Run: func(cmd *cobra.Command, args []string) {
		user, _ := cmd.Flags().GetString("user")
		url, _ := cmd.Flags().GetString("url")
		token, _ := cmd.Flags().GetString("token")

		if url == "" {
			url = cfg.Remote.URL
		}

		needsInput := user == "" || url == "" || token == ""
		if needsInput {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprintf(os.Stderr, "Error: not a terminal; pass --user, --url, and --token\n")
				os.Exit(1)
			}

			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("User ID").
					Description("Owner identity for your remote posts").
					Value(&user),
				huh.NewInput().
					Title("Database URL").
					Description("libsql:// URL of the remote database").
					Value(&url),
				huh.NewInput().
					Title("Auth token").
					EchoMode(huh.EchoModePassword).
					Value(&token),
			))
			if err := form.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		if user == "" || url == "" {
			fmt.Fprintf(os.Stderr, "Error: user and url are required\n")
			os.Exit(1)
		}

		cfg.Remote.User = user
		cfg.Remote.URL = url
		cfg.Remote.AuthToken = token

		if err := cfg.Save(cfg.DefaultPath()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Signed in as %s\n", ui.RenderPass("✓"), user)
		fmt.Printf("   Remote: %s\n", url)
		fmt.Printf("   Config: %s\n", cfg.DefaultPath())
		fmt.Println("\nRun 'stash sync' to sync now, or 'stash daemon' to sync continuously.")
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "sync",
	Short:   "Sign out and disable remote sync",
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Remote.User == "" {
			fmt.Println("Already signed out")
			return
		}

		user := cfg.Remote.User
		cfg.Remote.User = ""
		cfg.Remote.AuthToken = ""

		if err := cfg.Save(cfg.DefaultPath()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to save config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Signed out %s (local posts are untouched)\n", ui.RenderPass("✓"), user)
	},
}

func init() {
	loginCmd.Flags().String("user", "", "User ID owning the remote posts")
	loginCmd.Flags().String("url", "", "Remote libsql:// database URL")
	loginCmd.Flags().String("token", "", "Remote auth token")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
