package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "taskdesk",
	Short: "taskdesk - team task tracker",
	Long: `taskdesk tracks team tasks with assignees, deadlines and a full change history.
The daemon serves the HTTP API and sends reminders; the other commands are clients.`,
	SilenceUsage: true,
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	apiAddr    string
	configPath string
	asUser     int64
	asChat     int64
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7466", "API server address")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.taskdesk/config.yaml)")
	rootCmd.PersistentFlags().Int64Var(&asUser, "as", 0, "Act as this user id instead of the logged-in one")
	rootCmd.PersistentFlags().Int64Var(&asChat, "chat", 0, "Chat id the request comes from (default: the user id)")

	// Add subcommands
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
