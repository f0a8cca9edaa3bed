package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fentz26/taskdesk/internal/auth"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login [user-id]",
	Short: "Remember which user this CLI acts as",
	Long: `Checks with the daemon that the user is allowed and saves the identity
to ~/.config/taskdesk/credentials.json for later commands.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := auth.NewManager()
		if err != nil {
			return err
		}
		if err := mgr.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity used for requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := currentIdentity()
		if err != nil {
			return err
		}
		fmt.Printf("User: %d\n", id.ActorID)
		fmt.Printf("Chat: %d\n", id.ContextID)
		if id.Handle != "" {
			fmt.Printf("Handle: @%s\n", id.Handle)
		}
		return nil
	},
}

var loginHandle string

func init() {
	loginCmd.Flags().StringVar(&loginHandle, "handle", "", "Your chat handle, used by the TUI for @mentions")
}

func runLogin(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	mgr, err := auth.NewManager()
	if err != nil {
		return err
	}

	verify := func(ctx context.Context, id auth.Identity) error {
		_, err := apiRequestAs(id, http.MethodGet, "/tasks?page_size=1", nil)
		return err
	}

	id, err := mgr.Login(cmd.Context(), auth.Identity{ActorID: userID, ContextID: asChat, Handle: loginHandle}, verify)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Logged in as user %d (chat %d)\n", id.ActorID, id.ContextID)
	return nil
}
