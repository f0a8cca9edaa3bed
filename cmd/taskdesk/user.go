package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fentz26/taskdesk/internal/models"
	"github.com/spf13/cobra"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the list of allowed users",
}

var userAddCmd = &cobra.Command{
	Use:   "add [user-id]",
	Short: "Allow a user, or update an existing one",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userRemoveCmd = &cobra.Command{
	Use:   "remove [user-id]",
	Short: "Remove a user from the allow-list",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserRemove,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List allowed users",
	RunE:  runUserList,
}

var (
	userHandle string
	userName   string
	userRole   string
)

func init() {
	userCmd.AddCommand(userAddCmd, userRemoveCmd, userListCmd)

	userAddCmd.Flags().StringVar(&userHandle, "handle", "", "Chat handle without @")
	userAddCmd.Flags().StringVar(&userName, "name", "", "Display name")
	userAddCmd.Flags().StringVar(&userRole, "role", "member", "Role: member or moderator")
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid user id %q", args[0])
	}
	role, err := models.ParseRole(userRole)
	if err != nil {
		return err
	}

	u := models.User{UserID: id, Handle: userHandle, DisplayName: userName, Role: role}
	if _, err := apiPost("/users", u); err != nil {
		return err
	}

	fmt.Printf("User %d allowed as %s\n", id, role)
	return nil
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	if _, err := apiDelete("/users/" + args[0]); err != nil {
		return err
	}
	fmt.Printf("User %s removed\n", args[0])
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/users")
	if err != nil {
		return err
	}

	var users []models.User
	if err := json.Unmarshal(resp, &users); err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tHANDLE\tNAME\tROLE")
	for _, u := range users {
		handle := "-"
		if u.Handle != "" {
			handle = "@" + u.Handle
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.UserID, handle, u.DisplayName, u.Role)
	}
	w.Flush()
	return nil
}
