package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the bot the way a chat client would",
	Long: `Sends one message to the bot, or reads messages from stdin when none is given.
Wizard state is kept by the daemon per user, so a multi-step
/newtask can be answered across several invocations.`,
	RunE: runChat,
}

type chatReply struct {
	Text  string `json:"text"`
	State string `json:"state"`
}

func runChat(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return sendChat(strings.Join(args, " "))
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			fmt.Print("> ")
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := sendChat(line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

func sendChat(text string) error {
	resp, err := apiPost("/chat", map[string]string{"text": text})
	if err != nil {
		return err
	}

	var reply chatReply
	if err := json.Unmarshal(resp, &reply); err != nil {
		return err
	}
	fmt.Println(reply.Text)
	return nil
}
