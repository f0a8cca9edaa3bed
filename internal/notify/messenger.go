// Package notify delivers chat messages produced by the lifecycle engine
// and the reminder sweep.
package notify

import (
	"context"
	"log"
	"time"
)

// Message is one chat message addressed to a user or conversation.
type Message struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
	TaskID int64  `json:"task_id,omitempty"`
}

// Messenger defines the interface for sending chat messages.
type Messenger interface {
	// Name returns the messenger identifier.
	Name() string

	// Send delivers text to chatID.
	Send(ctx context.Context, chatID int64, text string) error
}

// LogMessenger writes messages to the process log instead of a chat.
type LogMessenger struct{}

// Name returns "log".
func (LogMessenger) Name() string { return "log" }

// Send logs the message. It never fails.
func (LogMessenger) Send(ctx context.Context, chatID int64, text string) error {
	log.Printf("[notify] to %d: %s", chatID, text)
	return nil
}

// WithTimeout bounds every Send of m by d. A zero or negative d returns m.
func WithTimeout(m Messenger, d time.Duration) Messenger {
	if d <= 0 {
		return m
	}
	return &timeoutMessenger{Messenger: m, timeout: d}
}

type timeoutMessenger struct {
	Messenger
	timeout time.Duration
}

func (t *timeoutMessenger) Send(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Messenger.Send(ctx, chatID, text)
}
