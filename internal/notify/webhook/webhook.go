// Package webhook sends chat messages to an HTTP bridge in front of the
// messaging platform.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Messenger posts {"chat_id":…,"text":…} to a bridge URL.
type Messenger struct {
	url    string
	client *http.Client
}

// New creates a webhook messenger. A zero timeout defaults to 10 seconds.
func New(url string, timeout time.Duration) *Messenger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Messenger{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns "webhook".
func (m *Messenger) Name() string {
	return "webhook"
}

type payload struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Send posts one message. Any non-2xx answer is an error.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(payload{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
