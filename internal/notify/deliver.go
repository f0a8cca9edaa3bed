package notify

import (
	"context"
	"fmt"
	"strings"
)

// Failure is a message that could not be delivered.
type Failure struct {
	Message Message
	Err     error
}

// Report summarizes a batch delivery.
type Report struct {
	Attempted int
	Delivered int
	Failures  []Failure
}

// OK reports whether every message went out.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Err folds the failures into one error, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	parts := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		parts = append(parts, fmt.Sprintf("chat %d: %v", f.Message.ChatID, f.Err))
	}
	return fmt.Errorf("%d of %d messages failed: %s", len(r.Failures), r.Attempted, strings.Join(parts, "; "))
}

// DeliverAll attempts every message in order and collects the failures.
// A failed message never stops the rest of the batch. Once ctx is done the
// remaining messages are reported as failed without being attempted.
func DeliverAll(ctx context.Context, m Messenger, msgs []Message) *Report {
	report := &Report{Attempted: len(msgs)}
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, Failure{Message: msg, Err: err})
			continue
		}
		if err := m.Send(ctx, msg.ChatID, msg.Text); err != nil {
			report.Failures = append(report.Failures, Failure{Message: msg, Err: err})
			continue
		}
		report.Delivered++
	}
	return report
}
