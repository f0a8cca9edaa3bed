// Package models defines the core domain types for taskdesk.
package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusNew            TaskStatus = "new"
	TaskStatusInProgress     TaskStatus = "in_progress"
	TaskStatusAwaitingReport TaskStatus = "awaiting_report"
	TaskStatusDone           TaskStatus = "done"
	TaskStatusDeleted        TaskStatus = "deleted"
)

// AllStatuses lists every status in display order.
var AllStatuses = []TaskStatus{
	TaskStatusNew,
	TaskStatusInProgress,
	TaskStatusAwaitingReport,
	TaskStatusDone,
	TaskStatusDeleted,
}

// ParseStatus normalizes user input into a TaskStatus.
func ParseStatus(s string) (TaskStatus, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	for _, st := range AllStatuses {
		if v == string(st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Closed reports whether the status ends the task's active life.
func (s TaskStatus) Closed() bool {
	return s == TaskStatusDone || s == TaskStatusDeleted
}

// Task is a unit of work tracked by the bot.
type Task struct {
	ID        int64      `json:"id"`
	CreatorID int64      `json:"creator_id"`
	Assignee  Assignee   `json:"assignee"`
	ContextID int64      `json:"context_id"`
	Text      string     `json:"text"`
	Status    TaskStatus `json:"status"`
	Deadline  *Deadline  `json:"deadline,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Overdue reports whether the task is open and its deadline day has arrived.
func (t *Task) Overdue(now time.Time) bool {
	if t.Deadline == nil || t.Status.Closed() {
		return false
	}
	return t.Deadline.DueBy(now)
}

// HistoryEntry is a snapshot of a task taken right before a mutation.
type HistoryEntry struct {
	LogID    int64     `json:"log_id"`
	LoggedAt time.Time `json:"logged_at"`
	Task
}

// Role is the stored role of a registered user. Administrators are
// configured out of band and never stored.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
)

// ParseRole validates a stored or user-supplied role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleMember:
		return RoleMember, nil
	case RoleModerator:
		return RoleModerator, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is an entry in the allow-list of people permitted to use the bot.
type User struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Role        Role   `json:"role"`
}

// EventKind identifies a notification emitted by the lifecycle engine.
type EventKind string

const (
	EventTaskAssigned EventKind = "task.assigned"
	EventTaskClosed   EventKind = "task.closed"
)

// Event is a notification about a task for a single recipient.
type Event struct {
	Kind        EventKind  `json:"kind"`
	TaskID      int64      `json:"task_id"`
	Text        string     `json:"text"`
	Assignee    Assignee   `json:"assignee"`
	Deadline    *Deadline  `json:"deadline,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatorID   int64      `json:"creator_id"`
	ActorID     int64      `json:"actor_id"`
	RecipientID int64      `json:"recipient_id"`
	ContextID   int64      `json:"context_id"`
}

// JournalEntry records the decision taken for one lifecycle request.
type JournalEntry struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Outcome    string    `json:"outcome"`
	TaskID     int64     `json:"task_id,omitempty"`
	ActorID    int64     `json:"actor_id"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
