package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/taskdesk/internal/models"
)

// RenderEvent turns a lifecycle event into a message for its recipient.
func RenderEvent(ev models.Event) Message {
	var b strings.Builder
	switch ev.Kind {
	case models.EventTaskAssigned:
		fmt.Fprintf(&b, "You have a new task #%d\n%s\n", ev.TaskID, ev.Text)
		fmt.Fprintf(&b, "Deadline: %s\nFrom: %d", models.FormatDeadline(ev.Deadline), ev.CreatorID)
	case models.EventTaskClosed:
		verb := "completed"
		if ev.Status == models.TaskStatusDeleted {
			verb = "deleted"
		}
		fmt.Fprintf(&b, "Task #%d was %s by %d\n%s", ev.TaskID, verb, ev.ActorID, ev.Text)
	default:
		fmt.Fprintf(&b, "Task #%d: %s", ev.TaskID, ev.Kind)
	}
	return Message{ChatID: ev.RecipientID, Text: b.String(), TaskID: ev.TaskID}
}

// RenderReminder builds the reminder for an open task whose deadline has come.
// The message goes to the conversation the task was last touched from.
func RenderReminder(task models.Task, now time.Time) Message {
	var b strings.Builder
	if task.Deadline != nil && task.Deadline.Day() < now.Format(models.DateLayout) {
		fmt.Fprintf(&b, "Overdue task #%d", task.ID)
	} else {
		fmt.Fprintf(&b, "Task #%d is due today", task.ID)
	}
	fmt.Fprintf(&b, "\n%s\nDeadline: %s\nStatus: %s", task.Text, models.FormatDeadline(task.Deadline), task.Status)
	if task.Assignee.IsSet() {
		fmt.Fprintf(&b, "\nAssignee: %s", task.Assignee)
	}
	return Message{ChatID: task.ContextID, Text: b.String(), TaskID: task.ID}
}
