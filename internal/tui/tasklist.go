package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/taskdesk/internal/models"
)

// listFilter is one of the views cycled with Tab.
type listFilter struct {
	Name    string
	Exclude []models.TaskStatus
}

var filters = []listFilter{
	{Name: "OPEN", Exclude: []models.TaskStatus{models.TaskStatusDone, models.TaskStatusDeleted}},
	{Name: "ALL", Exclude: []models.TaskStatus{models.TaskStatusDeleted}},
	{Name: "DONE", Exclude: []models.TaskStatus{models.TaskStatusNew, models.TaskStatusInProgress, models.TaskStatusAwaitingReport, models.TaskStatusDeleted}},
	{Name: "TRASH", Exclude: []models.TaskStatus{models.TaskStatusNew, models.TaskStatusInProgress, models.TaskStatusAwaitingReport, models.TaskStatusDone}},
}

// listPageSize caps how many rows the list loads at once.
const listPageSize = 200

// Query returns the /tasks parameters of the filter.
func (f listFilter) Query() url.Values {
	q := url.Values{}
	names := make([]string, len(f.Exclude))
	for i, st := range f.Exclude {
		names[i] = string(st)
	}
	q.Set("exclude", strings.Join(names, ","))
	q.Set("order", "deadline")
	q.Set("page_size", fmt.Sprint(listPageSize))
	return q
}

func formatStatus(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusNew:
		return lipgloss.NewStyle().Foreground(warningColor).Render("○ NEW")
	case models.TaskStatusInProgress:
		return lipgloss.NewStyle().Foreground(primaryColor).Render("◑ IN PROGRESS")
	case models.TaskStatusAwaitingReport:
		return lipgloss.NewStyle().Foreground(secondaryColor).Render("◐ AWAITING REPORT")
	case models.TaskStatusDone:
		return lipgloss.NewStyle().Foreground(successColor).Render("● DONE")
	case models.TaskStatusDeleted:
		return lipgloss.NewStyle().Foreground(mutedColor).Render("✗ DELETED")
	default:
		return string(status)
	}
}

func formatStatusPlain(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusNew:
		return "○"
	case models.TaskStatusInProgress:
		return "◑"
	case models.TaskStatusAwaitingReport:
		return "◐"
	case models.TaskStatusDone:
		return "●"
	case models.TaskStatusDeleted:
		return "✗"
	default:
		return "?"
	}
}

// taskLine is the one-line summary shown in the list.
func taskLine(t models.Task, now time.Time) string {
	who := "nobody"
	if t.Assignee.IsSet() {
		who = t.Assignee.String()
	}
	due := ""
	if t.Deadline != nil {
		due = "  due " + t.Deadline.String()
		if t.Overdue(now) {
			due = lipgloss.NewStyle().Foreground(errorColor).Render(due)
		}
	}
	return fmt.Sprintf("#%-4d %s  %s%s", t.ID, truncate(t.Text, 50), lipgloss.NewStyle().Foreground(cyanColor).Render(who), due)
}

func (a *App) renderTaskList(height int) string {
	if a.loading {
		return "\n  Loading tasks...\n"
	}
	if len(a.tasks) == 0 {
		return "\n  No tasks found. Type: add <text> to create one.\n"
	}

	now := time.Now()
	var lines []string
	for i, task := range a.tasks {
		if i == a.selectedIdx {
			line := selectedStyle.Render(fmt.Sprintf("▶ %s  %s", formatStatusPlain(task.Status), taskLine(task, now)))
			lines = append(lines, line)
		} else {
			line := taskItemStyle.Render(fmt.Sprintf("  %s  %s", formatStatus(task.Status), taskLine(task, now)))
			lines = append(lines, line)
		}
	}

	// Limit visible lines
	if len(lines) > height {
		start := a.selectedIdx - height/2
		if start < 0 {
			start = 0
		}
		end := start + height
		if end > len(lines) {
			end = len(lines)
			start = max(0, end-height)
		}
		lines = lines[start:end]
	}

	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
