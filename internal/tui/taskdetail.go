package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/taskdesk/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// renderTaskDetail lays out a task and its previous versions for the viewport.
func renderTaskDetail(t *models.Task, history []models.HistoryEntry, now time.Time) string {
	var b strings.Builder

	title, _, _ := strings.Cut(t.Text, "\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("#%d %s", t.ID, title)))
	b.WriteString("\n\n")

	b.WriteString(renderField("Status", formatStatus(t.Status)))
	b.WriteString(renderField("Assignee", assigneeLabel(t.Assignee)))
	due := models.FormatDeadline(t.Deadline)
	if t.Overdue(now) {
		due = lipgloss.NewStyle().Foreground(errorColor).Render(due + " (overdue)")
	}
	b.WriteString(renderField("Deadline", due))
	b.WriteString(renderField("Creator", fmt.Sprint(t.CreatorID)))
	b.WriteString(renderField("Chat", fmt.Sprint(t.ContextID)))
	b.WriteString(renderField("Updated", t.UpdatedAt.Local().Format("2006-01-02 15:04")))

	b.WriteString(sectionStyle.Render("Text"))
	b.WriteString("\n")
	for _, line := range strings.Split(t.Text, "\n") {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("History (%d)", len(history))))
	b.WriteString("\n")
	if len(history) == 0 {
		b.WriteString(labelStyle.Render("  No earlier versions") + "\n")
	}
	// Newest first; each entry is the task as it was before a change.
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		b.WriteString(fmt.Sprintf("  %s  %s  %s  due %s  %s\n",
			labelStyle.Render(h.LoggedAt.Local().Format("2006-01-02 15:04")),
			formatStatusPlain(h.Status),
			assigneeLabel(h.Assignee),
			models.FormatDeadline(h.Deadline),
			truncate(h.Text, 40),
		))
	}

	return b.String()
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func assigneeLabel(a models.Assignee) string {
	if !a.IsSet() {
		return "nobody"
	}
	return a.String()
}
