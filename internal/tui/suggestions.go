package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/taskdesk/internal/models"
)

// maxSuggestions is how many rows the dropdown shows before "... and N more".
const maxSuggestions = 5

// Suggestions completes the input line. "/" offers bot commands, "@" offers
// people to assign and "!" offers statuses for the selected task.
type Suggestions struct {
	handles  []string
	filtered []SuggestionItem
	selected int
	trigger  byte
}

// SuggestionItem is one completion.
type SuggestionItem struct {
	Text        string
	Description string
}

var botCommands = []SuggestionItem{
	{Text: "/newtask", Description: "Create a task step by step"},
	{Text: "/tasks", Description: "Open tasks of this chat"},
	{Text: "/status", Description: "Change the status of a task"},
	{Text: "/assign", Description: "Hand a task to someone"},
	{Text: "/deadline", Description: "Set or clear a deadline"},
	{Text: "/delete", Description: "Move a task to the trash"},
	{Text: "/cancel", Description: "Abort the current dialog"},
}

var statusDescriptions = map[models.TaskStatus]string{
	models.TaskStatusNew:            "Reopen the selected task",
	models.TaskStatusInProgress:     "Mark the selected task as started",
	models.TaskStatusAwaitingReport: "Wait for a report on the selected task",
	models.TaskStatusDone:           "Close the selected task",
	models.TaskStatusDeleted:        "Move the selected task to the trash",
}

func statusActions() []SuggestionItem {
	items := make([]SuggestionItem, 0, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		items = append(items, SuggestionItem{Text: "!" + string(st), Description: statusDescriptions[st]})
	}
	return items
}

// NewSuggestions creates an empty, hidden dropdown.
func NewSuggestions() *Suggestions {
	return &Suggestions{}
}

// SetHandles replaces the people offered after "@".
func (s *Suggestions) SetHandles(handles []string) {
	s.handles = handles
}

// Update recomputes the dropdown for the current input line.
func (s *Suggestions) Update(input string) {
	s.filtered = nil
	s.trigger = 0
	if input == "" || strings.Contains(input, " ") {
		return
	}

	var candidates []SuggestionItem
	switch input[0] {
	case '/':
		candidates = botCommands
	case '!':
		candidates = statusActions()
	case '@':
		for _, h := range s.handles {
			candidates = append(candidates, SuggestionItem{Text: "@" + h, Description: "Assign the selected task"})
		}
	default:
		return
	}

	s.trigger = input[0]
	query := strings.ToLower(input)
	for _, item := range candidates {
		if strings.HasPrefix(strings.ToLower(item.Text), query) {
			s.filtered = append(s.filtered, item)
		}
	}
	if s.selected >= len(s.filtered) {
		s.selected = 0
	}
}

// Next moves the highlight down, wrapping around.
func (s *Suggestions) Next() {
	if len(s.filtered) > 0 {
		s.selected = (s.selected + 1) % len(s.filtered)
	}
}

// Prev moves the highlight up, wrapping around.
func (s *Suggestions) Prev() {
	if len(s.filtered) > 0 {
		s.selected = (s.selected - 1 + len(s.filtered)) % len(s.filtered)
	}
}

// Selected returns the highlighted item, or nil when the dropdown is hidden.
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.IsVisible() || s.selected >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selected]
}

func (s *Suggestions) IsVisible() bool {
	return len(s.filtered) > 0
}

// Render draws the dropdown below the input box.
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(secondaryColor).
		Padding(0, 1).
		Width(width - 4)

	highlight := lipgloss.NewStyle().
		Background(primaryColor).
		Foreground(fgColor).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true)

	headers := map[byte]string{'/': "Bot commands", '@': "People", '!': "Set status"}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(primaryColor).Render(headers[s.trigger]))
	b.WriteString("\n")

	for i, item := range s.filtered {
		if i == maxSuggestions {
			b.WriteString(descStyle.Render(fmt.Sprintf("  ... and %d more", len(s.filtered)-maxSuggestions)))
			break
		}
		if i == s.selected {
			b.WriteString(highlight.Render("▶ " + item.Text + "  " + item.Description))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(fgColor).Render("  "+item.Text) + "  " + descStyle.Render(item.Description))
		}
		b.WriteString("\n")
	}

	return boxStyle.Render(b.String())
}
