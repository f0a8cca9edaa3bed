// Package tui provides the interactive terminal UI for taskdesk.
package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/taskdesk/internal/auth"
	"github.com/fentz26/taskdesk/internal/models"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	taskItemStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// App is the main TUI application model.
type App struct {
	client       *Client
	tasks        []models.Task
	total        int
	selectedIdx  int
	input        textinput.Model
	viewport     viewport.Model
	width        int
	height       int
	mode         string // "list", "detail"
	currentTask  *models.Task
	history      []models.HistoryEntry
	message      string
	filterIdx    int
	loading      bool
	daemonOnline bool
	suggestions  *Suggestions
	handles      []string
}

// New creates a new TUI application acting as id.
func New(apiAddr string, id auth.Identity) *App {
	ti := textinput.New()
	ti.Placeholder = "Type: add <text> | due <date> | note <text> | @who | !status | /newtask"
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 80

	return &App{
		client:      NewClient(apiAddr, id),
		input:       ti,
		viewport:    viewport.New(80, 20),
		mode:        "list",
		suggestions: NewSuggestions(),
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		a.fetchTasks(),
		a.checkDaemon(),
		a.fetchHandles(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "esc":
			if a.suggestions.IsVisible() {
				a.input.SetValue("")
				a.suggestions.Update("")
				return a, nil
			}
			if a.mode == "detail" {
				a.mode = "list"
				a.currentTask = nil
				a.history = nil
				return a, a.fetchTasks()
			}

		case "up":
			if a.suggestions.IsVisible() {
				a.suggestions.Prev()
			} else if a.mode == "list" && a.selectedIdx > 0 {
				a.selectedIdx--
			} else if a.mode == "detail" {
				a.viewport.LineUp(1)
			}
			return a, nil

		case "down":
			if a.suggestions.IsVisible() {
				a.suggestions.Next()
			} else if a.mode == "list" && a.selectedIdx < len(a.tasks)-1 {
				a.selectedIdx++
			} else if a.mode == "detail" {
				a.viewport.LineDown(1)
			}
			return a, nil

		case "pgup", "pgdown":
			if a.mode == "detail" {
				var cmd tea.Cmd
				a.viewport, cmd = a.viewport.Update(msg)
				return a, cmd
			}

		case "tab":
			// If suggestions visible, accept selection
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue(selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}
			if a.mode == "list" {
				a.filterIdx = (a.filterIdx + 1) % len(filters)
				a.selectedIdx = 0
				return a, a.fetchTasks()
			}
			return a, nil

		case "ctrl+r":
			if a.mode == "detail" && a.currentTask != nil {
				return a, a.fetchTaskDetail(a.currentTask.ID)
			}
			return a, a.fetchTasks()

		case "enter":
			// If suggestions visible, accept selection
			if a.suggestions.IsVisible() {
				if selected := a.suggestions.Selected(); selected != nil {
					a.input.SetValue(selected.Text + " ")
					a.input.CursorEnd()
					a.suggestions.Update("")
				}
				return a, nil
			}
			cmd := strings.TrimSpace(a.input.Value())
			if cmd != "" {
				a.input.SetValue("")
				return a, a.executeCommand(cmd)
			} else if a.mode == "list" && len(a.tasks) > 0 {
				a.mode = "detail"
				return a, a.fetchTaskDetail(a.tasks[a.selectedIdx].ID)
			}
			return a, nil
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 6
		a.viewport.Width = msg.Width
		a.viewport.Height = max(5, msg.Height-9)
		if a.currentTask != nil {
			a.viewport.SetContent(renderTaskDetail(a.currentTask, a.history, time.Now()))
		}

	case tasksLoadedMsg:
		a.loading = false
		a.tasks = msg.tasks
		a.total = msg.total
		if a.selectedIdx >= len(a.tasks) {
			a.selectedIdx = max(0, len(a.tasks)-1)
		}

	case taskDetailLoadedMsg:
		a.currentTask = msg.task
		a.history = msg.history
		a.viewport.SetContent(renderTaskDetail(msg.task, msg.history, time.Now()))
		a.viewport.GotoTop()

	case daemonStatusMsg:
		a.daemonOnline = msg.online

	case handlesLoadedMsg:
		a.handles = msg.handles

	case commandResultMsg:
		a.message = msg.message
		if msg.refresh {
			cmds = append(cmds, a.fetchTasks())
			if a.mode == "detail" && a.currentTask != nil {
				cmds = append(cmds, a.fetchTaskDetail(a.currentTask.ID))
			}
		}
		return a, tea.Batch(cmds...)

	case errMsg:
		a.loading = false
		a.message = "Error: " + msg.err.Error()
		var apiErr *APIError
		if !errors.As(msg.err, &apiErr) {
			a.daemonOnline = false
		}
	}

	// Update input
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)

	if strings.HasPrefix(a.input.Value(), "@") {
		a.suggestions.SetHandles(a.knownHandles())
	}
	a.suggestions.Update(a.input.Value())

	return a, tea.Batch(cmds...)
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = offlineStyle.Render("○ DAEMON")
	}
	id := a.client.Identity()
	user := lipgloss.NewStyle().Foreground(successColor).Render(fmt.Sprintf("● user %d", id.ActorID))

	header := titleStyle.Render("TASKDESK")
	header += "  " + daemonStatus
	header += "  " + user
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", a.width) + "\n")

	contentHeight := a.height - 9
	if contentHeight < 5 {
		contentHeight = 5
	}

	switch a.mode {
	case "list":
		filterLabel := fmt.Sprintf(" Filter: [%s]  %d of %d", filters[a.filterIdx].Name, len(a.tasks), a.total)
		b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render(filterLabel) + "\n")
		b.WriteString(a.renderTaskList(contentHeight - 1))
	case "detail":
		if a.currentTask == nil {
			b.WriteString("\n  Loading...\n")
		} else {
			b.WriteString(a.viewport.View())
		}
	}

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))

	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	var status string
	switch a.mode {
	case "list":
		status = " ↑↓:nav | Enter:open | Tab:filter | Ctrl+R:refresh | Ctrl+C:quit"
	default:
		status = " ↑↓/PgUp/PgDn:scroll | Esc:back | Ctrl+R:refresh | Ctrl+C:quit"
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(status))

	return b.String()
}

// selectedID is the task the input commands act on.
func (a *App) selectedID() int64 {
	if a.mode == "detail" && a.currentTask != nil {
		return a.currentTask.ID
	}
	if len(a.tasks) == 0 {
		return 0
	}
	return a.tasks[a.selectedIdx].ID
}

// knownHandles merges the allow-list with the assignees seen in the list.
func (a *App) knownHandles() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(h string) {
		if h != "" && !seen[strings.ToLower(h)] {
			seen[strings.ToLower(h)] = true
			out = append(out, h)
		}
	}
	for _, h := range a.handles {
		add(h)
	}
	for _, t := range a.tasks {
		if t.Assignee.Kind == models.AssigneeHandle {
			add(t.Assignee.Handle)
		}
	}
	sort.Strings(out)
	return out
}

func (a *App) fetchTasks() tea.Cmd {
	a.loading = true
	q := filters[a.filterIdx].Query()
	return func() tea.Msg {
		tasks, total, err := a.client.ListTasks(q)
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{tasks, total}
	}
}

func (a *App) fetchTaskDetail(taskID int64) tea.Cmd {
	return func() tea.Msg {
		task, err := a.client.GetTask(taskID)
		if err != nil {
			return errMsg{err}
		}
		history, err := a.client.History(taskID)
		if err != nil {
			return errMsg{err}
		}
		return taskDetailLoadedMsg{task, history}
	}
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, err := a.client.CheckHealth()
		return daemonStatusMsg{online: err == nil && ok}
	}
}

// fetchHandles loads the allow-list. Members are not allowed to read it and
// fall back to the assignees they can see.
func (a *App) fetchHandles() tea.Cmd {
	return func() tea.Msg {
		users, err := a.client.ListUsers()
		if err != nil {
			return handlesLoadedMsg{}
		}
		var handles []string
		for _, u := range users {
			if u.Handle != "" {
				handles = append(handles, u.Handle)
			}
		}
		return handlesLoadedMsg{handles}
	}
}

func (a *App) executeCommand(input string) tea.Cmd {
	taskID := a.selectedID()

	// "/..." is a message for the bot, "@who" reassigns, "!status" moves.
	switch {
	case strings.HasPrefix(input, "/"):
		return func() tea.Msg {
			reply, err := a.client.Chat(input)
			if err != nil {
				return commandResultMsg{message: "Error: " + err.Error()}
			}
			return commandResultMsg{message: strings.ReplaceAll(reply.Text, "\n", " | "), refresh: reply.Task != nil}
		}
	case strings.HasPrefix(input, "@"):
		return a.onSelected(taskID, func(id int64) (string, error) {
			t, err := a.client.Reassign(id, input)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ #%d assigned to %s", t.ID, assigneeLabel(t.Assignee)), nil
		})
	case strings.HasPrefix(input, "!"):
		return a.onSelected(taskID, func(id int64) (string, error) {
			t, err := a.client.ChangeStatus(id, strings.TrimPrefix(input, "!"))
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ #%d is now %s", t.ID, t.Status), nil
		})
	}

	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "add":
		if rest == "" {
			return result("Usage: add <text>", false)
		}
		return func() tea.Msg {
			t, err := a.client.CreateTask(rest, "", "")
			if err != nil {
				return commandResultMsg{message: "Error: " + err.Error()}
			}
			return commandResultMsg{message: fmt.Sprintf("✓ Created task #%d", t.ID), refresh: true}
		}

	case "due":
		return a.onSelected(taskID, func(id int64) (string, error) {
			t, err := a.client.Reschedule(id, rest)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ #%d due %s", t.ID, models.FormatDeadline(t.Deadline)), nil
		})

	case "note":
		if rest == "" {
			return result("Usage: note <text>", false)
		}
		return a.onSelected(taskID, func(id int64) (string, error) {
			t, err := a.client.AppendText(id, rest)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("✓ Note added to #%d", t.ID), nil
		})

	case "whoami":
		id := a.client.Identity()
		return result(fmt.Sprintf("Acting as user %d in chat %d", id.ActorID, id.ContextID), false)

	case "q", "quit", "exit":
		return tea.Quit

	default:
		return result(fmt.Sprintf("Unknown: %s (try: add, due, note, @who, !status, /newtask)", cmd), false)
	}
}

// onSelected runs fn against the selected task and reports the outcome.
func (a *App) onSelected(taskID int64, fn func(id int64) (string, error)) tea.Cmd {
	if taskID == 0 {
		return result("No task selected", false)
	}
	return func() tea.Msg {
		msg, err := fn(taskID)
		if err != nil {
			return commandResultMsg{message: "Error: " + err.Error()}
		}
		return commandResultMsg{message: msg, refresh: true}
	}
}

func result(message string, refresh bool) tea.Cmd {
	return func() tea.Msg {
		return commandResultMsg{message: message, refresh: refresh}
	}
}
