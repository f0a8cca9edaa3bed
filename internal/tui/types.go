package tui

import "github.com/fentz26/taskdesk/internal/models"

type commandResultMsg struct {
	message string
	// refresh reloads the list, and the detail view when it is open.
	refresh bool
}

type errMsg struct {
	err error
}

type tasksLoadedMsg struct {
	tasks []models.Task
	total int
}

type taskDetailLoadedMsg struct {
	task    *models.Task
	history []models.HistoryEntry
}

type daemonStatusMsg struct {
	online bool
}

type handlesLoadedMsg struct {
	handles []string
}
