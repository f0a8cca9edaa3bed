// Package access decides who may see and change which tasks.
package access

import (
	"strings"
	"sync"

	"github.com/fentz26/taskdesk/internal/models"
)

// Level is the effective authority of an actor.
type Level int

const (
	LevelNone Level = iota
	LevelMember
	LevelModerator
	LevelAdministrator
)

func (l Level) String() string {
	switch l {
	case LevelMember:
		return "member"
	case LevelModerator:
		return "moderator"
	case LevelAdministrator:
		return "administrator"
	}
	return "none"
}

// AuthorizationIndex is the in-memory allow-list built from the users table.
// The administrator is configured once and never stored.
type AuthorizationIndex struct {
	mu      sync.RWMutex
	adminID int64
	users   map[int64]models.User
	handles map[string]int64
}

// NewAuthorizationIndex creates an empty index with the given administrator id.
// An adminID of 0 means there is no administrator.
func NewAuthorizationIndex(adminID int64) *AuthorizationIndex {
	return &AuthorizationIndex{
		adminID: adminID,
		users:   make(map[int64]models.User),
		handles: make(map[string]int64),
	}
}

// Rebuild replaces the snapshot with the given registrations.
func (ix *AuthorizationIndex) Rebuild(users []models.User) {
	byID := make(map[int64]models.User, len(users))
	byHandle := make(map[string]int64, len(users))
	for _, u := range users {
		byID[u.UserID] = u
		if h := normalizeHandle(u.Handle); h != "" {
			if _, taken := byHandle[h]; !taken {
				byHandle[h] = u.UserID
			}
		}
	}

	ix.mu.Lock()
	ix.users = byID
	ix.handles = byHandle
	ix.mu.Unlock()
}

// AdminID returns the configured administrator id.
func (ix *AuthorizationIndex) AdminID() int64 {
	return ix.adminID
}

// Level returns the authority of actor.
func (ix *AuthorizationIndex) Level(actor int64) Level {
	if ix.adminID != 0 && actor == ix.adminID {
		return LevelAdministrator
	}
	ix.mu.RLock()
	u, ok := ix.users[actor]
	ix.mu.RUnlock()
	if !ok {
		return LevelNone
	}
	if u.Role == models.RoleModerator {
		return LevelModerator
	}
	return LevelMember
}

// Handle returns the registered handle of actor without "@", or "".
func (ix *AuthorizationIndex) Handle(actor int64) string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return normalizeHandle(ix.users[actor].Handle)
}

// Resolve maps an assignee to a registered user id. Unknown assignees are
// normal and return false.
func (ix *AuthorizationIndex) Resolve(a models.Assignee) (int64, bool) {
	switch a.Kind {
	case models.AssigneeUserID:
		if ix.Level(a.UserID) == LevelNone {
			return 0, false
		}
		return a.UserID, true
	case models.AssigneeHandle:
		ix.mu.RLock()
		id, ok := ix.handles[normalizeHandle(a.Handle)]
		ix.mu.RUnlock()
		return id, ok
	}
	return 0, false
}

// Len returns the number of registered users.
func (ix *AuthorizationIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.users)
}

func normalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}
