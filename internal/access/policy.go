package access

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fentz26/taskdesk/internal/models"
)

// Scope says which tasks a regular member may act on.
type Scope string

const (
	ScopeCreator           Scope = "creator"
	ScopeCreatorOrAssignee Scope = "creator_or_assignee"
	ScopeAnyone            Scope = "anyone"
)

// ParseScope validates a scope name; empty means ScopeCreator.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeCreator:
		return ScopeCreator, nil
	case ScopeCreatorOrAssignee:
		return ScopeCreatorOrAssignee, nil
	case ScopeAnyone:
		return ScopeAnyone, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Matrix holds the member rules. Moderators and the administrator are not
// affected by it.
type Matrix struct {
	MemberView   Scope
	MemberModify Scope
	MemberStatus Scope
}

// DefaultMatrix restricts members to the tasks they created.
func DefaultMatrix() Matrix {
	return Matrix{
		MemberView:   ScopeCreator,
		MemberModify: ScopeCreator,
		MemberStatus: ScopeCreator,
	}
}

// Policy answers access questions against an index and a matrix.
type Policy struct {
	index  *AuthorizationIndex
	matrix Matrix
}

// NewPolicy creates a policy. Empty matrix scopes fall back to ScopeCreator.
func NewPolicy(index *AuthorizationIndex, matrix Matrix) *Policy {
	def := DefaultMatrix()
	if matrix.MemberView == "" {
		matrix.MemberView = def.MemberView
	}
	if matrix.MemberModify == "" {
		matrix.MemberModify = def.MemberModify
	}
	if matrix.MemberStatus == "" {
		matrix.MemberStatus = def.MemberStatus
	}
	return &Policy{index: index, matrix: matrix}
}

// Index returns the authorization index backing the policy.
func (p *Policy) Index() *AuthorizationIndex {
	return p.index
}

// Matrix returns the member rules in effect.
func (p *Policy) Matrix() Matrix {
	return p.matrix
}

// Authorized reports whether actor may use the system at all.
func (p *Policy) Authorized(actor int64) bool {
	return p.index.Level(actor) != LevelNone
}

// CanView reports whether actor may see task.
func (p *Policy) CanView(actor int64, task *models.Task) bool {
	return p.allow(actor, task, p.matrix.MemberView)
}

// CanModify reports whether actor may reassign, reschedule or annotate task.
func (p *Policy) CanModify(actor int64, task *models.Task) bool {
	return p.allow(actor, task, p.matrix.MemberModify)
}

// CanSetStatus reports whether actor may move task to target. Setting
// deleted always requires the creator or a moderator, whatever the matrix says.
func (p *Policy) CanSetStatus(actor int64, task *models.Task, target models.TaskStatus) bool {
	if target == models.TaskStatusDeleted {
		switch p.index.Level(actor) {
		case LevelAdministrator, LevelModerator:
			return true
		case LevelMember:
			return task.CreatorID == actor
		}
		return false
	}
	return p.allow(actor, task, p.matrix.MemberStatus)
}

// CanReplaceText reports whether actor may overwrite the text of task.
func (p *Policy) CanReplaceText(actor int64, task *models.Task) bool {
	return p.allow(actor, task, ScopeCreator)
}

// CanAppendText reports whether actor may add a note to task.
func (p *Policy) CanAppendText(actor int64, task *models.Task) bool {
	return p.CanModify(actor, task)
}

// CanHardDelete reports whether actor may remove tasks with their history.
func (p *Policy) CanHardDelete(actor int64) bool {
	return p.index.Level(actor) == LevelAdministrator
}

// CanManageUsers reports whether actor may change the allow-list.
func (p *Policy) CanManageUsers(actor int64) bool {
	return p.index.Level(actor) == LevelAdministrator
}

// ViewAll reports whether actor sees every task in listings.
func (p *Policy) ViewAll(actor int64) bool {
	switch p.index.Level(actor) {
	case LevelAdministrator, LevelModerator:
		return true
	case LevelMember:
		return p.matrix.MemberView == ScopeAnyone
	}
	return false
}

// AssigneeKeys returns the canonical assignee strings that refer to actor,
// for use in list filters. It is empty unless the view scope includes
// assigned tasks.
func (p *Policy) AssigneeKeys(actor int64) []string {
	if p.matrix.MemberView != ScopeCreatorOrAssignee {
		return nil
	}
	keys := []string{strconv.FormatInt(actor, 10)}
	if h := p.index.Handle(actor); h != "" {
		keys = append(keys, "@"+h)
	}
	return keys
}

func (p *Policy) allow(actor int64, task *models.Task, scope Scope) bool {
	switch p.index.Level(actor) {
	case LevelAdministrator, LevelModerator:
		return true
	case LevelNone:
		return false
	}

	switch scope {
	case ScopeAnyone:
		return true
	case ScopeCreatorOrAssignee:
		return task.CreatorID == actor || task.Assignee.Matches(actor, p.index.Handle(actor))
	default:
		return task.CreatorID == actor
	}
}
