package access

import (
	"testing"

	"github.com/fentz26/taskdesk/internal/models"
)

const (
	adminID  = 1
	modID    = 2
	aliceID  = 10
	bobID    = 11
	outsider = 99
)

func newTestPolicy(m Matrix) *Policy {
	ix := NewAuthorizationIndex(adminID)
	ix.Rebuild([]models.User{
		{UserID: modID, Role: models.RoleModerator},
		{UserID: aliceID, Handle: "alice", Role: models.RoleMember},
		{UserID: bobID, Handle: "@Bob", Role: models.RoleMember},
	})
	return NewPolicy(ix, m)
}

func TestLevels(t *testing.T) {
	p := newTestPolicy(DefaultMatrix())
	ix := p.Index()

	tests := []struct {
		actor int64
		want  Level
	}{
		{adminID, LevelAdministrator},
		{modID, LevelModerator},
		{aliceID, LevelMember},
		{outsider, LevelNone},
	}
	for _, tt := range tests {
		if got := ix.Level(tt.actor); got != tt.want {
			t.Errorf("Level(%d) = %s, want %s", tt.actor, got, tt.want)
		}
	}

	if !p.Authorized(adminID) {
		t.Error("Administrator must be authorized without a users row")
	}
	if p.Authorized(outsider) {
		t.Error("Unregistered actor must not be authorized")
	}
}

func TestRebuildReplacesSnapshot(t *testing.T) {
	p := newTestPolicy(DefaultMatrix())
	p.Index().Rebuild([]models.User{{UserID: bobID, Role: models.RoleModerator}})

	if p.Authorized(aliceID) {
		t.Error("Removed user should lose access after rebuild")
	}
	if p.Index().Level(bobID) != LevelModerator {
		t.Error("Promoted user should be moderator after rebuild")
	}
	if p.Index().Len() != 1 {
		t.Errorf("Expected 1 user, got %d", p.Index().Len())
	}
}

func TestResolve(t *testing.T) {
	ix := newTestPolicy(DefaultMatrix()).Index()

	if id, ok := ix.Resolve(models.HandleAssignee("BOB")); !ok || id != bobID {
		t.Errorf("Resolve(@BOB) = %d, %v", id, ok)
	}
	if id, ok := ix.Resolve(models.UserAssignee(aliceID)); !ok || id != aliceID {
		t.Errorf("Resolve(%d) = %d, %v", aliceID, id, ok)
	}
	if _, ok := ix.Resolve(models.HandleAssignee("stranger")); ok {
		t.Error("Unknown handle must not resolve")
	}
	if _, ok := ix.Resolve(models.UserAssignee(outsider)); ok {
		t.Error("Unregistered id must not resolve")
	}
	if _, ok := ix.Resolve(models.NoAssignee); ok {
		t.Error("Unassigned must not resolve")
	}
}

func TestDefaultMatrixCreatorOnly(t *testing.T) {
	p := newTestPolicy(DefaultMatrix())
	aliceTask := &models.Task{ID: 1, CreatorID: aliceID, Assignee: models.HandleAssignee("bob")}

	if !p.CanView(aliceID, aliceTask) || !p.CanModify(aliceID, aliceTask) {
		t.Error("Creator must view and modify own task")
	}
	if p.CanView(bobID, aliceTask) || p.CanModify(bobID, aliceTask) {
		t.Error("Assignee must not act under creator scope")
	}
	if !p.CanModify(modID, aliceTask) || !p.CanModify(adminID, aliceTask) {
		t.Error("Moderator and administrator modify any task")
	}
	if p.CanView(outsider, aliceTask) {
		t.Error("Outsider must not view")
	}
}

func TestSoftDeleteRules(t *testing.T) {
	p := newTestPolicy(Matrix{MemberStatus: ScopeAnyone})
	aliceTask := &models.Task{ID: 1, CreatorID: aliceID}

	if !p.CanSetStatus(aliceID, aliceTask, models.TaskStatusDeleted) {
		t.Error("Creator must be able to soft-delete own task")
	}
	if p.CanSetStatus(bobID, aliceTask, models.TaskStatusDeleted) {
		t.Error("Member must not soft-delete someone else's task")
	}
	if !p.CanSetStatus(bobID, aliceTask, models.TaskStatusDone) {
		t.Error("Anyone scope should allow non-delete status changes")
	}
	if !p.CanSetStatus(modID, aliceTask, models.TaskStatusDeleted) {
		t.Error("Moderator must be able to soft-delete any task")
	}
	if p.CanSetStatus(outsider, aliceTask, models.TaskStatusDeleted) {
		t.Error("Outsider must not soft-delete")
	}
}

func TestCreatorOrAssigneeScope(t *testing.T) {
	p := newTestPolicy(Matrix{MemberView: ScopeCreatorOrAssignee, MemberModify: ScopeCreatorOrAssignee})
	byHandle := &models.Task{ID: 1, CreatorID: aliceID, Assignee: models.HandleAssignee("bob")}
	byID := &models.Task{ID: 2, CreatorID: aliceID, Assignee: models.UserAssignee(bobID)}

	if !p.CanView(bobID, byHandle) || !p.CanModify(bobID, byID) {
		t.Error("Assignee should act under creator_or_assignee scope")
	}
	if p.CanReplaceText(bobID, byHandle) {
		t.Error("Text replacement stays with the creator")
	}
	if !p.CanAppendText(bobID, byHandle) {
		t.Error("Assignee should be able to append")
	}

	keys := p.AssigneeKeys(bobID)
	if len(keys) != 2 || keys[0] != "11" || keys[1] != "@bob" {
		t.Errorf("Unexpected assignee keys: %v", keys)
	}
	if keys := newTestPolicy(DefaultMatrix()).AssigneeKeys(bobID); keys != nil {
		t.Errorf("Creator scope should not produce assignee keys, got %v", keys)
	}
}

func TestAdministratorOnlyActions(t *testing.T) {
	p := newTestPolicy(DefaultMatrix())

	if !p.CanHardDelete(adminID) || !p.CanManageUsers(adminID) {
		t.Error("Administrator must hard-delete and manage users")
	}
	if p.CanHardDelete(modID) || p.CanManageUsers(modID) {
		t.Error("Moderator must not hard-delete or manage users")
	}
	if !p.ViewAll(modID) || p.ViewAll(aliceID) {
		t.Error("Only moderators and the administrator see every task by default")
	}
}

func TestParseScope(t *testing.T) {
	for _, in := range []string{"", "creator", "Creator_Or_Assignee", "anyone"} {
		if _, err := ParseScope(in); err != nil {
			t.Errorf("ParseScope(%q) failed: %v", in, err)
		}
	}
	if _, err := ParseScope("everyone"); err == nil {
		t.Error("Expected error for unknown scope")
	}
}
