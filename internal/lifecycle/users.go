package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/fentz26/taskdesk/internal/access"
	"github.com/fentz26/taskdesk/internal/audit"
	"github.com/fentz26/taskdesk/internal/models"
	"github.com/fentz26/taskdesk/internal/store"
)

// --- User Operations ---

// AddUser registers or updates a user and refreshes the allow-list.
// Administrator only.
func (e *Engine) AddUser(ctx context.Context, actor Actor, u models.User) (*models.User, error) {
	const action = "user.add"
	inputs := map[string]any{"user_id": u.UserID, "handle": u.Handle, "role": u.Role}

	if !e.policy.CanManageUsers(actor.ID) {
		return nil, e.reject(ctx, action, inputs, 0, actor, denied(actor.ID, "manage users"))
	}
	if u.UserID <= 0 {
		return nil, e.reject(ctx, action, inputs, 0, actor, invalid("user_id", "must be a positive number"))
	}
	role, err := models.ParseRole(string(u.Role))
	if err != nil {
		return nil, e.reject(ctx, action, inputs, 0, actor, invalid("role", "%v", err))
	}
	u.Role = role
	u.Handle = strings.TrimPrefix(strings.TrimSpace(u.Handle), "@")
	if strings.ContainsAny(u.Handle, " \t\n") {
		return nil, e.reject(ctx, action, inputs, 0, actor, invalid("handle", "must be a single word"))
	}
	u.DisplayName = strings.TrimSpace(u.DisplayName)

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.UpsertUser(opCtx, u); err != nil {
		return nil, e.reject(ctx, action, inputs, 0, actor, &OperationalError{Op: "add user", Err: err})
	}
	if err := e.ReloadUsers(ctx); err != nil {
		return nil, err
	}

	e.record(ctx, action, inputs, audit.OutcomeSuccess, 0, actor, "")
	return &u, nil
}

// RemoveUser deletes a registration and refreshes the allow-list.
// Administrator only.
func (e *Engine) RemoveUser(ctx context.Context, actor Actor, userID int64) error {
	const action = "user.remove"
	inputs := map[string]any{"user_id": userID}

	if !e.policy.CanManageUsers(actor.ID) {
		return e.reject(ctx, action, inputs, 0, actor, denied(actor.ID, "manage users"))
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.DeleteUser(opCtx, userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return e.reject(ctx, action, inputs, 0, actor, &NotFoundError{Kind: "user", ID: userID})
		}
		return e.reject(ctx, action, inputs, 0, actor, &OperationalError{Op: "remove user", Err: err})
	}
	if err := e.ReloadUsers(ctx); err != nil {
		return err
	}

	e.record(ctx, action, inputs, audit.OutcomeSuccess, 0, actor, "")
	return nil
}

// ListUsers returns the registrations. Moderators and the administrator only.
func (e *Engine) ListUsers(ctx context.Context, actor Actor) ([]models.User, error) {
	if e.policy.Index().Level(actor.ID) < access.LevelModerator {
		return nil, denied(actor.ID, "list users")
	}
	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	users, err := e.store.ListUsers(opCtx)
	if err != nil {
		return nil, &OperationalError{Op: "list users", Err: err}
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// ReloadUsers rebuilds the authorization index from the store.
func (e *Engine) ReloadUsers(ctx context.Context) error {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	users, err := e.store.ListUsers(opCtx)
	if err != nil {
		return &OperationalError{Op: "load users", Err: err}
	}
	e.policy.Index().Rebuild(users)
	return nil
}
