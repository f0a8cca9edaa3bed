// Package controlplane provides the HTTP API and service layer for taskdesk.
package controlplane

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/fentz26/taskdesk/internal/audit"
	"github.com/fentz26/taskdesk/internal/conversation"
	"github.com/fentz26/taskdesk/internal/export"
	"github.com/fentz26/taskdesk/internal/lifecycle"
	"github.com/fentz26/taskdesk/internal/models"
	"github.com/fentz26/taskdesk/internal/store"
)

// Service turns API requests into lifecycle calls.
type Service struct {
	engine   *lifecycle.Engine
	chat     *conversation.Handler
	exporter *export.Exporter
	journal  *audit.Journal
}

// NewService creates a control plane service. chat, exporter and journal may be nil;
// the matching endpoints then answer 404.
func NewService(engine *lifecycle.Engine, chat *conversation.Handler, exporter *export.Exporter, journal *audit.Journal) *Service {
	return &Service{
		engine:   engine,
		chat:     chat,
		exporter: exporter,
		journal:  journal,
	}
}

// Engine returns the lifecycle engine.
func (s *Service) Engine() *lifecycle.Engine {
	return s.engine
}

// --- Task Operations ---

// ListTasks reads a listing from query parameters:
// assignee, exclude (comma separated statuses), order, page, page_size, context.
func (s *Service) ListTasks(ctx context.Context, actor lifecycle.Actor, q url.Values) (*lifecycle.Page, error) {
	var req lifecycle.ListRequest

	if q.Has("assignee") {
		a, err := models.ParseAssignee(q.Get("assignee"))
		if err != nil {
			return nil, &lifecycle.ValidationError{Field: "assignee", Reason: err.Error()}
		}
		req.Assignee = &a
	}

	if v := q.Get("exclude"); v != "" {
		for _, part := range strings.Split(v, ",") {
			st, err := models.ParseStatus(part)
			if err != nil {
				return nil, &lifecycle.ValidationError{Field: "exclude", Reason: err.Error()}
			}
			req.ExcludeStatuses = append(req.ExcludeStatuses, st)
		}
	}

	order, err := store.ParseOrder(q.Get("order"))
	if err != nil {
		return nil, &lifecycle.ValidationError{Field: "order", Reason: err.Error()}
	}
	req.Order = order

	if req.Page, err = intParam(q, "page"); err != nil {
		return nil, err
	}
	if req.PageSize, err = intParam(q, "page_size"); err != nil {
		return nil, err
	}
	if v := q.Get("context"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, &lifecycle.ValidationError{Field: "context", Reason: "must be a number"}
		}
		req.ContextID = id
	}

	return s.engine.List(ctx, actor, req)
}

// Decisions returns the journal entries of a task the actor can see.
func (s *Service) Decisions(ctx context.Context, actor lifecycle.Actor, id int64) ([]models.JournalEntry, error) {
	if s.journal == nil {
		return nil, ErrNotFound
	}
	if _, err := s.engine.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.journal.Entries(ctx, id)
	if err != nil {
		return nil, &lifecycle.OperationalError{Op: "list journal", Err: err}
	}
	return entries, nil
}

// Chat feeds one message to the conversation handler.
func (s *Service) Chat(ctx context.Context, actor lifecycle.Actor, text string) (*conversation.Reply, error) {
	if s.chat == nil {
		return nil, ErrNotFound
	}
	return s.chat.Handle(ctx, actor, text)
}

// Export renders every task visible to the actor.
func (s *Service) Export(ctx context.Context, actor lifecycle.Actor, format string) ([]byte, error) {
	if s.exporter == nil {
		return nil, ErrNotFound
	}
	return s.exporter.Export(ctx, actor, format)
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &lifecycle.ValidationError{Field: name, Reason: "must be a non-negative number"}
	}
	return n, nil
}
