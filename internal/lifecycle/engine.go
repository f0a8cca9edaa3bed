// Package lifecycle applies the task rules on top of the store and the
// access policy: validation, authorization, history and notifications.
package lifecycle

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/fentz26/taskdesk/internal/access"
	"github.com/fentz26/taskdesk/internal/audit"
	"github.com/fentz26/taskdesk/internal/models"
	"github.com/fentz26/taskdesk/internal/store"
)

// DefaultPageSize is used when a listing does not ask for one.
const DefaultPageSize = 10

// Publisher receives the events emitted after a successful write.
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Actor identifies who is calling and from which conversation.
type Actor struct {
	ID        int64
	ContextID int64
}

// Options tunes an Engine.
type Options struct {
	// Location is used to read deadlines; defaults to time.Local.
	Location *time.Location
	// OpTimeout bounds each store call; zero means no bound.
	OpTimeout time.Duration
	// PageSize is the listing default; zero means DefaultPageSize.
	PageSize int
	// Journal, when set, receives one entry per mutating request.
	Journal *audit.Journal
}

// Engine provides the task lifecycle operations.
type Engine struct {
	store     *store.Store
	policy    *access.Policy
	publisher Publisher
	journal   *audit.Journal
	loc       *time.Location
	opTimeout time.Duration
	pageSize  int
	locks     *taskLocks
}

// New creates an engine. publisher may be nil.
func New(st *store.Store, policy *access.Policy, publisher Publisher, opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{
		store:     st,
		policy:    policy,
		publisher: publisher,
		journal:   opts.Journal,
		loc:       loc,
		opTimeout: opts.OpTimeout,
		pageSize:  pageSize,
		locks:     newTaskLocks(),
	}
}

// Policy returns the access policy used by the engine.
func (e *Engine) Policy() *access.Policy {
	return e.policy
}

// Location returns the timezone deadlines are read in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// --- Task Operations ---

// CreateRequest carries the raw input for a new task.
type CreateRequest struct {
	Text     string `json:"text"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
}

// Create validates req and stores a new task owned by the actor.
func (e *Engine) Create(ctx context.Context, actor Actor, req CreateRequest) (*models.Task, error) {
	const action = "task.create"
	inputs := map[string]any{"text": req.Text, "assignee": req.Assignee, "deadline": req.Deadline, "context_id": actor.ContextID}

	if !e.policy.Authorized(actor.ID) {
		return nil, e.reject(ctx, action, inputs, 0, actor, denied(actor.ID, "create tasks"))
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, e.reject(ctx, action, inputs, 0, actor, invalid("text", "must not be empty"))
	}
	assignee, err := models.ParseAssignee(req.Assignee)
	if err != nil {
		return nil, e.reject(ctx, action, inputs, 0, actor, invalid("assignee", "%v", err))
	}
	deadline, err := models.ParseDeadline(req.Deadline, e.loc)
	if err != nil {
		return nil, e.reject(ctx, action, inputs, 0, actor, invalid("deadline", "%v", err))
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	task, err := e.store.CreateTask(opCtx, store.NewTask{
		CreatorID: actor.ID,
		Assignee:  assignee,
		ContextID: actor.ContextID,
		Text:      text,
		Deadline:  deadline,
	})
	if err != nil {
		return nil, e.reject(ctx, action, inputs, 0, actor, &OperationalError{Op: "create task", Err: err})
	}

	e.record(ctx, action, inputs, audit.OutcomeSuccess, task.ID, actor, "")
	e.notifyAssigned(ctx, actor, task)
	return task, nil
}

// Get returns a task the actor may view.
func (e *Engine) Get(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	if !e.policy.Authorized(actor.ID) {
		return nil, denied(actor.ID, "view tasks")
	}
	task, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.policy.CanView(actor.ID, task) {
		return nil, denied(actor.ID, "view this task")
	}
	return task, nil
}

// History returns the prior versions of a task, oldest first.
func (e *Engine) History(ctx context.Context, actor Actor, id int64) ([]models.HistoryEntry, error) {
	if _, err := e.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	entries, err := e.store.ListHistory(opCtx, id)
	if err != nil {
		return nil, &OperationalError{Op: "list history", Err: err}
	}
	return entries, nil
}

// ListRequest selects one page of tasks.
type ListRequest struct {
	// Assignee filters by assignee; a pointer to NoAssignee selects unassigned tasks.
	Assignee *models.Assignee
	// ContextID, when non-zero, keeps only tasks last touched from that conversation.
	ContextID       int64
	ExcludeStatuses []models.TaskStatus
	Order           store.Order
	PageSize        int
	Page            int
}

// Page is one page of a listing.
type Page struct {
	Tasks    []models.Task `json:"tasks"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// Pages returns how many pages the listing spans.
func (p *Page) Pages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// List returns the tasks visible to the actor. Members only see their own
// scope; moderators and the administrator see everything.
func (e *Engine) List(ctx context.Context, actor Actor, req ListRequest) (*Page, error) {
	if !e.policy.Authorized(actor.ID) {
		return nil, denied(actor.ID, "list tasks")
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = e.pageSize
	}
	page := req.Page
	if page < 1 {
		page = 1
	}

	q := store.ListQuery{
		Assignee:        req.Assignee,
		ContextID:       req.ContextID,
		ExcludeStatuses: req.ExcludeStatuses,
		Order:           req.Order,
		PageSize:        pageSize,
		Page:            page,
	}
	if !e.policy.ViewAll(actor.ID) {
		q.Visible = &store.Visibility{CreatorID: actor.ID, AssigneeKeys: e.policy.AssigneeKeys(actor.ID)}
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	tasks, total, err := e.store.ListTasks(opCtx, q)
	if err != nil {
		return nil, &OperationalError{Op: "list tasks", Err: err}
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return &Page{Tasks: tasks, Total: total, Page: page, PageSize: pageSize}, nil
}

// ChangeStatus moves a task to the named status.
func (e *Engine) ChangeStatus(ctx context.Context, actor Actor, id int64, status string) (*models.Task, error) {
	const action = "task.status"
	inputs := map[string]any{"task_id": id, "status": status, "context_id": actor.ContextID}

	target, err := models.ParseStatus(status)
	if err != nil {
		return nil, e.reject(ctx, action, inputs, id, actor, invalid("status", "%q is not one of new, in_progress, awaiting_report, done, deleted", status))
	}

	task, err := e.mutate(ctx, action, inputs, actor, id, func(current *models.Task) (store.TaskPatch, error) {
		if !e.policy.CanSetStatus(actor.ID, current, target) {
			if target == models.TaskStatusDeleted {
				return store.TaskPatch{}, denied(actor.ID, "delete this task")
			}
			return store.TaskPatch{}, denied(actor.ID, "change the status of this task")
		}
		return store.TaskPatch{Status: &target}, nil
	})
	if err != nil {
		return nil, err
	}

	if target.Closed() && actor.ID != task.CreatorID {
		e.publish(ctx, models.Event{
			Kind:        models.EventTaskClosed,
			TaskID:      task.ID,
			Text:        task.Text,
			Assignee:    task.Assignee,
			Deadline:    task.Deadline,
			Status:      task.Status,
			CreatorID:   task.CreatorID,
			ActorID:     actor.ID,
			RecipientID: task.CreatorID,
			ContextID:   task.ContextID,
		})
	}
	return task, nil
}

// Reassign gives a task to someone else; empty or "-" unassigns it.
func (e *Engine) Reassign(ctx context.Context, actor Actor, id int64, assignee string) (*models.Task, error) {
	const action = "task.assign"
	inputs := map[string]any{"task_id": id, "assignee": assignee, "context_id": actor.ContextID}

	next, err := models.ParseAssignee(assignee)
	if err != nil {
		return nil, e.reject(ctx, action, inputs, id, actor, invalid("assignee", "%v", err))
	}

	task, err := e.mutate(ctx, action, inputs, actor, id, func(current *models.Task) (store.TaskPatch, error) {
		if !e.policy.CanModify(actor.ID, current) {
			return store.TaskPatch{}, denied(actor.ID, "reassign this task")
		}
		return store.TaskPatch{Assignee: &next}, nil
	})
	if err != nil {
		return nil, err
	}

	e.notifyAssigned(ctx, actor, task)
	return task, nil
}

// Reschedule sets a new deadline; empty or "-" clears it.
func (e *Engine) Reschedule(ctx context.Context, actor Actor, id int64, deadline string) (*models.Task, error) {
	const action = "task.deadline"
	inputs := map[string]any{"task_id": id, "deadline": deadline, "context_id": actor.ContextID}

	next, err := models.ParseDeadline(deadline, e.loc)
	if err != nil {
		return nil, e.reject(ctx, action, inputs, id, actor, invalid("deadline", "%v", err))
	}

	return e.mutate(ctx, action, inputs, actor, id, func(current *models.Task) (store.TaskPatch, error) {
		if !e.policy.CanModify(actor.ID, current) {
			return store.TaskPatch{}, denied(actor.ID, "reschedule this task")
		}
		return store.TaskPatch{Deadline: next, SetDeadline: true}, nil
	})
}

// EditMode selects how EditText changes the text.
type EditMode string

const (
	// EditReplace overwrites the text. Reserved to the creator and moderators.
	EditReplace EditMode = "replace"
	// EditAppend adds a new line to the text.
	EditAppend EditMode = "append"
)

// EditText replaces or extends the text of a task.
func (e *Engine) EditText(ctx context.Context, actor Actor, id int64, mode EditMode, text string) (*models.Task, error) {
	const action = "task.text"
	inputs := map[string]any{"task_id": id, "mode": mode, "text": text, "context_id": actor.ContextID}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, e.reject(ctx, action, inputs, id, actor, invalid("text", "must not be empty"))
	}
	if mode != EditReplace && mode != EditAppend {
		return nil, e.reject(ctx, action, inputs, id, actor, invalid("mode", "%q is not replace or append", mode))
	}

	return e.mutate(ctx, action, inputs, actor, id, func(current *models.Task) (store.TaskPatch, error) {
		if mode == EditReplace {
			if !e.policy.CanReplaceText(actor.ID, current) {
				return store.TaskPatch{}, denied(actor.ID, "replace the text of this task")
			}
			return store.TaskPatch{Text: &text}, nil
		}
		if !e.policy.CanAppendText(actor.ID, current) {
			return store.TaskPatch{}, denied(actor.ID, "annotate this task")
		}
		joined := current.Text + "\n" + text
		return store.TaskPatch{Text: &joined}, nil
	})
}

// HardDelete removes a task and its whole history. Administrator only.
func (e *Engine) HardDelete(ctx context.Context, actor Actor, id int64) error {
	const action = "task.purge"
	inputs := map[string]any{"task_id": id}

	if !e.policy.CanHardDelete(actor.ID) {
		return e.reject(ctx, action, inputs, id, actor, denied(actor.ID, "permanently delete tasks"))
	}

	unlock := e.locks.lock(id)
	defer unlock()

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.HardDelete(opCtx, id); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return e.reject(ctx, action, inputs, id, actor, taskNotFound(id))
		}
		return e.reject(ctx, action, inputs, id, actor, &OperationalError{Op: "hard delete", Err: err})
	}

	e.record(ctx, action, inputs, audit.OutcomeSuccess, id, actor, "")
	return nil
}

// --- Helpers ---

// mutate runs decide under the task lock inside one store transaction that
// snapshots the current row before applying the patch. The patch always
// records the actor's context id.
func (e *Engine) mutate(ctx context.Context, action string, inputs any, actor Actor, id int64, decide func(current *models.Task) (store.TaskPatch, error)) (*models.Task, error) {
	if !e.policy.Authorized(actor.ID) {
		return nil, e.reject(ctx, action, inputs, id, actor, denied(actor.ID, "change tasks"))
	}

	unlock := e.locks.lock(id)
	defer unlock()

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	task, err := e.store.MutateTask(opCtx, id, func(current *models.Task) (store.TaskPatch, error) {
		patch, err := decide(current)
		if err != nil {
			return patch, err
		}
		contextID := actor.ContextID
		patch.ContextID = &contextID
		return patch, nil
	})
	if err != nil {
		var vErr *ValidationError
		var aErr *AuthorizationError
		switch {
		case errors.Is(err, store.ErrTaskNotFound):
			err = taskNotFound(id)
		case errors.As(err, &vErr), errors.As(err, &aErr):
		default:
			err = &OperationalError{Op: "update task", Err: err}
		}
		return nil, e.reject(ctx, action, inputs, id, actor, err)
	}

	e.record(ctx, action, inputs, audit.OutcomeSuccess, id, actor, "")
	return task, nil
}

func (e *Engine) load(ctx context.Context, id int64) (*models.Task, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	task, err := e.store.GetTask(opCtx, id)
	if err != nil {
		return nil, &OperationalError{Op: "get task", Err: err}
	}
	if task == nil {
		return nil, taskNotFound(id)
	}
	return task, nil
}

func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opTimeout > 0 {
		return context.WithTimeout(ctx, e.opTimeout)
	}
	return context.WithCancel(ctx)
}

// reject journals a failed request and returns err unchanged.
func (e *Engine) reject(ctx context.Context, action string, inputs any, taskID int64, actor Actor, err error) error {
	outcome := audit.OutcomeError
	switch {
	case errors.Is(err, ErrNotPermitted):
		outcome = audit.OutcomeDenied
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		outcome = audit.OutcomeInvalid
	}
	e.record(ctx, action, inputs, outcome, taskID, actor, err.Error())
	return err
}

func (e *Engine) record(ctx context.Context, action string, inputs any, outcome string, taskID int64, actor Actor, details string) {
	if e.journal == nil {
		return
	}
	if _, err := e.journal.Record(context.WithoutCancel(ctx), action, inputs, outcome, taskID, actor.ID, details); err != nil {
		log.Printf("[lifecycle] journal %s for task %d: %v", action, taskID, err)
	}
}

func (e *Engine) notifyAssigned(ctx context.Context, actor Actor, task *models.Task) {
	recipient, ok := e.policy.Index().Resolve(task.Assignee)
	if !ok || recipient == actor.ID {
		return
	}
	e.publish(ctx, models.Event{
		Kind:        models.EventTaskAssigned,
		TaskID:      task.ID,
		Text:        task.Text,
		Assignee:    task.Assignee,
		Deadline:    task.Deadline,
		Status:      task.Status,
		CreatorID:   task.CreatorID,
		ActorID:     actor.ID,
		RecipientID: recipient,
		ContextID:   task.ContextID,
	})
}

func (e *Engine) publish(ctx context.Context, ev models.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		log.Printf("[lifecycle] publish %s for task %d: %v", ev.Kind, ev.TaskID, err)
	}
}
