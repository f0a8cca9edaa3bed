package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fentz26/taskdesk/internal/lifecycle"
	"github.com/fentz26/taskdesk/internal/models"
)

// Reply is what the bot answers to one message.
type Reply struct {
	Text  string        `json:"text"`
	State string        `json:"state"`
	Task  *models.Task  `json:"task,omitempty"`
	Tasks []models.Task `json:"tasks,omitempty"`
}

// Handler runs wizards against the lifecycle engine.
type Handler struct {
	engine   *lifecycle.Engine
	sessions *Sessions
}

// NewHandler creates a handler.
func NewHandler(e *lifecycle.Engine, s *Sessions) *Handler {
	return &Handler{engine: e, sessions: s}
}

// Handle advances the actor's wizard with input and applies any finished
// effect. Engine failures end the wizard and are reported in the reply text;
// only an actor outside the allow-list gets an error.
func (h *Handler) Handle(ctx context.Context, actor lifecycle.Actor, input string) (*Reply, error) {
	if !h.engine.Policy().Authorized(actor.ID) {
		return nil, &lifecycle.AuthorizationError{ActorID: actor.ID, Action: "use the bot"}
	}

	key := Key{Actor: actor.ID, Context: actor.ContextID}
	step := Transition(h.sessions.Get(key), input, h.engine.Location())
	h.sessions.Put(key, step.Next)

	reply := &Reply{Text: step.Prompt, State: step.Next.Name()}
	if step.Effect == nil {
		return reply, nil
	}

	if err := h.apply(ctx, actor, step.Effect, reply); err != nil {
		h.sessions.Put(key, Idle{})
		reply.State = Idle{}.Name()
		reply.Text = failureText(err)
	}
	return reply, nil
}

func (h *Handler) apply(ctx context.Context, actor lifecycle.Actor, eff *Effect, reply *Reply) error {
	var task *models.Task
	var err error

	switch eff.Kind {
	case EffectCreateTask:
		task, err = h.engine.Create(ctx, actor, lifecycle.CreateRequest{Text: eff.Text, Assignee: eff.Assignee, Deadline: eff.Deadline})
		if err == nil {
			reply.Text = fmt.Sprintf("Task #%d created for %s (due %s).", task.ID, assigneeText(task.Assignee), models.FormatDeadline(task.Deadline))
		}
	case EffectChangeStatus:
		task, err = h.engine.ChangeStatus(ctx, actor, eff.TaskID, eff.Status)
		if err == nil {
			reply.Text = fmt.Sprintf("Task #%d is now %s.", task.ID, task.Status)
		}
	case EffectReassign:
		task, err = h.engine.Reassign(ctx, actor, eff.TaskID, eff.Assignee)
		if err == nil {
			reply.Text = fmt.Sprintf("Task #%d assigned to %s.", task.ID, assigneeText(task.Assignee))
		}
	case EffectReschedule:
		task, err = h.engine.Reschedule(ctx, actor, eff.TaskID, eff.Deadline)
		if err == nil {
			reply.Text = fmt.Sprintf("Task #%d is due %s.", task.ID, models.FormatDeadline(task.Deadline))
		}
	case EffectSoftDelete:
		task, err = h.engine.ChangeStatus(ctx, actor, eff.TaskID, string(models.TaskStatusDeleted))
		if err == nil {
			reply.Text = fmt.Sprintf("Task #%d deleted.", task.ID)
		}
	case EffectListTasks:
		var page *lifecycle.Page
		page, err = h.engine.List(ctx, actor, lifecycle.ListRequest{
			ContextID:       actor.ContextID,
			ExcludeStatuses: []models.TaskStatus{models.TaskStatusDone, models.TaskStatusDeleted},
			PageSize:        50,
		})
		if err == nil {
			reply.Tasks = page.Tasks
			reply.Text = FormatTaskList(page.Tasks)
		}
	default:
		err = fmt.Errorf("unknown effect %q", eff.Kind)
	}

	reply.Task = task
	return err
}

// FormatTaskList renders tasks one per line.
func FormatTaskList(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "No tasks."
	}
	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d] %s: %s (status: %s, deadline: %s)", t.ID, assigneeText(t.Assignee), t.Text, t.Status, models.FormatDeadline(t.Deadline))
	}
	return b.String()
}

func assigneeText(a models.Assignee) string {
	if !a.IsSet() {
		return "nobody"
	}
	return a.String()
}

func failureText(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrNotPermitted):
		return "You are not allowed to do that."
	case errors.Is(err, lifecycle.ErrNotFound):
		return "No such task."
	case errors.Is(err, lifecycle.ErrValidation):
		return "That did not work: " + err.Error()
	}
	return "Something went wrong, please try again later."
}
