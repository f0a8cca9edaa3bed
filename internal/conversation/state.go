// Package conversation drives the multi-step chat wizards for creating and
// changing tasks.
package conversation

import "fmt"

// State is where an actor is in a wizard. The zero conversation is Idle.
type State interface {
	Name() string
}

// Intent is what an AwaitingTaskID state will do with the id.
type Intent string

const (
	IntentStatus   Intent = "status"
	IntentAssign   Intent = "assign"
	IntentDeadline Intent = "deadline"
	IntentDelete   Intent = "delete"
)

type (
	// Idle means no wizard is running.
	Idle struct{}
	// AwaitingTitle waits for the text of a new task.
	AwaitingTitle struct{}
	// AwaitingAssignee waits for the assignee of a new task.
	AwaitingAssignee struct{ Title string }
	// AwaitingDeadline waits for the deadline of a new task.
	AwaitingDeadline struct{ Title, Assignee string }
	// AwaitingTaskID waits for the id of the task to change.
	AwaitingTaskID struct{ Intent Intent }
	// AwaitingStatus waits for the new status.
	AwaitingStatus struct{ TaskID int64 }
	// AwaitingNewAssignee waits for the new assignee.
	AwaitingNewAssignee struct{ TaskID int64 }
	// AwaitingNewDeadline waits for the new deadline.
	AwaitingNewDeadline struct{ TaskID int64 }
	// AwaitingDeleteConfirm waits for yes or no.
	AwaitingDeleteConfirm struct{ TaskID int64 }
)

func (Idle) Name() string { return "idle" }
func (AwaitingTitle) Name() string { return "awaiting_title" }
func (AwaitingAssignee) Name() string { return "awaiting_assignee" }
func (AwaitingDeadline) Name() string { return "awaiting_deadline" }
func (s AwaitingTaskID) Name() string { return fmt.Sprintf("awaiting_task_id:%s", s.Intent) }
func (AwaitingStatus) Name() string { return "awaiting_status" }
func (AwaitingNewAssignee) Name() string { return "awaiting_new_assignee" }
func (AwaitingNewDeadline) Name() string { return "awaiting_new_deadline" }
func (AwaitingDeleteConfirm) Name() string { return "awaiting_delete_confirm" }

// EffectKind names the engine call a finished wizard asks for.
type EffectKind string

const (
	EffectCreateTask   EffectKind = "create_task"
	EffectChangeStatus EffectKind = "change_status"
	EffectReassign     EffectKind = "reassign"
	EffectReschedule   EffectKind = "reschedule"
	EffectSoftDelete   EffectKind = "soft_delete"
	EffectListTasks    EffectKind = "list_tasks"
)

// Effect is the engine call to make. Values are already validated and in
// canonical form.
type Effect struct {
	Kind     EffectKind
	TaskID   int64
	Text     string
	Assignee string
	Deadline string
	Status   string
}

// Step is the result of feeding one input to a state.
type Step struct {
	Next   State
	Effect *Effect
	Prompt string
}
