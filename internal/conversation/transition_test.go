package conversation

import (
	"testing"
	"time"
)

func TestNewTaskWizard(t *testing.T) {
	var state State = Idle{}
	inputs := []struct {
		in   string
		want string
	}{
		{"/newtask", "awaiting_title"},
		{"Buy paint", "awaiting_assignee"},
		{"@Bob", "awaiting_deadline"},
	}
	for _, in := range inputs {
		step := Transition(state, in.in, time.UTC)
		if step.Effect != nil {
			t.Fatalf("%q: unexpected effect %+v", in.in, step.Effect)
		}
		if step.Next.Name() != in.want {
			t.Fatalf("%q: state %s, want %s", in.in, step.Next.Name(), in.want)
		}
		if step.Prompt == "" {
			t.Errorf("%q: expected a prompt", in.in)
		}
		state = step.Next
	}

	step := Transition(state, "not a date", time.UTC)
	if step.Next != state || step.Effect != nil {
		t.Fatalf("Invalid deadline should keep the state, got %s", step.Next.Name())
	}

	step = Transition(state, "31.12.2026 17:00", time.UTC)
	if _, idle := step.Next.(Idle); !idle {
		t.Fatalf("Finished wizard should return to idle, got %s", step.Next.Name())
	}
	want := Effect{Kind: EffectCreateTask, Text: "Buy paint", Assignee: "@Bob", Deadline: "2026-12-31 17:00"}
	if step.Effect == nil || *step.Effect != want {
		t.Errorf("Effect = %+v, want %+v", step.Effect, want)
	}
}

func TestNewTaskWizardNoAssigneeNoDeadline(t *testing.T) {
	step := Transition(Idle{}, "/newtask Water plants", time.UTC)
	if step.Next != (AwaitingAssignee{Title: "Water plants"}) {
		t.Fatalf("Inline title should skip the title prompt, got %s", step.Next.Name())
	}
	step = Transition(step.Next, "-", time.UTC)
	step = Transition(step.Next, "-", time.UTC)
	want := Effect{Kind: EffectCreateTask, Text: "Water plants"}
	if step.Effect == nil || *step.Effect != want {
		t.Errorf("Effect = %+v, want %+v", step.Effect, want)
	}
}

func TestNewTaskInline(t *testing.T) {
	tests := []struct {
		in   string
		want Effect
	}{
		{"/newtask @bob Fix the sink 2026-03-01", Effect{Kind: EffectCreateTask, Text: "Fix the sink", Assignee: "@bob", Deadline: "2026-03-01"}},
		{"/newtask @bob Fix the sink 01.03.2026 09:30", Effect{Kind: EffectCreateTask, Text: "Fix the sink", Assignee: "@bob", Deadline: "2026-03-01 09:30"}},
		{"/newtask 42 Call the bank -", Effect{Kind: EffectCreateTask, Text: "Call the bank", Assignee: "42"}},
	}
	for _, tt := range tests {
		step := Transition(Idle{}, tt.in, time.UTC)
		if step.Effect == nil || *step.Effect != tt.want {
			t.Errorf("%q: effect = %+v, want %+v", tt.in, step.Effect, tt.want)
		}
		if _, idle := step.Next.(Idle); !idle {
			t.Errorf("%q: state %s, want idle", tt.in, step.Next.Name())
		}
	}
}

func TestNewTaskInlineWithoutDeadlineAsksForIt(t *testing.T) {
	step := Transition(Idle{}, "/newtask @bob Fix the sink", time.UTC)
	if step.Effect != nil {
		t.Fatalf("Unexpected effect %+v", step.Effect)
	}
	if step.Next != (AwaitingDeadline{Title: "Fix the sink", Assignee: "@bob"}) {
		t.Errorf("Unexpected state %+v", step.Next)
	}
}

func TestNewTaskTitleOnly(t *testing.T) {
	step := Transition(Idle{}, "/newtask Fix sink", time.UTC)
	if step.Effect != nil || step.Next != (AwaitingAssignee{Title: "Fix sink"}) {
		t.Errorf("Unexpected step %+v", step)
	}

	step = Transition(Idle{}, "/newtask Fix sink 2026-03-01", time.UTC)
	if step.Next != (AwaitingAssignee{Title: "Fix sink 2026-03-01"}) {
		t.Errorf("Without an assignee the words are the title, got %+v", step.Next)
	}
}

func TestChangeWizards(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		want   Effect
	}{
		{"status", []string{"/status", "#4", "in progress"}, Effect{Kind: EffectChangeStatus, TaskID: 4, Status: "in_progress"}},
		{"status inline", []string{"/status 4 done"}, Effect{Kind: EffectChangeStatus, TaskID: 4, Status: "done"}},
		{"assign", []string{"/assign", "7", "12345"}, Effect{Kind: EffectReassign, TaskID: 7, Assignee: "12345"}},
		{"unassign inline", []string{"/assign 7 -"}, Effect{Kind: EffectReassign, TaskID: 7}},
		{"deadline inline", []string{"/deadline 3 2026-05-01"}, Effect{Kind: EffectReschedule, TaskID: 3, Deadline: "2026-05-01"}},
		{"clear deadline", []string{"/deadline", "3", "-"}, Effect{Kind: EffectReschedule, TaskID: 3}},
		{"delete", []string{"/delete", "9", "yes"}, Effect{Kind: EffectSoftDelete, TaskID: 9}},
		{"delete inline", []string{"/delete 9 y"}, Effect{Kind: EffectSoftDelete, TaskID: 9}},
		{"tasks", []string{"/tasks"}, Effect{Kind: EffectListTasks}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state State = Idle{}
			var step Step
			for _, in := range tt.inputs {
				step = Transition(state, in, time.UTC)
				state = step.Next
			}
			if step.Effect == nil {
				t.Fatalf("No effect, stuck in %s", state.Name())
			}
			if *step.Effect != tt.want {
				t.Errorf("Effect = %+v, want %+v", *step.Effect, tt.want)
			}
		})
	}
}

func TestInvalidInputKeepsState(t *testing.T) {
	tests := []struct {
		state State
		input string
	}{
		{AwaitingTitle{}, "   "},
		{AwaitingAssignee{Title: "x"}, "two words"},
		{AwaitingTaskID{Intent: IntentStatus}, "abc"},
		{AwaitingTaskID{Intent: IntentDelete}, "-3"},
		{AwaitingStatus{TaskID: 1}, "finished"},
		{AwaitingNewDeadline{TaskID: 1}, "someday"},
		{AwaitingDeleteConfirm{TaskID: 1}, "maybe"},
	}
	for _, tt := range tests {
		step := Transition(tt.state, tt.input, time.UTC)
		if step.Next != tt.state {
			t.Errorf("%s with %q moved to %s", tt.state.Name(), tt.input, step.Next.Name())
		}
		if step.Effect != nil || step.Prompt == "" {
			t.Errorf("%s with %q: effect %+v prompt %q", tt.state.Name(), tt.input, step.Effect, step.Prompt)
		}
	}
}

func TestCancelAndCommandsFromAnyState(t *testing.T) {
	step := Transition(AwaitingDeadline{Title: "x"}, "/cancel", time.UTC)
	if _, idle := step.Next.(Idle); !idle || step.Effect != nil {
		t.Errorf("/cancel should return to idle without effect, got %s", step.Next.Name())
	}

	step = Transition(AwaitingStatus{TaskID: 2}, "/assign@taskdesk_bot", time.UTC)
	if step.Next != (AwaitingTaskID{Intent: IntentAssign}) {
		t.Errorf("Command should restart the wizard, got %s", step.Next.Name())
	}

	step = Transition(AwaitingDeleteConfirm{TaskID: 5}, "no", time.UTC)
	if _, idle := step.Next.(Idle); !idle || step.Effect != nil {
		t.Errorf("Declining delete should cancel, got %s", step.Next.Name())
	}

	step = Transition(Idle{}, "hello", time.UTC)
	if _, idle := step.Next.(Idle); !idle || step.Prompt != promptHelp {
		t.Errorf("Free text while idle should show help, got %q", step.Prompt)
	}
	step = Transition(nil, "/unknown", time.UTC)
	if step.Prompt != promptHelp {
		t.Errorf("Unknown command should show help, got %q", step.Prompt)
	}
}

func TestSessionsExpire(t *testing.T) {
	s := NewSessions(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	k1, k2, k4 := Key{Actor: 1, Context: 1}, Key{Actor: 2, Context: 2}, Key{Actor: 4, Context: 4}

	s.Put(k1, AwaitingTitle{})
	s.Put(k2, AwaitingStatus{TaskID: 3})
	if s.Get(k1) != (AwaitingTitle{}) {
		t.Errorf("Expected stored state, got %s", s.Get(k1).Name())
	}

	now = now.Add(30 * time.Second)
	s.Put(k2, AwaitingStatus{TaskID: 3})

	now = now.Add(45 * time.Second)
	if _, idle := s.Get(k1).(Idle); !idle {
		t.Error("Session 1 should have expired")
	}
	if s.Get(k2) != (AwaitingStatus{TaskID: 3}) {
		t.Error("Put should restart the expiry")
	}

	now = now.Add(time.Hour)
	if n := s.Prune(); n != 0 {
		t.Errorf("Expected all sessions pruned, %d left", n)
	}

	s.Put(k4, AwaitingTitle{})
	s.Put(k4, Idle{})
	if n := s.Prune(); n != 0 {
		t.Errorf("Storing Idle should forget the actor, %d left", n)
	}
}

func TestSessionsSeparateChats(t *testing.T) {
	s := NewSessions(time.Minute)
	group := Key{Actor: 10, Context: -100}
	private := Key{Actor: 10, Context: 10}

	s.Put(group, AwaitingTitle{})
	if _, idle := s.Get(private).(Idle); !idle {
		t.Error("A wizard in one chat should not leak into another")
	}
	if s.Get(group) != (AwaitingTitle{}) {
		t.Errorf("Expected stored state, got %s", s.Get(group).Name())
	}
}
