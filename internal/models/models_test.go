package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]TaskStatus{
		"new":             TaskStatusNew,
		"In Progress":     TaskStatusInProgress,
		"in-progress":     TaskStatusInProgress,
		"awaiting report": TaskStatusAwaitingReport,
		"DONE":            TaskStatusDone,
		" deleted ":       TaskStatusDeleted,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		if err != nil {
			t.Errorf("ParseStatus(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseStatus(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseStatus("finished"); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestParseAssignee(t *testing.T) {
	a, err := ParseAssignee("@alice")
	if err != nil {
		t.Fatalf("ParseAssignee failed: %v", err)
	}
	if a.Kind != AssigneeHandle || a.Handle != "alice" || a.String() != "@alice" {
		t.Errorf("Unexpected handle assignee: %+v", a)
	}

	a, _ = ParseAssignee("bob")
	if a.String() != "@bob" {
		t.Errorf("Expected @bob, got %s", a.String())
	}

	a, _ = ParseAssignee("12345")
	if a.Kind != AssigneeUserID || a.UserID != 12345 || a.String() != "12345" {
		t.Errorf("Unexpected id assignee: %+v", a)
	}

	for _, in := range []string{"", "-", "   "} {
		a, err = ParseAssignee(in)
		if err != nil || a.IsSet() {
			t.Errorf("Expected %q to clear assignee, got %+v (%v)", in, a, err)
		}
	}

	for _, in := range []string{"two words", "@", "-5"} {
		if _, err := ParseAssignee(in); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}

func TestAssigneeMatches(t *testing.T) {
	if !HandleAssignee("Alice").Matches(1, "@alice") {
		t.Error("Handle match should be case-insensitive")
	}
	if HandleAssignee("alice").Matches(1, "") {
		t.Error("Empty handle must not match")
	}
	if !UserAssignee(7).Matches(7, "") {
		t.Error("Expected id match")
	}
	if NoAssignee.Matches(0, "") {
		t.Error("Unassigned matches nobody")
	}
}

func TestParseDeadline(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-03-01", "2026-03-01"},
		{"01.03.2026", "2026-03-01"},
		{"01.03.26", "2026-03-01"},
		{"01/03/2026", "2026-03-01"},
		{"2026-03-01 09:30", "2026-03-01 09:30"},
		{"2026-03-01T09:30", "2026-03-01 09:30"},
		{"01.03.2026  18:05", "2026-03-01 18:05"},
	}
	for _, c := range cases {
		d, err := ParseDeadline(c.in, time.UTC)
		if err != nil {
			t.Errorf("ParseDeadline(%q) failed: %v", c.in, err)
			continue
		}
		if d.String() != c.want {
			t.Errorf("ParseDeadline(%q) = %s, want %s", c.in, d.String(), c.want)
		}
	}

	d, err := ParseDeadline("-", time.UTC)
	if err != nil || d != nil {
		t.Errorf("Expected no deadline for '-', got %v (%v)", d, err)
	}

	if _, err := ParseDeadline("not-a-date", time.UTC); err == nil {
		t.Error("Expected error for malformed deadline")
	}
	if _, err := ParseDeadline("2026-02-30", time.UTC); err == nil {
		t.Error("Expected error for impossible date")
	}
}

func TestDeadlineRoundTripAndDue(t *testing.T) {
	d, _ := ParseDeadline("2026-03-01 23:59", time.UTC)
	stored, err := ParseStoredDeadline(d.String())
	if err != nil {
		t.Fatalf("ParseStoredDeadline failed: %v", err)
	}
	if stored.String() != d.String() || !stored.HasTime {
		t.Errorf("Round trip mismatch: %s vs %s", stored, d)
	}

	morning := time.Date(2026, 3, 1, 0, 1, 0, 0, time.UTC)
	if !stored.DueBy(morning) {
		t.Error("Deadline should be due on its own day regardless of time")
	}
	if stored.DueBy(morning.AddDate(0, 0, -1)) {
		t.Error("Deadline should not be due the day before")
	}
}

func TestTaskJSON(t *testing.T) {
	d, _ := ParseDeadline("2026-03-01", time.UTC)
	task := Task{ID: 3, Assignee: HandleAssignee("bob"), Status: TaskStatusNew, Deadline: d}
	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got Task
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Assignee != task.Assignee {
		t.Errorf("Assignee mismatch: %+v", got.Assignee)
	}
	if got.Deadline == nil || got.Deadline.String() != "2026-03-01" {
		t.Errorf("Deadline mismatch: %v", got.Deadline)
	}
}

func TestOverdue(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	d, _ := ParseDeadline("2026-03-01", time.UTC)

	open := Task{Status: TaskStatusInProgress, Deadline: d}
	if !open.Overdue(now) {
		t.Error("Open task past deadline should be overdue")
	}
	done := Task{Status: TaskStatusDone, Deadline: d}
	if done.Overdue(now) {
		t.Error("Done task is never overdue")
	}
	none := Task{Status: TaskStatusNew}
	if none.Overdue(now) {
		t.Error("Task without deadline is never overdue")
	}
}
