package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fentz26/taskdesk/internal/models"
)

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []Message
	failOn map[int64]bool
}

func (f *fakeMessenger) Name() string { return "fake" }

func (f *fakeMessenger) Send(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[chatID] {
		return errors.New("unreachable")
	}
	f.sent = append(f.sent, Message{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeMessenger) Sent() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.sent...)
}

func TestDeliverAllContinuesPastFailures(t *testing.T) {
	m := &fakeMessenger{failOn: map[int64]bool{2: true}}
	msgs := []Message{{ChatID: 1, Text: "a"}, {ChatID: 2, Text: "b"}, {ChatID: 3, Text: "c"}}

	report := DeliverAll(context.Background(), m, msgs)
	if report.Attempted != 3 || report.Delivered != 2 {
		t.Errorf("Unexpected report %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].Message.ChatID != 2 {
		t.Errorf("Unexpected failures %+v", report.Failures)
	}
	if report.OK() || report.Err() == nil {
		t.Error("Report with failures must not be OK")
	}
	if sent := m.Sent(); len(sent) != 2 || sent[1].ChatID != 3 {
		t.Errorf("Expected chats 1 and 3 delivered, got %+v", sent)
	}
}

func TestDeliverAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &fakeMessenger{}
	report := DeliverAll(ctx, m, []Message{{ChatID: 1}, {ChatID: 2}})
	if report.Delivered != 0 || len(report.Failures) != 2 {
		t.Errorf("Unexpected report %+v", report)
	}
	if len(m.Sent()) != 0 {
		t.Error("Nothing should be sent after cancel")
	}
}

// stallingMessenger blocks on the chats in stall until the send is cancelled.
type stallingMessenger struct {
	fakeMessenger
	stall map[int64]bool
}

func (s *stallingMessenger) Send(ctx context.Context, chatID int64, text string) error {
	if s.stall[chatID] {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.fakeMessenger.Send(ctx, chatID, text)
}

func TestWithTimeoutBoundsEachSend(t *testing.T) {
	m := &stallingMessenger{stall: map[int64]bool{1: true}}
	msgs := []Message{{ChatID: 1}, {ChatID: 2}, {ChatID: 3}}

	report := DeliverAll(context.Background(), WithTimeout(m, 20*time.Millisecond), msgs)
	if report.Delivered != 2 || len(report.Failures) != 1 {
		t.Fatalf("Unexpected report %+v", report)
	}
	if !errors.Is(report.Failures[0].Err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", report.Failures[0].Err)
	}

	if WithTimeout(m, 0) != Messenger(m) {
		t.Error("A zero timeout should return the messenger unchanged")
	}
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	ev := models.Event{Kind: models.EventTaskAssigned, TaskID: 7}
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	for _, ch := range []chan models.Event{a, b} {
		select {
		case got := <-ch:
			if got.TaskID != 7 {
				t.Errorf("Unexpected event %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("Subscriber did not receive event")
		}
	}

	bus.Unsubscribe(a)
	if _, open := <-a; open {
		t.Error("Unsubscribed channel should be closed")
	}
	bus.Publish(context.Background(), ev)
	if got := <-b; got.TaskID != 7 {
		t.Errorf("Remaining subscriber lost event")
	}
}

func TestBusDropsWhenSubscriberBehind(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	for i := 0; i < 100; i++ {
		bus.Publish(context.Background(), models.Event{TaskID: int64(i)})
	}
	if len(ch) != cap(ch) {
		t.Errorf("Expected full buffer of %d, got %d", cap(ch), len(ch))
	}
}

func TestDispatcherDeliversEvents(t *testing.T) {
	bus := NewBus()
	m := &fakeMessenger{}
	d := NewDispatcher(bus, m, time.Second)
	d.Start()

	bus.Publish(context.Background(), models.Event{Kind: models.EventTaskAssigned, TaskID: 1, Text: "Fix sink", RecipientID: 11, CreatorID: 10})
	bus.Publish(context.Background(), models.Event{Kind: models.EventTaskClosed, TaskID: 2, Text: "Buy milk", Status: models.TaskStatusDone, RecipientID: 10, ActorID: 2})
	d.Stop()

	sent := m.Sent()
	if len(sent) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(sent))
	}
	if sent[0].ChatID != 11 || !strings.Contains(sent[0].Text, "new task #1") {
		t.Errorf("Unexpected assigned message %+v", sent[0])
	}
	if sent[1].ChatID != 10 || !strings.Contains(sent[1].Text, "completed") {
		t.Errorf("Unexpected closed message %+v", sent[1])
	}
}

func TestRenderReminder(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday, _ := models.ParseDeadline("2026-03-09", time.UTC)
	today, _ := models.ParseDeadline("2026-03-10 18:00", time.UTC)

	msg := RenderReminder(models.Task{ID: 4, ContextID: 500, Text: "Report", Status: models.TaskStatusInProgress, Deadline: yesterday, Assignee: models.HandleAssignee("bob")}, now)
	if msg.ChatID != 500 || msg.TaskID != 4 {
		t.Errorf("Reminder should target the task's context, got %+v", msg)
	}
	if !strings.HasPrefix(msg.Text, "Overdue task #4") || !strings.Contains(msg.Text, "@bob") {
		t.Errorf("Unexpected text %q", msg.Text)
	}

	msg = RenderReminder(models.Task{ID: 5, ContextID: 500, Text: "Call", Status: models.TaskStatusNew, Deadline: today}, now)
	if !strings.HasPrefix(msg.Text, "Task #5 is due today") {
		t.Errorf("Unexpected text %q", msg.Text)
	}
}
