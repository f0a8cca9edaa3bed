package tui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fentz26/taskdesk/internal/auth"
	"github.com/fentz26/taskdesk/internal/models"
)

func TestClientSendsIdentity(t *testing.T) {
	var gotActor, gotContext, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = r.Header.Get("X-Actor-ID")
		gotContext = r.Header.Get("X-Context-ID")
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{
			"tasks": []models.Task{{ID: 3, Text: "Report", Status: models.TaskStatusNew}},
			"total": 1,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, auth.Identity{ActorID: 10})
	tasks, total, err := c.ListTasks(filters[0].Query())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if total != 1 || len(tasks) != 1 || tasks[0].ID != 3 {
		t.Errorf("unexpected tasks %+v (total %d)", tasks, total)
	}
	if gotActor != "10" || gotContext != "10" {
		t.Errorf("expected identity headers 10/10, got %q/%q", gotActor, gotContext)
	}
	if !strings.Contains(gotQuery, "exclude=done%2Cdeleted") {
		t.Errorf("expected open filter in query, got %q", gotQuery)
	}
}

func TestClientDecodesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"not permitted: user 10 may not change this task","kind":"not_permitted"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, auth.Identity{ActorID: 10, ContextID: 500})
	_, err := c.ChangeStatus(4, "done")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Kind != "not_permitted" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClientPostsTaskActions(t *testing.T) {
	var path string
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(models.Task{ID: 7, Text: "x\ny", Status: models.TaskStatusNew})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, auth.Identity{ActorID: 1})
	if _, err := c.AppendText(7, "y"); err != nil {
		t.Fatalf("AppendText: %v", err)
	}
	if path != "/tasks/7/text" || body["mode"] != "append" || body["text"] != "y" {
		t.Errorf("unexpected request %s %v", path, body)
	}
}

func TestSuggestions(t *testing.T) {
	s := NewSuggestions()

	s.Update("/st")
	if !s.IsVisible() || s.Selected().Text != "/status" {
		t.Errorf("expected /status suggestion, got %+v", s.Selected())
	}

	s.Update("!do")
	if sel := s.Selected(); sel == nil || sel.Text != "!done" {
		t.Errorf("expected !done suggestion, got %+v", sel)
	}

	s.SetHandles([]string{"alice", "bob"})
	s.Update("@al")
	if sel := s.Selected(); sel == nil || sel.Text != "@alice" {
		t.Errorf("expected @alice suggestion, got %+v", sel)
	}

	s.Update("add milk")
	if s.IsVisible() {
		t.Error("plain commands should not show suggestions")
	}

	s.Update("/status ")
	if s.IsVisible() {
		t.Error("suggestions should close once the command is complete")
	}
}

func TestTaskLineMarksNobody(t *testing.T) {
	line := taskLine(models.Task{ID: 12, Text: "Call the bank\nabout the card"}, models.Task{}.CreatedAt)
	if !strings.Contains(line, "#12") || !strings.Contains(line, "nobody") {
		t.Errorf("unexpected line %q", line)
	}
	if strings.Contains(line, "\n") {
		t.Errorf("line must be single-line, got %q", line)
	}
}
