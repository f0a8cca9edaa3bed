package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/taskdesk/internal/access"
	"github.com/fentz26/taskdesk/internal/lifecycle"
	"github.com/fentz26/taskdesk/internal/models"
	"github.com/fentz26/taskdesk/internal/store"
)

var (
	alice = lifecycle.Actor{ID: 10, ContextID: 10}
	bob   = lifecycle.Actor{ID: 11, ContextID: 11}
)

func newTestExporter(t *testing.T) (*Exporter, *lifecycle.Engine) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	st.UpsertUser(ctx, models.User{UserID: alice.ID, Role: models.RoleMember})
	st.UpsertUser(ctx, models.User{UserID: bob.ID, Role: models.RoleMember})

	engine := lifecycle.New(st, access.NewPolicy(access.NewAuthorizationIndex(1), access.DefaultMatrix()), nil, lifecycle.Options{Location: time.UTC})
	if err := engine.ReloadUsers(ctx); err != nil {
		t.Fatalf("ReloadUsers failed: %v", err)
	}
	x := NewExporter(engine)
	x.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return x, engine
}

func TestExportJSONPagesThroughEverything(t *testing.T) {
	x, engine := newTestExporter(t)
	ctx := context.Background()

	for i := 0; i < batchSize+5; i++ {
		if _, err := engine.Create(ctx, alice, lifecycle.CreateRequest{Text: fmt.Sprintf("task %d", i)}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	engine.Create(ctx, bob, lifecycle.CreateRequest{Text: "not alice's"})
	if _, err := engine.ChangeStatus(ctx, alice, 1, "deleted"); err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}

	data, err := x.Export(ctx, alice, "JSON")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(tasks) != batchSize+4 {
		t.Errorf("Expected %d tasks, got %d", batchSize+4, len(tasks))
	}
	for _, task := range tasks {
		if task.CreatorID != alice.ID || task.Status == models.TaskStatusDeleted {
			t.Errorf("Unexpected task in export: %+v", task)
		}
	}
}

func TestExportCSV(t *testing.T) {
	x, engine := newTestExporter(t)
	ctx := context.Background()
	engine.Create(ctx, alice, lifecycle.CreateRequest{Text: "Buy milk, eggs", Assignee: "@bob", Deadline: "2026-03-09"})

	data, err := x.Export(ctx, alice, "csv")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("Invalid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "id" || rows[1][2] != "@bob" || rows[1][4] != "Buy milk, eggs" || rows[1][6] != "2026-03-09" {
		t.Errorf("Unexpected rows %v", rows)
	}
}

func TestExportPDF(t *testing.T) {
	x, engine := newTestExporter(t)
	engine.Create(context.Background(), alice, lifecycle.CreateRequest{Text: "Overdue thing", Deadline: "2026-03-01"})

	data, err := x.Export(context.Background(), alice, "pdf")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Errorf("Output is not a PDF: %q", data[:min(len(data), 16)])
	}
}

func TestExportPDFCoreFontNeverEmbedsUTF8(t *testing.T) {
	x, engine := newTestExporter(t)
	x.compress = false
	engine.Create(context.Background(), alice, lifecycle.CreateRequest{Text: "Купить молоко, café"})

	data, err := x.Export(context.Background(), alice, "pdf")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if bytes.Contains(data, []byte("Купить")) || bytes.Contains(data, []byte("café")) {
		t.Error("Raw UTF-8 text written with a cp1252 core font")
	}
	// cp1252 keeps Western accents as single bytes.
	if !bytes.Contains(data, []byte("caf\xe9")) {
		t.Error("Expected cp1252-encoded text in the content stream")
	}
}

func TestExportPDFUnicodeFont(t *testing.T) {
	font := DetectFont()
	if font == "" {
		t.Skip("no Unicode TrueType font installed")
	}
	x, engine := newTestExporter(t)
	x.compress = false
	x.SetFont(font)
	engine.Create(context.Background(), alice, lifecycle.CreateRequest{Text: "Купить молоко"})

	data, err := x.Export(context.Background(), alice, "pdf")
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) || bytes.Contains(data, []byte("Купить")) {
		t.Error("Expected glyph-encoded text in a valid PDF")
	}
}

func TestExportPDFMissingFont(t *testing.T) {
	x, engine := newTestExporter(t)
	x.SetFont(filepath.Join(t.TempDir(), "missing.ttf"))
	engine.Create(context.Background(), alice, lifecycle.CreateRequest{Text: "anything"})

	if _, err := x.Export(context.Background(), alice, "pdf"); err == nil {
		t.Error("Expected an error for a missing font file")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	x, _ := newTestExporter(t)
	_, err := x.Export(context.Background(), alice, "xml")
	if !errors.Is(err, lifecycle.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if ContentType("pdf") != "application/pdf" || ContentType("CSV") != "text/csv" || ContentType("json") != "application/json" {
		t.Error("Unexpected content types")
	}
}

func TestExportDeniedForStrangers(t *testing.T) {
	x, _ := newTestExporter(t)
	_, err := x.Export(context.Background(), lifecycle.Actor{ID: 99}, "json")
	if !errors.Is(err, lifecycle.ErrNotPermitted) {
		t.Errorf("Expected ErrNotPermitted, got %v", err)
	}
}
