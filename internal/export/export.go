// Package export renders the tasks an actor can see as JSON, CSV or PDF.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/taskdesk/internal/lifecycle"
	"github.com/fentz26/taskdesk/internal/models"
	"github.com/fentz26/taskdesk/internal/store"
	"github.com/jung-kurt/gofpdf"
)

const batchSize = 100

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "pdf"}

// Unicode TrueType fonts commonly installed by the OS. The PDF core fonts
// only cover cp1252, so Cyrillic text needs one of these.
var systemFonts = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu-sans-fonts/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	`C:\Windows\Fonts\arial.ttf`,
}

// DetectFont returns the first known Unicode font present on this machine,
// or "" when there is none.
func DetectFont() string {
	for _, path := range systemFonts {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Exporter reads tasks through the lifecycle engine so the actor's view
// scope applies.
type Exporter struct {
	engine   *lifecycle.Engine
	now      func() time.Time
	fontPath string
	compress bool
}

// NewExporter creates an exporter that writes PDFs with the core fonts.
func NewExporter(e *lifecycle.Engine) *Exporter {
	return &Exporter{engine: e, now: time.Now, compress: true}
}

// SetFont makes PDF exports use the UTF-8 TrueType font at path. An empty
// path goes back to the core fonts, which drop characters outside cp1252.
func (x *Exporter) SetFont(path string) {
	x.fontPath = path
}

// ContentType returns the MIME type of a format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "text/csv"
	case "pdf":
		return "application/pdf"
	}
	return "application/json"
}

// Export renders every task visible to actor, soft-deleted ones excluded.
func (x *Exporter) Export(ctx context.Context, actor lifecycle.Actor, format string) ([]byte, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "json", "csv", "pdf":
	default:
		return nil, &lifecycle.ValidationError{Field: "format", Reason: fmt.Sprintf("unknown format %q (use json, csv or pdf)", format)}
	}

	all, err := x.collect(ctx, actor)
	if err != nil {
		return nil, err
	}

	switch format {
	case "json":
		return json.MarshalIndent(all, "", "  ")
	case "csv":
		return renderCSV(all)
	default:
		return x.renderPDF(all)
	}
}

func (x *Exporter) collect(ctx context.Context, actor lifecycle.Actor) ([]models.Task, error) {
	all := []models.Task{}
	for page := 1; ; page++ {
		res, err := x.engine.List(ctx, actor, lifecycle.ListRequest{
			ExcludeStatuses: []models.TaskStatus{models.TaskStatusDeleted},
			Order:           store.OrderDeadline,
			PageSize:        batchSize,
			Page:            page,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Tasks...)
		if page >= res.Pages() {
			return all, nil
		}
	}
}

func renderCSV(tasks []models.Task) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"id", "creator_id", "assignee", "context_id", "text", "status", "deadline", "created_at", "updated_at"})
	for _, t := range tasks {
		deadline := ""
		if t.Deadline != nil {
			deadline = t.Deadline.String()
		}
		_ = w.Write([]string{
			fmt.Sprint(t.ID), fmt.Sprint(t.CreatorID), t.Assignee.String(), fmt.Sprint(t.ContextID),
			t.Text, string(t.Status), deadline,
			t.CreatedAt.UTC().Format(time.RFC3339), t.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return b.Bytes(), nil
}

func (x *Exporter) renderPDF(tasks []models.Task) ([]byte, error) {
	now := x.now()

	fontDir := ""
	if x.fontPath != "" {
		fontDir = filepath.Dir(x.fontPath)
	}
	pdf := gofpdf.New("P", "mm", "A4", fontDir)
	pdf.SetCompression(x.compress)

	family, bold := "Arial", "B"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if x.fontPath != "" {
		pdf.AddUTF8Font("unicode", "", filepath.Base(x.fontPath))
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("load pdf font %s: %w", x.fontPath, err)
		}
		family, bold = "unicode", ""
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, bold, 14)
	pdf.Cell(40, 10, "Task Report")
	pdf.Ln(8)
	pdf.SetFont(family, "", 9)
	pdf.Cell(40, 6, fmt.Sprintf("Generated %s, %d tasks", now.Format("2006-01-02 15:04"), len(tasks)))
	pdf.Ln(10)

	pdf.SetFont(family, "", 10)
	for _, t := range tasks {
		assignee := t.Assignee.String()
		if assignee == "" {
			assignee = "-"
		}
		line := fmt.Sprintf("#%d [%s] %s  due %s  assignee %s", t.ID, t.Status, t.Text, models.FormatDeadline(t.Deadline), assignee)
		if t.Overdue(now) {
			pdf.SetTextColor(180, 0, 0)
			line += "  OVERDUE"
		}
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
