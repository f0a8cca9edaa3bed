package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fentz26/taskdesk/internal/models"
	"github.com/google/uuid"
)

// --- Journal Operations ---

// WriteJournal stores a decision record and returns it with id and timestamp set.
func (s *Store) WriteJournal(ctx context.Context, entry models.JournalEntry) (*models.JournalEntry, error) {
	entry.ID = uuid.New().String()
	entry.Timestamp = time.Now().UTC()

	var taskID sql.NullInt64
	if entry.TaskID != 0 {
		taskID = sql.NullInt64{Int64: entry.TaskID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal (id, action, inputs_hash, outcome, task_id, actor_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, taskID, entry.ActorID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal: %w", err)
	}
	return &entry, nil
}

// ListJournal returns the decision records for a task, oldest first.
func (s *Store) ListJournal(ctx context.Context, taskID int64) ([]models.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, inputs_hash, outcome, task_id, actor_id, details, timestamp FROM journal WHERE task_id = ? ORDER BY rowid ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var tid sql.NullInt64
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &tid, &e.ActorID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.TaskID = tid.Int64
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
