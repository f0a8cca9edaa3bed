// Package audit records a decision journal entry for every lifecycle request.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/taskdesk/internal/models"
	"github.com/fentz26/taskdesk/internal/store"
)

// Journal outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Journal writes decision records for audit trails.
type Journal struct {
	store *store.Store
}

// NewJournal creates a new journal writer.
func NewJournal(s *store.Store) *Journal {
	return &Journal{store: s}
}

// Record writes one entry for a lifecycle request.
func (j *Journal) Record(ctx context.Context, action string, inputs any, outcome string, taskID, actorID int64, details string) (*models.JournalEntry, error) {
	return j.store.WriteJournal(ctx, models.JournalEntry{
		Action:     action,
		InputsHash: HashInputs(inputs),
		Outcome:    outcome,
		TaskID:     taskID,
		ActorID:    actorID,
		Details:    details,
	})
}

// Entries returns the journal of a task, oldest first.
func (j *Journal) Entries(ctx context.Context, taskID int64) ([]models.JournalEntry, error) {
	return j.store.ListJournal(ctx, taskID)
}

// HashInputs creates a SHA256 hash of the JSON form of inputs.
func HashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
