package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/taskdesk/internal/models"
)

const taskColumns = `id, creator_id, assignee, context_id, text, status, deadline, created_at, updated_at`

// NewTask holds the values for an insert.
type NewTask struct {
	CreatorID int64
	Assignee  models.Assignee
	ContextID int64
	Text      string
	Deadline  *models.Deadline
}

// TaskPatch is a partial update. Nil fields are left untouched;
// SetDeadline with a nil Deadline clears it.
type TaskPatch struct {
	Assignee    *models.Assignee
	Text        *string
	Status      *models.TaskStatus
	Deadline    *models.Deadline
	SetDeadline bool
	ContextID   *int64
}

// Order names a listing order.
type Order string

const (
	// OrderDeadline sorts by deadline ascending with undated tasks last, then by id.
	OrderDeadline Order = "deadline"
	// OrderNewest sorts by id descending.
	OrderNewest Order = "newest"
)

// ParseOrder validates an order name; empty means OrderDeadline.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderDeadline:
		return OrderDeadline, nil
	case OrderNewest:
		return OrderNewest, nil
	}
	return "", fmt.Errorf("unknown order %q", s)
}

// Visibility limits a listing to rows created by CreatorID or assigned to
// one of AssigneeKeys (canonical assignee strings, compared case-insensitively).
type Visibility struct {
	CreatorID    int64
	AssigneeKeys []string
}

// ListQuery selects a page of tasks.
type ListQuery struct {
	Assignee        *models.Assignee
	CreatorID       int64
	ContextID       int64
	Visible         *Visibility
	ExcludeStatuses []models.TaskStatus
	Order           Order
	PageSize        int
	Page            int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, extra ...any) (*models.Task, error) {
	var task models.Task
	var assignee, deadline sql.NullString
	var status string

	dest := append(extra, &task.ID, &task.CreatorID, &assignee, &task.ContextID, &task.Text, &status, &deadline, &task.CreatedAt, &task.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	task.Status = models.TaskStatus(status)

	if assignee.Valid {
		a, err := models.ParseAssignee(assignee.String)
		if err != nil {
			return nil, fmt.Errorf("task %d assignee: %w", task.ID, err)
		}
		task.Assignee = a
	}
	if deadline.Valid {
		d, err := models.ParseStoredDeadline(deadline.String)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", task.ID, err)
		}
		task.Deadline = d
	}
	return &task, nil
}

func nullAssignee(a models.Assignee) sql.NullString {
	if !a.IsSet() {
		return sql.NullString{}
	}
	return sql.NullString{String: a.String(), Valid: true}
}

func nullDeadline(d *models.Deadline) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

// --- Task Operations ---

// CreateTask inserts a new task with status new and returns it.
func (s *Store) CreateTask(ctx context.Context, in NewTask) (*models.Task, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (creator_id, assignee, context_id, text, status, deadline, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.CreatorID, nullAssignee(in.Assignee), in.ContextID, in.Text, models.TaskStatusNew, nullDeadline(in.Deadline), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("task id: %w", err)
	}

	return &models.Task{
		ID:        id,
		CreatorID: in.CreatorID,
		Assignee:  in.Assignee,
		ContextID: in.ContextID,
		Text:      in.Text,
		Status:    models.TaskStatusNew,
		Deadline:  in.Deadline,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetTask retrieves a task by ID. It returns nil when the task does not exist.
func (s *Store) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// CountTasks returns the number of task rows, soft-deleted ones included.
func (s *Store) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applyPatch(ctx context.Context, ex execer, id int64, patch TaskPatch) error {
	setClauses := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	if patch.Assignee != nil {
		setClauses = append(setClauses, "assignee = ?")
		args = append(args, nullAssignee(*patch.Assignee))
	}
	if patch.Text != nil {
		setClauses = append(setClauses, "text = ?")
		args = append(args, *patch.Text)
	}
	if patch.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.SetDeadline {
		setClauses = append(setClauses, "deadline = ?")
		args = append(args, nullDeadline(patch.Deadline))
	}
	if patch.ContextID != nil {
		setClauses = append(setClauses, "context_id = ?")
		args = append(args, *patch.ContextID)
	}
	args = append(args, id)

	res, err := ex.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func appendHistory(ctx context.Context, ex execer, id int64) error {
	res, err := ex.ExecContext(ctx,
		`INSERT INTO task_history (logged_at, `+taskColumns+`) SELECT ?, `+taskColumns+` FROM tasks WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// UpdateTask applies a partial update without writing history. Callers that
// need an audit trail use MutateTask or call AppendHistory first.
func (s *Store) UpdateTask(ctx context.Context, id int64, patch TaskPatch) error {
	return applyPatch(ctx, s.db, id, patch)
}

// AppendHistory copies the current row of a task into task_history.
func (s *Store) AppendHistory(ctx context.Context, id int64) error {
	return appendHistory(ctx, s.db, id)
}

// MutateTask reads a task, asks decide for a patch, snapshots the current row
// into task_history and applies the patch, all in one transaction. An error
// from decide is returned as-is and nothing is written.
func (s *Store) MutateTask(ctx context.Context, id int64, decide func(current *models.Task) (TaskPatch, error)) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}

	patch, err := decide(current)
	if err != nil {
		return nil, err
	}

	if err := appendHistory(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := applyPatch(ctx, tx, id, patch); err != nil {
		return nil, err
	}

	updated, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return updated, nil
}

// HardDelete removes a task and all of its history rows.
func (s *Store) HardDelete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrTaskNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListTasks returns one page of tasks matching q and the total number of matches.
func (s *Store) ListTasks(ctx context.Context, q ListQuery) ([]models.Task, int, error) {
	var where []string
	var args []any

	if q.Assignee != nil {
		if q.Assignee.IsSet() {
			where = append(where, "lower(assignee) = lower(?)")
			args = append(args, q.Assignee.String())
		} else {
			where = append(where, "assignee IS NULL")
		}
	}
	if q.CreatorID != 0 {
		where = append(where, "creator_id = ?")
		args = append(args, q.CreatorID)
	}
	if q.ContextID != 0 {
		where = append(where, "context_id = ?")
		args = append(args, q.ContextID)
	}
	if q.Visible != nil {
		clause := "creator_id = ?"
		args = append(args, q.Visible.CreatorID)
		if len(q.Visible.AssigneeKeys) > 0 {
			clause += " OR lower(assignee) IN (" + placeholders(len(q.Visible.AssigneeKeys)) + ")"
			for _, k := range q.Visible.AssigneeKeys {
				args = append(args, strings.ToLower(k))
			}
		}
		where = append(where, "("+clause+")")
	}
	if len(q.ExcludeStatuses) > 0 {
		where = append(where, "status NOT IN ("+placeholders(len(q.ExcludeStatuses))+")")
		for _, st := range q.ExcludeStatuses {
			args = append(args, string(st))
		}
	}

	filter := ""
	if len(where) > 0 {
		filter = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+filter, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks` + filter
	switch q.Order {
	case OrderNewest:
		query += ` ORDER BY id DESC`
	default:
		query += ` ORDER BY deadline IS NULL, deadline ASC, id ASC`
	}
	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, (page-1)*q.PageSize)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// DueTasks returns open tasks whose deadline date is on or before day.
func (s *Store) DueTasks(ctx context.Context, day time.Time) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE deadline IS NOT NULL AND substr(deadline, 1, 10) <= ? AND status NOT IN (?, ?)
		 ORDER BY deadline ASC, id ASC`,
		day.Format(models.DateLayout), models.TaskStatusDone, models.TaskStatusDeleted,
	)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListHistory returns the history snapshots of a task, oldest first.
func (s *Store) ListHistory(ctx context.Context, id int64) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT log_id, logged_at, `+taskColumns+` FROM task_history WHERE id = ? ORDER BY log_id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		task, err := scanTask(rows, &entry.LogID, &entry.LoggedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Task = *task
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
