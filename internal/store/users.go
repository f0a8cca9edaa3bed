package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fentz26/taskdesk/internal/models"
)

// --- User Operations ---

// UpsertUser registers a user or updates an existing registration.
func (s *Store) UpsertUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, display_name, handle, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET display_name = excluded.display_name, handle = excluded.handle, role = excluded.role`,
		u.UserID, nullString(u.DisplayName), nullString(strings.TrimPrefix(u.Handle, "@")), string(u.Role),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// DeleteUser removes a registration.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetUser returns a registered user, or nil when absent.
func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, handle, role FROM users WHERE user_id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// FindUserByHandle looks a user up by public handle, ignoring case and a leading "@".
func (s *Store) FindUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	h := strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if h == "" {
		return nil, nil
	}
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, handle, role FROM users WHERE lower(handle) = lower(?) ORDER BY user_id LIMIT 1`, h))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user by handle: %w", err)
	}
	return u, nil
}

// ListUsers returns every registered user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, display_name, handle, role FROM users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var name, handle sql.NullString
	var role string
	if err := row.Scan(&u.UserID, &name, &handle, &role); err != nil {
		return nil, err
	}
	u.DisplayName = name.String
	u.Handle = handle.String
	u.Role = models.Role(role)
	return &u, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
