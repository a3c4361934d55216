package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/database"
	"github.com/paperloop/paperloop-backend/pkg/errors"
)

// SQLDirectory persists the directory cache in the directory_users table
type SQLDirectory struct {
	db *database.DB
}

// NewSQLDirectory creates a new directory cache repository
func NewSQLDirectory(db *database.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// Set creates or updates a directory entry
func (r *SQLDirectory) Set(ctx context.Context, entry *actor.DirectoryEntry) error {
	query := r.db.Rebind(`
		INSERT INTO directory_users (user_id, name, email, role_name, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id)
		DO UPDATE SET name = excluded.name, email = excluded.email,
			role_name = excluded.role_name, updated_at = CURRENT_TIMESTAMP
	`)

	if _, err := r.db.ExecContext(ctx, query, entry.UserID, entry.Name, entry.Email, entry.RoleName); err != nil {
		return fmt.Errorf("failed to store directory entry: %w", err)
	}
	return nil
}

// Get gets a directory entry by user ID
func (r *SQLDirectory) Get(ctx context.Context, userID string) (*actor.DirectoryEntry, error) {
	var entry actor.DirectoryEntry
	query := r.db.Rebind(`SELECT user_id, name, email, role_name FROM directory_users WHERE user_id = ?`)

	if err := r.db.GetContext(ctx, &entry, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, directoryEntryNotFound(userID)
		}
		return nil, fmt.Errorf("failed to load directory entry: %w", err)
	}

	return &entry, nil
}

// Delete deletes a directory entry
func (r *SQLDirectory) Delete(ctx context.Context, userID string) error {
	query := r.db.Rebind(`DELETE FROM directory_users WHERE user_id = ?`)
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete directory entry: %w", err)
	}
	return nil
}

func directoryEntryNotFound(userID string) error {
	return errors.NotFound("directory entry").WithDetails(map[string]string{"user_id": userID})
}
