package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"modernc.org/sqlite"
)

// SQLite extended result codes
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintNotNull    = 1299
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// MapError converts a driver error from either backend to an AppError.
// Returns nil if the error is not a known constraint violation.
func MapError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr := MapPQError(err); appErr != nil {
		return appErr
	}
	return MapSQLiteError(err)
}

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr.Constraint)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr.Constraint))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// MapSQLiteError converts a modernc sqlite constraint error to an AppError.
// SQLite reports constraint names only inside the message text.
func MapSQLiteError(err error) *errors.AppError {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}

	msg := sqliteErr.Error()
	switch sqliteErr.Code() {
	case sqliteConstraintCheck:
		return mapCheckConstraint(msg)
	case sqliteConstraintUnique, sqliteConstraintPrimaryKey:
		return errors.Conflict(formatConstraintMessage(msg))
	case sqliteConstraintForeignKey:
		return errors.BadRequest("referenced record does not exist")
	case sqliteConstraintNotNull:
		return errors.Validation(map[string]string{
			"required field": "must not be empty",
		})
	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(constraint string) *errors.AppError {
	switch {
	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: planned, in-progress, completed, cancelled",
		})

	case strings.Contains(constraint, "priority_valid"):
		return errors.Validation(map[string]string{
			"priority": "must be one of: low, medium, high, critical",
		})

	case strings.Contains(constraint, "amount_non_negative"):
		return errors.Validation(map[string]string{
			"amount": "must not be negative",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(constraint string) string {
	switch {
	case strings.Contains(constraint, "session_number"):
		return "a collection session with this session number already exists"
	case strings.Contains(constraint, "collection_sessions_pkey"),
		strings.Contains(constraint, "collection_sessions.id"):
		return "a collection session with this id already exists"
	default:
		return "a record with these values already exists"
	}
}
