// Package repository persists collection sessions.
//
// All backends honor the same optimistic-locking contract: Save with
// expectedVersion 0 inserts a new session and fails with a conflict if
// the id exists; any other expectedVersion only succeeds when it matches
// the stored version. A successful Save stamps the session with
// Version = expectedVersion + 1 and a fresh UpdatedAt.
package repository

import (
	"context"
	"embed"
	"io/fs"
	"time"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/errors"
)

// SessionRepository is the storage contract consumed by the service layer
type SessionRepository interface {
	Load(ctx context.Context, id string) (*domain.CollectionSession, error)
	Save(ctx context.Context, session *domain.CollectionSession, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]*domain.CollectionSession, error)
}

// DirectoryRepository caches people announced through user events
type DirectoryRepository interface {
	Set(ctx context.Context, entry *actor.DirectoryEntry) error
	Get(ctx context.Context, userID string) (*actor.DirectoryEntry, error)
	Delete(ctx context.Context, userID string) error
}

//go:embed migrations
var migrations embed.FS

// Migrations returns the embedded schema for one SQL driver ("postgres" or "sqlite")
func Migrations(driver string) (fs.FS, string) {
	return migrations, "migrations/" + driver
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// SystemClock is UTC wall time truncated to what every backend stores
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func sessionNotFound() *errors.AppError {
	return errors.NotFound("collection session")
}

func versionConflict(id string) *errors.AppError {
	return errors.Conflict("collection session " + id + " was modified concurrently").
		WithDetails(map[string]string{"session_id": id})
}

func alreadyExists(id string) *errors.AppError {
	return errors.Conflict("collection session " + id + " already exists").
		WithDetails(map[string]string{"session_id": id})
}

func validateSave(session *domain.CollectionSession, expectedVersion int64) error {
	if session == nil || session.ID == "" {
		return errors.BadRequest("session id is required")
	}
	if expectedVersion < 0 {
		return errors.BadRequest("expected version must not be negative")
	}
	return nil
}
