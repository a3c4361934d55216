package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/pkg/actor"
)

// MemorySessionRepository keeps sessions in process memory. Callers
// only ever see deep copies.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CollectionSession
	clock    Clock
}

// NewMemorySessionRepository creates an empty in-memory repository
func NewMemorySessionRepository(clock Clock) *MemorySessionRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &MemorySessionRepository{
		sessions: make(map[string]*domain.CollectionSession),
		clock:    clock,
	}
}

// Load returns a copy of the stored session
func (r *MemorySessionRepository) Load(_ context.Context, id string) (*domain.CollectionSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, sessionNotFound()
	}
	return s.Clone(), nil
}

// Save stores the session if expectedVersion matches the stored version
func (r *MemorySessionRepository) Save(_ context.Context, session *domain.CollectionSession, expectedVersion int64) error {
	if err := validateSave(session, expectedVersion); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.sessions[session.ID]
	switch {
	case expectedVersion == 0 && exists:
		return alreadyExists(session.ID)
	case expectedVersion != 0 && !exists:
		return sessionNotFound()
	case exists && current.Version != expectedVersion:
		return versionConflict(session.ID)
	}

	session.Version = expectedVersion + 1
	session.UpdatedAt = r.clock()
	r.sessions[session.ID] = session.Clone()
	return nil
}

// Delete removes the session with its problems and comments
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return sessionNotFound()
	}
	delete(r.sessions, id)
	return nil
}

// ListAll returns copies of every session, newest first
func (r *MemorySessionRepository) ListAll(_ context.Context) ([]*domain.CollectionSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.CollectionSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Clone())
	}
	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders sessions by creation time descending, then by id
func SortNewestFirst(sessions []*domain.CollectionSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
}

// MemoryDirectory is a DirectoryRepository for tests and the memory backend
type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]actor.DirectoryEntry
}

// NewMemoryDirectory creates an empty directory
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{entries: make(map[string]actor.DirectoryEntry)}
}

func (d *MemoryDirectory) Set(_ context.Context, entry *actor.DirectoryEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[entry.UserID] = *entry
	return nil
}

func (d *MemoryDirectory) Get(_ context.Context, userID string) (*actor.DirectoryEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.entries[userID]
	if !ok {
		return nil, directoryEntryNotFound(userID)
	}
	return &entry, nil
}

func (d *MemoryDirectory) Delete(_ context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.entries, userID)
	return nil
}
