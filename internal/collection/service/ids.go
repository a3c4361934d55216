package service

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces collision-resistant identifiers for sessions,
// problems and comments
type IDGenerator interface {
	NewID() string
}

// NumberGenerator produces the human-readable session number
type NumberGenerator interface {
	Next(now time.Time) string
}

// UUIDGenerator issues time-ordered UUIDv7 identifiers
type UUIDGenerator struct{}

// NewID returns a new UUIDv7, falling back to v4 if the clock source fails
func (UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SequenceGenerator issues prefix-1, prefix-2, ... Useful for tests and
// reproducible fixtures.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Int64
}

// NewID returns the next identifier in the sequence
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1))
}

// DailyNumberGenerator issues CS-YYYYMMDD-XXXXXX numbers where the suffix
// is six random hex digits
type DailyNumberGenerator struct{}

// Next returns a session number for the given day
func (DailyNumberGenerator) Next(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("CS-%s-%s", now.UTC().Format("20060102"), suffix)
}

// SequentialNumberGenerator issues CS-YYYYMMDD-000001, -000002, ...
type SequentialNumberGenerator struct {
	n atomic.Int64
}

// Next returns the next session number
func (g *SequentialNumberGenerator) Next(now time.Time) string {
	return fmt.Sprintf("CS-%s-%06d", now.UTC().Format("20060102"), g.n.Add(1))
}
