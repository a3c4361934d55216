package domain

import (
	"strings"

	"github.com/paperloop/paperloop-backend/pkg/errors"
)

// SessionStatus is the lifecycle state of a collection session
type SessionStatus string

const (
	StatusPlanned    SessionStatus = "planned"
	StatusInProgress SessionStatus = "in-progress"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []SessionStatus{StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled}

// transitions is the status graph. Terminal states have no outgoing edges.
var transitions = map[SessionStatus][]SessionStatus{
	StatusPlanned:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// ParseStatus converts a client supplied value into a SessionStatus.
// "in_progress" and "inprogress" are accepted as spellings of in-progress.
func ParseStatus(raw string) (SessionStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "in_progress", "inprogress":
		normalized = string(StatusInProgress)
	}

	s := SessionStatus(normalized)
	if !s.Valid() {
		return "", errors.Validation(map[string]string{
			"status": "must be one of: planned, in-progress, completed, cancelled",
		})
	}
	return s, nil
}

// Valid reports whether s is a known status
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is legal from s
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether target is reachable from s in one step
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s SessionStatus) String() string {
	return string(s)
}
