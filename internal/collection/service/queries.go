package service

import (
	"context"
	"math"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
)

// ListFilter narrows ListSessions. Empty fields match everything.
type ListFilter struct {
	Status        domain.SessionStatus
	SupplierID    string
	CoordinatorID string
}

func (f ListFilter) matches(s *domain.CollectionSession) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.SupplierID != "" && s.SupplierID != f.SupplierID {
		return false
	}
	if f.CoordinatorID != "" && s.CoordinatorID != f.CoordinatorID {
		return false
	}
	return true
}

// SessionStats summarizes all stored sessions
type SessionStats struct {
	Total             int                          `json:"total"`
	ByStatus          map[domain.SessionStatus]int `json:"by_status"`
	AverageEfficiency float64                      `json:"average_efficiency"`
	OpenProblems      int                          `json:"open_problems"`
	TotalCollected    float64                      `json:"total_collected"`
}

// GetSession gets a session by ID
func (s *SessionService) GetSession(ctx context.Context, id string) (*domain.CollectionSession, error) {
	return s.repo.Load(ctx, id)
}

// ListSessions lists sessions matching the filter, newest first
func (s *SessionService) ListSessions(ctx context.Context, filter ListFilter) ([]*domain.CollectionSession, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]*domain.CollectionSession, 0, len(all))
	for _, session := range all {
		if filter.matches(session) {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// Stats computes counts per status, the average efficiency and the total
// amount collected over completed sessions, and the number of open problems
func (s *SessionService) Stats(ctx context.Context) (*SessionStats, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &SessionStats{
		Total:    len(all),
		ByStatus: make(map[domain.SessionStatus]int, len(domain.AllStatuses)),
	}
	for _, status := range domain.AllStatuses {
		stats.ByStatus[status] = 0
	}

	var efficiencySum, scored int
	for _, session := range all {
		stats.ByStatus[session.Status]++
		stats.OpenProblems += session.OpenProblemCount()

		if session.Status != domain.StatusCompleted {
			continue
		}
		stats.TotalCollected += session.CollectionData.EffectiveActualAmount()
		if session.Performance != nil {
			efficiencySum += session.Performance.Efficiency
			scored++
		}
	}

	if scored > 0 {
		stats.AverageEfficiency = math.Round(float64(efficiencySum)/float64(scored)*100) / 100
	}
	return stats, nil
}
