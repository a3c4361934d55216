// Package domain holds the collection session aggregate and the rules
// that govern it: the status graph, the paper-type ledger, the problem
// tracker, the comment log and the performance calculator.
//
// Every mutation is a method on *CollectionSession that either applies
// all of its effects or returns an error before touching the session.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/errors"
)

// CollectionSession is the aggregate root of one scheduled pickup
type CollectionSession struct {
	ID                 string          `json:"id"`
	SessionNumber      string          `json:"session_number"`
	SupplierID         string          `json:"supplier_id"`
	SupplierName       string          `json:"supplier_name"`
	SiteLocation       string          `json:"site_location"`
	CoordinatorID      string          `json:"coordinator_id"`
	CoordinatorName    string          `json:"coordinator_name"`
	MarketerID         string          `json:"marketer_id,omitempty"`
	MarketerName       string          `json:"marketer_name,omitempty"`
	Status             SessionStatus   `json:"status"`
	EstimatedStartDate time.Time       `json:"estimated_start_date"`
	EstimatedEndDate   time.Time       `json:"estimated_end_date"`
	ActualStartDate    *time.Time      `json:"actual_start_date,omitempty"`
	ActualEndDate      *time.Time      `json:"actual_end_date,omitempty"`
	TotalTimeSpent     *int            `json:"total_time_spent,omitempty"`
	CollectionData     CollectionData  `json:"collection_data"`
	Performance        *Performance    `json:"performance,omitempty"`
	Problems           []ProblemReport `json:"problems"`
	Comments           []Comment       `json:"comments"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Version            int64           `json:"version"`
}

// CreateSessionInput carries the planning data of a new session
type CreateSessionInput struct {
	SupplierID         string     `json:"supplier_id"`
	SupplierName       string     `json:"supplier_name"`
	SiteLocation       string     `json:"site_location"`
	CoordinatorID      string     `json:"coordinator_id"`
	CoordinatorName    string     `json:"coordinator_name"`
	MarketerID         string     `json:"marketer_id"`
	MarketerName       string     `json:"marketer_name"`
	EstimatedStartDate *time.Time `json:"estimated_start_date"`
	EstimatedEndDate   *time.Time `json:"estimated_end_date"`
	EstimatedAmount    *float64   `json:"estimated_amount"`
}

// Validate checks required fields and the planned date range
func (in CreateSessionInput) Validate() error {
	details := make(map[string]string)

	required := map[string]string{
		"supplier_id":    in.SupplierID,
		"coordinator_id": in.CoordinatorID,
		"site_location":  in.SiteLocation,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			details[field] = "this field is required"
		}
	}

	if in.EstimatedStartDate == nil || in.EstimatedStartDate.IsZero() {
		details["estimated_start_date"] = "this field is required"
	}
	if in.EstimatedEndDate == nil || in.EstimatedEndDate.IsZero() {
		details["estimated_end_date"] = "this field is required"
	}
	if in.EstimatedStartDate != nil && in.EstimatedEndDate != nil &&
		in.EstimatedEndDate.Before(*in.EstimatedStartDate) {
		details["estimated_end_date"] = "must not be before estimated_start_date"
	}

	if in.EstimatedAmount == nil {
		details["estimated_amount"] = "this field is required"
	} else if err := validateQuantity("estimated_amount", *in.EstimatedAmount); err != nil {
		details["estimated_amount"] = "must be a non-negative number"
	}

	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// NewSession builds a planned session from validated input
func NewSession(id, number string, in CreateSessionInput, by actor.Actor, now time.Time) (*CollectionSession, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	return &CollectionSession{
		ID:                 id,
		SessionNumber:      number,
		SupplierID:         strings.TrimSpace(in.SupplierID),
		SupplierName:       strings.TrimSpace(in.SupplierName),
		SiteLocation:       strings.TrimSpace(in.SiteLocation),
		CoordinatorID:      strings.TrimSpace(in.CoordinatorID),
		CoordinatorName:    strings.TrimSpace(in.CoordinatorName),
		MarketerID:         strings.TrimSpace(in.MarketerID),
		MarketerName:       strings.TrimSpace(in.MarketerName),
		Status:             StatusPlanned,
		EstimatedStartDate: in.EstimatedStartDate.UTC(),
		EstimatedEndDate:   in.EstimatedEndDate.UTC(),
		CollectionData: CollectionData{
			EstimatedAmount: *in.EstimatedAmount,
		},
		Problems:  []ProblemReport{},
		Comments:  []Comment{},
		CreatedBy: by.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Transition moves the session to target and applies the side effects of
// that edge. On error the session is left untouched.
func (s *CollectionSession) Transition(target SessionStatus, now time.Time, calc *Calculator) error {
	if !target.Valid() {
		return errors.Validation(map[string]string{
			"status": "must be one of: planned, in-progress, completed, cancelled",
		})
	}
	if !s.Status.CanTransitionTo(target) {
		return errors.InvalidTransition(string(s.Status), string(target))
	}

	switch target {
	case StatusInProgress:
		if s.ActualStartDate == nil {
			start := now
			s.ActualStartDate = &start
		}
	case StatusCompleted:
		if s.ActualEndDate == nil {
			end := now
			s.ActualEndDate = &end
		}
		start := *s.ActualEndDate
		if s.ActualStartDate != nil {
			start = *s.ActualStartDate
		}
		hours := HoursBetween(start, *s.ActualEndDate)
		s.TotalTimeSpent = &hours

		s.Status = target
		perf := calc.Calculate(s)
		s.Performance = &perf
		return nil
	}

	s.Status = target
	return nil
}

// ensureEditable rejects field edits once the session is closed
func (s *CollectionSession) ensureEditable() error {
	if s.Status.IsTerminal() {
		return errors.InvalidState(fmt.Sprintf("session %s is %s and can no longer be edited", s.SessionNumber, s.Status))
	}
	return nil
}

// ============================================================================
// PAPER-TYPE LEDGER
// ============================================================================

// ApplyCollectionData saves collection data. Without an explicit actual
// amount, the actual amount becomes the bucket total. An explicit amount
// is kept as given; a disagreement with supplied buckets is reported as a
// warning, not reconciled.
func (s *CollectionSession) ApplyCollectionData(u CollectionDataUpdate) ([]Warning, error) {
	if err := s.ensureEditable(); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	if u.PaperTypes != nil {
		s.CollectionData.PaperTypes = *u.PaperTypes
	}

	var warnings []Warning
	if u.ActualAmount != nil {
		actual := *u.ActualAmount
		s.CollectionData.ActualAmount = &actual
		if u.PaperTypes != nil {
			if total := u.PaperTypes.Total(); amountsDiffer(actual, total) {
				warnings = append(warnings, AmountMismatch(actual, total))
			}
		}
	} else {
		total := s.CollectionData.PaperTypes.Total()
		s.CollectionData.ActualAmount = &total
	}

	return warnings, nil
}

// UpdatePaperType replaces the quantity of one bucket
func (s *CollectionSession) UpdatePaperType(t PaperType, quantity float64) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	return s.CollectionData.PaperTypes.Set(t, quantity)
}

// UpdateActualAmount records the manually weighed total
func (s *CollectionSession) UpdateActualAmount(quantity float64) error {
	if err := s.ensureEditable(); err != nil {
		return err
	}
	if err := validateQuantity("actual_amount", quantity); err != nil {
		return err
	}
	s.CollectionData.ActualAmount = &quantity
	return nil
}

// ============================================================================
// PROBLEMS & COMMENTS
// ============================================================================

// AddProblem appends a report. Allowed in every state.
func (s *CollectionSession) AddProblem(p ProblemReport) {
	s.Problems = append(s.Problems, p)
}

// FindProblem returns the problem with the given id
func (s *CollectionSession) FindProblem(problemID string) (*ProblemReport, error) {
	for i := range s.Problems {
		if s.Problems[i].ID == problemID {
			return &s.Problems[i], nil
		}
	}
	return nil, errors.NotFound("problem")
}

// ResolveProblem resolves one open problem of the session
func (s *CollectionSession) ResolveProblem(problemID, resolution string, by actor.Actor, now time.Time) (*ProblemReport, error) {
	p, err := s.FindProblem(problemID)
	if err != nil {
		return nil, err
	}
	if err := p.Resolve(resolution, by, now); err != nil {
		return nil, err
	}
	return p, nil
}

// OpenProblemCount counts unresolved problems
func (s *CollectionSession) OpenProblemCount() int {
	n := 0
	for i := range s.Problems {
		if s.Problems[i].IsOpen() {
			n++
		}
	}
	return n
}

// AddComment appends to the comment log. Allowed in every state.
func (s *CollectionSession) AddComment(c Comment) {
	s.Comments = append(s.Comments, c)
}

// Clone returns a deep copy that shares no memory with s
func (s *CollectionSession) Clone() *CollectionSession {
	if s == nil {
		return nil
	}

	c := *s
	c.ActualStartDate = cloneTime(s.ActualStartDate)
	c.ActualEndDate = cloneTime(s.ActualEndDate)
	if s.TotalTimeSpent != nil {
		v := *s.TotalTimeSpent
		c.TotalTimeSpent = &v
	}
	if s.CollectionData.ActualAmount != nil {
		v := *s.CollectionData.ActualAmount
		c.CollectionData.ActualAmount = &v
	}
	if s.Performance != nil {
		v := *s.Performance
		c.Performance = &v
	}

	c.Problems = make([]ProblemReport, len(s.Problems))
	for i, p := range s.Problems {
		if p.ResolvedBy != nil {
			v := *p.ResolvedBy
			p.ResolvedBy = &v
		}
		p.ResolvedDate = cloneTime(p.ResolvedDate)
		if p.Resolution != nil {
			v := *p.Resolution
			p.Resolution = &v
		}
		c.Problems[i] = p
	}

	c.Comments = make([]Comment, len(s.Comments))
	copy(c.Comments, s.Comments)

	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
