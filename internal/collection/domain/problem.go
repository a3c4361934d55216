package domain

import (
	"strings"
	"time"

	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/errors"
)

// ProblemPriority ranks a reported problem
type ProblemPriority string

const (
	PriorityLow      ProblemPriority = "low"
	PriorityMedium   ProblemPriority = "medium"
	PriorityHigh     ProblemPriority = "high"
	PriorityCritical ProblemPriority = "critical"
)

// ParsePriority validates a client supplied priority
func ParsePriority(raw string) (ProblemPriority, error) {
	p := ProblemPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return p, nil
	}
	return "", errors.Validation(map[string]string{
		"priority": "must be one of: low, medium, high, critical",
	})
}

// ProblemStatus is open until the problem is resolved
type ProblemStatus string

const (
	ProblemOpen     ProblemStatus = "open"
	ProblemResolved ProblemStatus = "resolved"
)

// ProblemReport is an issue raised against a session
type ProblemReport struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	ReportedBy     string          `json:"reported_by"`
	ReportedByName string          `json:"reported_by_name,omitempty"`
	ReportedDate   time.Time       `json:"reported_date"`
	Description    string          `json:"description"`
	Priority       ProblemPriority `json:"priority"`
	Status         ProblemStatus   `json:"status"`
	ResolvedBy     *string         `json:"resolved_by,omitempty"`
	ResolvedDate   *time.Time      `json:"resolved_date,omitempty"`
	Resolution     *string         `json:"resolution,omitempty"`
}

// NewProblemReport builds an open problem report
func NewProblemReport(id, sessionID, description string, priority ProblemPriority, by actor.Actor, now time.Time) (ProblemReport, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return ProblemReport{}, errors.Validation(map[string]string{
			"description": "this field is required",
		})
	}
	priority, err := ParsePriority(string(priority))
	if err != nil {
		return ProblemReport{}, err
	}

	return ProblemReport{
		ID:             id,
		SessionID:      sessionID,
		ReportedBy:     by.ID,
		ReportedByName: by.DisplayName(),
		ReportedDate:   now,
		Description:    description,
		Priority:       priority,
		Status:         ProblemOpen,
	}, nil
}

// IsOpen reports whether the problem still awaits resolution
func (p *ProblemReport) IsOpen() bool {
	return p.Status == ProblemOpen
}

// Consistent reports whether the resolution fields agree with the status
func (p *ProblemReport) Consistent() bool {
	resolvedFields := p.ResolvedBy != nil && p.ResolvedDate != nil && p.Resolution != nil
	if p.Status == ProblemResolved {
		return resolvedFields
	}
	return p.ResolvedBy == nil && p.ResolvedDate == nil && p.Resolution == nil
}

// Resolve closes an open problem. All resolution fields are set together.
func (p *ProblemReport) Resolve(resolution string, by actor.Actor, now time.Time) error {
	if !p.IsOpen() {
		return errors.InvalidState("problem " + p.ID + " is already resolved")
	}

	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return errors.Validation(map[string]string{
			"resolution": "this field is required",
		})
	}

	resolvedBy := by.ID
	resolvedDate := now
	p.ResolvedBy = &resolvedBy
	p.ResolvedDate = &resolvedDate
	p.Resolution = &resolution
	p.Status = ProblemResolved
	return nil
}

// Comment is an immutable note in a session's audit thread
type Comment struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Comment    string    `json:"comment"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
}

// DefaultCommentType tags comments created without an explicit type
const DefaultCommentType = "general"

// NewComment builds a comment authored by the given actor
func NewComment(id, sessionID, text, commentType string, by actor.Actor, now time.Time) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, errors.Validation(map[string]string{
			"comment": "this field is required",
		})
	}

	commentType = strings.TrimSpace(commentType)
	if commentType == "" {
		commentType = DefaultCommentType
	}

	return Comment{
		ID:         id,
		SessionID:  sessionID,
		AuthorID:   by.ID,
		AuthorName: by.DisplayName(),
		Comment:    text,
		Timestamp:  now,
		Type:       commentType,
	}, nil
}
