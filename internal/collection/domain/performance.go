package domain

import (
	"math"
	"time"
)

// Performance holds the scores derived when a session completes
type Performance struct {
	Efficiency  int `json:"efficiency"`
	Quality     int `json:"quality"`
	Punctuality int `json:"punctuality"`
}

// ScoringStrategy supplies the quality and punctuality scores of a
// completed session. Efficiency is always derived from the amounts.
type ScoringStrategy interface {
	Quality(s *CollectionSession) int
	Punctuality(s *CollectionSession) int
}

// Default constant scores
const (
	DefaultQualityScore     = 90
	DefaultPunctualityScore = 100
)

// ConstantScoring assigns fixed scores regardless of the session data
type ConstantScoring struct {
	QualityScore     int
	PunctualityScore int
}

// DefaultScoring returns the constant 90/100 scoring
func DefaultScoring() ConstantScoring {
	return ConstantScoring{
		QualityScore:     DefaultQualityScore,
		PunctualityScore: DefaultPunctualityScore,
	}
}

func (c ConstantScoring) Quality(*CollectionSession) int     { return c.QualityScore }
func (c ConstantScoring) Punctuality(*CollectionSession) int { return c.PunctualityScore }

// Penalties applied by DerivedScoring
var priorityPenalty = map[ProblemPriority]int{
	PriorityLow:      2,
	PriorityMedium:   5,
	PriorityHigh:     10,
	PriorityCritical: 20,
}

const latenessPenaltyPerDay = 10

// DerivedScoring computes scores from the session's problems and dates.
//
// Quality starts at 100 and loses a priority-weighted penalty per
// unresolved problem. Punctuality starts at 100 and loses 10 points per
// started day the actual end overran the estimated end. Both floor at 0.
type DerivedScoring struct{}

func (DerivedScoring) Quality(s *CollectionSession) int {
	score := 100
	for i := range s.Problems {
		if s.Problems[i].IsOpen() {
			score -= priorityPenalty[s.Problems[i].Priority]
		}
	}
	return max(score, 0)
}

func (DerivedScoring) Punctuality(s *CollectionSession) int {
	if s.ActualEndDate == nil {
		return 100
	}

	overrun := s.ActualEndDate.Sub(s.EstimatedEndDate)
	if overrun <= 0 {
		return 100
	}

	daysLate := int(math.Ceil(overrun.Hours() / 24))
	return max(100-daysLate*latenessPenaltyPerDay, 0)
}

// Calculator derives the performance of a completed session
type Calculator struct {
	scoring ScoringStrategy
}

// NewCalculator creates a calculator. A nil strategy uses DefaultScoring.
func NewCalculator(scoring ScoringStrategy) *Calculator {
	if scoring == nil {
		scoring = DefaultScoring()
	}
	return &Calculator{scoring: scoring}
}

// Calculate is a pure function of the session data. A nil calculator
// scores with DefaultScoring.
func (c *Calculator) Calculate(s *CollectionSession) Performance {
	var scoring ScoringStrategy = DefaultScoring()
	if c != nil && c.scoring != nil {
		scoring = c.scoring
	}
	return Performance{
		Efficiency:  Efficiency(s.CollectionData.EffectiveActualAmount(), s.CollectionData.EstimatedAmount),
		Quality:     scoring.Quality(s),
		Punctuality: scoring.Punctuality(s),
	}
}

// Efficiency is round(actual/estimated*100), uncapped, or 0 without an estimate
func Efficiency(actual, estimated float64) int {
	if estimated <= 0 {
		return 0
	}
	return int(math.Round(actual / estimated * 100))
}

// HoursBetween returns the rounded number of hours from start to end
func HoursBetween(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Hours()))
}
