package domain_test

import (
	"testing"
	"time"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEfficiency(t *testing.T) {
	tests := []struct {
		name      string
		actual    float64
		estimated float64
		want      int
	}{
		{"under target", 450, 500, 90},
		{"exact", 500, 500, 100},
		{"overperformance is not capped", 150, 100, 150},
		{"rounds half up", 1, 8, 13},
		{"zero estimate", 10, 0, 0},
		{"nothing collected", 0, 250, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Efficiency(tt.actual, tt.estimated))
		})
	}
}

func TestCalculator_FallsBackToBucketTotal(t *testing.T) {
	s := newPlanned(t)
	require.NoError(t, s.UpdatePaperType(domain.PaperCarton, 300))
	require.NoError(t, s.UpdatePaperType(domain.PaperNewspaper, 100))

	perf := domain.NewCalculator(nil).Calculate(s)

	assert.Equal(t, 80, perf.Efficiency)
}

func TestConstantScoring(t *testing.T) {
	s := newPlanned(t)

	perf := domain.NewCalculator(domain.ConstantScoring{QualityScore: 70, PunctualityScore: 60}).Calculate(s)
	assert.Equal(t, 70, perf.Quality)
	assert.Equal(t, 60, perf.Punctuality)

	perf = domain.NewCalculator(domain.DefaultScoring()).Calculate(s)
	assert.Equal(t, domain.DefaultQualityScore, perf.Quality)
	assert.Equal(t, domain.DefaultPunctualityScore, perf.Punctuality)
}

func TestDerivedScoring_Quality(t *testing.T) {
	s := newPlanned(t)
	for i, prio := range []domain.ProblemPriority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityCritical} {
		p, err := domain.NewProblemReport(string(rune('a'+i)), s.ID, "issue", prio, coordinator, baseTime)
		require.NoError(t, err)
		s.AddProblem(p)
	}

	assert.Equal(t, 100-2-5-10-20, domain.DerivedScoring{}.Quality(s))

	_, err := s.ResolveProblem("d", "fixed", coordinator, baseTime)
	require.NoError(t, err)
	assert.Equal(t, 100-2-5-10, domain.DerivedScoring{}.Quality(s))

	for i := 0; i < 10; i++ {
		p, err := domain.NewProblemReport("crit", s.ID, "issue", domain.PriorityCritical, coordinator, baseTime)
		require.NoError(t, err)
		s.AddProblem(p)
	}
	assert.Equal(t, 0, domain.DerivedScoring{}.Quality(s))
}

func TestDerivedScoring_Punctuality(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		want   int
	}{
		{"early", -2 * time.Hour, 100},
		{"on time", 0, 100},
		{"one hour late is one started day", time.Hour, 90},
		{"exactly two days late", 48 * time.Hour, 80},
		{"very late floors at zero", 30 * 24 * time.Hour, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newPlanned(t)
			end := s.EstimatedEndDate.Add(tt.offset)
			s.ActualEndDate = &end
			assert.Equal(t, tt.want, domain.DerivedScoring{}.Punctuality(s))
		})
	}

	t.Run("not finished", func(t *testing.T) {
		assert.Equal(t, 100, domain.DerivedScoring{}.Punctuality(newPlanned(t)))
	})
}

func TestParseStatus(t *testing.T) {
	for raw, want := range map[string]domain.SessionStatus{
		"planned":     domain.StatusPlanned,
		"IN-PROGRESS": domain.StatusInProgress,
		"in_progress": domain.StatusInProgress,
		" completed ": domain.StatusCompleted,
		"cancelled":   domain.StatusCancelled,
	} {
		got, err := domain.ParseStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}

	_, err := domain.ParseStatus("done")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestStatusGraph(t *testing.T) {
	assert.True(t, domain.StatusPlanned.CanTransitionTo(domain.StatusInProgress))
	assert.True(t, domain.StatusPlanned.CanTransitionTo(domain.StatusCancelled))
	assert.True(t, domain.StatusInProgress.CanTransitionTo(domain.StatusCompleted))
	assert.True(t, domain.StatusInProgress.CanTransitionTo(domain.StatusCancelled))

	for _, terminal := range []domain.SessionStatus{domain.StatusCompleted, domain.StatusCancelled} {
		assert.True(t, terminal.IsTerminal())
		for _, target := range domain.AllStatuses {
			assert.False(t, terminal.CanTransitionTo(target), "%s -> %s", terminal, target)
		}
	}
}

func TestPaperTypes(t *testing.T) {
	var p domain.PaperTypes
	for i, pt := range domain.AllPaperTypes {
		require.NoError(t, p.Set(pt, float64(i+1)))
		assert.Equal(t, float64(i+1), p.Get(pt))
	}
	assert.Equal(t, 15.0, p.Total())

	assert.True(t, errors.Is(p.Set(domain.PaperCarton, -1), errors.ErrValidation))
	assert.Equal(t, 1.0, p.Carton)

	got, err := domain.ParsePaperType("Sorted-White")
	require.NoError(t, err)
	assert.Equal(t, domain.PaperSortedWhite, got)

	_, err = domain.ParsePaperType("plastic")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
