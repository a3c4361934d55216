package service

import (
	"time"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/events"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/logger"
)

// Option configures a SessionService
type Option func(*SessionService)

// WithClock replaces the wall clock
func WithClock(clock func() time.Time) Option {
	return func(s *SessionService) { s.clock = clock }
}

// WithIDGenerator replaces the UUIDv7 generator
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *SessionService) { s.ids = ids }
}

// WithNumberGenerator replaces the session number generator
func WithNumberGenerator(numbers NumberGenerator) Option {
	return func(s *SessionService) { s.numbers = numbers }
}

// WithPublisher enables domain events
func WithPublisher(publisher *events.CollectionEventPublisher) Option {
	return func(s *SessionService) { s.publisher = publisher }
}

// WithDirectory fills missing coordinator and marketer names on create
func WithDirectory(directory repository.DirectoryRepository) Option {
	return func(s *SessionService) { s.directory = directory }
}

// WithScoring selects the quality and punctuality strategy
func WithScoring(scoring domain.ScoringStrategy) Option {
	return func(s *SessionService) { s.calc = domain.NewCalculator(scoring) }
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(s *SessionService) { s.logger = log }
}

// ScoringFromConfig builds the configured scoring strategy
func ScoringFromConfig(cfg config.ScoringConfig) domain.ScoringStrategy {
	if cfg.Strategy == config.ScoringDerived {
		return domain.DerivedScoring{}
	}
	return domain.ConstantScoring{
		QualityScore:     cfg.Quality,
		PunctualityScore: cfg.Punctuality,
	}
}

// TransitionOption adjusts a single TransitionSession call
type TransitionOption func(*transitionOptions)

type transitionOptions struct {
	data *domain.CollectionDataUpdate
}

// WithCollectionData applies a collection data update in the same write
// as the transition, before the status changes
func WithCollectionData(update domain.CollectionDataUpdate) TransitionOption {
	return func(o *transitionOptions) { o.data = &update }
}
