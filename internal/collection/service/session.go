// Package service orchestrates the collection session lifecycle: it loads
// the aggregate, applies one domain operation, saves it under optimistic
// locking and publishes the resulting event.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/events"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/logger"
)

// SessionService handles collection session business logic
type SessionService struct {
	repo      repository.SessionRepository
	directory repository.DirectoryRepository
	publisher *events.CollectionEventPublisher
	calc      *domain.Calculator
	ids       IDGenerator
	numbers   NumberGenerator
	clock     func() time.Time
	logger    *logger.Logger
}

// NewSessionService creates a new session service
func NewSessionService(repo repository.SessionRepository, opts ...Option) *SessionService {
	s := &SessionService{
		repo:    repo,
		calc:    domain.NewCalculator(nil),
		ids:     UUIDGenerator{},
		numbers: DailyNumberGenerator{},
		clock:   repository.SystemClock,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireActor(by actor.Actor) error {
	if !by.Valid() {
		return errors.Validation(map[string]string{"actor": "an acting user is required"})
	}
	return nil
}

// mutate loads the session, applies fn and saves the result against the
// loaded version. Nothing is written when fn fails.
func (s *SessionService) mutate(ctx context.Context, id string, fn func(session *domain.CollectionSession) error) (*domain.CollectionSession, error) {
	session, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	expected := session.Version
	if err := fn(session); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, session, expected); err != nil {
		return nil, err
	}
	return session, nil
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// CreateSession plans a new session. Missing coordinator and marketer
// names are filled from the directory when one is configured.
func (s *SessionService) CreateSession(ctx context.Context, in domain.CreateSessionInput, by actor.Actor) (*domain.CollectionSession, error) {
	if err := requireActor(by); err != nil {
		return nil, err
	}

	in.CoordinatorName = s.lookupName(ctx, in.CoordinatorID, in.CoordinatorName)
	in.MarketerName = s.lookupName(ctx, in.MarketerID, in.MarketerName)

	now := s.clock()
	session, err := domain.NewSession(s.ids.NewID(), s.numbers.Next(now), in, by, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, session, 0); err != nil {
		return nil, err
	}

	s.publisher.PublishSessionCreated(ctx, session, by)

	s.logger.WithSessionID(session.ID).Info().
		Str("session_number", session.SessionNumber).
		Str("supplier_id", session.SupplierID).
		Str("actor_id", by.ID).
		Msg("collection session created")

	return session, nil
}

func (s *SessionService) lookupName(ctx context.Context, userID, name string) string {
	if strings.TrimSpace(name) != "" || userID == "" || s.directory == nil {
		return name
	}

	entry, err := s.directory.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.WithUserID(userID).Warn().Err(err).Msg("directory lookup failed")
		}
		return name
	}
	return entry.Name
}

// TransitionSession moves a session to target. With WithCollectionData the
// data update and the transition land in one write.
func (s *SessionService) TransitionSession(ctx context.Context, id string, target domain.SessionStatus, by actor.Actor, opts ...TransitionOption) (*domain.CollectionSession, []domain.Warning, error) {
	if err := requireActor(by); err != nil {
		return nil, nil, err
	}

	var o transitionOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		warnings []domain.Warning
		from     domain.SessionStatus
	)
	session, err := s.mutate(ctx, id, func(session *domain.CollectionSession) error {
		from = session.Status
		if o.data != nil {
			if !target.Valid() || !session.Status.CanTransitionTo(target) {
				// fails without touching the session
				return session.Transition(target, s.clock(), s.calc)
			}
			w, err := session.ApplyCollectionData(*o.data)
			if err != nil {
				return err
			}
			warnings = w
		}
		return session.Transition(target, s.clock(), s.calc)
	})
	if err != nil {
		return nil, nil, err
	}

	if o.data != nil {
		s.publisher.PublishDataUpdated(ctx, session, by, warnings)
	}
	s.publisher.PublishStatusChanged(ctx, session, by)

	event := s.logger.WithSessionID(session.ID).Info().
		Str("from", string(from)).
		Str("to", string(session.Status)).
		Str("actor_id", by.ID)
	if session.Performance != nil {
		event = event.
			Int("efficiency", session.Performance.Efficiency).
			Int("total_time_spent", *session.TotalTimeSpent)
	}
	event.Msg("collection session transitioned")
	s.logWarnings(session.ID, warnings)

	return session, warnings, nil
}

// DeleteSession removes a session with its problems and comments
func (s *SessionService) DeleteSession(ctx context.Context, id string, by actor.Actor) error {
	if err := requireActor(by); err != nil {
		return err
	}

	session, err := s.repo.Load(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.PublishSessionDeleted(ctx, session, by)

	s.logger.WithSessionID(id).Info().
		Str("actor_id", by.ID).
		Msg("collection session deleted")

	return nil
}

// ============================================================================
// COLLECTION DATA
// ============================================================================

// UpdateCollectionData saves collected amounts. The returned warnings are
// non-fatal findings such as an actual amount that disagrees with the
// paper-type buckets.
func (s *SessionService) UpdateCollectionData(ctx context.Context, id string, update domain.CollectionDataUpdate, by actor.Actor) (*domain.CollectionSession, []domain.Warning, error) {
	if err := requireActor(by); err != nil {
		return nil, nil, err
	}

	var warnings []domain.Warning
	session, err := s.mutate(ctx, id, func(session *domain.CollectionSession) error {
		w, err := session.ApplyCollectionData(update)
		warnings = w
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.afterDataUpdate(ctx, session, by, warnings)
	return session, warnings, nil
}

// UpdatePaperType replaces the quantity of one paper-type bucket
func (s *SessionService) UpdatePaperType(ctx context.Context, id string, paperType domain.PaperType, quantity float64, by actor.Actor) (*domain.CollectionSession, error) {
	if err := requireActor(by); err != nil {
		return nil, err
	}

	session, err := s.mutate(ctx, id, func(session *domain.CollectionSession) error {
		return session.UpdatePaperType(paperType, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.afterDataUpdate(ctx, session, by, nil)
	return session, nil
}

// UpdateActualAmount records the manually weighed total
func (s *SessionService) UpdateActualAmount(ctx context.Context, id string, quantity float64, by actor.Actor) (*domain.CollectionSession, error) {
	if err := requireActor(by); err != nil {
		return nil, err
	}

	session, err := s.mutate(ctx, id, func(session *domain.CollectionSession) error {
		return session.UpdateActualAmount(quantity)
	})
	if err != nil {
		return nil, err
	}

	s.afterDataUpdate(ctx, session, by, nil)
	return session, nil
}

func (s *SessionService) afterDataUpdate(ctx context.Context, session *domain.CollectionSession, by actor.Actor, warnings []domain.Warning) {
	s.publisher.PublishDataUpdated(ctx, session, by, warnings)

	event := s.logger.WithSessionID(session.ID).Info().
		Float64("paper_types_total", session.CollectionData.PaperTypes.Total()).
		Str("actor_id", by.ID)
	if session.CollectionData.ActualAmount != nil {
		event = event.Float64("actual_amount", *session.CollectionData.ActualAmount)
	}
	event.Msg("collection data updated")
	s.logWarnings(session.ID, warnings)
}

func (s *SessionService) logWarnings(sessionID string, warnings []domain.Warning) {
	for _, w := range warnings {
		s.logger.WithSessionID(sessionID).Warn().
			Str("code", string(w.Code)).
			Interface("details", w.Details).
			Msg(w.Message)
	}
}

// ============================================================================
// PROBLEMS & COMMENTS
// ============================================================================

// ReportProblem opens a problem report on the session
func (s *SessionService) ReportProblem(ctx context.Context, id, description string, priority domain.ProblemPriority, by actor.Actor) (*domain.CollectionSession, error) {
	if err := requireActor(by); err != nil {
		return nil, err
	}
	priority, err := domain.ParsePriority(string(priority))
	if err != nil {
		return nil, err
	}

	var problem domain.ProblemReport
	session, err := s.mutate(ctx, id, func(session *domain.CollectionSession) error {
		p, err := domain.NewProblemReport(s.ids.NewID(), session.ID, description, priority, by, s.clock())
		if err != nil {
			return err
		}
		session.AddProblem(p)
		problem = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishProblemReported(ctx, &problem, by)

	s.logger.WithSessionID(session.ID).Info().
		Str("problem_id", problem.ID).
		Str("priority", string(problem.Priority)).
		Str("actor_id", by.ID).
		Msg("problem reported")

	return session, nil
}

// ResolveProblem resolves an open problem. Resolving twice fails with an
// invalid state error and leaves the first resolution untouched.
func (s *SessionService) ResolveProblem(ctx context.Context, id, problemID, resolution string, by actor.Actor) (*domain.CollectionSession, error) {
	if err := requireActor(by); err != nil {
		return nil, err
	}

	var resolved domain.ProblemReport
	session, err := s.mutate(ctx, id, func(session *domain.CollectionSession) error {
		p, err := session.ResolveProblem(problemID, resolution, by, s.clock())
		if err != nil {
			return err
		}
		resolved = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishProblemResolved(ctx, &resolved, by)

	s.logger.WithSessionID(session.ID).Info().
		Str("problem_id", problemID).
		Str("actor_id", by.ID).
		Msg("problem resolved")

	return session, nil
}

// AddComment appends a comment. commentType defaults to "general".
func (s *SessionService) AddComment(ctx context.Context, id, text, commentType string, by actor.Actor) (*domain.CollectionSession, error) {
	if err := requireActor(by); err != nil {
		return nil, err
	}

	var comment domain.Comment
	session, err := s.mutate(ctx, id, func(session *domain.CollectionSession) error {
		c, err := domain.NewComment(s.ids.NewID(), session.ID, text, commentType, by, s.clock())
		if err != nil {
			return err
		}
		session.AddComment(c)
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCommentAdded(ctx, &comment)

	s.logger.WithSessionID(session.ID).Info().
		Str("comment_id", comment.ID).
		Str("actor_id", by.ID).
		Msg("comment added")

	return session, nil
}
