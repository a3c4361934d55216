package events

import (
	"context"

	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/messaging"
)

// ServiceName is the event source of everything published here
const ServiceName = "collection-service"

// Publisher is satisfied by *messaging.Publisher
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// CollectionEventPublisher publishes collection session events. Publishing
// is best effort: failures are logged and never returned. A nil
// *CollectionEventPublisher publishes nothing.
type CollectionEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewCollectionEventPublisher declares the collection exchange and creates a publisher on it
func NewCollectionEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*CollectionEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeCollectionEvents, ServiceName, log)
	if err != nil {
		return nil, err
	}

	return New(publisher, log), nil
}

// New wraps an existing publisher
func New(publisher Publisher, log *logger.Logger) *CollectionEventPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &CollectionEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

func (p *CollectionEventPublisher) publish(ctx context.Context, eventType, sessionID string, data interface{}) {
	if p == nil || p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.WithSessionID(sessionID).WithError(err).Error().
			Str("event_type", eventType).
			Msg("failed to publish collection event")
	}
}

func sessionEvent(s *domain.CollectionSession, by actor.Actor) messaging.SessionEvent {
	return messaging.SessionEvent{
		SessionID:     s.ID,
		SessionNumber: s.SessionNumber,
		SupplierID:    s.SupplierID,
		CoordinatorID: s.CoordinatorID,
		Status:        string(s.Status),
		Version:       s.Version,
		ActorID:       by.ID,
		OccurredAt:    s.UpdatedAt,
	}
}

// PublishSessionCreated publishes a session created event
func (p *CollectionEventPublisher) PublishSessionCreated(ctx context.Context, s *domain.CollectionSession, by actor.Actor) {
	p.publish(ctx, messaging.EventSessionCreated, s.ID, sessionEvent(s, by))
}

// PublishStatusChanged publishes the event matching the session's new status
func (p *CollectionEventPublisher) PublishStatusChanged(ctx context.Context, s *domain.CollectionSession, by actor.Actor) {
	switch s.Status {
	case domain.StatusInProgress:
		p.publish(ctx, messaging.EventSessionStarted, s.ID, sessionEvent(s, by))
	case domain.StatusCancelled:
		p.publish(ctx, messaging.EventSessionCancelled, s.ID, sessionEvent(s, by))
	case domain.StatusCompleted:
		data := messaging.SessionCompletedEvent{
			SessionEvent: sessionEvent(s, by),
			ActualAmount: s.CollectionData.EffectiveActualAmount(),
		}
		if s.TotalTimeSpent != nil {
			data.TotalTimeSpent = *s.TotalTimeSpent
		}
		if s.Performance != nil {
			data.Efficiency = s.Performance.Efficiency
			data.Quality = s.Performance.Quality
			data.Punctuality = s.Performance.Punctuality
		}
		p.publish(ctx, messaging.EventSessionCompleted, s.ID, data)
	}
}

// PublishSessionDeleted publishes a session deleted event
func (p *CollectionEventPublisher) PublishSessionDeleted(ctx context.Context, s *domain.CollectionSession, by actor.Actor) {
	p.publish(ctx, messaging.EventSessionDeleted, s.ID, sessionEvent(s, by))
}

// PublishDataUpdated publishes a collection data updated event
func (p *CollectionEventPublisher) PublishDataUpdated(ctx context.Context, s *domain.CollectionSession, by actor.Actor, warnings []domain.Warning) {
	data := messaging.CollectionDataUpdatedEvent{
		SessionEvent:    sessionEvent(s, by),
		ActualAmount:    s.CollectionData.ActualAmount,
		PaperTypesTotal: s.CollectionData.PaperTypes.Total(),
	}
	for _, w := range warnings {
		data.Warnings = append(data.Warnings, string(w.Code))
	}
	p.publish(ctx, messaging.EventDataUpdated, s.ID, data)
}

// PublishProblemReported publishes a problem reported event
func (p *CollectionEventPublisher) PublishProblemReported(ctx context.Context, problem *domain.ProblemReport, by actor.Actor) {
	p.publish(ctx, messaging.EventProblemReported, problem.SessionID, problemEvent(problem, by))
}

// PublishProblemResolved publishes a problem resolved event
func (p *CollectionEventPublisher) PublishProblemResolved(ctx context.Context, problem *domain.ProblemReport, by actor.Actor) {
	p.publish(ctx, messaging.EventProblemResolved, problem.SessionID, problemEvent(problem, by))
}

func problemEvent(problem *domain.ProblemReport, by actor.Actor) messaging.ProblemEvent {
	data := messaging.ProblemEvent{
		SessionID: problem.SessionID,
		ProblemID: problem.ID,
		Priority:  string(problem.Priority),
		Status:    string(problem.Status),
		ActorID:   by.ID,
	}
	if problem.Resolution != nil {
		data.Resolution = *problem.Resolution
	}
	return data
}

// PublishCommentAdded publishes a comment added event
func (p *CollectionEventPublisher) PublishCommentAdded(ctx context.Context, c *domain.Comment) {
	p.publish(ctx, messaging.EventCommentAdded, c.SessionID, messaging.CommentAddedEvent{
		SessionID:   c.SessionID,
		CommentID:   c.ID,
		AuthorID:    c.AuthorID,
		CommentType: c.Type,
	})
}
