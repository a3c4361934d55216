// Package consumers keeps the local user directory in step with the user
// service. The directory backs the coordinator and marketer names stored
// on collection sessions.
package consumers

import (
	"context"
	"strings"

	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/messaging"
)

// QueueName is the durable queue bound to the user exchange
const QueueName = "collection-service.user-events"

// UserEventConsumer consumes user events
type UserEventConsumer struct {
	consumer  *messaging.Consumer
	directory repository.DirectoryRepository
	logger    *logger.Logger
}

// NewUserEventConsumer declares the queue, binds it to the user exchange
// and registers the directory handlers
func NewUserEventConsumer(rmq *messaging.RabbitMQ, directory repository.DirectoryRepository, log *logger.Logger) (*UserEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueName, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.#"); err != nil {
		return nil, err
	}

	return Register(consumer, directory, log), nil
}

// Register attaches the user event handlers to an existing consumer
func Register(consumer *messaging.Consumer, directory repository.DirectoryRepository, log *logger.Logger) *UserEventConsumer {
	c := &UserEventConsumer{
		consumer:  consumer,
		directory: directory,
		logger:    log,
	}

	consumer.RegisterHandler(messaging.EventUserCreated, c.handleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, c.handleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, c.handleUserDeleted)

	return c
}

// Start starts consuming messages
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *UserEventConsumer) handleUserCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserCreatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.WithUserID(data.UserID).WithCorrelationID(event.CorrelationID).Info().
		Str("name", data.FullName()).
		Msg("received user created event")

	// redelivery simply overwrites the entry
	return c.directory.Set(ctx, &actor.DirectoryEntry{
		UserID:   data.UserID,
		Name:     data.FullName(),
		Email:    data.Email,
		RoleName: data.RoleName,
	})
}

func (c *UserEventConsumer) handleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.WithUserID(data.UserID).WithCorrelationID(event.CorrelationID).Info().
		Msg("received user updated event")

	existing, err := c.directory.Get(ctx, data.UserID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			// never saw the user, nothing to update
			return nil
		}
		return err
	}

	first, last := splitName(existing.Name)
	if v, ok := data.ChangedString("first_name"); ok {
		first = v
	}
	if v, ok := data.ChangedString("last_name"); ok {
		last = v
	}
	existing.Name = strings.TrimSpace(first + " " + last)

	if data.NewEmail != nil {
		existing.Email = *data.NewEmail
	} else if v, ok := data.ChangedString("email"); ok {
		existing.Email = v
	}
	if v, ok := data.ChangedString("role_name"); ok {
		existing.RoleName = v
	}

	return c.directory.Set(ctx, existing)
}

func (c *UserEventConsumer) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.UserDeletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.WithUserID(data.UserID).WithCorrelationID(event.CorrelationID).Info().
		Msg("received user deleted event")

	// names already copied onto sessions stay as they are
	return c.directory.Delete(ctx, data.UserID)
}

// splitName splits a stored full name at the first space
func splitName(name string) (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(name), " ")
	return first, last
}
