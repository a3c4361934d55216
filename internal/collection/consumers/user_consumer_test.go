package consumers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/paperloop/paperloop-backend/internal/collection/consumers"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*messaging.Consumer, *repository.MemoryDirectory) {
	t.Helper()
	directory := repository.NewMemoryDirectory()
	dispatcher := messaging.NewDispatcher(nil, consumers.QueueName, logger.Nop())
	consumers.Register(dispatcher, directory, logger.Nop())
	return dispatcher, directory
}

func dispatch(t *testing.T, c *messaging.Consumer, eventType string, data interface{}) error {
	t.Helper()
	event, err := messaging.NewEvent(eventType, "user-service", "corr-1", data)
	require.NoError(t, err)
	return c.Dispatch(context.Background(), event)
}

func TestUserConsumer_Created(t *testing.T) {
	c, directory := setup(t)

	require.NoError(t, dispatch(t, c, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID:    "u-1",
		Email:     "max@example.com",
		FirstName: "Max",
		LastName:  "Mustermann",
		RoleName:  "coordinator",
	}))

	entry, err := directory.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Max Mustermann", entry.Name)
	assert.Equal(t, "max@example.com", entry.Email)
	assert.Equal(t, "coordinator", entry.RoleName)

	// redelivery is harmless
	require.NoError(t, dispatch(t, c, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID: "u-1", FirstName: "Max", LastName: "Mustermann",
	}))
}

func TestUserConsumer_Updated(t *testing.T) {
	c, directory := setup(t)
	require.NoError(t, dispatch(t, c, messaging.EventUserCreated, messaging.UserCreatedEvent{
		UserID: "u-1", Email: "max@example.com", FirstName: "Max", LastName: "Mustermann", RoleName: "marketer",
	}))

	newEmail := "maxi@example.com"
	require.NoError(t, dispatch(t, c, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID: "u-1",
		Fields: map[string]any{
			"last_name": map[string]any{"from": "Mustermann", "to": "Musterfrau"},
			"role_name": map[string]any{"from": "marketer", "to": "manager"},
		},
		NewEmail: &newEmail,
	}))

	entry, err := directory.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Max Musterfrau", entry.Name)
	assert.Equal(t, "maxi@example.com", entry.Email)
	assert.Equal(t, "manager", entry.RoleName)
}

func TestUserConsumer_UpdatedUnknownUserIsIgnored(t *testing.T) {
	c, directory := setup(t)

	require.NoError(t, dispatch(t, c, messaging.EventUserUpdated, messaging.UserUpdatedEvent{
		UserID: "ghost",
		Fields: map[string]any{"first_name": map[string]any{"to": "Casper"}},
	}))

	_, err := directory.Get(context.Background(), "ghost")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUserConsumer_Deleted(t *testing.T) {
	c, directory := setup(t)
	require.NoError(t, dispatch(t, c, messaging.EventUserCreated, messaging.UserCreatedEvent{UserID: "u-1", FirstName: "Max"}))

	require.NoError(t, dispatch(t, c, messaging.EventUserDeleted, messaging.UserDeletedEvent{UserID: "u-1"}))

	_, err := directory.Get(context.Background(), "u-1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestUserConsumer_MalformedPayload(t *testing.T) {
	c, _ := setup(t)
	event := &messaging.Event{Type: messaging.EventUserCreated, Data: []byte(`"not an object"`)}
	assert.Error(t, c.Dispatch(context.Background(), event))
}

func TestUserConsumer_LogsUserAndCorrelation(t *testing.T) {
	var buf bytes.Buffer
	dispatcher := messaging.NewDispatcher(nil, consumers.QueueName, logger.Nop())
	consumers.Register(dispatcher, repository.NewMemoryDirectory(), logger.NewWithWriter("collection-service", "production", &buf))

	require.NoError(t, dispatch(t, dispatcher, messaging.EventUserDeleted, messaging.UserDeletedEvent{UserID: "u-9"}))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "u-9", line["user_id"])
	assert.Equal(t, "corr-1", line["correlation_id"])
	assert.Equal(t, "received user deleted event", line["message"])
}
