package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// User events (consumed)
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	// Collection session events (published)
	EventSessionCreated   = "collection.session.created"
	EventSessionStarted   = "collection.session.started"
	EventSessionCompleted = "collection.session.completed"
	EventSessionCancelled = "collection.session.cancelled"
	EventSessionDeleted   = "collection.session.deleted"
	EventDataUpdated      = "collection.data.updated"
	EventProblemReported  = "collection.problem.reported"
	EventProblemResolved  = "collection.problem.resolved"
	EventCommentAdded     = "collection.comment.added"
)

// Exchange names
const (
	ExchangeUserEvents       = "user.events"
	ExchangeCollectionEvents = "collection.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User Events

// UserCreatedEvent is published by the user service when a user is created
type UserCreatedEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleName  string `json:"role_name"`
}

// FullName returns the user's full name
func (e *UserCreatedEvent) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// UserUpdatedEvent carries changed fields as {"field": {"from": x, "to": y}}
type UserUpdatedEvent struct {
	UserID   string         `json:"user_id"`
	Fields   map[string]any `json:"fields"`
	NewEmail *string        `json:"new_email,omitempty"`
}

// ChangedString returns the new value of a changed string field
func (e *UserUpdatedEvent) ChangedString(field string) (string, bool) {
	change, ok := e.Fields[field].(map[string]interface{})
	if !ok {
		return "", false
	}
	to, ok := change["to"].(string)
	return to, ok
}

// UserDeletedEvent is published when a user is deleted
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Collection Events

// SessionEvent describes a session level change
type SessionEvent struct {
	SessionID     string    `json:"session_id"`
	SessionNumber string    `json:"session_number"`
	SupplierID    string    `json:"supplier_id"`
	CoordinatorID string    `json:"coordinator_id"`
	Status        string    `json:"status"`
	Version       int64     `json:"version"`
	ActorID       string    `json:"actor_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// SessionCompletedEvent adds the derived performance of a completed session
type SessionCompletedEvent struct {
	SessionEvent
	ActualAmount   float64 `json:"actual_amount"`
	TotalTimeSpent int     `json:"total_time_spent"`
	Efficiency     int     `json:"efficiency"`
	Quality        int     `json:"quality"`
	Punctuality    int     `json:"punctuality"`
}

// CollectionDataUpdatedEvent is published after collected amounts change
type CollectionDataUpdatedEvent struct {
	SessionEvent
	ActualAmount    *float64 `json:"actual_amount,omitempty"`
	PaperTypesTotal float64  `json:"paper_types_total"`
	Warnings        []string `json:"warnings,omitempty"`
}

// ProblemEvent is published when a problem is reported or resolved
type ProblemEvent struct {
	SessionID  string `json:"session_id"`
	ProblemID  string `json:"problem_id"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	ActorID    string `json:"actor_id"`
	Resolution string `json:"resolution,omitempty"`
}

// CommentAddedEvent is published when a comment is appended
type CommentAddedEvent struct {
	SessionID   string `json:"session_id"`
	CommentID   string `json:"comment_id"`
	AuthorID    string `json:"author_id"`
	CommentType string `json:"comment_type"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
