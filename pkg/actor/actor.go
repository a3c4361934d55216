// Package actor identifies the person or system performing an action.
//
// Actors are passed explicitly into every mutating operation of the
// collection core. Transports (HTTP, CLI) build them from their own
// credentials and hand them down as plain values.
package actor

import (
	"fmt"
	"strings"
)

// SystemID is the actor ID used for system-initiated operations
const SystemID = "00000000-0000-0000-0000-000000000000"

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// Name is the display name recorded on audit fields
	Name string `json:"name"`

	// Email is the actor's email address
	Email string `json:"email,omitempty"`

	// Role is the actor's role (coordinator, marketer, manager, ...)
	Role string `json:"role,omitempty"`

	// Permissions granted to the actor, e.g. "sessions.write" or "sessions.*"
	Permissions []string `json:"permissions,omitempty"`
}

// New creates an actor with the given id and name
func New(id, name string) Actor {
	return Actor{ID: id, Name: name}
}

// DisplayName returns the name, falling back to the ID
func (a Actor) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.ID
}

// String returns a string representation of the actor for logging
func (a Actor) String() string {
	if a.IsSystem() {
		return "system"
	}
	if a.Email != "" {
		return fmt.Sprintf("%s (%s)", a.DisplayName(), a.Email)
	}
	return a.DisplayName()
}

// Valid reports whether the actor carries an identifier
func (a Actor) Valid() bool {
	return strings.TrimSpace(a.ID) != ""
}

// SystemActor returns an Actor representing the system itself.
// Use this for background jobs and system-initiated operations.
func SystemActor() Actor {
	return Actor{
		ID:          SystemID,
		Name:        "System",
		Email:       "system@paperloop.local",
		Permissions: []string{"*"},
	}
}

// IsSystem returns true if the actor represents the system.
func (a Actor) IsSystem() bool {
	return a.ID == SystemID
}

// DirectoryEntry is a person known to the collection service through
// user events. It backs the denormalized coordinator and marketer names.
type DirectoryEntry struct {
	UserID   string `json:"user_id" db:"user_id"`
	Name     string `json:"name" db:"name"`
	Email    string `json:"email" db:"email"`
	RoleName string `json:"role_name" db:"role_name"`
}
