package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/permissions"
)

// FixtureTime is the reference instant used by fixtures: a Monday morning
var FixtureTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// FixtureFactory creates test data with unique identifiers
type FixtureFactory struct {
	counter atomic.Int64
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) next() int64 {
	return f.counter.Add(1)
}

// Coordinator returns a coordinator actor with the role's permissions
func (f *FixtureFactory) Coordinator() actor.Actor {
	return f.actorWithRole(permissions.RoleCoordinator, "Coordinator")
}

// Marketer returns a marketer actor with the role's permissions
func (f *FixtureFactory) Marketer() actor.Actor {
	return f.actorWithRole(permissions.RoleMarketer, "Marketer")
}

// Manager returns a manager actor with the role's permissions
func (f *FixtureFactory) Manager() actor.Actor {
	return f.actorWithRole(permissions.RoleManager, "Manager")
}

func (f *FixtureFactory) actorWithRole(role, title string) actor.Actor {
	n := f.next()
	return actor.Actor{
		ID:          uuid.NewString(),
		Name:        fmt.Sprintf("%s %d", title, n),
		Email:       fmt.Sprintf("%s%d@paperloop.test", role, n),
		Role:        role,
		Permissions: permissions.ForRole(role),
	}
}

// SessionInput returns valid planning data for coordinator: a 6 hour
// window starting at FixtureTime with 100 units expected
func (f *FixtureFactory) SessionInput(coordinator actor.Actor) domain.CreateSessionInput {
	n := f.next()
	start := FixtureTime
	end := FixtureTime.Add(6 * time.Hour)
	estimated := 100.0

	return domain.CreateSessionInput{
		SupplierID:         fmt.Sprintf("supplier-%d", n),
		SupplierName:       fmt.Sprintf("Supplier %d", n),
		SiteLocation:       fmt.Sprintf("Warehouse %d, Dock A", n),
		CoordinatorID:      coordinator.ID,
		CoordinatorName:    coordinator.Name,
		EstimatedStartDate: &start,
		EstimatedEndDate:   &end,
		EstimatedAmount:    &estimated,
	}
}

// Session builds a planned session through the domain constructor
func (f *FixtureFactory) Session(coordinator actor.Actor) *domain.CollectionSession {
	n := f.next()
	s, err := domain.NewSession(
		uuid.NewString(),
		fmt.Sprintf("CS-%s-%06d", FixtureTime.Format("20060102"), n),
		f.SessionInput(coordinator),
		coordinator,
		FixtureTime.Add(time.Duration(n)*time.Second),
	)
	if err != nil {
		panic(err)
	}
	return s
}

// DirectoryEntry returns a directory entry mirroring a
func DirectoryEntry(a actor.Actor) *actor.DirectoryEntry {
	return &actor.DirectoryEntry{
		UserID:   a.ID,
		Name:     a.Name,
		Email:    a.Email,
		RoleName: a.Role,
	}
}
