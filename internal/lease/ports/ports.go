// Package ports defines the interfaces the lease services consume.
// Adapters live under internal/lease/store.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"leasehold/internal/lease/models"
	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/audit"
)

// Repository loads and persists property snapshots.
type Repository interface {
	// GetSnapshot returns nil, nil when the property does not exist.
	GetSnapshot(ctx context.Context, propertyID id.PropertyID) (*models.PropertySnapshot, error)

	// GetAllProperties returns every known snapshot.
	GetAllProperties(ctx context.Context) ([]models.PropertySnapshot, error)

	// ListByArea returns the snapshots whose definition carries areaTag.
	ListByArea(ctx context.Context, areaTag string) ([]models.PropertySnapshot, error)

	// PersistRental replaces the stored snapshot. The write succeeds only when
	// snapshot.Version matches the stored version, otherwise sentinel.ErrConflict.
	// Returns the stored snapshot with its new version.
	PersistRental(ctx context.Context, snapshot models.PropertySnapshot) (models.PropertySnapshot, error)

	// CreateIfAbsent stores snapshot unless the property already exists.
	// Reports whether it was created.
	CreateIfAbsent(ctx context.Context, snapshot models.PropertySnapshot) (bool, error)
}

// AuditPublisher emits audit events for lease state changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// PersonaResolver maps an entity reported by the world feed to a persona.
// Returns ok=false when the entity is not a player persona.
type PersonaResolver interface {
	Resolve(ctx context.Context, entityID string) (persona id.PersonaID, ok bool, err error)
}

// SeenThrottle limits how often a lease's last-seen time is rewritten.
type SeenThrottle interface {
	// ShouldRecord reports whether a presence update for propertyID should be
	// written now, reserving the window when it returns true.
	ShouldRecord(ctx context.Context, propertyID id.PropertyID, window time.Duration) (bool, error)
	// Forget drops the reservation for propertyID so the next update is written.
	Forget(ctx context.Context, propertyID id.PropertyID) error
}

// Locker provides a cross-process lock for the eviction sweep.
type Locker interface {
	// TryLock acquires key for ttl. Returns a release func, or ok=false when
	// another holder has it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}
