package audit

import (
	"context"
	"time"

	id "leasehold/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers lease state changes with financial significance.
	// Rent payments and evictions must be reconstructable long after the fact.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers decisions useful for support and tuning that
	// change no state, such as admission evaluations.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from lease logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	Action     string
	PropertyID id.PropertyID
	// PersonaID is the tenant or requester involved, when there is one.
	PersonaID id.PersonaID
	Decision  string
	Reason    string
	RequestID string
	// ActorID names who triggered the action when it was not the persona,
	// e.g. "scheduler" for automated evictions.
	ActorID string
}

type AuditEvent string

const (
	EventRentPaid           AuditEvent = "rent_paid"
	EventLeaseEvicted       AuditEvent = "lease_evicted"
	EventAdmissionEvaluated AuditEvent = "admission_evaluated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRentPaid:           CategoryCompliance,
	EventLeaseEvicted:       CategoryCompliance,
	EventAdmissionEvaluated: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByProperty(ctx context.Context, propertyID id.PropertyID) ([]Event, error)
}
