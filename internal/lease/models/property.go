package models

import (
	"fmt"
	"slices"
	"time"

	id "leasehold/pkg/domain"
	"leasehold/pkg/platform/sentinel"
)

// OccupancyStatus governs which lifecycle operations are valid for a property.
type OccupancyStatus string

const (
	StatusVacant OccupancyStatus = "vacant"
	StatusRented OccupancyStatus = "rented"
	StatusOwned  OccupancyStatus = "owned"
)

func (s OccupancyStatus) IsValid() bool {
	switch s {
	case StatusVacant, StatusRented, StatusOwned:
		return true
	}
	return false
}

// PropertyDefinition is the static description of a property, loaded from world
// content and never mutated at runtime.
type PropertyDefinition struct {
	ID           id.PropertyID `json:"id" yaml:"id"`
	InternalName string        `json:"internal_name" yaml:"internal_name"`
	Settlement   string        `json:"settlement" yaml:"settlement"`
	Category     string        `json:"category" yaml:"category"`
	// AreaTag is the location key the world reports when an entity enters the property.
	AreaTag             string  `json:"area_tag" yaml:"area_tag"`
	MonthlyRent         int64   `json:"monthly_rent" yaml:"monthly_rent"`
	AllowsLinkedAccount bool    `json:"allows_linked_account" yaml:"allows_linked_account"`
	AllowsDirect        bool    `json:"allows_direct" yaml:"allows_direct"`
	LinkedAccountID     *string `json:"linked_account_id,omitempty" yaml:"linked_account_id,omitempty"`
	PurchasePrice       *int64  `json:"purchase_price,omitempty" yaml:"purchase_price,omitempty"`
	PropertyTax         *int64  `json:"property_tax,omitempty" yaml:"property_tax,omitempty"`
	EvictionGraceDays   int     `json:"eviction_grace_days" yaml:"eviction_grace_days"`
}

// HasLinkedAccount reports whether a settlement account is configured.
func (d PropertyDefinition) HasLinkedAccount() bool {
	return d.LinkedAccountID != nil && *d.LinkedAccountID != ""
}

// LeaseAgreement records an active tenancy.
//
// Invariants:
//   - NextPaymentDueDate only moves forward
//   - MonthlyRent is the rent agreed at rental time, not the definition's current rent
//   - LastOccupantSeenUtc is nil until the tenant or a resident is observed in the property
type LeaseAgreement struct {
	Tenant              id.PersonaID     `json:"tenant"`
	StartDate           Date             `json:"start_date"`
	NextPaymentDueDate  Date             `json:"next_payment_due_date"`
	MonthlyRent         int64            `json:"monthly_rent"`
	PaymentMethod       id.PaymentMethod `json:"payment_method"`
	LastOccupantSeenUtc *time.Time       `json:"last_occupant_seen_utc,omitempty"`
}

func (l *LeaseAgreement) clone() *LeaseAgreement {
	if l == nil {
		return nil
	}
	c := *l
	if l.LastOccupantSeenUtc != nil {
		seen := *l.LastOccupantSeenUtc
		c.LastOccupantSeenUtc = &seen
	}
	return &c
}

// PropertySnapshot is the aggregate root for one property. Repositories read and
// replace it as a unit; transitions return a new snapshot and leave the receiver
// untouched.
//
// Invariants:
//   - Status == Rented iff ActiveRental != nil and CurrentTenant != nil
//   - Status == Vacant implies no rental, no tenant and no owner
//   - Eviction only transitions Rented -> Vacant
//
// Version is the optimistic concurrency token. Repositories accept a write only
// when Version matches the stored row and bump it on success.
type PropertySnapshot struct {
	Definition    PropertyDefinition `json:"definition"`
	Status        OccupancyStatus    `json:"status"`
	CurrentTenant *id.PersonaID      `json:"current_tenant,omitempty"`
	CurrentOwner  *id.PersonaID      `json:"current_owner,omitempty"`
	Residents     []id.PersonaID     `json:"residents"`
	ActiveRental  *LeaseAgreement    `json:"active_rental,omitempty"`
	Version       int64              `json:"version"`
}

// NewVacantSnapshot builds the snapshot created for a property at content load time.
func NewVacantSnapshot(def PropertyDefinition) PropertySnapshot {
	return PropertySnapshot{
		Definition: def,
		Status:     StatusVacant,
		Residents:  []id.PersonaID{},
	}
}

// NewRentedSnapshot builds a snapshot for an approved rental. The caller computes
// the first due date with the lease policy.
func NewRentedSnapshot(def PropertyDefinition, lease LeaseAgreement) PropertySnapshot {
	tenant := lease.Tenant
	return PropertySnapshot{
		Definition:    def,
		Status:        StatusRented,
		CurrentTenant: &tenant,
		Residents:     []id.PersonaID{},
		ActiveRental:  &lease,
	}
}

func (s PropertySnapshot) ID() id.PropertyID {
	return s.Definition.ID
}

// IsRented reports whether the snapshot carries a live tenancy. Sweeps and activity
// updates only consider rented snapshots.
func (s PropertySnapshot) IsRented() bool {
	return s.Status == StatusRented && s.ActiveRental != nil
}

// IsOccupant reports whether persona is the tenant, the owner or a listed resident.
func (s PropertySnapshot) IsOccupant(persona id.PersonaID) bool {
	if s.ActiveRental != nil && s.ActiveRental.Tenant == persona {
		return true
	}
	if s.CurrentTenant != nil && *s.CurrentTenant == persona {
		return true
	}
	if s.CurrentOwner != nil && *s.CurrentOwner == persona {
		return true
	}
	return slices.Contains(s.Residents, persona)
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s PropertySnapshot) Clone() PropertySnapshot {
	c := s
	if s.CurrentTenant != nil {
		t := *s.CurrentTenant
		c.CurrentTenant = &t
	}
	if s.CurrentOwner != nil {
		o := *s.CurrentOwner
		c.CurrentOwner = &o
	}
	c.Residents = append([]id.PersonaID{}, s.Residents...)
	c.ActiveRental = s.ActiveRental.clone()
	if s.Definition.LinkedAccountID != nil {
		acct := *s.Definition.LinkedAccountID
		c.Definition.LinkedAccountID = &acct
	}
	return c
}

// Validate checks the occupancy invariants. Stores call it before every write.
func (s PropertySnapshot) Validate() error {
	if s.Definition.ID.IsNil() {
		return fmt.Errorf("property id is required: %w", sentinel.ErrInvalidState)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("unknown occupancy status %q: %w", s.Status, sentinel.ErrInvalidState)
	}
	hasLease := s.ActiveRental != nil && s.CurrentTenant != nil
	if (s.Status == StatusRented) != hasLease {
		return fmt.Errorf("rented status requires an active rental and a tenant: %w", sentinel.ErrInvalidState)
	}
	if s.Status == StatusVacant && (s.ActiveRental != nil || s.CurrentTenant != nil || s.CurrentOwner != nil) {
		return fmt.Errorf("vacant property cannot have a rental, tenant or owner: %w", sentinel.ErrInvalidState)
	}
	if hasLease && s.ActiveRental.Tenant != *s.CurrentTenant {
		return fmt.Errorf("lease tenant differs from current tenant: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// CanPayRent validates a rent payment by payer. Returns the caller-facing message
// when the payment is not acceptable, or "" when it is.
func (s PropertySnapshot) CanPayRent(payer id.PersonaID, method id.PaymentMethod) string {
	if s.ActiveRental == nil {
		return MsgNoActiveRental
	}
	if s.ActiveRental.Tenant != payer {
		return MsgTenantMismatch
	}
	if method != "" && method != s.ActiveRental.PaymentMethod {
		return MsgPaymentMismatch
	}
	return ""
}

// ApplyRentPayment returns a snapshot whose lease is due on nextDue. Tenant,
// payment method and last-seen carry over unchanged.
func (s PropertySnapshot) ApplyRentPayment(nextDue Date) (PropertySnapshot, error) {
	if s.ActiveRental == nil {
		return s, fmt.Errorf("%s: %w", MsgNoActiveRental, sentinel.ErrInvalidState)
	}
	if !nextDue.After(s.ActiveRental.NextPaymentDueDate) {
		return s, fmt.Errorf("due date must advance past %s: %w", s.ActiveRental.NextPaymentDueDate, sentinel.ErrInvalidState)
	}
	next := s.Clone()
	next.ActiveRental.NextPaymentDueDate = nextDue
	return next, nil
}

// ApplyEviction returns the vacated snapshot. The whole resident set is cleared
// along with the tenancy. Owned properties are never evicted.
func (s PropertySnapshot) ApplyEviction() (PropertySnapshot, error) {
	if s.Status == StatusOwned {
		return s, fmt.Errorf("%s: %w", MsgOwnedNotEvictable, sentinel.ErrInvalidState)
	}
	next := s.Clone()
	next.Status = StatusVacant
	next.CurrentTenant = nil
	next.CurrentOwner = nil
	next.ActiveRental = nil
	next.Residents = []id.PersonaID{}
	return next, nil
}

// ApplyOccupantSeen records that an occupant was observed at seenAt.
func (s PropertySnapshot) ApplyOccupantSeen(seenAt time.Time) (PropertySnapshot, error) {
	if !s.IsRented() {
		return s, fmt.Errorf("occupant seen on a property without a lease: %w", sentinel.ErrInvalidState)
	}
	next := s.Clone()
	at := seenAt.UTC()
	next.ActiveRental.LastOccupantSeenUtc = &at
	return next, nil
}
