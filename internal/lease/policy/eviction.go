// Package policy holds the pure lease decisions: rental admission, due-date
// arithmetic and eviction eligibility. Nothing here reads a clock, touches a store
// or logs; callers pass every input explicitly.
package policy

import (
	"time"

	"leasehold/internal/lease/models"
)

// CalculateNextDueDate returns the due date one calendar month after start. Rent
// payments feed it the current due date, never "today", so paying late does not
// shorten the next period.
func CalculateNextDueDate(start models.Date) models.Date {
	return start.AddMonths(1)
}

// GraceDays resolves the grace window for a property, preferring the override.
func GraceDays(def models.PropertyDefinition, override *int) int {
	if override != nil {
		return *override
	}
	return def.EvictionGraceDays
}

// EvictionThreshold is the first instant at which an unpaid lease may be evicted:
// midnight UTC on the due date plus the grace window.
func EvictionThreshold(lease models.LeaseAgreement, def models.PropertyDefinition, graceDaysOverride *int) time.Time {
	dueAt := lease.NextPaymentDueDate.StartOfDayUTC()
	return dueAt.AddDate(0, 0, GraceDays(def, graceDaysOverride))
}

// IsEvictionEligible decides whether lease may be terminated at evaluationTime.
//
// Steps, in order:
//  1. Not yet past the due instant -> not eligible.
//  2. Inside the grace window -> not eligible.
//  3. Occupant never observed -> eligible once the threshold is reached.
//  4. Occupant observed after the due instant -> not eligible, however overdue.
//     Presence keeps a tenant protected even without payment.
//  5. Otherwise eligible once the threshold is reached.
func IsEvictionEligible(lease models.LeaseAgreement, def models.PropertyDefinition, evaluationTime time.Time, graceDaysOverride *int) bool {
	evaluationTime = evaluationTime.UTC()
	dueAt := lease.NextPaymentDueDate.StartOfDayUTC()

	// Step 1: not yet overdue
	if !evaluationTime.After(dueAt) {
		return false
	}

	// Step 2: within grace window
	threshold := EvictionThreshold(lease, def, graceDaysOverride)
	if evaluationTime.Before(threshold) {
		return false
	}

	// Step 3: never observed
	if lease.LastOccupantSeenUtc == nil {
		return !evaluationTime.Before(threshold)
	}

	// Step 4: seen after the due date
	if lease.LastOccupantSeenUtc.UTC().After(dueAt) {
		return false
	}

	// Step 5
	return !evaluationTime.Before(threshold)
}

// PresenceProtects reports whether recording an occupant seen at seenAt would
// protect the lease from eviction when the stored observation does not yet:
// seenAt is after the due instant and the last recorded sighting is not.
func PresenceProtects(lease models.LeaseAgreement, seenAt time.Time) bool {
	dueAt := lease.NextPaymentDueDate.StartOfDayUTC()
	if !seenAt.UTC().After(dueAt) {
		return false
	}
	return lease.LastOccupantSeenUtc == nil || !lease.LastOccupantSeenUtc.UTC().After(dueAt)
}
