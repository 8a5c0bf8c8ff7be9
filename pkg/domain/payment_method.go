package domain

import (
	"fmt"

	"leasehold/pkg/platform/sentinel"
)

// PaymentMethod names how rent is settled.
// Invariant: the value must be one of the supported methods.
//
// Usage: construct via ParsePaymentMethod at trust boundaries to enforce the
// allowlist; direct casting bypasses validation, and the lease policy treats any
// unknown value as not allowed.
type PaymentMethod string

const (
	// PaymentLinkedAccount settles rent from a settlement coinhouse account linked
	// to the property.
	PaymentLinkedAccount PaymentMethod = "linked_account"
	// PaymentDirect settles rent from the tenant's on-hand funds.
	PaymentDirect PaymentMethod = "direct"
)

var validPaymentMethods = map[PaymentMethod]bool{
	PaymentLinkedAccount: true,
	PaymentDirect:        true,
}

// ParsePaymentMethod constructs a PaymentMethod from external input.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	if s == "" {
		return "", fmt.Errorf("payment method cannot be empty: %w", sentinel.ErrInvalidInput)
	}
	m := PaymentMethod(s)
	if !m.IsValid() {
		return "", fmt.Errorf("unsupported payment method %q: %w", s, sentinel.ErrInvalidInput)
	}
	return m, nil
}

// IsValid checks if the payment method is one of the supported enum values.
func (m PaymentMethod) IsValid() bool {
	return validPaymentMethods[m]
}

func (m PaymentMethod) String() string {
	return string(m)
}
