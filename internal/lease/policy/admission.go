package policy

import (
	"leasehold/internal/lease/models"
	id "leasehold/pkg/domain"
)

// DenialReason enumerates why a rental request was refused.
type DenialReason string

const (
	ReasonPropertyUnavailable         DenialReason = "property_unavailable"
	ReasonPaymentMethodNotAllowed     DenialReason = "payment_method_not_allowed"
	ReasonSettlementCoinhouseRequired DenialReason = "settlement_coinhouse_required"
	ReasonCoinhouseAccountRequired    DenialReason = "coinhouse_account_required"
	ReasonInsufficientDirectFunds     DenialReason = "insufficient_direct_funds"
)

var denialMessages = map[DenialReason]string{
	ReasonPropertyUnavailable:         "This property is not available for rent.",
	ReasonPaymentMethodNotAllowed:     "This property does not accept that payment method.",
	ReasonSettlementCoinhouseRequired: "This property has no settlement coinhouse configured for account payments.",
	ReasonCoinhouseAccountRequired:    "You need an account at the settlement coinhouse to pay this way.",
	ReasonInsufficientDirectFunds:     "You do not have enough funds on hand to cover the rent.",
}

// Message returns the caller-facing text for a denial reason.
func (r DenialReason) Message() string {
	return denialMessages[r]
}

// AdmissionRequest is a tenant's request to rent a property.
type AdmissionRequest struct {
	PaymentMethod id.PaymentMethod `json:"payment_method"`
}

// PaymentCapability is what the ledger knows about the requester at evaluation time.
type PaymentCapability struct {
	HasQualifyingAccount bool `json:"has_coinhouse_account"`
	HasSufficientFunds   bool `json:"has_sufficient_funds"`
}

// Decision is the result of an admission evaluation. A zero Reason means allowed.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
	Message string       `json:"message,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenialReason) Decision {
	return Decision{Allowed: false, Reason: reason, Message: reason.Message()}
}

// EvaluateAdmission decides whether a rental request may proceed.
// This is pure domain logic - no I/O, no side effects.
// Rule priority (fail-fast):
//  1. The property must be vacant
//  2. Linked-account payments need property support, a configured account and a
//     requester account
//  3. Direct payments need property support and enough on-hand funds
//  4. Any other payment method is not allowed
func EvaluateAdmission(req AdmissionRequest, property models.PropertySnapshot, capability PaymentCapability) Decision {
	// Rule 1: availability
	if property.Status != models.StatusVacant {
		return deny(ReasonPropertyUnavailable)
	}

	def := property.Definition
	switch req.PaymentMethod {
	case id.PaymentLinkedAccount:
		// Rule 2: linked account
		if !def.AllowsLinkedAccount {
			return deny(ReasonPaymentMethodNotAllowed)
		}
		if !def.HasLinkedAccount() {
			return deny(ReasonSettlementCoinhouseRequired)
		}
		if !capability.HasQualifyingAccount {
			return deny(ReasonCoinhouseAccountRequired)
		}
		return allow()
	case id.PaymentDirect:
		// Rule 3: on-hand funds
		if !def.AllowsDirect {
			return deny(ReasonPaymentMethodNotAllowed)
		}
		if !capability.HasSufficientFunds {
			return deny(ReasonInsufficientDirectFunds)
		}
		return allow()
	default:
		// Rule 4: unrecognized method
		return deny(ReasonPaymentMethodNotAllowed)
	}
}
