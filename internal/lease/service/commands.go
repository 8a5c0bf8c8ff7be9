package service

import (
	"leasehold/internal/lease/policy"
	id "leasehold/pkg/domain"
)

// Command is a lease command accepted by Service.Execute.
type Command interface {
	CommandName() string
}

// PayRent advances the lease due date by one period. Method is optional; when
// set it must match the lease's payment method.
type PayRent struct {
	PropertyID id.PropertyID
	Payer      id.PersonaID
	Method     id.PaymentMethod
}

// Evict vacates a property. Evicting a vacant property succeeds without a write.
type Evict struct {
	PropertyID id.PropertyID
	Reason     string
}

// EvaluateAdmission decides whether a requester may rent a property. The
// requester's payment capability is supplied by the caller's ledger.
type EvaluateAdmission struct {
	PropertyID id.PropertyID
	Requester  id.PersonaID
	Request    policy.AdmissionRequest
	Capability policy.PaymentCapability
}

func (PayRent) CommandName() string           { return "pay_rent" }
func (Evict) CommandName() string             { return "evict" }
func (EvaluateAdmission) CommandName() string { return "evaluate_admission" }
