package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into command results.
//
// These represent factual states about resources, not business outcomes:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a versioned write lost a race with a concurrent writer
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrInvalidInput: value rejected at a trust boundary (parsing)
// - ErrUnavailable: service or resource temporarily unavailable
//
// Admission denials and command validation failures are returned as data, never as
// these errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
)
