// Package domain holds the value types shared across leasehold modules.
//
// Identifiers are distinct named types over uuid.UUID so a persona can never be
// passed where a property is expected. Construct them with the Parse functions at
// trust boundaries (HTTP handlers, Kafka payloads, CLI flags); direct conversion
// from uuid.UUID is reserved for stores and tests.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	"leasehold/pkg/platform/sentinel"
)

// PropertyID identifies a rentable property.
type PropertyID uuid.UUID

// PersonaID identifies a character, organization or system account.
type PersonaID uuid.UUID

// ParsePropertyID validates and converts external input into a PropertyID.
func ParsePropertyID(s string) (PropertyID, error) {
	u, err := parseUUID("property id", s)
	if err != nil {
		return PropertyID{}, err
	}
	return PropertyID(u), nil
}

// ParsePersonaID validates and converts external input into a PersonaID.
func ParsePersonaID(s string) (PersonaID, error) {
	u, err := parseUUID("persona id", s)
	if err != nil {
		return PersonaID{}, err
	}
	return PersonaID(u), nil
}

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("%s cannot be empty: %w", kind, sentinel.ErrInvalidInput)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid uuid: %w", kind, sentinel.ErrInvalidInput)
	}
	if u == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s cannot be the nil uuid: %w", kind, sentinel.ErrInvalidInput)
	}
	return u, nil
}

func (id PropertyID) String() string { return uuid.UUID(id).String() }
func (id PropertyID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id PersonaID) String() string { return uuid.UUID(id).String() }
func (id PersonaID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets IDs appear as plain strings in JSON and YAML documents.
func (id PropertyID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText enforces the same rules as ParsePropertyID.
func (id *PropertyID) UnmarshalText(b []byte) error {
	parsed, err := ParsePropertyID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id PersonaID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *PersonaID) UnmarshalText(b []byte) error {
	parsed, err := ParsePersonaID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
