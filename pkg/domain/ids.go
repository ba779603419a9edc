// Package domain holds the typed identifiers shared across the engine.
//
// IDs are distinct named UUID types so the compiler rejects a mixed-up
// account/event argument at the call site instead of the database doing it
// at runtime.
package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "convene/pkg/domain-errors"
)

// AccountID identifies a person who may register for events.
type AccountID uuid.UUID

// EventID identifies a scheduled event.
type EventID uuid.UUID

// RegistrationID identifies the single row that tracks one account's
// relationship to one event for the pairing's whole lifetime.
type RegistrationID uuid.UUID

func (id AccountID) String() string      { return uuid.UUID(id).String() }
func (id EventID) String() string        { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }

func (id AccountID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewAccountID returns a fresh random account ID.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewEventID returns a fresh random event ID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewRegistrationID returns a fresh random registration ID.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// ParseAccountID parses and validates an account ID from its string form.
// Empty strings and the nil UUID are rejected; IDs arriving at a trust
// boundary must name a real identity.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account")
	if err != nil {
		return AccountID{}, err
	}
	return AccountID(u), nil
}

// ParseEventID parses and validates an event ID from its string form.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event")
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s ID is required", kind))
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, fmt.Sprintf("invalid %s ID", kind))
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("%s ID must not be nil", kind))
	}
	return u, nil
}
