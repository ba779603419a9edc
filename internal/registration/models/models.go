// Package models holds the registration-side domain types.
package models

import (
	"time"

	"github.com/google/uuid"

	id "convene/pkg/domain"
)

// Account is a person who may register for events. Blocked accounts are
// frozen by the deletion scheduler and removed by the erasure executor.
type Account struct {
	ID        id.AccountID
	Email     string
	FirstName string
	LastName  string
	Blocked   bool
	CreatedAt time.Time
}

// EventStatus is the operational state of an event. Only open events admit
// registrations.
type EventStatus string

const (
	EventStatusDraft  EventStatus = "draft"
	EventStatusOpen   EventStatus = "open"
	EventStatusClosed EventStatus = "closed"
)

// Event is a scheduled occurrence. This engine reads events but never owns
// them; organizers mutate them elsewhere.
type Event struct {
	ID        id.EventID
	Title     string
	Status    EventStatus
	StartsAt  time.Time
	EndsAt    *time.Time
	Deadline  time.Time
	Capacity  *int // nil means unbounded
	CreatedAt time.Time
}

// Registration tracks one account's relationship to one event. Exactly one
// row exists per (account, event) pairing for its entire lifetime:
// cancellation stamps CancelledAt instead of deleting, and a later sign-up
// reactivates the same row.
type Registration struct {
	ID           id.RegistrationID
	AccountID    id.AccountID
	EventID      id.EventID
	Extra        map[string]string
	RegisteredAt time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// Active reports whether the registration currently stands.
func (r *Registration) Active() bool {
	return r.CancelledAt == nil
}

// ApplyCancellation stamps the row cancelled. The row identity survives.
func (r *Registration) ApplyCancellation(at time.Time, reason string) {
	r.CancelledAt = &at
	r.CancelReason = reason
}

// ApplyReactivation reuses the cancelled row for a new sign-up: cancellation
// fields are cleared and the registration timestamp refreshed. Extra answers
// are overwritten only when the new sign-up supplies any.
func (r *Registration) ApplyReactivation(at time.Time, extra map[string]string) {
	r.CancelledAt = nil
	r.CancelReason = ""
	r.RegisteredAt = at
	if len(extra) > 0 {
		r.Extra = extra
	}
}

// Feedback is subordinate user-generated content tied to an account and an
// event. It has no independent retention need and is removed on erasure.
type Feedback struct {
	ID        uuid.UUID
	AccountID id.AccountID
	EventID   id.EventID
	Rating    int
	Comment   string
	CreatedAt time.Time
}
