// Package models holds the deletion-side domain types.
package models

import (
	"time"

	"github.com/google/uuid"

	id "convene/pkg/domain"
)

// PendingDeletion schedules a blocked account for deferred erasure. At most
// one exists per account; the executor consumes and removes it.
type PendingDeletion struct {
	AccountID id.AccountID
	DeleteAt  time.Time
	CreatedAt time.Time
}

// AttendedEvent is one event the account actually attended: the
// registration was active and the event date had passed at erasure time.
type AttendedEvent struct {
	EventID id.EventID `json:"eventId"`
	Title   string     `json:"title"`
	Date    time.Time  `json:"date"`
}

// ArchiveEntry is the minimal audit trace that survives erasure. Attended
// is nil, not an empty slice, when the account attended nothing: audits
// must distinguish "no data" from "computed empty".
type ArchiveEntry struct {
	ID           uuid.UUID
	FirstName    string
	LastName     string
	RegisteredAt time.Time // when the account was created
	DeletedAt    time.Time
	Attended     []AttendedEvent
}
