// Package audit defines the append-only activity trail. Events record what
// happened; the account reference records who was involved and is nullable,
// because erasure detaches the actor while the history of the action itself
// must survive.
package audit

import (
	"time"

	id "convene/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require long retention. Examples: deletion scheduling, account
	// erasure, archive writes.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging and
	// operational visibility. Examples: registrations, cancellations,
	// sweeper run summaries.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// AccountID is optional and possibly dangling: the executor nulls it on
// existing rows when the account is erased. The log is modelled as a pure
// event stream keyed by this optional pointer, never as data owned by the
// account.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	AccountID id.AccountID // nil UUID means detached or never attributed
	Action    string
	Subject   string // secondary identifier, e.g. the event involved
	Reason    string
	RequestID string
	ActorID   string // who performed the action when not the account itself
}

type AuditEvent string

const (
	// Registration events
	EventRegistrationCreated     AuditEvent = "registration_created"
	EventRegistrationReactivated AuditEvent = "registration_reactivated"
	EventRegistrationCancelled   AuditEvent = "registration_cancelled"

	// Deletion lifecycle events
	EventDeletionScheduled AuditEvent = "deletion_scheduled"
	EventAccountArchived   AuditEvent = "account_archived"
	EventAccountErased     AuditEvent = "account_erased"
	EventErasureFailed     AuditEvent = "erasure_failed"

	// Sweeper events
	EventSweepCompleted AuditEvent = "sweep_completed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventRegistrationCreated:     CategoryOperations,
	EventRegistrationReactivated: CategoryOperations,
	EventRegistrationCancelled:   CategoryOperations,

	EventDeletionScheduled: CategoryCompliance,
	EventAccountArchived:   CategoryCompliance,
	EventAccountErased:     CategoryCompliance,
	EventErasureFailed:     CategoryCompliance,

	EventSweepCompleted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
