// Package service implements the registration operations: admission under
// capacity and deadline rules, cancellation under the 3-day cutoff, and the
// read surface the presentation layer consumes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"convene/internal/platform/metrics"
	"convene/internal/registration/models"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/requestcontext"
)

// AccountStore is the slice of the account store this service reads.
type AccountStore interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
}

// EventStore is the read-only event dependency.
type EventStore interface {
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
	CountPastDeadline(ctx context.Context, now time.Time) (int, error)
}

// RegistrationStore owns the (account, event) pairing rows. Admit and
// Cancel are atomic at the store so concurrent requests cannot overbook or
// double-cancel.
type RegistrationStore interface {
	Admit(ctx context.Context, accountID id.AccountID, eventID id.EventID, extra map[string]string, now time.Time) (*models.Registration, bool, error)
	Cancel(ctx context.Context, accountID id.AccountID, eventID id.EventID, at time.Time, reason string) (*models.Registration, error)
	CountActive(ctx context.Context, eventID id.EventID) (int, error)
	IsActive(ctx context.Context, accountID id.AccountID, eventID id.EventID) (bool, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]models.Registration, error)
}

// AuditAppender receives the operations trail. Registration events are
// best-effort: a failed append is logged, never allowed to fail the
// registration itself.
type AuditAppender interface {
	Append(ctx context.Context, event audit.Event) error
}

type Service struct {
	accounts      AccountStore
	events        EventStore
	registrations RegistrationStore
	auditor       AuditAppender
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAudit(auditor AuditAppender) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(accounts AccountStore, events EventStore, registrations RegistrationStore, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account store is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event store is required")
	}
	if registrations == nil {
		return nil, fmt.Errorf("registration store is required")
	}

	svc := &Service{
		accounts:      accounts,
		events:        events,
		registrations: registrations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CountActive returns the number of active registrations for the event.
func (s *Service) CountActive(ctx context.Context, eventID id.EventID) (int, error) {
	count, err := s.registrations.CountActive(ctx, eventID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
	}
	return count, nil
}

// IsActive reports whether the account currently holds an active
// registration for the event.
func (s *Service) IsActive(ctx context.Context, accountID id.AccountID, eventID id.EventID) (bool, error) {
	active, err := s.registrations.IsActive(ctx, accountID, eventID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
	}
	return active, nil
}

// ListByEvent returns the event's active registrations for display.
func (s *Service) ListByEvent(ctx context.Context, eventID id.EventID) ([]models.Registration, error) {
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return regs, nil
}

// EventsPastDeadline counts events whose registration deadline has passed.
// Statistics only, no state change.
func (s *Service) EventsPastDeadline(ctx context.Context) (int, error) {
	count, err := s.events.CountPastDeadline(ctx, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count closed events")
	}
	return count, nil
}

func (s *Service) logAudit(ctx context.Context, action audit.AuditEvent, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Category = action.Category()
	event.Action = string(action)
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Append(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to append audit event",
			"error", err,
			"action", string(action),
			"account_id", event.AccountID.String(),
		)
	}
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.RegistrationsRejected.WithLabelValues(reason).Inc()
	}
}
