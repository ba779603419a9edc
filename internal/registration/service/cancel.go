package service

import (
	"context"
	"errors"
	"time"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/platform/sentinel"
	"convene/pkg/requestcontext"
)

// CancelCutoff is how long before the event start cancellation closes.
// The comparison is strict: exactly three days out is already too late.
const CancelCutoff = 72 * time.Hour

// Cancel stamps the account's active registration for the event cancelled.
// The row itself survives so a later sign-up reactivates the same identity.
func (s *Service) Cancel(ctx context.Context, accountID id.AccountID, eventID id.EventID, reason string) (*models.Registration, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "account ID required")
	}
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event ID required")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup event")
	}

	// Existence before the cutoff: a missing registration is not found, no
	// matter how close the event is.
	active, err := s.registrations.IsActive(ctx, accountID, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registration")
	}
	if !active {
		return nil, dErrors.New(dErrors.CodeNotFound, "no active registration for this event")
	}

	now := requestcontext.Now(ctx)
	if !event.StartsAt.After(now.Add(CancelCutoff)) {
		s.rejected("too_late_to_cancel")
		return nil, dErrors.New(dErrors.CodeTooLateToCancel, "event starts in three days or less")
	}

	reg, err := s.registrations.Cancel(ctx, accountID, eventID, now, reason)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active registration for this event")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel registration")
	}

	if s.metrics != nil {
		s.metrics.RegistrationsCancelled.Inc()
	}
	s.logAudit(ctx, audit.EventRegistrationCancelled, audit.Event{
		AccountID: accountID,
		Subject:   eventID.String(),
		Reason:    reason,
	})
	s.logger.InfoContext(ctx, "registration cancelled",
		"account_id", accountID.String(),
		"event_id", eventID.String(),
	)

	return reg, nil
}
