package service

import (
	"context"
	"errors"

	"convene/internal/registration/models"
	regstore "convene/internal/registration/store/registration"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/platform/sentinel"
	"convene/pkg/requestcontext"
)

// Register admits the account to the event, or reactivates the pairing's
// cancelled row when one exists.
//
// Preconditions checked here: the account exists and is not blocked, the
// event exists and is open, and the deadline has not passed. Capacity and
// duplicate checks happen inside the store's admission transaction, against
// the live count, so concurrent requests cannot both take the last slot.
func (s *Service) Register(ctx context.Context, accountID id.AccountID, eventID id.EventID, extra map[string]string) (*models.Registration, error) {
	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "account ID required")
	}
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "event ID required")
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup account")
	}
	if account.Blocked {
		s.rejected("account_blocked")
		return nil, dErrors.New(dErrors.CodeAccountBlocked, "account is blocked pending deletion")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup event")
	}
	if event.Status != models.EventStatusOpen {
		s.rejected("event_not_open")
		return nil, dErrors.New(dErrors.CodeEventNotOpen, "event is not open for registration")
	}

	now := requestcontext.Now(ctx)
	// Registration at the deadline instant is still admitted.
	if now.After(event.Deadline) {
		s.rejected("deadline_passed")
		return nil, dErrors.New(dErrors.CodeDeadlinePassed, "registration deadline has passed")
	}

	reg, reactivated, err := s.registrations.Admit(ctx, accountID, eventID, extra, now)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			s.rejected("already_registered")
			return nil, dErrors.New(dErrors.CodeAlreadyRegistered, "already registered for this event")
		case errors.Is(err, regstore.ErrFull):
			s.rejected("event_full")
			return nil, dErrors.New(dErrors.CodeEventFull, "event is fully booked")
		case errors.Is(err, regstore.ErrBlocked):
			s.rejected("account_blocked")
			return nil, dErrors.New(dErrors.CodeAccountBlocked, "account is blocked pending deletion")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to admit registration")
		}
	}

	action := audit.EventRegistrationCreated
	if reactivated {
		action = audit.EventRegistrationReactivated
		if s.metrics != nil {
			s.metrics.RegistrationsReactivated.Inc()
		}
	} else if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}

	s.logAudit(ctx, action, audit.Event{
		AccountID: accountID,
		Subject:   eventID.String(),
	})
	s.logger.InfoContext(ctx, "registration admitted",
		"account_id", accountID.String(),
		"event_id", eventID.String(),
		"reactivated", reactivated,
	)

	return reg, nil
}
