package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"convene/internal/deletion/models"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/platform/sentinel"
	"convene/pkg/requestcontext"
)

// Erase performs the irreversible archival-and-erasure sequence as one
// atomic unit:
//
//  1. compute the attended-events list (active registrations, past dates)
//  2. write the archive entry (attended list nil when empty)
//  3. revoke the administrator-role grant, if any
//  4. delete all registration rows
//  5. delete the pending-deletion row, if any
//  6. delete subordinate user content (feedback)
//  7. null the account reference on audit-log rows; what happened
//     survives, who did it is erased
//  8. delete the account row
//
// Failure at any step rolls everything back: the account stays blocked and
// pending, retryable as a whole once the fault clears.
//
// Accounts reach this operation either through the sweeper, whose pending
// row already carries the computed date, or directly from an administrator.
// A pending row authorizes erasure only once its recorded date is reached;
// before that, and with no pending row at all, eligibility is re-checked
// here.
func (s *Service) Erase(ctx context.Context, accountID id.AccountID) error {
	if accountID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "account ID required")
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup account")
	}

	now := requestcontext.Now(ctx)

	// The scheduled path carries an already-computed date, and that date
	// governs: a pending row not yet due does not authorize erasure. Without
	// a pending row, eligibility is re-evaluated.
	pd, err := s.pending.FindByAccount(ctx, accountID)
	switch {
	case err == nil:
		if pd.DeleteAt.After(now) {
			return dErrors.New(dErrors.CodeNotYetEligible, "scheduled deletion date not reached")
		}
	case errors.Is(err, sentinel.ErrNotFound):
		result, err := s.CanDelete(ctx, accountID)
		if err != nil {
			return err
		}
		if !result.Eligible {
			return dErrors.New(dErrors.CodeNotYetEligible, "account is not yet eligible for erasure")
		}
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending deletion")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		active, err := s.registrations.ListActiveEvents(ctx, accountID)
		if err != nil {
			return err
		}
		var attended []models.AttendedEvent
		for _, item := range active {
			if item.StartsAt.Before(now) {
				attended = append(attended, models.AttendedEvent{
					EventID: item.EventID,
					Title:   item.Title,
					Date:    item.StartsAt,
				})
			}
		}

		if err := s.archive.Create(ctx, &models.ArchiveEntry{
			ID:           uuid.New(),
			FirstName:    account.FirstName,
			LastName:     account.LastName,
			RegisteredAt: account.CreatedAt,
			DeletedAt:    now,
			Attended:     attended,
		}); err != nil {
			return err
		}
		if err := s.auditor.Append(ctx, audit.Event{
			Category:  audit.EventAccountArchived.Category(),
			Timestamp: now,
			Action:    string(audit.EventAccountArchived),
			Subject:   accountID.String(),
			RequestID: requestcontext.RequestID(ctx),
			ActorID:   requestcontext.Actor(ctx),
		}); err != nil {
			return err
		}

		if err := s.grants.RevokeByAccount(ctx, accountID); err != nil {
			return err
		}
		if _, err := s.registrations.DeleteByAccount(ctx, accountID); err != nil {
			return err
		}
		if err := s.pending.DeleteByAccount(ctx, accountID); err != nil {
			return err
		}
		if _, err := s.feedback.DeleteByAccount(ctx, accountID); err != nil {
			return err
		}

		// The erased account may no longer be referenced, so the trace
		// carries its identifier as subject only.
		if err := s.auditor.Append(ctx, audit.Event{
			Category:  audit.EventAccountErased.Category(),
			Timestamp: now,
			Action:    string(audit.EventAccountErased),
			Subject:   accountID.String(),
			RequestID: requestcontext.RequestID(ctx),
			ActorID:   requestcontext.Actor(ctx),
		}); err != nil {
			return err
		}
		if _, err := s.auditor.DetachAccount(ctx, accountID); err != nil {
			return err
		}

		return s.accounts.Delete(ctx, accountID)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ErasureFailures.Inc()
		}
		s.logger.ErrorContext(ctx, "erasure failed, account left pending",
			"error", err,
			"account_id", accountID.String(),
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to erase account")
	}

	if s.metrics != nil {
		s.metrics.AccountsErased.Inc()
	}
	s.logger.InfoContext(ctx, "account erased",
		"account_id", accountID.String(),
	)
	return nil
}
