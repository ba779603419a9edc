package service

import (
	"context"
	"errors"
	"time"

	"convene/internal/deletion/models"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/platform/sentinel"
	"convene/pkg/requestcontext"
)

// Schedule blocks the account and records its pending deletion for the
// eligibility date. Both effects land in one atomic unit: an account that
// is blocked but unscheduled, or scheduled but unblocked, must never be
// observable.
//
// Scheduling an account that could be erased right now is a caller error;
// the caller should invoke Erase directly instead.
func (s *Service) Schedule(ctx context.Context, accountID id.AccountID) (time.Time, error) {
	result, err := s.CanDelete(ctx, accountID)
	if err != nil {
		return time.Time{}, err
	}
	if result.Eligible {
		return time.Time{}, dErrors.New(dErrors.CodeAlreadyEligible, "account is already eligible for erasure")
	}

	if _, err := s.pending.FindByAccount(ctx, accountID); err == nil {
		return time.Time{}, dErrors.New(dErrors.CodeAlreadyScheduled, "deletion already scheduled for this account")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending deletion")
	}

	now := requestcontext.Now(ctx)
	deleteAt := *result.EligibleAfter

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.pending.Create(ctx, &models.PendingDeletion{
			AccountID: accountID,
			DeleteAt:  deleteAt,
			CreatedAt: now,
		}); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyScheduled, "deletion already scheduled for this account")
			}
			return err
		}
		if err := s.accounts.SetBlocked(ctx, accountID, true); err != nil {
			return err
		}
		return s.auditor.Append(ctx, audit.Event{
			Category:  audit.EventDeletionScheduled.Category(),
			Timestamp: now,
			AccountID: accountID,
			Action:    string(audit.EventDeletionScheduled),
			Reason:    string(result.Reason),
			RequestID: requestcontext.RequestID(ctx),
			ActorID:   requestcontext.Actor(ctx),
		})
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyScheduled) {
			return time.Time{}, err
		}
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to schedule deletion")
	}

	if s.metrics != nil {
		s.metrics.DeletionsScheduled.Inc()
	}
	s.logger.InfoContext(ctx, "deletion scheduled",
		"account_id", accountID.String(),
		"delete_at", deleteAt,
		"reason", string(result.Reason),
	)

	return deleteAt, nil
}
