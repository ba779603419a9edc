// Package service orchestrates the account-deletion lifecycle: eligibility
// evaluation, blocking plus scheduling, and the archival-and-erasure unit.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"convene/internal/deletion/eligibility"
	"convene/internal/deletion/models"
	"convene/internal/platform/metrics"
	regmodels "convene/internal/registration/models"
	regstore "convene/internal/registration/store/registration"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/platform/sentinel"
	"convene/pkg/requestcontext"
)

// AccountStore is the slice of the account store the deletion flows touch.
type AccountStore interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*regmodels.Account, error)
	SetBlocked(ctx context.Context, accountID id.AccountID, blocked bool) error
	Delete(ctx context.Context, accountID id.AccountID) error
}

// RegistrationStore is the registration-side view the deletion flows need:
// the eligibility snapshot and the erase-time purge.
type RegistrationStore interface {
	ListActiveEvents(ctx context.Context, accountID id.AccountID) ([]regstore.ActiveEvent, error)
	DeleteByAccount(ctx context.Context, accountID id.AccountID) (int, error)
}

// PendingStore owns the deferred-erasure schedule.
type PendingStore interface {
	Create(ctx context.Context, pd *models.PendingDeletion) error
	FindByAccount(ctx context.Context, accountID id.AccountID) (*models.PendingDeletion, error)
	ListDue(ctx context.Context, now time.Time) ([]models.PendingDeletion, error)
	DeleteByAccount(ctx context.Context, accountID id.AccountID) error
}

// ArchiveStore receives the minimal trace that survives erasure.
type ArchiveStore interface {
	Create(ctx context.Context, entry *models.ArchiveEntry) error
}

// GrantStore owns administrator-role grants.
type GrantStore interface {
	RevokeByAccount(ctx context.Context, accountID id.AccountID) error
}

// FeedbackStore owns the subordinate user content dropped on erasure.
type FeedbackStore interface {
	DeleteByAccount(ctx context.Context, accountID id.AccountID) (int, error)
}

// TxRunner is the atomic-unit boundary. Everything fn does must be visible
// together or not at all.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	accounts      AccountStore
	registrations RegistrationStore
	pending       PendingStore
	archive       ArchiveStore
	grants        GrantStore
	feedback      FeedbackStore
	auditor       audit.Store
	tx            TxRunner
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(
	accounts AccountStore,
	registrations RegistrationStore,
	pendingStore PendingStore,
	archiveStore ArchiveStore,
	grants GrantStore,
	feedback FeedbackStore,
	auditor audit.Store,
	tx TxRunner,
	opts ...Option,
) (*Service, error) {
	if accounts == nil || registrations == nil || pendingStore == nil || archiveStore == nil {
		return nil, fmt.Errorf("account, registration, pending and archive stores are required")
	}
	if grants == nil || feedback == nil {
		return nil, fmt.Errorf("grant and feedback stores are required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit store is required: erasure must leave a trace")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}

	svc := &Service{
		accounts:      accounts,
		registrations: registrations,
		pending:       pendingStore,
		archive:       archiveStore,
		grants:        grants,
		feedback:      feedback,
		auditor:       auditor,
		tx:            tx,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CanDelete evaluates whether the account may legally be erased right now
// and, when not, the earliest legal date. Read-only: the answer is derived
// from the current registration snapshot every time it is asked.
func (s *Service) CanDelete(ctx context.Context, accountID id.AccountID) (eligibility.Result, error) {
	if accountID.IsNil() {
		return eligibility.Result{}, dErrors.New(dErrors.CodeInvalidInput, "account ID required")
	}
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return eligibility.Result{}, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return eligibility.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lookup account")
	}

	active, err := s.registrations.ListActiveEvents(ctx, accountID)
	if err != nil {
		return eligibility.Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration snapshot")
	}

	dates := make([]time.Time, 0, len(active))
	for _, item := range active {
		dates = append(dates, item.StartsAt)
	}
	return eligibility.Evaluate(requestcontext.Now(ctx), dates), nil
}
