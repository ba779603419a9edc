// Package sweeper drives the batch path of the deletion lifecycle: find
// every pending deletion whose date has arrived and erase each account.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"convene/internal/deletion/models"
	"convene/internal/platform/metrics"
	id "convene/pkg/domain"
	"convene/pkg/platform/audit"
	"convene/pkg/requestcontext"
)

// DefaultConcurrency bounds the erasure fan-out when no limit is configured.
const DefaultConcurrency = 4

// Eraser is the single-account erasure unit the sweeper drives.
type Eraser interface {
	Erase(ctx context.Context, accountID id.AccountID) error
}

// PendingStore is the due-date queue the sweeper drains.
type PendingStore interface {
	ListDue(ctx context.Context, now time.Time) ([]models.PendingDeletion, error)
}

type Sweeper struct {
	pending     PendingStore
	eraser      Eraser
	auditor     audit.Store
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// WithConcurrency caps how many accounts are erased at once. Values below
// one fall back to DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(pending PendingStore, eraser Eraser, auditor audit.Store, opts ...Option) (*Sweeper, error) {
	if pending == nil || eraser == nil {
		return nil, fmt.Errorf("pending store and eraser are required")
	}
	if auditor == nil {
		return nil, fmt.Errorf("audit store is required")
	}

	s := &Sweeper{
		pending:     pending,
		eraser:      eraser,
		auditor:     auditor,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunDue erases every account whose scheduled date is at or before now and
// returns how many succeeded. A failing account is logged and skipped; it
// stays pending and is retried on the next run. Only the due-list query
// itself can fail the run.
func (s *Sweeper) RunDue(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()

	due, err := s.pending.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due deletions: %w", err)
	}
	if len(due) == 0 {
		s.logger.InfoContext(ctx, "sweep completed, nothing due")
		return 0, nil
	}

	runCtx := requestcontext.WithActor(requestcontext.WithTime(ctx, now), "sweeper")

	var erased atomic.Int64
	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(s.concurrency)
	for _, pd := range due {
		g.Go(func() error {
			if err := s.eraser.Erase(gctx, pd.AccountID); err != nil {
				s.logger.ErrorContext(gctx, "sweep erasure failed, account stays pending",
					"error", err,
					"account_id", pd.AccountID.String(),
				)
				return nil
			}
			erased.Add(1)
			return nil
		})
	}
	// Workers never return errors, so this only waits.
	_ = g.Wait()

	count := int(erased.Load())
	if err := s.auditor.Append(ctx, audit.Event{
		Category:  audit.EventSweepCompleted.Category(),
		Timestamp: now,
		Action:    string(audit.EventSweepCompleted),
		Subject:   fmt.Sprintf("due=%d erased=%d", len(due), count),
		ActorID:   "sweeper",
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record sweep audit event", "error", err)
	}

	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.InfoContext(ctx, "sweep completed",
		"due", len(due),
		"erased", count,
	)
	return count, nil
}
