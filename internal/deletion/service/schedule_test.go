package service

import (
	"context"
	"errors"
	"time"

	"convene/internal/deletion/store/txrunner"
	"convene/internal/registration/models"
	"convene/internal/registration/store/registration"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/platform/sentinel"
	"convene/pkg/requestcontext"
)

// failingAudit makes every append fail so a mid-unit fault can be injected.
type failingAudit struct {
	audit.Store
}

func (f *failingAudit) Append(context.Context, audit.Event) error {
	return errors.New("audit sink unavailable")
}

func (s *DeletionServiceSuite) TestSchedule() {
	s.Run("blocks the account and records the date", func() {
		acc := s.newAccount()
		ev := s.registerFor(acc.ID, 10*24*time.Hour)

		deleteAt, err := s.svc.Schedule(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Equal(ev.StartsAt.Add(28*24*time.Hour), deleteAt)

		stored, err := s.accounts.FindByID(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.True(stored.Blocked)

		pd, err := s.pending.FindByAccount(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Equal(deleteAt, pd.DeleteAt)
	})

	s.Run("emits the scheduling audit event", func() {
		acc := s.newAccount()
		s.registerFor(acc.ID, 10*24*time.Hour)

		_, err := s.svc.Schedule(s.ctx, acc.ID)
		s.Require().NoError(err)

		events, err := s.auditor.ListByAccount(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventDeletionScheduled), events[0].Action)
	})

	s.Run("rejects an already eligible account", func() {
		acc := s.newAccount()

		_, err := s.svc.Schedule(s.ctx, acc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyEligible))
	})

	s.Run("rejects a second schedule for the same account", func() {
		acc := s.newAccount()
		s.registerFor(acc.ID, 10*24*time.Hour)

		_, err := s.svc.Schedule(s.ctx, acc.ID)
		s.Require().NoError(err)

		_, err = s.svc.Schedule(s.ctx, acc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyScheduled))
	})

	s.Run("the date stays fixed once recorded", func() {
		acc := s.newAccount()
		s.registerFor(acc.ID, 10*24*time.Hour)

		deleteAt, err := s.svc.Schedule(s.ctx, acc.ID)
		s.Require().NoError(err)

		// The blocked account cannot pick up another registration, so
		// nothing can move the recorded date.
		later := &models.Event{
			ID:       id.NewEventID(),
			Title:    "Lifecycle Fixture",
			Status:   models.EventStatusOpen,
			StartsAt: s.now.Add(60 * 24 * time.Hour),
			Deadline: s.now.Add(60 * 24 * time.Hour),
		}
		s.Require().NoError(s.events.Create(s.ctx, later))
		_, _, err = s.registrations.Admit(s.ctx, acc.ID, later.ID, nil, s.now)
		s.Require().ErrorIs(err, registration.ErrBlocked)

		pd, err := s.pending.FindByAccount(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Equal(deleteAt, pd.DeleteAt)
	})

	s.Run("unknown account yields not found", func() {
		_, err := s.svc.Schedule(s.ctx, id.NewAccountID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DeletionServiceSuite) TestScheduleRollsBackAsOneUnit() {
	acc := s.newAccount()
	s.registerFor(acc.ID, 10*24*time.Hour)

	runner := txrunner.NewInMemory(s.accounts, s.pending, s.auditor)
	svc, err := New(
		s.accounts, s.registrations, s.pending, s.archive, s.grants,
		s.feedback, &failingAudit{Store: s.auditor}, runner,
	)
	s.Require().NoError(err)

	ctx := requestcontext.WithTime(context.Background(), s.now)
	_, err = svc.Schedule(ctx, acc.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	// Neither half of the unit may have stuck.
	stored, err := s.accounts.FindByID(ctx, acc.ID)
	s.Require().NoError(err)
	s.False(stored.Blocked)

	_, err = s.pending.FindByAccount(ctx, acc.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
