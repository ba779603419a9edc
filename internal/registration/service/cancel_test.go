package service

import (
	"context"
	"time"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/requestcontext"
)

func (s *RegistrationServiceSuite) eventStartingIn(d time.Duration) *models.Event {
	ev := &models.Event{
		ID:       id.NewEventID(),
		Title:    "Cutoff Check",
		Status:   models.EventStatusOpen,
		StartsAt: s.now.Add(d),
		Deadline: s.now.Add(d - time.Hour),
	}
	s.Require().NoError(s.events.Create(s.ctx, ev))
	return ev
}

func (s *RegistrationServiceSuite) TestCancel() {
	s.Run("cancels more than three days out", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(96 * time.Hour)

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)

		reg, err := s.svc.Cancel(s.ctx, acc.ID, ev.ID, "schedule conflict")
		s.Require().NoError(err)
		s.Require().NotNil(reg.CancelledAt)
		s.Equal(s.now, *reg.CancelledAt)
		s.Equal("schedule conflict", reg.CancelReason)
	})

	s.Run("rejects at exactly three days before start", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(96 * time.Hour)

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)

		ctx := requestcontext.WithTime(context.Background(), ev.StartsAt.Add(-CancelCutoff))
		_, err = s.svc.Cancel(ctx, acc.ID, ev.ID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTooLateToCancel))
	})

	s.Run("allows one second before the cutoff", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(96 * time.Hour)

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)

		ctx := requestcontext.WithTime(context.Background(), ev.StartsAt.Add(-CancelCutoff-time.Second))
		_, err = s.svc.Cancel(ctx, acc.ID, ev.ID, "")
		s.Require().NoError(err)
	})

	s.Run("rejects inside the cutoff window", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(48 * time.Hour)

		ctx := requestcontext.WithTime(context.Background(), s.now.Add(-10*24*time.Hour))
		_, err := s.svc.Register(ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)

		_, err = s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTooLateToCancel))
	})

	s.Run("no active registration yields not found", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(96 * time.Hour)

		_, err := s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing registration on an imminent event is still not found", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(24 * time.Hour)

		_, err := s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("double cancel yields not found", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(96 * time.Hour)

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)
		_, err = s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().NoError(err)

		_, err = s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("cancelled registration is excluded from counts", func() {
		acc := s.newAccount()
		ev := s.eventStartingIn(96 * time.Hour)

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)
		_, err = s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().NoError(err)

		count, err := s.svc.CountActive(s.ctx, ev.ID)
		s.Require().NoError(err)
		s.Equal(0, count)

		active, err := s.svc.IsActive(s.ctx, acc.ID, ev.ID)
		s.Require().NoError(err)
		s.False(active)
	})
}
