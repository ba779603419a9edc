package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"convene/internal/registration/models"
	"convene/internal/registration/store/account"
	"convene/internal/registration/store/event"
	"convene/internal/registration/store/registration"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	auditmem "convene/pkg/platform/audit/store/memory"
	"convene/pkg/requestcontext"
)

type RegistrationServiceSuite struct {
	suite.Suite
	accounts      *account.InMemory
	events        *event.InMemory
	registrations *registration.InMemory
	auditor       *auditmem.Store
	svc           *Service
	ctx           context.Context
	now           time.Time
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.accounts = account.NewInMemory()
	s.events = event.NewInMemory()
	s.registrations = registration.NewInMemory(s.accounts, s.events)
	s.auditor = auditmem.New()

	svc, err := New(s.accounts, s.events, s.registrations, WithAudit(s.auditor))
	s.Require().NoError(err)
	s.svc = svc

	s.now = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) newAccount() *models.Account {
	acc := &models.Account{
		ID:        id.NewAccountID(),
		Email:     id.NewAccountID().String() + "@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		CreatedAt: s.now.Add(-365 * 24 * time.Hour),
	}
	s.Require().NoError(s.accounts.Create(s.ctx, acc))
	return acc
}

func (s *RegistrationServiceSuite) newOpenEvent(capacity *int) *models.Event {
	ev := &models.Event{
		ID:       id.NewEventID(),
		Title:    "Summer Conference",
		Status:   models.EventStatusOpen,
		StartsAt: s.now.Add(14 * 24 * time.Hour),
		Deadline: s.now.Add(7 * 24 * time.Hour),
		Capacity: capacity,
	}
	s.Require().NoError(s.events.Create(s.ctx, ev))
	return ev
}

func capOf(n int) *int { return &n }

// staleAccounts serves accounts as they looked before any block, imitating a
// deletion schedule landing between the service read and admission.
type staleAccounts struct {
	inner *account.InMemory
}

func (s staleAccounts) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	acc, err := s.inner.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	acc.Blocked = false
	return acc, nil
}

func (s *RegistrationServiceSuite) TestRegister() {
	s.Run("admits an eligible account", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)

		reg, err := s.svc.Register(s.ctx, acc.ID, ev.ID, map[string]string{"shirt": "M"})
		s.Require().NoError(err)
		s.Equal(acc.ID, reg.AccountID)
		s.Equal(ev.ID, reg.EventID)
		s.Equal(s.now, reg.RegisteredAt)
		s.True(reg.Active())
	})

	s.Run("fills the event up to capacity and no further", func() {
		ev := s.newOpenEvent(capOf(2))
		first := s.newAccount()
		second := s.newAccount()
		third := s.newAccount()

		_, err := s.svc.Register(s.ctx, first.ID, ev.ID, nil)
		s.Require().NoError(err)
		_, err = s.svc.Register(s.ctx, second.ID, ev.ID, nil)
		s.Require().NoError(err)

		_, err = s.svc.Register(s.ctx, third.ID, ev.ID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeEventFull))

		count, err := s.svc.CountActive(s.ctx, ev.ID)
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("a cancellation frees the slot for someone else", func() {
		ev := s.newOpenEvent(capOf(1))
		holder := s.newAccount()
		waiter := s.newAccount()

		_, err := s.svc.Register(s.ctx, holder.ID, ev.ID, nil)
		s.Require().NoError(err)
		_, err = s.svc.Register(s.ctx, waiter.ID, ev.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeEventFull))

		_, err = s.svc.Cancel(s.ctx, holder.ID, ev.ID, "schedule conflict")
		s.Require().NoError(err)

		_, err = s.svc.Register(s.ctx, waiter.ID, ev.ID, nil)
		s.Require().NoError(err)
	})

	s.Run("rejects a duplicate active registration", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)

		_, err = s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyRegistered))
	})

	s.Run("rejects a blocked account", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)
		s.Require().NoError(s.accounts.SetBlocked(s.ctx, acc.ID, true))

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAccountBlocked))
	})

	s.Run("rejects when the block lands during admission", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)
		s.Require().NoError(s.accounts.SetBlocked(s.ctx, acc.ID, true))

		// The service reads a stale, unblocked account; the store still
		// observes the block inside admission.
		svc, err := New(staleAccounts{s.accounts}, s.events, s.registrations)
		s.Require().NoError(err)

		_, err = svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAccountBlocked))

		active, err := s.registrations.IsActive(s.ctx, acc.ID, ev.ID)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("rejects an event that is not open", func() {
		acc := s.newAccount()
		ev := &models.Event{
			ID:       id.NewEventID(),
			Title:    "Closed Conference",
			Status:   models.EventStatusClosed,
			StartsAt: s.now.Add(14 * 24 * time.Hour),
			Deadline: s.now.Add(7 * 24 * time.Hour),
		}
		s.Require().NoError(s.events.Create(s.ctx, ev))

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeEventNotOpen))
	})

	s.Run("admits at the deadline instant", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)
		ctx := requestcontext.WithTime(context.Background(), ev.Deadline)

		_, err := s.svc.Register(ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)
	})

	s.Run("rejects one second past the deadline", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)
		ctx := requestcontext.WithTime(context.Background(), ev.Deadline.Add(time.Second))

		_, err := s.svc.Register(ctx, acc.ID, ev.ID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDeadlinePassed))
	})

	s.Run("unknown account and event yield not found", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)

		_, err := s.svc.Register(s.ctx, id.NewAccountID(), ev.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.svc.Register(s.ctx, acc.ID, id.NewEventID(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrationServiceSuite) TestRegisterReactivation() {
	s.Run("re-signing up after cancellation reuses the row", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)

		original, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)
		_, err = s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().NoError(err)

		reg, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)
		s.Equal(original.ID, reg.ID)
		s.True(reg.Active())
	})

	s.Run("emits a reactivation audit event", func() {
		acc := s.newAccount()
		ev := s.newOpenEvent(nil)

		_, err := s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)
		_, err = s.svc.Cancel(s.ctx, acc.ID, ev.ID, "")
		s.Require().NoError(err)
		_, err = s.svc.Register(s.ctx, acc.ID, ev.ID, nil)
		s.Require().NoError(err)

		var actions []string
		for _, e := range s.auditor.All() {
			actions = append(actions, e.Action)
		}
		s.Contains(actions, string(audit.EventRegistrationCreated))
		s.Contains(actions, string(audit.EventRegistrationCancelled))
		s.Contains(actions, string(audit.EventRegistrationReactivated))
	})
}
