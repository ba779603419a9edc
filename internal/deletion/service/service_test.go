package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"convene/internal/deletion/eligibility"
	"convene/internal/deletion/store/archive"
	"convene/internal/deletion/store/grant"
	"convene/internal/deletion/store/pending"
	"convene/internal/deletion/store/txrunner"
	"convene/internal/registration/models"
	"convene/internal/registration/store/account"
	"convene/internal/registration/store/event"
	"convene/internal/registration/store/feedback"
	"convene/internal/registration/store/registration"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	auditmem "convene/pkg/platform/audit/store/memory"
	"convene/pkg/testutil"
)

type DeletionServiceSuite struct {
	suite.Suite
	accounts      *account.InMemory
	events        *event.InMemory
	registrations *registration.InMemory
	pending       *pending.InMemory
	archive       *archive.InMemory
	grants        *grant.InMemory
	feedback      *feedback.InMemory
	auditor       *auditmem.Store
	svc           *Service
	ctx           context.Context
	now           time.Time
}

func (s *DeletionServiceSuite) SetupTest() {
	s.accounts = account.NewInMemory()
	s.events = event.NewInMemory()
	s.registrations = registration.NewInMemory(s.accounts, s.events)
	s.pending = pending.NewInMemory()
	s.archive = archive.NewInMemory()
	s.grants = grant.NewInMemory()
	s.feedback = feedback.NewInMemory()
	s.auditor = auditmem.New()

	runner := txrunner.NewInMemory(
		s.accounts, s.registrations, s.pending, s.archive, s.grants, s.feedback, s.auditor,
	)
	svc, err := New(
		s.accounts, s.registrations, s.pending, s.archive, s.grants,
		s.feedback, s.auditor, runner,
	)
	s.Require().NoError(err)
	s.svc = svc

	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(s.now)
}

func TestDeletionServiceSuite(t *testing.T) {
	suite.Run(t, new(DeletionServiceSuite))
}

func (s *DeletionServiceSuite) newAccount() *models.Account {
	acc := &models.Account{
		ID:        id.NewAccountID(),
		Email:     id.NewAccountID().String() + "@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		CreatedAt: s.now.Add(-2 * 365 * 24 * time.Hour),
	}
	s.Require().NoError(s.accounts.Create(s.ctx, acc))
	return acc
}

// registerFor puts the account on an open event starting at the given
// offset from s.now.
func (s *DeletionServiceSuite) registerFor(accountID id.AccountID, startOffset time.Duration) *models.Event {
	ev := &models.Event{
		ID:       id.NewEventID(),
		Title:    "Lifecycle Fixture",
		Status:   models.EventStatusOpen,
		StartsAt: s.now.Add(startOffset),
		Deadline: s.now.Add(startOffset),
	}
	s.Require().NoError(s.events.Create(s.ctx, ev))
	_, _, err := s.registrations.Admit(s.ctx, accountID, ev.ID, nil, s.now.Add(startOffset-24*time.Hour))
	s.Require().NoError(err)
	return ev
}

func (s *DeletionServiceSuite) TestCanDelete() {
	s.Run("no registrations means eligible now", func() {
		acc := s.newAccount()

		result, err := s.svc.CanDelete(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.True(result.Eligible)
		s.Nil(result.EligibleAfter)
	})

	s.Run("upcoming event defers past its date plus the window", func() {
		acc := s.newAccount()
		ev := s.registerFor(acc.ID, 10*24*time.Hour)

		result, err := s.svc.CanDelete(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.False(result.Eligible)
		s.Equal(eligibility.ReasonUpcomingEvent, result.Reason)
		s.Require().NotNil(result.EligibleAfter)
		s.Equal(ev.StartsAt.Add(eligibility.RetentionWindow), *result.EligibleAfter)
	})

	s.Run("recent attendance defers until the window elapses", func() {
		acc := s.newAccount()
		ev := s.registerFor(acc.ID, -10*24*time.Hour)

		result, err := s.svc.CanDelete(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.False(result.Eligible)
		s.Equal(eligibility.ReasonRetentionWindow, result.Reason)
		s.Require().NotNil(result.EligibleAfter)
		s.Equal(ev.StartsAt.Add(eligibility.RetentionWindow), *result.EligibleAfter)
	})

	s.Run("attendance older than the window is eligible", func() {
		acc := s.newAccount()
		s.registerFor(acc.ID, -40*24*time.Hour)

		result, err := s.svc.CanDelete(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.True(result.Eligible)
	})

	s.Run("cancelled registrations do not count", func() {
		acc := s.newAccount()
		ev := s.registerFor(acc.ID, 10*24*time.Hour)
		_, err := s.registrations.Cancel(s.ctx, acc.ID, ev.ID, s.now, "")
		s.Require().NoError(err)

		result, err := s.svc.CanDelete(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.True(result.Eligible)
	})

	s.Run("unknown account yields not found", func() {
		_, err := s.svc.CanDelete(s.ctx, id.NewAccountID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
