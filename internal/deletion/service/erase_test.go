package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	delmodels "convene/internal/deletion/models"
	"convene/internal/deletion/store/txrunner"
	"convene/internal/registration/models"
	id "convene/pkg/domain"
	dErrors "convene/pkg/domain-errors"
	"convene/pkg/platform/audit"
	"convene/pkg/platform/sentinel"
	"convene/pkg/requestcontext"
)

// failingArchive injects a fault at the first step of the erasure unit.
type failingArchive struct{}

func (failingArchive) Create(context.Context, *delmodels.ArchiveEntry) error {
	return errors.New("archive unavailable")
}

func (s *DeletionServiceSuite) addFeedback(accountID id.AccountID, eventID id.EventID) {
	s.Require().NoError(s.feedback.Add(s.ctx, &models.Feedback{
		ID:        uuid.New(),
		AccountID: accountID,
		EventID:   eventID,
		Rating:    4,
		Comment:   "great venue",
		CreatedAt: s.now,
	}))
}

func (s *DeletionServiceSuite) TestErase() {
	s.Run("archives and removes an eligible account", func() {
		acc := s.newAccount()
		ev := s.registerFor(acc.ID, -40*24*time.Hour)
		s.addFeedback(acc.ID, ev.ID)
		s.Require().NoError(s.grants.Grant(s.ctx, acc.ID, s.now.Add(-100*24*time.Hour)))

		s.Require().NoError(s.svc.Erase(s.ctx, acc.ID))

		entries, err := s.archive.ListAll(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		entry := entries[0]
		s.Equal(acc.FirstName, entry.FirstName)
		s.Equal(acc.LastName, entry.LastName)
		s.Equal(acc.CreatedAt, entry.RegisteredAt)
		s.Equal(s.now, entry.DeletedAt)
		s.Require().Len(entry.Attended, 1)
		s.Equal(ev.ID, entry.Attended[0].EventID)
		s.Equal(ev.Title, entry.Attended[0].Title)
		s.Equal(ev.StartsAt, entry.Attended[0].Date)

		_, err = s.accounts.FindByID(s.ctx, acc.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		active, err := s.registrations.ListActiveEvents(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Empty(active)

		count, err := s.feedback.CountByAccount(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Equal(0, count)

		has, err := s.grants.Has(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.False(has)
	})

	s.Run("archive carries no attended list when nothing was attended", func() {
		before, err := s.archive.ListAll(s.ctx)
		s.Require().NoError(err)

		acc := s.newAccount()
		s.Require().NoError(s.svc.Erase(s.ctx, acc.ID))

		entries, err := s.archive.ListAll(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(entries, len(before)+1)
		s.Nil(entries[len(entries)-1].Attended)
	})

	s.Run("detaches audit history instead of deleting it", func() {
		acc := s.newAccount()
		s.Require().NoError(s.auditor.Append(s.ctx, audit.Event{
			Category:  audit.EventRegistrationCreated.Category(),
			Timestamp: s.now.Add(-50 * 24 * time.Hour),
			AccountID: acc.ID,
			Action:    string(audit.EventRegistrationCreated),
		}))

		s.Require().NoError(s.svc.Erase(s.ctx, acc.ID))

		byAccount, err := s.auditor.ListByAccount(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Empty(byAccount)

		var actions []string
		for _, e := range s.auditor.All() {
			s.True(e.AccountID.IsNil())
			actions = append(actions, e.Action)
		}
		s.Contains(actions, string(audit.EventRegistrationCreated))
		s.Contains(actions, string(audit.EventAccountArchived))
		s.Contains(actions, string(audit.EventAccountErased))
	})

	s.Run("proceeds for a scheduled account once its date is reached", func() {
		acc := s.newAccount()
		s.registerFor(acc.ID, 10*24*time.Hour)

		deleteAt, err := s.svc.Schedule(s.ctx, acc.ID)
		s.Require().NoError(err)

		later := requestcontext.WithTime(context.Background(), deleteAt.Add(time.Hour))
		s.Require().NoError(s.svc.Erase(later, acc.ID))

		_, err = s.accounts.FindByID(s.ctx, acc.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.pending.FindByAccount(s.ctx, acc.ID)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("refuses a scheduled account before its date", func() {
		acc := s.newAccount()
		s.registerFor(acc.ID, 10*24*time.Hour)

		deleteAt, err := s.svc.Schedule(s.ctx, acc.ID)
		s.Require().NoError(err)

		// Still inside the retention window: the recorded date, not the
		// pending row itself, authorizes erasure.
		err = s.svc.Erase(s.ctx, acc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotYetEligible))

		justBefore := requestcontext.WithTime(context.Background(), deleteAt.Add(-time.Second))
		err = s.svc.Erase(justBefore, acc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotYetEligible))

		_, err = s.accounts.FindByID(s.ctx, acc.ID)
		s.Require().NoError(err)
		pd, err := s.pending.FindByAccount(s.ctx, acc.ID)
		s.Require().NoError(err)
		s.Equal(deleteAt, pd.DeleteAt)
	})

	s.Run("rejects a direct erase of an ineligible account", func() {
		acc := s.newAccount()
		s.registerFor(acc.ID, 10*24*time.Hour)

		err := s.svc.Erase(s.ctx, acc.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotYetEligible))

		_, err = s.accounts.FindByID(s.ctx, acc.ID)
		s.Require().NoError(err)
	})

	s.Run("unknown account yields not found", func() {
		err := s.svc.Erase(s.ctx, id.NewAccountID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DeletionServiceSuite) TestEraseRollsBackAsOneUnit() {
	acc := s.newAccount()
	ev := s.registerFor(acc.ID, -40*24*time.Hour)
	s.addFeedback(acc.ID, ev.ID)

	runner := txrunner.NewInMemory(
		s.accounts, s.registrations, s.pending, s.archive, s.grants, s.feedback, s.auditor,
	)
	svc, err := New(
		s.accounts, s.registrations, s.pending, failingArchive{}, s.grants,
		s.feedback, s.auditor, runner,
	)
	s.Require().NoError(err)

	err = svc.Erase(s.ctx, acc.ID)
	s.Require().Error(err)

	// Everything must still be in place for a retry.
	_, err = s.accounts.FindByID(s.ctx, acc.ID)
	s.Require().NoError(err)
	active, err := s.registrations.ListActiveEvents(s.ctx, acc.ID)
	s.Require().NoError(err)
	s.Len(active, 1)
	count, err := s.feedback.CountByAccount(s.ctx, acc.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
}
