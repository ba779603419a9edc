package pending

import (
	"context"
	"sort"
	"sync"
	"time"

	"convene/internal/deletion/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
)

// InMemory is the test and local-wiring implementation of the
// pending-deletion store.
type InMemory struct {
	mu   sync.RWMutex
	rows map[id.AccountID]models.PendingDeletion
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[id.AccountID]models.PendingDeletion)}
}

// Create inserts the account's pending deletion. At most one exists per
// account.
func (s *InMemory) Create(_ context.Context, pd *models.PendingDeletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[pd.AccountID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.rows[pd.AccountID] = *pd
	return nil
}

func (s *InMemory) FindByAccount(_ context.Context, accountID id.AccountID) (*models.PendingDeletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pd, ok := s.rows[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &pd, nil
}

// ListDue returns pending deletions whose date is at or before now, oldest
// first.
func (s *InMemory) ListDue(_ context.Context, now time.Time) ([]models.PendingDeletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []models.PendingDeletion
	for _, pd := range s.rows {
		if !pd.DeleteAt.After(now) {
			due = append(due, pd)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].DeleteAt.Before(due[j].DeleteAt)
	})
	return due, nil
}

func (s *InMemory) DeleteByAccount(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, accountID)
	return nil
}

// Snapshot captures current state and returns a restore closure for the
// in-memory transaction runner.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[id.AccountID]models.PendingDeletion, len(s.rows))
	for k, v := range s.rows {
		saved[k] = v
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.rows = saved
		s.mu.Unlock()
	}
}
