package feedback

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
)

// InMemory is the test and local-wiring implementation of the feedback
// store.
type InMemory struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]models.Feedback
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[uuid.UUID]models.Feedback)}
}

func (s *InMemory) Add(_ context.Context, fb *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[fb.ID] = *fb
	return nil
}

func (s *InMemory) CountByAccount(_ context.Context, accountID id.AccountID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, row := range s.rows {
		if row.AccountID == accountID {
			count++
		}
	}
	return count, nil
}

// DeleteByAccount removes the account's feedback. Feedback has no retention
// need of its own, so erasure drops it outright.
func (s *InMemory) DeleteByAccount(_ context.Context, accountID id.AccountID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for rowID, row := range s.rows {
		if row.AccountID == accountID {
			delete(s.rows, rowID)
			deleted++
		}
	}
	return deleted, nil
}

// Snapshot captures current state and returns a restore closure for the
// in-memory transaction runner.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[uuid.UUID]models.Feedback, len(s.rows))
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
