package grant

import (
	"context"
	"sync"
	"time"

	id "convene/pkg/domain"
)

// InMemory tracks administrator-role grants for tests and local wiring.
type InMemory struct {
	mu   sync.RWMutex
	rows map[id.AccountID]time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{rows: make(map[id.AccountID]time.Time)}
}

func (s *InMemory) Grant(_ context.Context, accountID id.AccountID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[accountID] = at
	return nil
}

func (s *InMemory) Has(_ context.Context, accountID id.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rows[accountID]
	return ok, nil
}

// RevokeByAccount removes the grant if present; absent is not an error.
func (s *InMemory) RevokeByAccount(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, accountID)
	return nil
}

// Snapshot captures current state and returns a restore closure for the
// in-memory transaction runner.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[id.AccountID]time.Time, len(s.rows))
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
