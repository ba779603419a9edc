package memory

import (
	"context"
	"sync"

	id "convene/pkg/domain"
	"convene/pkg/platform/audit"
)

// Store is an in-memory audit sink for unit tests and local wiring.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// DetachAccount clears the account reference on matching rows. Rows are
// kept: the zero AccountID is the in-memory equivalent of SQL NULL.
func (s *Store) DetachAccount(_ context.Context, accountID id.AccountID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	detached := 0
	for i := range s.events {
		if s.events[i].AccountID == accountID {
			s.events[i].AccountID = id.AccountID{}
			detached++
		}
	}
	return detached, nil
}

func (s *Store) ListByAccount(_ context.Context, accountID id.AccountID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, event := range s.events {
		if event.AccountID == accountID {
			out = append(out, event)
		}
	}
	return out, nil
}

// All returns a copy of every recorded event, detached rows included.
func (s *Store) All() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Snapshot captures the current state and returns a closure that restores
// it. Used by the in-memory transaction runner to roll back a failed unit.
func (s *Store) Snapshot() func() {
	s.mu.RLock()
	saved := make([]audit.Event, len(s.events))
	copy(saved, s.events)
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.events = saved
		s.mu.Unlock()
	}
}
