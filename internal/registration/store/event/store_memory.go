package event

import (
	"context"
	"sync"
	"time"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
)

// InMemory is the test and local-wiring implementation of the event store.
// Events are a read-only dependency for the lifecycle engine; Create exists
// so tests and seed data can stand in for the organizer side.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.EventID]models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.EventID]models.Event)}
}

func (s *InMemory) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return sentinel.ErrConflict
	}
	s.events[event.ID] = *event
	return nil
}

func (s *InMemory) FindByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &event, nil
}

// CountPastDeadline counts events whose registration deadline has passed.
// Informational only; nothing in the engine mutates state based on it.
func (s *InMemory) CountPastDeadline(_ context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, event := range s.events {
		if event.Deadline.Before(now) {
			count++
		}
	}
	return count, nil
}
