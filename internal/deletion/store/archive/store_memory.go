package archive

import (
	"context"
	"sync"

	"convene/internal/deletion/models"
)

// InMemory is the test and local-wiring implementation of the archive
// store. Entries are written once and never mutated or deleted.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.ArchiveEntry
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Create(_ context.Context, entry *models.ArchiveEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// ListAll returns every archive entry, oldest first.
func (s *InMemory) ListAll(_ context.Context) ([]models.ArchiveEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ArchiveEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Snapshot captures current state and returns a restore closure for the
// in-memory transaction runner.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := make([]models.ArchiveEntry, len(s.entries))
	copy(saved, s.entries)
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.entries = saved
		s.mu.Unlock()
	}
}
