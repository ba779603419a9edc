package registration

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
)

// EventSource is the read-only view of events the in-memory store needs for
// admission: the capacity lives on the event row.
type EventSource interface {
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
}

// AccountSource is the read-only view of accounts: admission re-checks the
// blocked flag inside the store, matching the PostgreSQL store's account
// row lock.
type AccountSource interface {
	FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error)
}

// InMemory mirrors the PostgreSQL store's semantics behind a single mutex.
// The mutex plays the role of the event row lock: admissions are serialized,
// so the capacity check and the write are one atomic unit here too.
type InMemory struct {
	mu       sync.RWMutex
	accounts AccountSource
	events   EventSource
	rows     map[id.RegistrationID]models.Registration
	byPair   map[pairKey]id.RegistrationID
}

type pairKey struct {
	account id.AccountID
	event   id.EventID
}

func NewInMemory(accounts AccountSource, events EventSource) *InMemory {
	return &InMemory{
		accounts: accounts,
		events:   events,
		rows:     make(map[id.RegistrationID]models.Registration),
		byPair:   make(map[pairKey]id.RegistrationID),
	}
}

func (s *InMemory) Admit(ctx context.Context, accountID id.AccountID, eventID id.EventID, extra map[string]string, now time.Time) (*models.Registration, bool, error) {
	// Account existence is the caller's precondition; only the blocked flag
	// is re-checked here, as the PostgreSQL store does.
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, err
	}
	if account != nil && account.Blocked {
		return nil, false, ErrBlocked
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, false, sentinel.ErrNotFound
		}
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{account: accountID, event: eventID}
	var existing *models.Registration
	if regID, ok := s.byPair[key]; ok {
		row := s.rows[regID]
		existing = &row
	}
	if existing != nil && existing.Active() {
		return nil, false, sentinel.ErrAlreadyUsed
	}

	if event.Capacity != nil {
		active := 0
		for _, row := range s.rows {
			if row.EventID == eventID && row.Active() {
				active++
			}
		}
		if active >= *event.Capacity {
			return nil, false, ErrFull
		}
	}

	if existing != nil {
		existing.ApplyReactivation(now, copyExtra(extra))
		s.rows[existing.ID] = *existing
		row := *existing
		return &row, true, nil
	}

	reg := models.Registration{
		ID:           id.NewRegistrationID(),
		AccountID:    accountID,
		EventID:      eventID,
		Extra:        copyExtra(extra),
		RegisteredAt: now,
	}
	s.rows[reg.ID] = reg
	s.byPair[key] = reg.ID
	out := reg
	return &out, false, nil
}

func (s *InMemory) Cancel(_ context.Context, accountID id.AccountID, eventID id.EventID, at time.Time, reason string) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regID, ok := s.byPair[pairKey{account: accountID, event: eventID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	row := s.rows[regID]
	if !row.Active() {
		return nil, sentinel.ErrNotFound
	}
	row.ApplyCancellation(at, reason)
	s.rows[regID] = row
	out := row
	return &out, nil
}

func (s *InMemory) FindByPair(_ context.Context, accountID id.AccountID, eventID id.EventID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regID, ok := s.byPair[pairKey{account: accountID, event: eventID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	row := s.rows[regID]
	return &row, nil
}

func (s *InMemory) CountActive(_ context.Context, eventID id.EventID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, row := range s.rows {
		if row.EventID == eventID && row.Active() {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) IsActive(_ context.Context, accountID id.AccountID, eventID id.EventID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regID, ok := s.byPair[pairKey{account: accountID, event: eventID}]
	if !ok {
		return false, nil
	}
	row := s.rows[regID]
	return row.Active(), nil
}

func (s *InMemory) ListByEvent(_ context.Context, eventID id.EventID) ([]models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Registration
	for _, row := range s.rows {
		if row.EventID == eventID && row.Active() {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RegisteredAt.Before(out[j].RegisteredAt)
	})
	return out, nil
}

func (s *InMemory) ListActiveEvents(ctx context.Context, accountID id.AccountID) ([]ActiveEvent, error) {
	s.mu.RLock()
	var active []models.Registration
	for _, row := range s.rows {
		if row.AccountID == accountID && row.Active() {
			active = append(active, row)
		}
	}
	s.mu.RUnlock()

	var out []ActiveEvent
	for _, row := range active {
		event, err := s.events.FindByID(ctx, row.EventID)
		if err != nil {
			return nil, err
		}
		out = append(out, ActiveEvent{EventID: event.ID, Title: event.Title, StartsAt: event.StartsAt})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartsAt.After(out[j].StartsAt)
	})
	return out, nil
}

func (s *InMemory) DeleteByAccount(_ context.Context, accountID id.AccountID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for regID, row := range s.rows {
		if row.AccountID == accountID {
			delete(s.rows, regID)
			delete(s.byPair, pairKey{account: row.AccountID, event: row.EventID})
			deleted++
		}
	}
	return deleted, nil
}

// Snapshot captures current state and returns a restore closure for the
// in-memory transaction runner.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	savedRows := make(map[id.RegistrationID]models.Registration, len(s.rows))
	for k, v := range s.rows {
		savedRows[k] = v
	}
	savedPairs := make(map[pairKey]id.RegistrationID, len(s.byPair))
	for k, v := range s.byPair {
		savedPairs[k] = v
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.rows = savedRows
		s.byPair = savedPairs
		s.mu.Unlock()
	}
}

func copyExtra(extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
