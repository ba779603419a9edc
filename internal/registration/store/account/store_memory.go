package account

import (
	"context"
	"strings"
	"sync"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
)

// InMemory is the test and local-wiring implementation of the account store.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.Account
	emails   map[string]id.AccountID
}

func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[id.AccountID]models.Account),
		emails:   make(map[string]id.AccountID),
	}
}

// Create inserts a new account. Email uniqueness is case-insensitive.
func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, exists := s.emails[key]; exists {
		return sentinel.ErrConflict
	}
	s.accounts[account.ID] = *account
	s.emails[key] = account.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &account, nil
}

func (s *InMemory) SetBlocked(_ context.Context, accountID id.AccountID, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	account.Blocked = blocked
	s.accounts[accountID] = account
	return nil
}

func (s *InMemory) Delete(_ context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.emails, strings.ToLower(account.Email))
	delete(s.accounts, accountID)
	return nil
}

// Snapshot captures current state and returns a restore closure for the
// in-memory transaction runner.
func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	savedAccounts := make(map[id.AccountID]models.Account, len(s.accounts))
	for k, v := range s.accounts {
		savedAccounts[k] = v
	}
	savedEmails := make(map[string]id.AccountID, len(s.emails))
	for k, v := range s.emails {
		savedEmails[k] = v
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.accounts = savedAccounts
		s.emails = savedEmails
		s.mu.Unlock()
	}
}
