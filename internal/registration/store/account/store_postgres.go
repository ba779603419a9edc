package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
	txcontext "convene/pkg/platform/tx"
)

// PostgresStore persists accounts in PostgreSQL. This store is pure I/O;
// blocking rules and erasure ordering belong to the services.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, account *models.Account) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO accounts (id, email, first_name, last_name, blocked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.UUID(account.ID), account.Email, account.FirstName, account.LastName,
		account.Blocked, account.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID id.AccountID) (*models.Account, error) {
	var account models.Account
	var rawID uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, blocked, created_at
		FROM accounts
		WHERE id = $1
	`, uuid.UUID(accountID)).Scan(
		&rawID, &account.Email, &account.FirstName, &account.LastName,
		&account.Blocked, &account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	account.ID = id.AccountID(rawID)
	return &account, nil
}

func (s *PostgresStore) SetBlocked(ctx context.Context, accountID id.AccountID, blocked bool) error {
	result, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE accounts SET blocked = $2 WHERE id = $1`,
		uuid.UUID(accountID), blocked,
	)
	if err != nil {
		return fmt.Errorf("set account blocked: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set account blocked rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, accountID id.AccountID) error {
	result, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM accounts WHERE id = $1`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete account rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
