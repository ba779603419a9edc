package grant

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "convene/pkg/domain"
	txcontext "convene/pkg/platform/tx"
)

// PostgresStore persists administrator-role grants in PostgreSQL.
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

func (s *PostgresStore) Grant(ctx context.Context, accountID id.AccountID, at time.Time) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO admin_grants (account_id, granted_at)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO NOTHING
	`, uuid.UUID(accountID), at)
	if err != nil {
		return fmt.Errorf("insert admin grant: %w", err)
	}
	return nil
}

func (s *PostgresStore) Has(ctx context.Context, accountID id.AccountID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM admin_grants WHERE account_id = $1)`,
		uuid.UUID(accountID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin grant: %w", err)
	}
	return exists, nil
}

// RevokeByAccount removes the grant if present; absent is not an error.
func (s *PostgresStore) RevokeByAccount(ctx context.Context, accountID id.AccountID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM admin_grants WHERE account_id = $1`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return fmt.Errorf("revoke admin grant: %w", err)
	}
	return nil
}
