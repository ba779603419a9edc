package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"convene/internal/deletion/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
	txcontext "convene/pkg/platform/tx"
)

// PostgresStore persists pending deletions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create inserts the account's pending deletion. The account_id primary key
// enforces at most one per account.
func (s *PostgresStore) Create(ctx context.Context, pd *models.PendingDeletion) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO pending_deletions (account_id, delete_at, created_at)
		VALUES ($1, $2, $3)
	`, uuid.UUID(pd.AccountID), pd.DeleteAt, pd.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert pending deletion: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByAccount(ctx context.Context, accountID id.AccountID) (*models.PendingDeletion, error) {
	var pd models.PendingDeletion
	var rawID uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT account_id, delete_at, created_at
		FROM pending_deletions
		WHERE account_id = $1
	`, uuid.UUID(accountID)).Scan(&rawID, &pd.DeleteAt, &pd.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get pending deletion: %w", err)
	}
	pd.AccountID = id.AccountID(rawID)
	return &pd, nil
}

// ListDue returns pending deletions whose date is at or before now, oldest
// first.
func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]models.PendingDeletion, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT account_id, delete_at, created_at
		FROM pending_deletions
		WHERE delete_at <= $1
		ORDER BY delete_at ASC
	`, now)
	if err != nil {
		return nil, fmt.Errorf("list due deletions: %w", err)
	}
	defer rows.Close()

	var due []models.PendingDeletion
	for rows.Next() {
		var pd models.PendingDeletion
		var rawID uuid.UUID
		if err := rows.Scan(&rawID, &pd.DeleteAt, &pd.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending deletion: %w", err)
		}
		pd.AccountID = id.AccountID(rawID)
		due = append(due, pd)
	}
	return due, rows.Err()
}

func (s *PostgresStore) DeleteByAccount(ctx context.Context, accountID id.AccountID) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM pending_deletions WHERE account_id = $1`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return fmt.Errorf("delete pending deletion: %w", err)
	}
	return nil
}
