package feedback

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	txcontext "convene/pkg/platform/tx"
)

// PostgresStore persists event feedback in PostgreSQL.
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

func (s *PostgresStore) Add(ctx context.Context, fb *models.Feedback) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO feedback (id, account_id, event_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		fb.ID, uuid.UUID(fb.AccountID), uuid.UUID(fb.EventID),
		fb.Rating, fb.Comment, fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountByAccount(ctx context.Context, accountID id.AccountID) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback WHERE account_id = $1`,
		uuid.UUID(accountID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return count, nil
}

// DeleteByAccount removes the account's feedback rows.
func (s *PostgresStore) DeleteByAccount(ctx context.Context, accountID id.AccountID) (int, error) {
	result, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM feedback WHERE account_id = $1`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return 0, fmt.Errorf("delete feedback: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete feedback rows affected: %w", err)
	}
	return int(rows), nil
}
