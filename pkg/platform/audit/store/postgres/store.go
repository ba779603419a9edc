package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "convene/pkg/domain"
	"convene/pkg/platform/audit"
	txcontext "convene/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL. The account_id column is
// nullable: erasure detaches rows instead of deleting them.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes one audit event. When ctx carries a transaction the insert
// joins it, so compliance events commit together with the mutation they
// describe.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var accountID any
	if !event.AccountID.IsNil() {
		accountID = uuid.UUID(event.AccountID)
	}

	query := `
		INSERT INTO audit_events (id, category, account_id, action, subject, reason, request_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		accountID,
		event.Action,
		event.Subject,
		event.Reason,
		event.RequestID,
		event.ActorID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// DetachAccount nulls the account reference on all rows for the account.
func (s *Store) DetachAccount(ctx context.Context, accountID id.AccountID) (int, error) {
	result, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE audit_events SET account_id = NULL WHERE account_id = $1`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return 0, fmt.Errorf("detach audit events: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("detach audit events rows affected: %w", err)
	}
	return int(rows), nil
}

// ListByAccount returns the events still attributed to the account, oldest
// first.
func (s *Store) ListByAccount(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT category, account_id, action, subject, reason, request_id, actor_id, created_at
		FROM audit_events
		WHERE account_id = $1
		ORDER BY created_at ASC
	`, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		var category string
		var account uuid.NullUUID
		if err := rows.Scan(&category, &account, &event.Action, &event.Subject, &event.Reason, &event.RequestID, &event.ActorID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		if account.Valid {
			event.AccountID = id.AccountID(account.UUID)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
