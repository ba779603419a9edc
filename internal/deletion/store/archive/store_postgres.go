package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"convene/internal/deletion/models"
	txcontext "convene/pkg/platform/tx"
)

// PostgresStore persists archive entries in PostgreSQL. The attended column
// stays NULL when the account attended nothing; an empty JSON array would
// blur "no data" and "computed empty" in audits.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, entry *models.ArchiveEntry) error {
	var attended any
	if len(entry.Attended) > 0 {
		raw, err := json.Marshal(entry.Attended)
		if err != nil {
			return fmt.Errorf("marshal attended events: %w", err)
		}
		attended = raw
	}

	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO archive_entries (id, first_name, last_name, registered_at, deleted_at, attended)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		entry.ID, entry.FirstName, entry.LastName,
		entry.RegisteredAt, entry.DeletedAt, attended,
	)
	if err != nil {
		return fmt.Errorf("insert archive entry: %w", err)
	}
	return nil
}

// ListAll returns every archive entry, oldest deletion first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]models.ArchiveEntry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, first_name, last_name, registered_at, deleted_at, attended
		FROM archive_entries
		ORDER BY deleted_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list archive entries: %w", err)
	}
	defer rows.Close()

	var entries []models.ArchiveEntry
	for rows.Next() {
		var entry models.ArchiveEntry
		var attended []byte
		if err := rows.Scan(&entry.ID, &entry.FirstName, &entry.LastName, &entry.RegisteredAt, &entry.DeletedAt, &attended); err != nil {
			return nil, fmt.Errorf("scan archive entry: %w", err)
		}
		if len(attended) > 0 {
			if err := json.Unmarshal(attended, &entry.Attended); err != nil {
				return nil, fmt.Errorf("unmarshal attended events: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
