// Package postgres opens the backing store and applies the schema. It uses
// database/sql with lib/pq directly; all queries live in the store packages.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so repeated startup
// is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL,
	last_name  TEXT NOT NULL,
	blocked    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id         UUID PRIMARY KEY,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	starts_at  TIMESTAMPTZ NOT NULL,
	ends_at    TIMESTAMPTZ,
	deadline   TIMESTAMPTZ NOT NULL,
	capacity   INTEGER,
	created_at TIMESTAMPTZ NOT NULL
);

-- One row per (account, event) for the pairing's entire lifetime.
-- Cancellation sets cancelled_at; re-registration clears it on the same row.
CREATE TABLE IF NOT EXISTS registrations (
	id            UUID PRIMARY KEY,
	account_id    UUID NOT NULL REFERENCES accounts (id),
	event_id      UUID NOT NULL REFERENCES events (id),
	extra         JSONB,
	registered_at TIMESTAMPTZ NOT NULL,
	cancelled_at  TIMESTAMPTZ,
	cancel_reason TEXT,
	UNIQUE (account_id, event_id)
);

CREATE INDEX IF NOT EXISTS idx_registrations_event_active
	ON registrations (event_id) WHERE cancelled_at IS NULL;

CREATE TABLE IF NOT EXISTS pending_deletions (
	account_id UUID PRIMARY KEY REFERENCES accounts (id),
	delete_at  TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS archive_entries (
	id            UUID PRIMARY KEY,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	registered_at TIMESTAMPTZ NOT NULL,
	deleted_at    TIMESTAMPTZ NOT NULL,
	attended      JSONB
);

CREATE TABLE IF NOT EXISTS admin_grants (
	account_id UUID PRIMARY KEY REFERENCES accounts (id),
	granted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id         UUID PRIMARY KEY,
	account_id UUID NOT NULL REFERENCES accounts (id),
	event_id   UUID NOT NULL REFERENCES events (id),
	rating     INTEGER NOT NULL,
	comment    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

-- Append-only activity log. account_id carries no foreign key on purpose:
-- erasure nulls it and the rows outlive the account.
CREATE TABLE IF NOT EXISTS audit_events (
	id         UUID PRIMARY KEY,
	category   TEXT NOT NULL,
	account_id UUID,
	action     TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	actor_id   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_events_account
	ON audit_events (account_id) WHERE account_id IS NOT NULL;
`
