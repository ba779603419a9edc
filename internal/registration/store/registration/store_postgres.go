package registration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
	txcontext "convene/pkg/platform/tx"
)

// ErrFull reports that the event has no remaining capacity. It is raised
// inside the admission transaction, against the count as of the event row
// lock, so two concurrent requests can never both take the last slot.
var ErrFull = errors.New("event full")

// ErrBlocked reports that the account was blocked by the time the admission
// transaction observed it. The service checks blocked before calling Admit,
// but a concurrent deletion schedule can land between that read and the
// transaction.
var ErrBlocked = errors.New("account blocked")

// ActiveEvent is an active registration joined to its event's schedule.
// The eligibility evaluator and the archival step both consume this shape.
type ActiveEvent struct {
	EventID  id.EventID
	Title    string
	StartsAt time.Time
}

// PostgresStore persists registrations in PostgreSQL.
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

// Admit performs the registration admission as one atomic unit: it locks the
// event row, re-checks capacity against the live active count, and either
// reactivates the pairing's cancelled row or inserts a fresh one.
//
// The duplicate and capacity checks must share the transaction with the
// write; checking first and writing after is exactly the read-then-write
// race that overbooks events under concurrent load. The event row lock
// serializes admissions per event.
//
// Returns the resulting row and whether an existing row was reactivated.
// Errors: sentinel.ErrNotFound (event gone), sentinel.ErrAlreadyUsed
// (pairing already active), ErrFull, ErrBlocked.
func (s *PostgresStore) Admit(ctx context.Context, accountID id.AccountID, eventID id.EventID, extra map[string]string, now time.Time) (*models.Registration, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin admit: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Holding the account row share lock blocks against a concurrent
	// deletion schedule flipping blocked mid-admission. Account existence
	// itself is left to the registrations foreign key.
	var blocked bool
	err = tx.QueryRowContext(ctx,
		`SELECT blocked FROM accounts WHERE id = $1 FOR SHARE`,
		uuid.UUID(accountID),
	).Scan(&blocked)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("lock account row: %w", err)
	}
	if blocked {
		return nil, false, ErrBlocked
	}

	var capacity sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT capacity FROM events WHERE id = $1 FOR UPDATE`,
		uuid.UUID(eventID),
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, sentinel.ErrNotFound
		}
		return nil, false, fmt.Errorf("lock event row: %w", err)
	}

	existing, err := scanRegistration(tx.QueryRowContext(ctx, `
		SELECT id, account_id, event_id, extra, registered_at, cancelled_at, cancel_reason
		FROM registrations
		WHERE account_id = $1 AND event_id = $2
		FOR UPDATE
	`, uuid.UUID(accountID), uuid.UUID(eventID)))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("check existing registration: %w", err)
	}
	if existing != nil && existing.Active() {
		return nil, false, sentinel.ErrAlreadyUsed
	}

	if capacity.Valid {
		var active int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND cancelled_at IS NULL`,
			uuid.UUID(eventID),
		).Scan(&active)
		if err != nil {
			return nil, false, fmt.Errorf("count active registrations: %w", err)
		}
		if int64(active) >= capacity.Int64 {
			return nil, false, ErrFull
		}
	}

	extraJSON, err := marshalExtra(extra)
	if err != nil {
		return nil, false, err
	}

	var row *models.Registration
	reactivated := false
	if existing != nil {
		// Same pairing, cancelled earlier: reuse the row identity instead
		// of inserting a duplicate. Extra answers are overwritten only when
		// the new sign-up supplies any.
		if len(extra) == 0 {
			extraJSON, err = marshalExtra(existing.Extra)
			if err != nil {
				return nil, false, err
			}
		}
		row, err = scanRegistration(tx.QueryRowContext(ctx, `
			UPDATE registrations
			SET extra = $2, registered_at = $3, cancelled_at = NULL, cancel_reason = NULL
			WHERE id = $1
			RETURNING id, account_id, event_id, extra, registered_at, cancelled_at, cancel_reason
		`, uuid.UUID(existing.ID), extraJSON, now))
		reactivated = true
	} else {
		row, err = scanRegistration(tx.QueryRowContext(ctx, `
			INSERT INTO registrations (id, account_id, event_id, extra, registered_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, account_id, event_id, extra, registered_at, cancelled_at, cancel_reason
		`, uuid.New(), uuid.UUID(accountID), uuid.UUID(eventID), extraJSON, now))
	}
	if err != nil {
		return nil, false, fmt.Errorf("write registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit admit: %w", err)
	}
	return row, reactivated, nil
}

// Cancel stamps the pairing's active row cancelled. The row survives so a
// later re-registration can reactivate the same identity.
func (s *PostgresStore) Cancel(ctx context.Context, accountID id.AccountID, eventID id.EventID, at time.Time, reason string) (*models.Registration, error) {
	row, err := scanRegistration(s.execer(ctx).QueryRowContext(ctx, `
		UPDATE registrations
		SET cancelled_at = $3, cancel_reason = $4
		WHERE account_id = $1 AND event_id = $2 AND cancelled_at IS NULL
		RETURNING id, account_id, event_id, extra, registered_at, cancelled_at, cancel_reason
	`, uuid.UUID(accountID), uuid.UUID(eventID), at, reason))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("cancel registration: %w", err)
	}
	return row, nil
}

func (s *PostgresStore) FindByPair(ctx context.Context, accountID id.AccountID, eventID id.EventID) (*models.Registration, error) {
	row, err := scanRegistration(s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, account_id, event_id, extra, registered_at, cancelled_at, cancel_reason
		FROM registrations
		WHERE account_id = $1 AND event_id = $2
	`, uuid.UUID(accountID), uuid.UUID(eventID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return row, nil
}

func (s *PostgresStore) CountActive(ctx context.Context, eventID id.EventID) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND cancelled_at IS NULL`,
		uuid.UUID(eventID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active registrations: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) IsActive(ctx context.Context, accountID id.AccountID, eventID id.EventID) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE account_id = $1 AND event_id = $2 AND cancelled_at IS NULL
		)
	`, uuid.UUID(accountID), uuid.UUID(eventID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active registration: %w", err)
	}
	return exists, nil
}

// ListByEvent returns the event's active registrations, oldest first.
func (s *PostgresStore) ListByEvent(ctx context.Context, eventID id.EventID) ([]models.Registration, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, account_id, event_id, extra, registered_at, cancelled_at, cancel_reason
		FROM registrations
		WHERE event_id = $1 AND cancelled_at IS NULL
		ORDER BY registered_at ASC
	`, uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, *reg)
	}
	return out, rows.Err()
}

// ListActiveEvents returns the account's active registrations joined to
// their event schedule, most recent event first. This is the snapshot the
// eligibility evaluator runs over.
func (s *PostgresStore) ListActiveEvents(ctx context.Context, accountID id.AccountID) ([]ActiveEvent, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT e.id, e.title, e.starts_at
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.account_id = $1 AND r.cancelled_at IS NULL
		ORDER BY e.starts_at DESC
	`, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	defer rows.Close()

	var out []ActiveEvent
	for rows.Next() {
		var item ActiveEvent
		var rawID uuid.UUID
		if err := rows.Scan(&rawID, &item.Title, &item.StartsAt); err != nil {
			return nil, fmt.Errorf("scan active event: %w", err)
		}
		item.EventID = id.EventID(rawID)
		out = append(out, item)
	}
	return out, rows.Err()
}

// DeleteByAccount removes every registration row for the account, cancelled
// ones included. Only the erasure executor calls this, inside its
// transaction.
func (s *PostgresStore) DeleteByAccount(ctx context.Context, accountID id.AccountID) (int, error) {
	result, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM registrations WHERE account_id = $1`,
		uuid.UUID(accountID),
	)
	if err != nil {
		return 0, fmt.Errorf("delete registrations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete registrations rows affected: %w", err)
	}
	return int(rows), nil
}

func marshalExtra(extra map[string]string) (any, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return nil, fmt.Errorf("marshal extra data: %w", err)
	}
	return raw, nil
}

type registrationRow interface {
	Scan(dest ...any) error
}

func scanRegistration(row registrationRow) (*models.Registration, error) {
	var reg models.Registration
	var rawID, rawAccount, rawEvent uuid.UUID
	var extra []byte
	var cancelledAt sql.NullTime
	var cancelReason sql.NullString
	if err := row.Scan(&rawID, &rawAccount, &rawEvent, &extra, &reg.RegisteredAt, &cancelledAt, &cancelReason); err != nil {
		return nil, err
	}
	reg.ID = id.RegistrationID(rawID)
	reg.AccountID = id.AccountID(rawAccount)
	reg.EventID = id.EventID(rawEvent)
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &reg.Extra); err != nil {
			return nil, fmt.Errorf("unmarshal extra data: %w", err)
		}
	}
	if cancelledAt.Valid {
		reg.CancelledAt = &cancelledAt.Time
	}
	if cancelReason.Valid {
		reg.CancelReason = cancelReason.String
	}
	return &reg, nil
}
