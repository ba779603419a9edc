package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
)

// PostgresStore reads events from PostgreSQL. The engine never updates
// event rows; organizers own them.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, event *models.Event) error {
	var capacity any
	if event.Capacity != nil {
		capacity = *event.Capacity
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, status, starts_at, ends_at, deadline, capacity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(event.ID), event.Title, string(event.Status),
		event.StartsAt, event.EndsAt, event.Deadline, capacity, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	var event models.Event
	var rawID uuid.UUID
	var status string
	var endsAt sql.NullTime
	var capacity sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, status, starts_at, ends_at, deadline, capacity, created_at
		FROM events
		WHERE id = $1
	`, uuid.UUID(eventID)).Scan(
		&rawID, &event.Title, &status, &event.StartsAt, &endsAt,
		&event.Deadline, &capacity, &event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	event.ID = id.EventID(rawID)
	event.Status = models.EventStatus(status)
	if endsAt.Valid {
		event.EndsAt = &endsAt.Time
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		event.Capacity = &c
	}
	return &event, nil
}

// CountPastDeadline counts events whose registration deadline has passed.
func (s *PostgresStore) CountPastDeadline(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE deadline < $1`, now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events past deadline: %w", err)
	}
	return count, nil
}
