package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convene/internal/registration/models"
	id "convene/pkg/domain"
	"convene/pkg/platform/sentinel"
)

func newEvent(deadline time.Time) *models.Event {
	return &models.Event{
		ID:       id.NewEventID(),
		Title:    "Fixture",
		Status:   models.EventStatusOpen,
		StartsAt: deadline.Add(24 * time.Hour),
		Deadline: deadline,
	}
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	ev := newEvent(time.Now())

	require.NoError(t, store.Create(ctx, ev))

	found, err := store.FindByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.Title, found.Title)

	require.ErrorIs(t, store.Create(ctx, ev), sentinel.ErrConflict)

	_, err = store.FindByID(ctx, id.NewEventID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestCountPastDeadline(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, newEvent(now.Add(-48*time.Hour))))
	require.NoError(t, store.Create(ctx, newEvent(now.Add(-time.Second))))
	require.NoError(t, store.Create(ctx, newEvent(now))) // at the deadline, not past it
	require.NoError(t, store.Create(ctx, newEvent(now.Add(72*time.Hour))))

	count, err := store.CountPastDeadline(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
