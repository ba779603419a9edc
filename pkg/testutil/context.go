package testutil

import (
	"context"
	"time"

	"convene/pkg/requestcontext"
)

// ContextAt returns a background context pinned to the given instant.
// Services read the clock via requestcontext.Now, so tests control time by
// building their contexts through this helper.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// ContextAtDate is ContextAt for a bare calendar date in UTC, which is what
// most deadline and retention tests care about.
func ContextAtDate(year int, month time.Month, day int) context.Context {
	return ContextAt(time.Date(year, month, day, 12, 0, 0, 0, time.UTC))
}
