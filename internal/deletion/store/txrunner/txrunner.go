// Package txrunner provides the atomic-unit boundary for the deletion
// flows. Schedule and Erase mutate several tables owned by different store
// packages; the runner guarantees those mutations land together or not at
// all.
package txrunner

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "convene/pkg/domain-errors"
	txcontext "convene/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Postgres runs the unit inside one database transaction. The transaction
// is carried through the context; every tx-aware store picks it up instead
// of its own connection.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (r *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// Snapshotter is implemented by the in-memory stores: it captures current
// state and returns a closure that restores it.
type Snapshotter interface {
	Snapshot() func()
}

// InMemory approximates a transaction over in-memory stores with a coarse
// lock and copy-on-write rollback: state of every participating store is
// snapshotted up front and restored when the unit fails. Unit tests use it
// to exercise the services' all-or-nothing behavior without a database.
type InMemory struct {
	mu     sync.Mutex
	stores []Snapshotter
}

func NewInMemory(stores ...Snapshotter) *InMemory {
	return &InMemory{stores: stores}
}

func (r *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	restores := make([]func(), 0, len(r.stores))
	for _, store := range r.stores {
		restores = append(restores, store.Snapshot())
	}

	if err := fn(ctx); err != nil {
		// Restore in reverse so interdependent stores unwind cleanly.
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}
