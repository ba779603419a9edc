package audit

import (
	"context"

	id "convene/pkg/domain"
)

// Store is the append-only sink for audit events.
//
// Append participates in any transaction carried by ctx (pkg/platform/tx)
// so compliance events commit or roll back together with the mutation they
// describe.
//
// DetachAccount nulls the account reference on every existing row for the
// account and returns how many rows were touched. Rows are never deleted:
// what happened outlives who did it.
type Store interface {
	Append(ctx context.Context, event Event) error
	DetachAccount(ctx context.Context, accountID id.AccountID) (int, error)
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error)
}
