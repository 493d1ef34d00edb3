// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces, not on pgx directly, so
// every ledger write can be expressed as one atomic unit of work.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and reuse of an
// in-flight transaction on nested calls.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context, so a
	// business flow can compose several ledger writes atomically.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SnapshotManager extends Manager with snapshot-isolated execution.
// The reconciliation engine folds full ledger histories and must not
// observe concurrent approvals mid-run.
type SnapshotManager interface {
	Manager

	// RunInSnapshot executes fn under repeatable-read isolation.
	RunInSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}
