package shared

import "context"

// Reconciler rebuilds all derived financial state from the transaction log.
// Module services call it after every mutation that can move money or
// change item linkage; the ledger package provides the implementation.
// Injected as an interface to keep module packages free of a dependency
// on the ledger package.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}
