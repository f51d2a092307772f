package shared

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// BookLockKey is the advisory lock key serialising writers of the trading
// book. Every mutating transaction takes it before touching ledger state so
// that two reconciliation passes never interleave.
const BookLockKey int64 = 0x4d414e4449 // "MANDI"

// AcquireBookLock blocks until the global book lock is held by the given
// transaction. The lock is released automatically at commit or rollback.
func AcquireBookLock(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, BookLockKey)
	return err
}
