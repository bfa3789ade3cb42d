package occ

import "fmt"

// ErrConflict is returned by Validate when a touched key was committed by
// another transaction since this transaction's snapshot. Always recoverable
// by a full restart; no partial writes are ever visible on this path.
type ErrConflict struct {
	TxnID uint64
	Keys  []uint64
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("optimistic conflict, txn: %d, conflicting keys: %v", e.TxnID, e.Keys)
}
