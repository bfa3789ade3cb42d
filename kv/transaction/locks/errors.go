package locks

import (
	"fmt"
	"strings"
	"time"
)

// ErrDeadlock is returned when a lock request would close a cycle in the
// wait-for graph. The requester whose edge closes the cycle is the victim;
// the other transactions in the cycle keep waiting.
type ErrDeadlock struct {
	// Cycle is the ordered wait chain starting at the victim: each entry
	// says which transaction waits for which, and on what key.
	Cycle []WaitForEntry
}

func (e *ErrDeadlock) Error() string {
	var b strings.Builder
	b.WriteString("deadlock detected [")
	for i, entry := range e.Cycle {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "txn %d waits for txn %d on key %d", entry.Txn, entry.WaitForTxn, entry.Key)
	}
	b.WriteString("]")
	return b.String()
}

// ErrLockTimeout is returned when a lock request's timeout elapses with no
// deadlock cycle found. Most callers treat it like a deadlock: abort the
// transaction.
type ErrLockTimeout struct {
	TxnID   uint64
	Key     uint64
	Timeout time.Duration
}

func (e *ErrLockTimeout) Error() string {
	return fmt.Sprintf("lock wait timeout after %v, txn: %d, key: %d", e.Timeout, e.TxnID, e.Key)
}
