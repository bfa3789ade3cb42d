package transaction

import "fmt"

// ErrTxnFinished is returned by operations on a transaction that already
// reached a terminal state.
type ErrTxnFinished struct {
	ID    uint64
	State State
}

func (e *ErrTxnFinished) Error() string {
	return fmt.Sprintf("txn %d already finished, state: %v", e.ID, e.State)
}

// ErrUnsupportedIsolation is returned by Begin for a mode/isolation
// combination the coordinator does not implement.
type ErrUnsupportedIsolation struct {
	Mode      Mode
	Isolation Isolation
}

func (e *ErrUnsupportedIsolation) Error() string {
	return fmt.Sprintf("unsupported isolation %v for %v transactions", e.Isolation, e.Mode)
}
