package transaction

// The transaction package implements tinytxn's concurrency-control layer. It takes reads and writes issued by worker
// goroutines and turns them into operations on the underlying key/value store (kvstore.Store), ensuring that concurrent
// multi-key transactions do not interfere: every update either commits in full, fails with an explicit conflict signal,
// or leaves no trace.
//
// Two competing strategies are implemented behind the same Txn handle:
//
// *Pessimistic* transactions acquire a per-key exclusive lock before every read and write. Lock waits are bounded by a
// timeout, and each wait records an edge in a wait-for graph; a request that would close a cycle in that graph fails
// immediately with the detected deadlock instead of waiting the timeout out. See the locks package for details.
//
// *Optimistic* transactions never block. Reads and writes are recorded against a transaction-local shadow copy plus a
// read/write footprint in the validator, and nothing touches the shared store until commit. At commit the validator
// checks, in one mutually exclusive step, that no touched key was committed by another transaction since it was first
// read; on success the write set is flushed as a unit, on conflict the caller restarts the whole transaction from
// scratch. See the occ package.
//
// The Coordinator ties the two together: it allocates transaction ids, routes each Txn's operations by mode, and maps
// lock-manager and validator failures onto the transaction's terminal states (FailedDeadlock, FailedTimeout,
// FailedConflict). A Txn is driven by a single goroutine; the lock table, the wait-for graph, and the version table are
// the only state shared between transactions.
