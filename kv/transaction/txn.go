package transaction

import (
	"time"

	"github.com/pingcap/errors"
	"github.com/tidwall/btree"

	"github.com/pingcap-incubator/tinytxn/kv/kvstore"
	"github.com/pingcap-incubator/tinytxn/kv/transaction/locks"
	"github.com/pingcap-incubator/tinytxn/kv/transaction/occ"
)

// Mode selects the concurrency-control strategy of a transaction.
type Mode int

const (
	// Pessimistic transactions acquire exclusive locks before touching a
	// key, blocking other transactions on the same key until release.
	Pessimistic Mode = iota
	// Optimistic transactions defer conflict checking to commit time,
	// allowing concurrent progress but requiring restart on conflict.
	Optimistic
)

func (m Mode) String() string {
	switch m {
	case Pessimistic:
		return "pessimistic"
	case Optimistic:
		return "optimistic"
	}
	return "unknown"
}

// Isolation is the isolation level of a transaction. The supported
// combinations are Pessimistic+RepeatableRead and Optimistic+Serializable;
// Begin rejects the rest.
type Isolation int

const (
	// DefaultIsolation picks the mode's natural level at Begin.
	DefaultIsolation Isolation = iota
	RepeatableRead
	Serializable
)

func (i Isolation) String() string {
	switch i {
	case RepeatableRead:
		return "repeatable-read"
	case Serializable:
		return "serializable"
	}
	return "default"
}

// State is the lifecycle state of a transaction. A transaction starts
// Active and ends in exactly one of the terminal states.
type State int

const (
	Active State = iota
	Committed
	RolledBack
	FailedDeadlock
	FailedTimeout
	FailedConflict
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	case FailedDeadlock:
		return "failed-deadlock"
	case FailedTimeout:
		return "failed-timeout"
	case FailedConflict:
		return "failed-conflict"
	}
	return "unknown"
}

// Txn is a single transaction handle. It is driven by one worker goroutine
// and is not safe for concurrent use; all cross-transaction coordination
// happens in the lock manager and the validator.
type Txn struct {
	id        uint64
	mode      Mode
	isolation Isolation
	timeout   time.Duration
	state     State
	startedAt time.Time

	readSet  btree.Set[uint64]
	writeSet btree.Set[uint64]
	// shadow holds this transaction's local copies of records it has read
	// or written. Optimistic mode works entirely on the shadow until
	// commit; it also gives repeatable reads within the transaction.
	shadow map[uint64]kvstore.Record

	c *Coordinator
}

func (t *Txn) ID() uint64           { return t.id }
func (t *Txn) Mode() Mode           { return t.mode }
func (t *Txn) Isolation() Isolation { return t.isolation }
func (t *Txn) State() State         { return t.state }

// Get returns the record under key as seen by this transaction.
//
// Pessimistic mode locks the key before reading, so a value read inside the
// transaction cannot be changed by another transaction until release.
// Optimistic mode records the read in the validator and caches the record in
// the transaction's shadow; it never blocks.
func (t *Txn) Get(key uint64) (kvstore.Record, error) {
	if t.state != Active {
		return kvstore.Record{}, &ErrTxnFinished{ID: t.id, State: t.state}
	}
	switch t.mode {
	case Pessimistic:
		if err := t.acquire(key); err != nil {
			return kvstore.Record{}, err
		}
		rec, err := t.c.store.Get(key)
		if err != nil {
			return kvstore.Record{}, errors.Trace(err)
		}
		t.readSet.Insert(key)
		return rec, nil
	default:
		if rec, ok := t.shadow[key]; ok {
			t.readSet.Insert(key)
			return rec, nil
		}
		t.c.validator.RecordRead(t.id, key)
		rec, err := t.c.store.Get(key)
		if err != nil {
			return kvstore.Record{}, errors.Trace(err)
		}
		t.readSet.Insert(key)
		t.shadow[key] = rec
		return rec, nil
	}
}

// Put writes rec under key within this transaction.
//
// Pessimistic mode acquires the lock (a no-op after a Get of the same key)
// and applies the write to the store immediately; the lock guarantees no
// other transaction can observe it before commit, because readers lock too.
// Optimistic mode only buffers the write in the validator and the shadow.
func (t *Txn) Put(key uint64, rec kvstore.Record) error {
	if t.state != Active {
		return &ErrTxnFinished{ID: t.id, State: t.state}
	}
	switch t.mode {
	case Pessimistic:
		if err := t.acquire(key); err != nil {
			return err
		}
		t.writeSet.Insert(key)
		t.shadow[key] = rec
		t.c.store.Put(key, rec)
		return nil
	default:
		t.c.validator.RecordWrite(t.id, key, rec)
		t.writeSet.Insert(key)
		t.shadow[key] = rec
		return nil
	}
}

// acquire takes the exclusive lock on key and classifies failures into a
// terminal transaction state. Lock failures release everything the
// transaction holds; writes applied before the failure point remain, there
// is no undo log in this layer.
func (t *Txn) acquire(key uint64) error {
	err := t.c.locks.Acquire(t.id, key, t.timeout)
	if err == nil {
		return nil
	}
	switch errors.Cause(err).(type) {
	case *locks.ErrDeadlock:
		t.finish(FailedDeadlock)
	case *locks.ErrLockTimeout:
		t.finish(FailedTimeout)
	}
	t.c.locks.ReleaseAll(t.id)
	return errors.Trace(err)
}

// Commit ends the transaction.
//
// Pessimistic commit: the buffered writes are already visible under their
// locks, so commit stamps the written keys' versions and releases all locks.
// Optimistic commit: runs validation; on success the write set is flushed to
// the store atomically, on conflict the transaction fails with no partial
// writes ever visible.
func (t *Txn) Commit() error {
	if t.state != Active {
		return &ErrTxnFinished{ID: t.id, State: t.state}
	}
	switch t.mode {
	case Pessimistic:
		written := setKeys(&t.writeSet)
		t.c.validator.BumpVersions(written)
		t.c.locks.ReleaseAll(t.id)
		t.finish(Committed)
		return nil
	default:
		if err := t.c.validator.Validate(t.id); err != nil {
			t.shadow = nil
			t.finish(FailedConflict)
			return errors.Trace(err)
		}
		t.finish(Committed)
		return nil
	}
}

// Rollback abandons an active transaction. Pessimistic rollback releases the
// locks but keeps writes already applied (documented limitation of this
// layer); optimistic rollback discards the shadow state with no visible
// effect.
func (t *Txn) Rollback() error {
	if t.state != Active {
		return &ErrTxnFinished{ID: t.id, State: t.state}
	}
	switch t.mode {
	case Pessimistic:
		t.c.locks.ReleaseAll(t.id)
	default:
		t.c.validator.Discard(t.id)
		t.shadow = nil
	}
	t.finish(RolledBack)
	return nil
}

func (t *Txn) finish(state State) {
	t.state = state
	txnCounter.WithLabelValues(state.String()).Inc()
	txnDuration.WithLabelValues(state.String()).Observe(time.Since(t.startedAt).Seconds())
}

func setKeys(set *btree.Set[uint64]) []uint64 {
	keys := make([]uint64, 0, set.Len())
	set.Scan(func(key uint64) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// ErrConflict reports whether err is an optimistic validation conflict,
// meaning the transaction can be retried from scratch.
func ErrConflict(err error) bool {
	_, ok := errors.Cause(err).(*occ.ErrConflict)
	return ok
}

// ErrLockFailure reports whether err is a pessimistic deadlock or lock
// timeout, meaning the transaction was aborted with its locks released.
func ErrLockFailure(err error) bool {
	switch errors.Cause(err).(type) {
	case *locks.ErrDeadlock, *locks.ErrLockTimeout:
		return true
	}
	return false
}
