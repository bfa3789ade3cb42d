package transaction

import (
	"sync/atomic"
	"time"

	"github.com/ngaut/log"

	"github.com/pingcap-incubator/tinytxn/kv/kvstore"
	"github.com/pingcap-incubator/tinytxn/kv/transaction/locks"
	"github.com/pingcap-incubator/tinytxn/kv/transaction/occ"
)

// Coordinator orchestrates transaction lifecycles over a shared store. It
// owns the lock manager used by pessimistic transactions and the validator
// used by optimistic ones; every Txn it begins routes its reads and writes
// through one of the two.
type Coordinator struct {
	store     *kvstore.Store
	locks     *locks.Manager
	validator *occ.Validator
	idAlloc   uint64
}

func NewCoordinator(store *kvstore.Store) *Coordinator {
	return &Coordinator{
		store:     store,
		locks:     locks.NewManager(),
		validator: occ.NewValidator(store),
	}
}

func (c *Coordinator) Store() *kvstore.Store { return c.store }

// Begin starts a transaction in the given mode. Pessimistic transactions
// run at RepeatableRead with a lock-wait timeout; optimistic transactions
// run at Serializable and ignore the timeout (they never block). Passing
// DefaultIsolation picks the mode's level; any other combination is
// rejected.
func (c *Coordinator) Begin(mode Mode, isolation Isolation, timeout time.Duration) (*Txn, error) {
	switch {
	case mode == Pessimistic && isolation == DefaultIsolation:
		isolation = RepeatableRead
	case mode == Optimistic && isolation == DefaultIsolation:
		isolation = Serializable
	case mode == Pessimistic && isolation == RepeatableRead:
	case mode == Optimistic && isolation == Serializable:
	default:
		return nil, &ErrUnsupportedIsolation{Mode: mode, Isolation: isolation}
	}

	txn := &Txn{
		id:        atomic.AddUint64(&c.idAlloc, 1),
		mode:      mode,
		isolation: isolation,
		timeout:   timeout,
		state:     Active,
		startedAt: time.Now(),
		shadow:    map[uint64]kvstore.Record{},
		c:         c,
	}
	if mode == Optimistic {
		c.validator.Attach(txn.id)
	}
	log.Debugf("begin txn %d, mode=%v, isolation=%v, timeout=%v", txn.id, mode, isolation, timeout)
	return txn, nil
}

// BeginPessimistic starts a RepeatableRead pessimistic transaction whose
// lock acquisitions wait at most timeout.
func (c *Coordinator) BeginPessimistic(timeout time.Duration) (*Txn, error) {
	return c.Begin(Pessimistic, RepeatableRead, timeout)
}

// BeginOptimistic starts a Serializable optimistic transaction.
func (c *Coordinator) BeginOptimistic() (*Txn, error) {
	return c.Begin(Optimistic, Serializable, 0)
}

// LockedKeys returns the keys txn currently holds locks on, ascending.
// Exposed for tests and diagnostics.
func (c *Coordinator) LockedKeys(txn *Txn) []uint64 {
	return c.locks.HeldKeys(txn.id)
}
