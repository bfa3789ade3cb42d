package locks

import (
	"sync"
	"time"

	"github.com/ngaut/log"
	"github.com/tidwall/btree"

	"github.com/pingcap-incubator/tinytxn/kv/util/lockwaiter"
)

// Manager is a per-key exclusive lock table with bounded blocking waits and
// wait-for-graph deadlock detection. There is one Manager per coordinator,
// shared between all transactions; it is not a process-wide singleton so
// tests can run several independent instances.
//
// All lock table state is guarded by a single mutex. Parking and wakeup of
// blocked transactions is delegated to a lockwaiter.Manager; Acquire is the
// only call in the transaction layer that blocks.
type Manager struct {
	mu sync.Mutex
	// holders maps each locked key to the transaction holding it.
	holders map[uint64]uint64
	// held maps each transaction to the ordered set of keys it holds.
	held    map[uint64]*btree.Set[uint64]
	graph   *waitForGraph
	waiters *lockwaiter.Manager
}

func NewManager() *Manager {
	return &Manager{
		holders: map[uint64]uint64{},
		held:    map[uint64]*btree.Set[uint64]{},
		graph:   newWaitForGraph(),
		waiters: lockwaiter.NewManager(),
	}
}

// Acquire blocks until txnID holds the exclusive lock on key, the timeout
// elapses, or the wait would close a deadlock cycle.
//
// Re-acquiring a key the transaction already holds is a no-op and never
// contributes a wait-for edge. On ErrDeadlock the failing transaction is the
// victim: its wait-for edge is removed and the rest of the cycle keeps
// waiting. The timeout budget covers the whole call, including retries after
// a wakeup loses the race to another waiter.
func (m *Manager) Acquire(txnID, key uint64, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	start := time.Now()
	for {
		m.mu.Lock()
		holder, locked := m.holders[key]
		if !locked || holder == txnID {
			m.grantLocked(txnID, key)
			m.mu.Unlock()
			lockWaitDuration.Observe(time.Since(start).Seconds())
			return nil
		}

		m.graph.addEdge(txnID, holder, key)
		if cycle := m.graph.findCycle(txnID); cycle != nil {
			m.graph.removeEdge(txnID)
			m.mu.Unlock()
			deadlockCounter.Inc()
			log.Warnf("deadlock detected, victim txn %d waiting for txn %d on key %d", txnID, holder, key)
			return &ErrDeadlock{Cycle: cycle}
		}

		remain := time.Until(deadline)
		if remain <= 0 {
			m.graph.removeEdge(txnID)
			m.mu.Unlock()
			lockTimeoutCounter.Inc()
			return &ErrLockTimeout{TxnID: txnID, Key: key, Timeout: timeout}
		}
		waiter := m.waiters.NewWaiter(txnID, holder, key, remain)
		m.mu.Unlock()

		result := waiter.Wait()

		m.mu.Lock()
		m.graph.removeEdge(txnID)
		m.mu.Unlock()
		if !result.WokenUp {
			m.waiters.CleanUp(waiter)
			lockTimeoutCounter.Inc()
			return &ErrLockTimeout{TxnID: txnID, Key: key, Timeout: timeout}
		}
		// Woken up, not granted: the key may have been taken by another
		// waiter already, so retry with the remaining budget.
	}
}

// grantLocked records txnID as the holder of key. Caller holds m.mu.
func (m *Manager) grantLocked(txnID, key uint64) {
	m.holders[key] = txnID
	set := m.held[txnID]
	if set == nil {
		set = &btree.Set[uint64]{}
		m.held[txnID] = set
	}
	set.Insert(key)
}

// Release frees a single key held by txnID and wakes waiters blocked on it.
func (m *Manager) Release(txnID, key uint64) {
	m.mu.Lock()
	if m.holders[key] != txnID {
		m.mu.Unlock()
		return
	}
	delete(m.holders, key)
	if set := m.held[txnID]; set != nil {
		set.Delete(key)
		if set.Len() == 0 {
			delete(m.held, txnID)
		}
	}
	m.mu.Unlock()
	m.waiters.WakeUp(txnID, []uint64{key})
}

// ReleaseAll frees every key held by txnID, removes all wait-for edges
// originating at or pointing to it, and wakes the affected waiters. Called
// at transaction end, on commit and on rollback alike.
func (m *Manager) ReleaseAll(txnID uint64) {
	m.mu.Lock()
	var keys []uint64
	if set := m.held[txnID]; set != nil {
		keys = make([]uint64, 0, set.Len())
		set.Scan(func(key uint64) bool {
			keys = append(keys, key)
			return true
		})
	}
	for _, key := range keys {
		delete(m.holders, key)
	}
	delete(m.held, txnID)
	m.graph.removeTxn(txnID)
	m.mu.Unlock()
	if len(keys) > 0 {
		m.waiters.WakeUp(txnID, keys)
	}
}

// HeldKeys returns the keys currently locked by txnID in ascending order.
func (m *Manager) HeldKeys(txnID uint64) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.held[txnID]
	if set == nil {
		return nil
	}
	keys := make([]uint64, 0, set.Len())
	set.Scan(func(key uint64) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}
