package lockwaiter

import (
	"sort"
	"sync"
	"time"

	"github.com/ngaut/log"
)

// Manager parks transactions that block on a lock held by another
// transaction and wakes them up when the holder releases. Waiting queues are
// keyed by the holder transaction id.
type Manager struct {
	mu            sync.Mutex
	waitingQueues map[uint64]*queue
}

func NewManager() *Manager {
	return &Manager{
		waitingQueues: map[uint64]*queue{},
	}
}

type queue struct {
	waiters []*Waiter
}

// getReadyWaiters returns the ready waiters array, and left waiter size in this queue,
// it should be used under map lock protection
func (q *queue) getReadyWaiters(keys []uint64) (readyWaiters []*Waiter, remainSize int) {
	readyWaiters = make([]*Waiter, 0, 8)
	remainedWaiters := q.waiters[:0]
	for _, w := range q.waiters {
		if w.inKeys(keys) {
			readyWaiters = append(readyWaiters, w)
		} else {
			remainedWaiters = append(remainedWaiters, w)
		}
	}
	remainSize = len(remainedWaiters)
	q.waiters = remainedWaiters
	return
}

// removeWaiter removes the correspond waiter from pending array
// it should be used under map lock protection
func (q *queue) removeWaiter(w *Waiter) {
	for i, waiter := range q.waiters {
		if waiter == w {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			break
		}
	}
}

type Waiter struct {
	timeout  time.Duration
	ch       chan WaitResult
	txnID    uint64
	HolderID uint64
	Key      uint64
}

// WaitResult tells a woken waiter why it was released. WokenUp false means
// the timeout elapsed first. A woken waiter is not granted the lock, it must
// retry acquisition.
type WaitResult struct {
	WokenUp bool
}

// Wait blocks until the waiter is woken by the holder's release or the
// timeout elapses.
func (w *Waiter) Wait() WaitResult {
	select {
	case <-time.After(w.timeout):
		return WaitResult{WokenUp: false}
	case result := <-w.ch:
		return result
	}
}

func (w *Waiter) inKeys(keys []uint64) bool {
	idx := sort.Search(len(keys), func(i int) bool {
		return keys[i] >= w.Key
	})
	if idx == len(keys) {
		return false
	}
	return keys[idx] == w.Key
}

// NewWaiter registers a waiter blocked on holderID for key. The caller then
// blocks in Wait.
func (lw *Manager) NewWaiter(txnID, holderID, key uint64, timeout time.Duration) *Waiter {
	// allocate memory before hold the lock.
	q := new(queue)
	q.waiters = make([]*Waiter, 0, 8)
	waiter := &Waiter{
		timeout:  timeout,
		ch:       make(chan WaitResult, 1),
		txnID:    txnID,
		HolderID: holderID,
		Key:      key,
	}
	q.waiters = append(q.waiters, waiter)
	lw.mu.Lock()
	if old, ok := lw.waitingQueues[holderID]; ok {
		old.waiters = append(old.waiters, waiter)
	} else {
		lw.waitingQueues[holderID] = q
	}
	lw.mu.Unlock()
	return waiter
}

// WakeUp wakes up every waiter parked on holderID whose key is in keys.
func (lw *Manager) WakeUp(holderID uint64, keys []uint64) {
	var (
		waiters    []*Waiter
		remainSize int
	)
	lw.mu.Lock()
	q := lw.waitingQueues[holderID]
	if q != nil {
		sort.Slice(keys, func(i, j int) bool {
			return keys[i] < keys[j]
		})
		waiters, remainSize = q.getReadyWaiters(keys)
		if remainSize == 0 {
			delete(lw.waitingQueues, holderID)
		}
	}
	lw.mu.Unlock()

	// wake up waiters
	if len(waiters) > 0 {
		for _, w := range waiters {
			w.ch <- WaitResult{WokenUp: true}
		}
		log.Debugf("wakeup %d txns blocked by txn %d, keys=%v", len(waiters), holderID, keys)
	}
}

// CleanUp removes a waiter from waitingQueues when wait timeout.
func (lw *Manager) CleanUp(w *Waiter) {
	lw.mu.Lock()
	q := lw.waitingQueues[w.HolderID]
	if q != nil {
		q.removeWaiter(w)
		if len(q.waiters) == 0 {
			delete(lw.waitingQueues, w.HolderID)
		}
	}
	lw.mu.Unlock()
}
