package workload

import (
	"time"

	"github.com/ngaut/log"
	"github.com/pingcap/errors"

	"github.com/pingcap-incubator/tinytxn/kv/transaction"
)

// Order is the key sweep direction of a worker. Running two workers in
// opposite orders over the same keys is the canonical way to provoke
// write-write conflicts.
type Order int

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	if o == Descending {
		return "descending"
	}
	return "ascending"
}

// Worker runs a fixed deposit sweep over keys [1..KeyCount] inside one
// transaction: Get, Update(Amount), Put per key, with a deliberate pause
// between keys and another before commit to widen the contention window.
type Worker struct {
	Name        string
	Coordinator *transaction.Coordinator
	Mode        transaction.Mode
	KeyCount    int
	Amount      float64
	Order       Order
	// Timeout bounds each lock wait of a pessimistic transaction.
	Timeout     time.Duration
	UpdatePause time.Duration
	CommitPause time.Duration
	// MaxRetries bounds optimistic restarts; 0 means retry until commit.
	MaxRetries int
}

// Result describes the outcome of a worker run.
type Result struct {
	Name     string
	Attempts int
	State    transaction.State
}

// Run executes the deposit sweep. A pessimistic worker makes a single
// attempt and reports lock failures to the caller. An optimistic worker
// restarts the whole transaction body on conflict until it commits or the
// retry budget runs out. The returned Result is always non-nil.
func (w *Worker) Run() (*Result, error) {
	res := &Result{Name: w.Name}
	for {
		res.Attempts++
		state, err := w.runAttempt()
		res.State = state
		if err == nil {
			log.Infof("worker %s committed after %d attempt(s)", w.Name, res.Attempts)
			return res, nil
		}
		if w.Mode == transaction.Optimistic && transaction.ErrConflict(err) {
			if w.MaxRetries > 0 && res.Attempts > w.MaxRetries {
				log.Warnf("worker %s gave up after %d attempts: %v", w.Name, res.Attempts, err)
				return res, errors.Trace(err)
			}
			log.Infof("worker %s restarting after conflict: %v", w.Name, err)
			continue
		}
		log.Warnf("worker %s failed: %v", w.Name, err)
		return res, errors.Trace(err)
	}
}

// runAttempt executes one full transaction body and returns the terminal
// state the transaction reached.
func (w *Worker) runAttempt() (transaction.State, error) {
	var (
		txn *transaction.Txn
		err error
	)
	if w.Mode == transaction.Pessimistic {
		txn, err = w.Coordinator.BeginPessimistic(w.Timeout)
	} else {
		txn, err = w.Coordinator.BeginOptimistic()
	}
	if err != nil {
		return transaction.Active, errors.Trace(err)
	}

	for _, key := range w.sweep() {
		rec, err := txn.Get(key)
		if err != nil {
			return w.abort(txn, err)
		}
		rec.Update(w.Amount)
		if err := txn.Put(key, rec); err != nil {
			return w.abort(txn, err)
		}
		if w.UpdatePause > 0 {
			time.Sleep(w.UpdatePause)
		}
	}

	if w.CommitPause > 0 {
		time.Sleep(w.CommitPause)
	}
	if err := txn.Commit(); err != nil {
		return txn.State(), errors.Trace(err)
	}
	return txn.State(), nil
}

// abort rolls the transaction back if the failure left it active. Lock
// failures already moved it to a terminal state with its locks released.
func (w *Worker) abort(txn *transaction.Txn, err error) (transaction.State, error) {
	if txn.State() == transaction.Active {
		if rbErr := txn.Rollback(); rbErr != nil {
			log.Errorf("rollback of txn %d failed: %v", txn.ID(), rbErr)
		}
	}
	return txn.State(), errors.Trace(err)
}

func (w *Worker) sweep() []uint64 {
	keys := make([]uint64, 0, w.KeyCount)
	if w.Order == Descending {
		for k := uint64(w.KeyCount); k >= 1; k-- {
			keys = append(keys, k)
		}
	} else {
		for k := uint64(1); k <= uint64(w.KeyCount); k++ {
			keys = append(keys, k)
		}
	}
	return keys
}
