package occ

import (
	"sort"
	"sync"

	"github.com/ngaut/log"

	"github.com/pingcap-incubator/tinytxn/kv/kvstore"
)

// Validator implements commit-time conflict detection for optimistic
// transactions. It owns a per-key last-committed-version table and a
// monotonically increasing commit counter, both shared by every transaction
// attached to it. Reads and writes never touch the store before validation;
// Validate is the serialization point.
//
// A Validator is an injectable state object: one per coordinator, several
// independent instances in tests.
type Validator struct {
	mu sync.Mutex
	// versions holds the commit version of the last committed write per
	// key. Absent keys are at version 0.
	versions   map[uint64]uint64
	commitVer  uint64
	footprints map[uint64]*footprint
	store      *kvstore.Store
}

// footprint is the transaction-local view the validator keeps per attached
// transaction: version snapshots taken on first touch, and buffered writes.
type footprint struct {
	snapshots map[uint64]uint64
	writes    map[uint64]kvstore.Record
}

func NewValidator(store *kvstore.Store) *Validator {
	return &Validator{
		versions:   map[uint64]uint64{},
		footprints: map[uint64]*footprint{},
		store:      store,
	}
}

// Attach registers a footprint for txnID. Called at transaction begin; a
// restarted transaction attaches again with a fresh id.
func (v *Validator) Attach(txnID uint64) {
	v.mu.Lock()
	v.footprints[txnID] = &footprint{
		snapshots: map[uint64]uint64{},
		writes:    map[uint64]kvstore.Record{},
	}
	v.mu.Unlock()
}

// RecordRead snapshots the key's current version on first touch. A key
// absent from the version table snapshots at version 0, so a later insert of
// that key is a detectable conflict.
func (v *Validator) RecordRead(txnID, key uint64) {
	v.mu.Lock()
	v.snapshotLocked(txnID, key)
	v.mu.Unlock()
}

// RecordWrite snapshots the key on first touch and buffers the pending value
// in the footprint. Nothing reaches the store until Validate succeeds.
func (v *Validator) RecordWrite(txnID, key uint64, rec kvstore.Record) {
	v.mu.Lock()
	v.snapshotLocked(txnID, key)
	if fp := v.footprints[txnID]; fp != nil {
		fp.writes[key] = rec
	}
	v.mu.Unlock()
}

func (v *Validator) snapshotLocked(txnID, key uint64) {
	fp := v.footprints[txnID]
	if fp == nil {
		return
	}
	if _, touched := fp.snapshots[key]; !touched {
		fp.snapshots[key] = v.versions[key]
	}
}

// Validate atomically checks every key the transaction touched against its
// snapshot version and, on success, flushes the buffered writes to the store
// as a single unit under a new commit version. On conflict nothing is
// mutated and ErrConflict lists the stale keys. The footprint is dropped
// either way: after a conflict the stale read set makes resuming unsafe, so
// the caller must re-execute the transaction from scratch.
func (v *Validator) Validate(txnID uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	fp := v.footprints[txnID]
	if fp == nil {
		return nil
	}
	delete(v.footprints, txnID)

	var stale []uint64
	for key, snapVer := range fp.snapshots {
		if v.versions[key] != snapVer {
			stale = append(stale, key)
		}
	}
	if len(stale) > 0 {
		sort.Slice(stale, func(i, j int) bool { return stale[i] < stale[j] })
		log.Infof("optimistic conflict, txn %d, stale keys %v", txnID, stale)
		return &ErrConflict{TxnID: txnID, Keys: stale}
	}

	v.commitVer++
	for key, rec := range fp.writes {
		v.store.Put(key, rec)
		v.versions[key] = v.commitVer
	}
	return nil
}

// Discard drops the footprint without validating. Rollback path; nothing
// was ever applied, so there is no visible effect.
func (v *Validator) Discard(txnID uint64) {
	v.mu.Lock()
	delete(v.footprints, txnID)
	v.mu.Unlock()
}

// BumpVersions advances the commit counter and stamps the given keys with
// it. Pessimistic commits call this so a concurrently running optimistic
// transaction cannot validate a stale read of a lock-protected write.
func (v *Validator) BumpVersions(keys []uint64) {
	if len(keys) == 0 {
		return
	}
	v.mu.Lock()
	v.commitVer++
	for _, key := range keys {
		v.versions[key] = v.commitVer
	}
	v.mu.Unlock()
}
