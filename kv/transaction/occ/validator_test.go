package occ

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pingcap-incubator/tinytxn/kv/kvstore"
)

func newStore(keys ...uint64) *kvstore.Store {
	store := kvstore.New()
	for _, key := range keys {
		store.Put(key, kvstore.NewRecord(key, float64(key)*100))
	}
	return store
}

func TestValidateDisjointKeys(t *testing.T) {
	store := newStore(1, 2)
	v := NewValidator(store)

	v.Attach(1)
	v.Attach(2)
	v.RecordRead(1, 1)
	v.RecordWrite(1, 1, kvstore.NewRecord(1, 150))
	v.RecordRead(2, 2)
	v.RecordWrite(2, 2, kvstore.NewRecord(2, 250))

	require.NoError(t, v.Validate(1))
	require.NoError(t, v.Validate(2))

	rec, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 150.0, rec.Balance)
	rec, err = store.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 250.0, rec.Balance)
}

func TestValidateConflict(t *testing.T) {
	store := newStore(1)
	v := NewValidator(store)

	v.Attach(1)
	v.Attach(2)
	v.RecordRead(1, 1)
	v.RecordRead(2, 1)
	v.RecordWrite(1, 1, kvstore.NewRecord(1, 150))
	v.RecordWrite(2, 1, kvstore.NewRecord(2, 175))

	require.NoError(t, v.Validate(1))

	before := store.Snapshot()
	err := v.Validate(2)
	conflict, ok := err.(*ErrConflict)
	require.True(t, ok)
	assert.Equal(t, uint64(2), conflict.TxnID)
	assert.Equal(t, []uint64{1}, conflict.Keys)

	// A failed validation applies nothing.
	assert.Equal(t, before, store.Snapshot())
}

func TestConflictOnReadOnlyKey(t *testing.T) {
	store := newStore(1, 2)
	v := NewValidator(store)

	// Txn 1 reads key 1 and writes key 2; txn 2 commits a write to key 1
	// in between. The stale read alone must fail txn 1.
	v.Attach(1)
	v.RecordRead(1, 1)
	v.RecordWrite(1, 2, kvstore.NewRecord(2, 275))

	v.Attach(2)
	v.RecordWrite(2, 1, kvstore.NewRecord(1, 999))
	require.NoError(t, v.Validate(2))

	err := v.Validate(1)
	require.IsType(t, &ErrConflict{}, err)
	rec, getErr := store.Get(2)
	require.NoError(t, getErr)
	assert.Equal(t, 200.0, rec.Balance)
}

func TestAbsentKeySnapshotsZeroVersion(t *testing.T) {
	store := newStore()
	v := NewValidator(store)

	// Txn 1 reads an absent key; txn 2 then inserts it and commits. Txn 1
	// must see a conflict, not a silent lost insert.
	v.Attach(1)
	v.RecordRead(1, 5)
	v.RecordWrite(1, 5, kvstore.NewRecord(5, 1))

	v.Attach(2)
	v.RecordWrite(2, 5, kvstore.NewRecord(5, 2))
	require.NoError(t, v.Validate(2))

	err := v.Validate(1)
	require.IsType(t, &ErrConflict{}, err)
}

func TestDiscardAppliesNothing(t *testing.T) {
	store := newStore(1)
	v := NewValidator(store)

	v.Attach(1)
	v.RecordWrite(1, 1, kvstore.NewRecord(1, 500))
	before := store.Snapshot()
	v.Discard(1)
	assert.Equal(t, before, store.Snapshot())

	// Discard dropped the footprint, so a later validate is a no-op too.
	require.NoError(t, v.Validate(1))
	assert.Equal(t, before, store.Snapshot())
}

func TestRestartAfterConflictSucceeds(t *testing.T) {
	store := newStore(1)
	v := NewValidator(store)

	v.Attach(1)
	v.RecordRead(1, 1)
	v.RecordWrite(1, 1, kvstore.NewRecord(1, 150))

	v.Attach(2)
	v.RecordWrite(2, 1, kvstore.NewRecord(1, 111))
	require.NoError(t, v.Validate(2))
	require.IsType(t, &ErrConflict{}, v.Validate(1))

	// A fresh attempt re-reads the committed state and validates cleanly.
	v.Attach(3)
	v.RecordRead(3, 1)
	rec, err := store.Get(1)
	require.NoError(t, err)
	rec.Update(50)
	v.RecordWrite(3, 1, rec)
	require.NoError(t, v.Validate(3))

	rec, err = store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 161.0, rec.Balance)
}

func TestBumpVersionsInvalidatesSnapshots(t *testing.T) {
	store := newStore(1)
	v := NewValidator(store)

	v.Attach(1)
	v.RecordRead(1, 1)

	// A pessimistic commit stamps the key; the optimistic snapshot is now
	// stale.
	v.BumpVersions([]uint64{1})
	err := v.Validate(1)
	require.IsType(t, &ErrConflict{}, err)
}
