package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPut(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Len())

	_, err := s.Get(1)
	notFound, ok := err.(*ErrKeyNotFound)
	require.True(t, ok)
	assert.Equal(t, uint64(1), notFound.Key)

	s.Put(1, NewRecord(1, 100))
	rec, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.ID)
	assert.Equal(t, 100.0, rec.Balance)

	// Replacing is in place, not an insert.
	s.Put(1, NewRecord(1, 250))
	rec, err = s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 250.0, rec.Balance)
	assert.Equal(t, 1, s.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	s.Put(7, NewRecord(7, 700))

	rec, err := s.Get(7)
	require.NoError(t, err)
	rec.Update(50)

	// The stored record must be unaffected by mutating the returned copy.
	stored, err := s.Get(7)
	require.NoError(t, err)
	assert.Equal(t, 700.0, stored.Balance)
}

func TestSnapshotAscending(t *testing.T) {
	s := New()
	for _, key := range []uint64{5, 1, 3, 2, 4} {
		s.Put(key, NewRecord(key, float64(key)*100))
	}

	snap := s.Snapshot()
	require.Len(t, snap, 5)
	for i, rec := range snap {
		assert.Equal(t, uint64(i+1), rec.ID)
		assert.Equal(t, float64(i+1)*100, rec.Balance)
	}
}

func TestRecordString(t *testing.T) {
	rec := NewRecord(3, 300)
	assert.Equal(t, "Record [id=3, balance=$300]", rec.String())
}
