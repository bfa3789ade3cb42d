package kvstore

import (
	"sync"

	"github.com/petar/GoLLRB/llrb"
)

// Store is a simple in-memory ordered key/value store mapping keys to
// Records. It has no transactional semantics of its own: Get and Put are
// individually atomic and safe for concurrent use, but multi-key isolation
// comes entirely from the transaction layer on top.
type Store struct {
	mu   sync.RWMutex
	tree *llrb.LLRB
}

type storeItem struct {
	key uint64
	rec Record
}

func (it storeItem) Less(than llrb.Item) bool {
	return it.key < than.(storeItem).key
}

func New() *Store {
	return &Store{tree: llrb.New()}
}

// Get returns a copy of the record stored under key, or ErrKeyNotFound.
func (s *Store) Get(key uint64) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item := s.tree.Get(storeItem{key: key})
	if item == nil {
		return Record{}, &ErrKeyNotFound{Key: key}
	}
	return item.(storeItem).rec, nil
}

// Put stores a copy of rec under key, replacing any previous record.
func (s *Store) Put(key uint64, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(storeItem{key: key, rec: rec})
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Snapshot returns a copy of every record in ascending key order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]Record, 0, s.tree.Len())
	s.tree.AscendGreaterOrEqual(storeItem{key: 0}, func(item llrb.Item) bool {
		recs = append(recs, item.(storeItem).rec)
		return true
	})
	return recs
}
