package kvstore

import "fmt"

// ErrKeyNotFound is returned by Get for an absent key. It is fatal to the
// current transaction attempt; the caller should roll back.
type ErrKeyNotFound struct {
	Key uint64
}

func (e *ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key not found, key: %d", e.Key)
}
