package kvstore

import "fmt"

// Record is an account-like entity and the unit of contention between
// transactions. Records are always copied across the store boundary; two
// transactions never observe the same Record value by reference.
type Record struct {
	ID      uint64
	Balance float64
}

// NewRecord creates a record with the given id and starting balance.
func NewRecord(id uint64, balance float64) Record {
	return Record{ID: id, Balance: balance}
}

// Update adds amount to the record's balance. Amount may be negative.
func (r *Record) Update(amount float64) {
	r.Balance += amount
}

func (r Record) String() string {
	return fmt.Sprintf("Record [id=%d, balance=$%v]", r.ID, r.Balance)
}
