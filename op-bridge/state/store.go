// Package state provides the transactional key/value store the bridge keeps
// its long-lived state in: balances, pause flag, token registration, outbound
// nonce and the external validator set.
package state

import "errors"

var (
	ErrClosed   = errors.New("state: store closed")
	ErrReadOnly = errors.New("state: write in read-only view")
)

// Reader is the read half of a transaction.
type Reader interface {
	// Get returns a copy of the value stored under key.
	Get(key []byte) ([]byte, bool, error)
	// Iterate calls fn for every key with the given prefix in key order.
	// Iteration stops at the first error returned by fn.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
}

// Tx is a unit of work. Writes become visible to later reads in the same Tx
// and are committed together or not at all.
type Tx interface {
	Reader
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Store runs units of work against the bridge state.
type Store interface {
	// View runs fn against a read-only snapshot.
	View(fn func(Reader) error) error
	// Update runs fn and commits its writes if fn returns nil. Any error
	// discards every write made by fn.
	Update(fn func(Tx) error) error
	Close() error
}

func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
