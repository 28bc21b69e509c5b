// Package store is the persistence boundary for library index dumps: a
// flat, byte-ordered key space with prefix scans. Two backends are
// provided, a pebble-backed store for on-disk snapshots and an
// in-memory store for tests and one-shot runs.
package store

import "errors"

// ErrKeyNotFound is returned by Get for an absent key.
var ErrKeyNotFound = errors.New("store: key not found")

// KV is a flat ordered key-value store.
type KV interface {
	// Get returns the value for key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Set stores value under key, replacing any previous value.
	Set(key, value []byte) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(key []byte) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(prefix []byte) error
	// Scan visits every key starting with prefix in ascending byte
	// order. A non-nil error from fn stops the scan and is returned.
	Scan(prefix []byte, fn func(key, value []byte) error) error
	// NewBatch starts an atomic write batch.
	NewBatch() Batch
	// Close releases the store. No calls are valid afterward.
	Close() error
}

// Batch accumulates writes applied atomically on Commit.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Commit() error
	Close() error
}

// prefixSucc returns the smallest key greater than every key with the
// given prefix, or nil when no upper bound exists (all 0xff).
func prefixSucc(prefix []byte) []byte {
	succ := make([]byte, len(prefix))
	copy(succ, prefix)
	for i := len(succ) - 1; i >= 0; i-- {
		if succ[i] < 0xff {
			succ[i]++
			return succ[:i+1]
		}
	}
	return nil
}
