// Package cache keeps a durable local copy of meter readings and works out
// which time range still has to be fetched from the remote API.
package cache

// ReadingCache is a persistence backend for a Store. Load returns the last
// flushed snapshot (an empty store on first use); Flush replaces it with the
// full contents of s. A failed Flush leaves the previous snapshot intact.
//
// Backends assume a single writer. Two processes flushing at once is not
// supported: the last one wins.
type ReadingCache interface {
	Load() (*Store, error)
	Flush(s *Store) error
	// Location identifies the snapshot in logs and errors.
	Location() string
}
