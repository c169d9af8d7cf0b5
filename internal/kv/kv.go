// Package kv defines the byte-level persistence interface for the ledger
// state. Implementations include LevelDB (single node default), PostgreSQL,
// a Redis read-through cache over either of them, and in-memory (for
// testing).
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: not found")

// Op is a single write in a batch. Delete ops ignore Value.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Getter reads a value by key.
type Getter interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
}

// Store is the persistence interface. WriteBatch must apply every op or
// none of them.
type Store interface {
	Getter

	// WriteBatch applies ops atomically, in order.
	WriteBatch(ctx context.Context, ops []Op) error

	// Close releases the backend.
	Close() error
}
