package kv

import (
	"bytes"
	"context"
	"errors"
	"sort"
)

// Tx buffers reads and writes against a Store. Nothing reaches the store
// until Commit, which flushes every buffered write in one batch.
// A Tx is not safe for concurrent use.
type Tx struct {
	ctx    context.Context
	base   Store
	writes map[string]entry
	done   bool
}

type entry struct {
	value   []byte
	deleted bool
}

// ErrTxDone is returned when a committed or discarded Tx is used.
var ErrTxDone = errors.New("kv: transaction already finished")

// Begin opens an overlay on s. ctx is used for every read and for Commit.
func Begin(ctx context.Context, s Store) *Tx {
	return &Tx{ctx: ctx, base: s, writes: make(map[string]entry)}
}

// Get returns the buffered value for key, falling back to the store.
func (t *Tx) Get(key []byte) ([]byte, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if e, ok := t.writes[string(key)]; ok {
		if e.deleted {
			return nil, ErrNotFound
		}
		return append([]byte(nil), e.value...), nil
	}
	return t.base.Get(t.ctx, key)
}

// Has reports whether key has a value.
func (t *Tx) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Put buffers a write.
func (t *Tx) Put(key, value []byte) {
	if t.done {
		return
	}
	t.writes[string(key)] = entry{value: append([]byte(nil), value...)}
}

// Delete buffers a delete.
func (t *Tx) Delete(key []byte) {
	if t.done {
		return
	}
	t.writes[string(key)] = entry{deleted: true}
}

// Dirty reports the number of buffered writes.
func (t *Tx) Dirty() int { return len(t.writes) }

// Commit writes the buffered changes atomically. Ops are sorted by key so
// identical transactions produce identical batches.
func (t *Tx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	if len(t.writes) == 0 {
		return nil
	}
	ops := make([]Op, 0, len(t.writes))
	for k, e := range t.writes {
		ops = append(ops, Op{Key: []byte(k), Value: e.value, Delete: e.deleted})
	}
	sort.Slice(ops, func(i, j int) bool { return bytes.Compare(ops[i].Key, ops[j].Key) < 0 })
	return t.base.WriteBatch(t.ctx, ops)
}

// Discard drops every buffered write.
func (t *Tx) Discard() {
	t.done = true
	t.writes = nil
}
