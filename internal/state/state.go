// Package state gives the ledgers typed access to one kv transaction.
//
// Records are RLP encoded. A State is bound to a single operation: it
// carries the operation's timestamp and collects the events the ledgers
// emit, which the engine persists and publishes after commit.
package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/kv"
	"github.com/netswap/boost-engine/internal/model"
)

// State is the ledger view of one kv.Tx at one timestamp.
type State struct {
	tx     *kv.Tx
	now    uint64
	events []model.Event
}

// New binds tx at timestamp now.
func New(tx *kv.Tx, now uint64) *State {
	return &State{tx: tx, now: now}
}

// Now returns the operation timestamp in unix seconds.
func (s *State) Now() uint64 { return s.now }

// Load decodes the record at key into v. It reports false, leaving v
// untouched, when the key is absent.
func (s *State) Load(key []byte, v any) (bool, error) {
	data, err := s.tx.Get(key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, v); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Store encodes v at key.
func (s *State) Store(key []byte, v any) error {
	data, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	s.tx.Put(key, data)
	return nil
}

// Raw returns the undecoded bytes at key.
func (s *State) Raw(key []byte) ([]byte, bool, error) {
	data, err := s.tx.Get(key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false, nil
	}
	return data, err == nil, err
}

// PutRaw stores bytes at key without encoding.
func (s *State) PutRaw(key, data []byte) { s.tx.Put(key, data) }

// --- Scalars ---

// Uint returns the uint256 at key, zero when absent.
func (s *State) Uint(key []byte) (*uint256.Int, error) {
	v := new(uint256.Int)
	if _, err := s.Load(key, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SetUint stores x at key.
func (s *State) SetUint(key []byte, x *uint256.Int) error {
	return s.Store(key, x)
}

// Uint64 returns the uint64 at key, zero when absent.
func (s *State) Uint64(key []byte) (uint64, error) {
	var v uint64
	_, err := s.Load(key, &v)
	return v, err
}

// SetUint64 stores v at key.
func (s *State) SetUint64(key []byte, v uint64) error {
	return s.Store(key, v)
}

// Address returns the address at key, the zero address when absent.
func (s *State) Address(key []byte) (common.Address, error) {
	var a common.Address
	_, err := s.Load(key, &a)
	return a, err
}

// SetAddress stores a at key.
func (s *State) SetAddress(key []byte, a common.Address) error {
	return s.Store(key, a)
}

// --- Events ---

// Emit records an event for this operation. Seq, ID and commit time are
// assigned by the engine.
func (s *State) Emit(ledger, kind string, account common.Address, pid *uint64, amount *uint256.Int, attrs map[string]string) {
	ev := model.Event{
		Ledger:    ledger,
		Kind:      kind,
		PoolID:    pid,
		Attrs:     attrs,
		Timestamp: s.now,
	}
	if account != (common.Address{}) {
		ev.Account = account.Hex()
	}
	if amount != nil {
		ev.Amount = amount.Dec()
	}
	s.events = append(s.events, ev)
}

// Events returns the events emitted so far.
func (s *State) Events() []model.Event { return s.events }

// PID returns a pointer to pid, for Emit.
func PID(pid uint64) *uint64 { return &pid }
