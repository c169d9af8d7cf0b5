// Package engine runs every ledger operation as one serialized, atomic
// unit of work: it reads the clock once, binds the ledgers to a
// transaction overlay, commits on success and publishes the committed
// events.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netswap/boost-engine/internal/asset"
	"github.com/netswap/boost-engine/internal/boost"
	"github.com/netswap/boost-engine/internal/escrow"
	"github.com/netswap/boost-engine/internal/farm"
	"github.com/netswap/boost-engine/internal/kv"
	"github.com/netswap/boost-engine/internal/metrics"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/rewarder"
	"github.com/netswap/boost-engine/internal/state"
	"github.com/netswap/boost-engine/internal/vetoken"
)

var keySeq = state.GlobalKey("engine", "event_seq")

// Publisher receives events after they are committed.
type Publisher interface {
	Publish(events []model.Event)
}

// Engine serializes operations over a store. Single-instance: two engines
// must not share a store.
type Engine struct {
	store kv.Store
	clock Clock
	pub   Publisher
	mu    sync.Mutex
}

// New creates an engine. pub may be nil.
func New(store kv.Store, clock Clock, pub Publisher) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{store: store, clock: clock, pub: pub}
}

// Now returns the engine clock's current time.
func (e *Engine) Now() uint64 { return e.clock.Now() }

// ledgers is every ledger bound to one operation's state.
type ledgers struct {
	st        *state.State
	bank      *asset.Bank
	rewarders *rewarder.Registry
	farm      *farm.Farm
	boost     *boost.Farm
	ve        *vetoken.Token
	escrow    *escrow.Staking
}

func bind(st *state.State) *ledgers {
	bank := asset.New(st)
	rw := rewarder.New(st, bank)
	fm := farm.New(st, bank, rw)
	bf := boost.New(st, bank, rw, fm, vetoken.New(st, nil))
	fm.Attach(bf)
	ve := vetoken.New(st, bf)
	return &ledgers{
		st:        st,
		bank:      bank,
		rewarders: rw,
		farm:      fm,
		boost:     bf,
		ve:        ve,
		escrow:    escrow.New(st, bank, ve),
	}
}

// exec runs fn atomically. On error nothing is written.
func (e *Engine) exec(ctx context.Context, op string, fn func(l *ledgers) error) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := kv.Begin(ctx, e.store)
	st := state.New(tx, e.clock.Now())
	if err := fn(bind(st)); err != nil {
		tx.Discard()
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
		slog.Warn("operation rejected", "op", op, "err", err)
		return err
	}
	events, err := e.record(st)
	if err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
		slog.Error("commit failed", "op", op, "err", err)
		return err
	}

	metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()
	metrics.OperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.ObserveEvents(events)
	slog.Info("operation committed", "op", op, "timestamp", st.Now(), "events", len(events))
	if e.pub != nil && len(events) > 0 {
		e.pub.Publish(events)
	}
	return nil
}

// read runs fn against a snapshot at the current time and discards any
// writes.
func (e *Engine) read(ctx context.Context, fn func(l *ledgers) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx := kv.Begin(ctx, e.store)
	defer tx.Discard()
	return fn(bind(state.New(tx, e.clock.Now())))
}

// record numbers the operation's events and appends them to the log.
func (e *Engine) record(st *state.State) ([]model.Event, error) {
	events := st.Events()
	if len(events) == 0 {
		return nil, nil
	}
	seq, err := st.Uint64(keySeq)
	if err != nil {
		return nil, err
	}
	committed := time.Now().UTC()
	out := make([]model.Event, len(events))
	for i, ev := range events {
		seq++
		ev.Seq = seq
		ev.ID = uuid.NewString()
		ev.Committed = committed
		data, err := json.Marshal(ev)
		if err != nil {
			return nil, err
		}
		st.PutRaw(state.EventKey(seq), data)
		out[i] = ev
	}
	if err := st.SetUint64(keySeq, seq); err != nil {
		return nil, err
	}
	return out, nil
}

// MaxEventPage bounds one Events call.
const MaxEventPage = 500

// Events returns up to limit committed events with Seq > after, in order.
func (e *Engine) Events(ctx context.Context, after uint64, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > MaxEventPage {
		limit = MaxEventPage
	}
	out := []model.Event{}
	err := e.read(ctx, func(l *ledgers) error {
		last, err := l.st.Uint64(keySeq)
		if err != nil {
			return err
		}
		for seq := after + 1; seq <= last && len(out) < limit; seq++ {
			data, ok, err := l.st.Raw(state.EventKey(seq))
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("engine: event log has a gap")
			}
			var ev model.Event
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}
