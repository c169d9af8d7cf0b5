package keeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netswap/boost-engine/internal/engine"
	"github.com/netswap/boost-engine/internal/kv"
)

type fakeLedgers struct {
	calls []string
	fail  string
}

func (f *fakeLedgers) step(name string) error {
	f.calls = append(f.calls, name)
	if name == f.fail {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeLedgers) EscrowUpdate(context.Context) error         { return f.step("escrow") }
func (f *fakeLedgers) BoostHarvest(context.Context) error         { return f.step("harvest") }
func (f *fakeLedgers) BoostMassUpdatePools(context.Context) error { return f.step("update") }

func TestRunOnceRunsEveryStep(t *testing.T) {
	f := &fakeLedgers{fail: "harvest"}
	k, err := New(f, "@every 1h")
	require.NoError(t, err)

	err = k.RunOnce(context.Background())
	assert.ErrorContains(t, err, "boost.harvest")
	assert.Equal(t, []string{"escrow", "harvest", "update"}, f.calls)
}

func TestBadSpec(t *testing.T) {
	_, err := New(&fakeLedgers{}, "every now and then")
	assert.Error(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	k, err := New(&fakeLedgers{}, "@every 1h")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("keeper did not stop")
	}
}

func TestRunOnceAgainstEngine(t *testing.T) {
	// Before deployment every step reports the missing ledgers.
	eng := engine.New(kv.NewMemoryStore(), engine.NewManualClock(1000), nil)
	k, err := New(eng, "@every 1m")
	require.NoError(t, err)
	assert.Error(t, k.RunOnce(context.Background()))
}
