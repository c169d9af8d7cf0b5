// Package keeper periodically pokes the ledgers so that accumulators and
// the boosted farm's upstream harvest stay fresh between user operations.
// Ledger results never depend on it.
package keeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/netswap/boost-engine/internal/metrics"
)

// Ledgers is the subset of the engine the keeper drives.
type Ledgers interface {
	EscrowUpdate(ctx context.Context) error
	BoostHarvest(ctx context.Context) error
	BoostMassUpdatePools(ctx context.Context) error
}

// Keeper runs the maintenance job on a cron schedule.
type Keeper struct {
	cron    *cron.Cron
	ledgers Ledgers
}

// New creates a keeper that runs on spec, a standard cron expression or
// a descriptor such as "@every 1m".
func New(l Ledgers, spec string) (*Keeper, error) {
	k := &Keeper{cron: cron.New(), ledgers: l}
	if _, err := k.cron.AddFunc(spec, func() { k.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("keeper schedule %q: %w", spec, err)
	}
	return k, nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running job to finish.
func (k *Keeper) Run(ctx context.Context) error {
	k.cron.Start()
	slog.Info("keeper started")
	<-ctx.Done()
	<-k.cron.Stop().Done()
	slog.Info("keeper stopped")
	return nil
}

// RunOnce performs one maintenance pass. Failures are logged and the
// remaining steps still run.
func (k *Keeper) RunOnce(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"escrow.update", k.ledgers.EscrowUpdate},
		{"boost.harvest", k.ledgers.BoostHarvest},
		{"boost.mass_update", k.ledgers.BoostMassUpdatePools},
	}
	var first error
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			slog.Error("keeper step failed", "step", s.name, "err", err)
			if first == nil {
				first = fmt.Errorf("%s: %w", s.name, err)
			}
		}
	}
	if first != nil {
		metrics.KeeperRuns.WithLabelValues("error").Inc()
		return first
	}
	metrics.KeeperRuns.WithLabelValues("ok").Inc()
	return nil
}
