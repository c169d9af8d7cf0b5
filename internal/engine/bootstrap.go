package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/boost"
	"github.com/netswap/boost-engine/internal/escrow"
	"github.com/netswap/boost-engine/internal/farm"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/state"
)

var keyOwner = state.GlobalKey("engine", "owner")

// Genesis describes the initial deployment: the base farm with a master
// pool staked by the boosted farm's dummy asset, the ve registry owned by
// the escrow, and the escrow itself.
type Genesis struct {
	Owner            common.Address
	DevAddr          common.Address
	DevPercent       uint64
	RewardToken      common.Address
	DummyToken       common.Address
	RewardPerSec     *uint256.Int
	StartTimestamp   uint64
	MasterAllocPoint uint64
	Escrow           escrow.Params
}

// Bootstrap deploys g. It fails with ErrAlreadyInitialized when the store
// already holds a deployment.
func (e *Engine) Bootstrap(ctx context.Context, g Genesis) error {
	if g.Owner == (common.Address{}) || g.MasterAllocPoint == 0 {
		return fmt.Errorf("engine: genesis needs an owner and a master alloc point: %w", model.ErrParameterOutOfRange)
	}
	err := e.exec(ctx, "bootstrap", func(l *ledgers) error {
		owner, err := l.st.Address(keyOwner)
		if err != nil {
			return err
		}
		if owner != (common.Address{}) {
			return fmt.Errorf("engine: %w", model.ErrAlreadyInitialized)
		}
		if err := l.st.SetAddress(keyOwner, g.Owner); err != nil {
			return err
		}

		if err := l.farm.Initialize(farm.Params{
			Owner:          g.Owner,
			RewardToken:    g.RewardToken,
			DevAddr:        g.DevAddr,
			DevPercent:     g.DevPercent,
			RewardPerSec:   g.RewardPerSec,
			StartTimestamp: g.StartTimestamp,
		}); err != nil {
			return err
		}
		one := uint256.NewInt(1)
		if err := l.bank.Mint(g.DummyToken, g.Owner, one); err != nil {
			return err
		}
		masterPID, err := l.farm.Add(g.Owner, g.MasterAllocPoint, g.DummyToken, common.Address{})
		if err != nil {
			return err
		}
		if err := l.boost.Initialize(boost.Params{Owner: g.Owner, RewardToken: g.RewardToken, MasterPID: masterPID}); err != nil {
			return err
		}

		if err := l.ve.Initialize(escrow.Address); err != nil {
			return err
		}
		if err := l.ve.SetBoostedFarm(escrow.Address, boost.Address); err != nil {
			return err
		}
		p := g.Escrow
		p.Owner = g.Owner
		if err := l.escrow.Initialize(p); err != nil {
			return err
		}

		if err := l.bank.Approve(g.DummyToken, g.Owner, boost.Address, one); err != nil {
			return err
		}
		return l.boost.Init(g.Owner, g.DummyToken)
	})
	if err != nil {
		return err
	}
	slog.Info("ledgers deployed",
		"owner", g.Owner.Hex(),
		"reward_token", g.RewardToken.Hex(),
		"base_asset", g.Escrow.BaseAsset.Hex(),
		"reward_per_sec", g.RewardPerSec.Dec(),
	)
	return nil
}

// Owner returns the deployment owner, the zero address before Bootstrap.
func (e *Engine) Owner(ctx context.Context) (common.Address, error) {
	var owner common.Address
	err := e.read(ctx, func(l *ledgers) (err error) {
		owner, err = l.st.Address(keyOwner)
		return err
	})
	return owner, err
}

func onlyOwner(l *ledgers, caller common.Address) error {
	owner, err := l.st.Address(keyOwner)
	if err != nil {
		return err
	}
	if owner == (common.Address{}) {
		return fmt.Errorf("engine: %w", model.ErrNotInitialized)
	}
	if caller != owner {
		return fmt.Errorf("engine: %s is not the owner: %w", caller.Hex(), model.ErrUnauthorized)
	}
	return nil
}
