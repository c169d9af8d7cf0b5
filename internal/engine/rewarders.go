package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/boost"
	"github.com/netswap/boost-engine/internal/farm"
	"github.com/netswap/boost-engine/internal/model"
)

// FarmAddress maps a ledger name to the custody address rewarders are
// bound to.
func FarmAddress(ledger string) (common.Address, error) {
	switch ledger {
	case model.LedgerFarm:
		return farm.Address, nil
	case model.LedgerBoost:
		return boost.Address, nil
	}
	return common.Address{}, fmt.Errorf("engine: unknown farm %q: %w", ledger, model.ErrParameterOutOfRange)
}

// CreateRewarder creates a bonus rewarder for stakeAsset in the named farm.
// The owner funds it by transferring rewardToken to the returned address.
func (e *Engine) CreateRewarder(ctx context.Context, owner, rewardToken, stakeAsset common.Address, ledger string, tokenPerSec *uint256.Int) (common.Address, error) {
	farmAddr, err := FarmAddress(ledger)
	if err != nil {
		return common.Address{}, err
	}
	var addr common.Address
	err = e.exec(ctx, "rewarder.create", func(l *ledgers) (err error) {
		addr, err = l.rewarders.Create(owner, rewardToken, stakeAsset, farmAddr, tokenPerSec, l.st.Now())
		return err
	})
	return addr, err
}

// SetRewarderRate changes a rewarder's emission rate.
func (e *Engine) SetRewarderRate(ctx context.Context, caller, rewarder common.Address, tokenPerSec *uint256.Int) error {
	return e.exec(ctx, "rewarder.set_rate", func(l *ledgers) error {
		return l.rewarders.SetRewardRate(rewarder, caller, tokenPerSec)
	})
}

// Rewarder returns a rewarder's state.
func (e *Engine) Rewarder(ctx context.Context, addr common.Address) (model.RewarderView, error) {
	var v model.RewarderView
	err := e.read(ctx, func(l *ledgers) error {
		rec, err := l.rewarders.Get(addr)
		if err != nil {
			return err
		}
		v = model.RewarderView{
			Address:             addr.Hex(),
			Owner:               rec.Owner.Hex(),
			RewardToken:         rec.RewardToken.Hex(),
			StakeAsset:          rec.StakeAsset.Hex(),
			Farm:                rec.Farm.Hex(),
			TokenPerSec:         model.NewAmount(rec.TokenPerSec),
			AccTokenPerShare:    rec.AccTokenPerShare.Dec(),
			LastRewardTimestamp: rec.LastRewardTimestamp,
			TotalShares:         model.NewAmount(rec.TotalShares),
		}
		return nil
	})
	return v, err
}
