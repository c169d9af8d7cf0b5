package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/model"
)

// FarmAdd adds a base-farm pool.
func (e *Engine) FarmAdd(ctx context.Context, caller common.Address, allocPoint uint64, stakeAsset, rewarder common.Address) (uint64, error) {
	var pid uint64
	err := e.exec(ctx, "farm.add", func(l *ledgers) (err error) {
		pid, err = l.farm.Add(caller, allocPoint, stakeAsset, rewarder)
		return err
	})
	return pid, err
}

// FarmSet reweights a base-farm pool and optionally replaces its rewarder.
func (e *Engine) FarmSet(ctx context.Context, caller common.Address, pid, allocPoint uint64, rewarder common.Address, overwrite bool) error {
	return e.exec(ctx, "farm.set", func(l *ledgers) error {
		return l.farm.Set(caller, pid, allocPoint, rewarder, overwrite)
	})
}

// FarmDeposit stakes amount in a base-farm pool. Zero harvests.
func (e *Engine) FarmDeposit(ctx context.Context, account common.Address, pid uint64, amount *uint256.Int) error {
	return e.exec(ctx, "farm.deposit", func(l *ledgers) error {
		return l.farm.Deposit(account, pid, amount)
	})
}

// FarmWithdraw unstakes amount from a base-farm pool. Zero harvests.
func (e *Engine) FarmWithdraw(ctx context.Context, account common.Address, pid uint64, amount *uint256.Int) error {
	return e.exec(ctx, "farm.withdraw", func(l *ledgers) error {
		return l.farm.Withdraw(account, pid, amount)
	})
}

// FarmEmergencyWithdraw returns account's stake and forfeits its reward.
func (e *Engine) FarmEmergencyWithdraw(ctx context.Context, account common.Address, pid uint64) error {
	return e.exec(ctx, "farm.emergency_withdraw", func(l *ledgers) error {
		return l.farm.EmergencyWithdraw(account, pid)
	})
}

// FarmUpdatePool advances a base-farm pool.
func (e *Engine) FarmUpdatePool(ctx context.Context, pid uint64) error {
	return e.exec(ctx, "farm.update_pool", func(l *ledgers) error {
		return l.farm.UpdatePool(pid)
	})
}

// FarmMassUpdatePools advances every base-farm pool.
func (e *Engine) FarmMassUpdatePools(ctx context.Context) error {
	return e.exec(ctx, "farm.mass_update", func(l *ledgers) error {
		return l.farm.MassUpdatePools()
	})
}

// FarmUpdateEmissionRate changes the emission rate from now on.
func (e *Engine) FarmUpdateEmissionRate(ctx context.Context, caller common.Address, rate *uint256.Int) error {
	return e.exec(ctx, "farm.update_emission_rate", func(l *ledgers) error {
		return l.farm.UpdateEmissionRate(caller, rate)
	})
}

// FarmSetDevAddr hands the dev share to dev.
func (e *Engine) FarmSetDevAddr(ctx context.Context, caller, dev common.Address) error {
	return e.exec(ctx, "farm.set_dev_addr", func(l *ledgers) error {
		return l.farm.SetDevAddr(caller, dev)
	})
}

// FarmInfo returns the base farm's global state.
func (e *Engine) FarmInfo(ctx context.Context) (model.FarmView, error) {
	var v model.FarmView
	err := e.read(ctx, func(l *ledgers) error {
		info, err := l.farm.Info()
		if err != nil {
			return err
		}
		rate := model.NewAmount(info.RewardPerSec)
		v = model.FarmView{
			Ledger:          model.LedgerFarm,
			Owner:           info.Owner.Hex(),
			RewardToken:     info.RewardToken.Hex(),
			RewardPerSec:    &rate,
			DevAddr:         info.DevAddr.Hex(),
			DevPercent:      info.DevPercent,
			StartTimestamp:  info.StartTimestamp,
			Initialized:     true,
			TotalAllocPoint: info.TotalAllocPoint,
			PoolLength:      info.PoolLength,
		}
		return nil
	})
	return v, err
}

// FarmPools lists every base-farm pool, advanced to now.
func (e *Engine) FarmPools(ctx context.Context) ([]model.PoolView, error) {
	out := []model.PoolView{}
	err := e.read(ctx, func(l *ledgers) error {
		info, err := l.farm.Info()
		if err != nil {
			return err
		}
		for pid := uint64(0); pid < info.PoolLength; pid++ {
			if err := l.farm.UpdatePool(pid); err != nil {
				return err
			}
			p, err := l.farm.Pool(pid)
			if err != nil {
				return err
			}
			out = append(out, p.View(pid))
		}
		return nil
	})
	return out, err
}

// FarmPool returns one base-farm pool, advanced to now.
func (e *Engine) FarmPool(ctx context.Context, pid uint64) (model.PoolView, error) {
	var v model.PoolView
	err := e.read(ctx, func(l *ledgers) error {
		if err := l.farm.UpdatePool(pid); err != nil {
			return err
		}
		p, err := l.farm.Pool(pid)
		if err != nil {
			return err
		}
		v = p.View(pid)
		return nil
	})
	return v, err
}

// FarmPosition returns account's position in a base-farm pool with what a
// harvest would pay now.
func (e *Engine) FarmPosition(ctx context.Context, pid uint64, account common.Address) (model.PositionView, error) {
	var v model.PositionView
	err := e.read(ctx, func(l *ledgers) error {
		pending, err := l.farm.PendingTokens(pid, account)
		if err != nil {
			return err
		}
		u, err := l.farm.Position(pid, account)
		if err != nil {
			return err
		}
		v = u.View(pid, account, pending.Reward, pending.BonusToken, pending.Bonus)
		return nil
	})
	return v, err
}
