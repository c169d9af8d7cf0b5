package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/model"
)

// BoostInit stakes the caller's dummy balance in the master pool.
// Bootstrap already does this for the default deployment.
func (e *Engine) BoostInit(ctx context.Context, caller, dummy common.Address) error {
	return e.exec(ctx, "boost.init", func(l *ledgers) error {
		return l.boost.Init(caller, dummy)
	})
}

// BoostAdd adds a boosted pool.
func (e *Engine) BoostAdd(ctx context.Context, caller common.Address, allocPoint uint64, boostShareBp uint32, stakeAsset, rewarder common.Address) (uint64, error) {
	var pid uint64
	err := e.exec(ctx, "boost.add", func(l *ledgers) (err error) {
		pid, err = l.boost.Add(caller, allocPoint, boostShareBp, stakeAsset, rewarder)
		return err
	})
	return pid, err
}

// BoostSet reweights a boosted pool.
func (e *Engine) BoostSet(ctx context.Context, caller common.Address, pid, allocPoint uint64, boostShareBp uint32, rewarder common.Address, overwrite bool) error {
	return e.exec(ctx, "boost.set", func(l *ledgers) error {
		return l.boost.Set(caller, pid, allocPoint, boostShareBp, rewarder, overwrite)
	})
}

// BoostDeposit stakes amount in a boosted pool. Zero harvests.
func (e *Engine) BoostDeposit(ctx context.Context, account common.Address, pid uint64, amount *uint256.Int) error {
	return e.exec(ctx, "boost.deposit", func(l *ledgers) error {
		return l.boost.Deposit(account, pid, amount)
	})
}

// BoostWithdraw unstakes amount from a boosted pool. Zero harvests.
func (e *Engine) BoostWithdraw(ctx context.Context, account common.Address, pid uint64, amount *uint256.Int) error {
	return e.exec(ctx, "boost.withdraw", func(l *ledgers) error {
		return l.boost.Withdraw(account, pid, amount)
	})
}

// BoostEmergencyWithdraw returns account's stake and forfeits its reward.
func (e *Engine) BoostEmergencyWithdraw(ctx context.Context, account common.Address, pid uint64) error {
	return e.exec(ctx, "boost.emergency_withdraw", func(l *ledgers) error {
		return l.boost.EmergencyWithdraw(account, pid)
	})
}

// BoostHarvest collects the master pool's reward from the base farm.
func (e *Engine) BoostHarvest(ctx context.Context) error {
	return e.exec(ctx, "boost.harvest", func(l *ledgers) error {
		return l.boost.HarvestFromUpstream()
	})
}

// BoostMassUpdatePools advances every boosted pool.
func (e *Engine) BoostMassUpdatePools(ctx context.Context) error {
	return e.exec(ctx, "boost.mass_update", func(l *ledgers) error {
		return l.boost.MassUpdatePools()
	})
}

// BoostInfo returns the boosted farm's global state.
func (e *Engine) BoostInfo(ctx context.Context) (model.FarmView, error) {
	var v model.FarmView
	err := e.read(ctx, func(l *ledgers) error {
		info, err := l.boost.Info()
		if err != nil {
			return err
		}
		master := info.MasterPID
		v = model.FarmView{
			Ledger:          model.LedgerBoost,
			Owner:           info.Owner.Hex(),
			RewardToken:     info.RewardToken.Hex(),
			MasterPID:       &master,
			Initialized:     info.Initialized,
			TotalAllocPoint: info.TotalAllocPoint,
			PoolLength:      info.PoolLength,
		}
		if info.Initialized {
			v.DummyToken = info.DummyToken.Hex()
		}
		return nil
	})
	return v, err
}

// BoostPools lists every boosted pool, advanced to now.
func (e *Engine) BoostPools(ctx context.Context) ([]model.PoolView, error) {
	out := []model.PoolView{}
	err := e.read(ctx, func(l *ledgers) error {
		info, err := l.boost.Info()
		if err != nil {
			return err
		}
		for pid := uint64(0); pid < info.PoolLength; pid++ {
			if err := l.boost.UpdatePool(pid); err != nil {
				return err
			}
			p, err := l.boost.Pool(pid)
			if err != nil {
				return err
			}
			out = append(out, p.View(pid))
		}
		return nil
	})
	return out, err
}

// BoostPool returns one boosted pool, advanced to now.
func (e *Engine) BoostPool(ctx context.Context, pid uint64) (model.PoolView, error) {
	var v model.PoolView
	err := e.read(ctx, func(l *ledgers) error {
		if err := l.boost.UpdatePool(pid); err != nil {
			return err
		}
		p, err := l.boost.Pool(pid)
		if err != nil {
			return err
		}
		v = p.View(pid)
		return nil
	})
	return v, err
}

// BoostPosition returns account's position in a boosted pool with what a
// harvest would pay now.
func (e *Engine) BoostPosition(ctx context.Context, pid uint64, account common.Address) (model.PositionView, error) {
	var v model.PositionView
	err := e.read(ctx, func(l *ledgers) error {
		pending, err := l.boost.PendingTokens(pid, account)
		if err != nil {
			return err
		}
		u, err := l.boost.Position(pid, account)
		if err != nil {
			return err
		}
		v = u.View(pid, account, pending.Reward, pending.BonusToken, pending.Bonus)
		return nil
	})
	return v, err
}
