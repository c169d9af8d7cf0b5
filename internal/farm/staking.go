package farm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/pool"
	"github.com/netswap/boost-engine/internal/state"
)

// --- Emission ---

// PoolReward returns what pool pid distributes to its stakers over
// [from, to] at its current weight, after the dev share.
func (f *Farm) PoolReward(pid, from, to uint64) (*uint256.Int, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, err
	}
	p, err := f.Pool(pid)
	if err != nil {
		return nil, err
	}
	total, err := pool.Reward(&cfg.Schedule, from, to, p.AllocPoint, cfg.TotalAllocPoint)
	if err != nil {
		return nil, err
	}
	_, lp, err := splitDev(cfg, total)
	return lp, err
}

func splitDev(cfg *config, total *uint256.Int) (dev, lp *uint256.Int, err error) {
	dev, err = fixedpoint.MulDiv(total, uint256.NewInt(cfg.DevPercent), uint256.NewInt(MaxDevPercent))
	if err != nil {
		return nil, nil, err
	}
	return dev, new(uint256.Int).Sub(total, dev), nil
}

// UpdatePool brings pool pid up to date.
func (f *Farm) UpdatePool(pid uint64) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	_, err = f.updatePool(cfg, pid)
	return err
}

// MassUpdatePools brings every pool up to date.
func (f *Farm) MassUpdatePools() error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	return f.massUpdate(cfg)
}

func (f *Farm) massUpdate(cfg *config) error {
	for pid := uint64(0); pid < cfg.PoolLength; pid++ {
		if _, err := f.updatePool(cfg, pid); err != nil {
			return err
		}
	}
	return nil
}

// updatePool mints the pool's emission since its last update and folds it
// into the accumulator. Emission to an empty pool is not minted.
func (f *Farm) updatePool(cfg *config, pid uint64) (pool.Pool, error) {
	p, err := f.Pool(pid)
	if err != nil {
		return p, err
	}
	now := f.st.Now()
	if now <= p.LastRewardTime {
		return p, nil
	}
	reward := new(uint256.Int)
	if !p.TotalStaked.IsZero() {
		total, err := pool.Reward(&cfg.Schedule, p.LastRewardTime, now, p.AllocPoint, cfg.TotalAllocPoint)
		if err != nil {
			return p, err
		}
		dev, lp, err := splitDev(cfg, total)
		if err != nil {
			return p, err
		}
		if err := f.bank.Mint(cfg.RewardToken, cfg.DevAddr, dev); err != nil {
			return p, err
		}
		if err := f.bank.Mint(cfg.RewardToken, Address, lp); err != nil {
			return p, err
		}
		reward = lp
	}
	if p, err = pool.Advance(p, now, reward, fixedpoint.FarmPrecision()); err != nil {
		return p, err
	}
	if err := f.savePool(pid, p); err != nil {
		return p, err
	}
	f.st.Emit(model.LedgerFarm, model.EventUpdatePool, common.Address{}, state.PID(pid), reward, map[string]string{
		"acc_reward_per_share": p.AccRewardPerShare.Dec(),
		"total_staked":         p.TotalStaked.Dec(),
	})
	return p, nil
}

// --- Staking ---

// Deposit stakes amount of the pool's asset for account, paying what it
// has accrued so far. A zero amount only harvests. The farm pulls the
// deposit from account, so the farm's custody account needs an allowance.
func (f *Farm) Deposit(account common.Address, pid uint64, amount *uint256.Int) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	p, err := f.updatePool(cfg, pid)
	if err != nil {
		return err
	}
	u, err := f.Position(pid, account)
	if err != nil {
		return err
	}
	if err := f.harvest(cfg, p, pid, account, u); err != nil {
		return err
	}

	if u.Stake, err = fixedpoint.Add(u.Stake, amount); err != nil {
		return err
	}
	if p.TotalStaked, err = fixedpoint.Add(p.TotalStaked, amount); err != nil {
		return err
	}
	if err := f.commit(p, pid, account, u); err != nil {
		return err
	}
	if !amount.IsZero() {
		if err := f.bank.TransferFrom(p.Asset, Address, account, Address, amount); err != nil {
			return err
		}
	}
	f.st.Emit(model.LedgerFarm, model.EventDeposit, account, state.PID(pid), amount, nil)
	return nil
}

// Withdraw unstakes amount for account, paying what it has accrued. A
// zero amount only harvests.
func (f *Farm) Withdraw(account common.Address, pid uint64, amount *uint256.Int) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	u, err := f.Position(pid, account)
	if err != nil {
		return err
	}
	if u.Stake.Lt(amount) {
		return fmt.Errorf("farm withdraw %s from %s: %w", amount.Dec(), u.Stake.Dec(), model.ErrInsufficientStake)
	}
	p, err := f.updatePool(cfg, pid)
	if err != nil {
		return err
	}
	if err := f.harvest(cfg, p, pid, account, u); err != nil {
		return err
	}

	u.Stake = new(uint256.Int).Sub(u.Stake, amount)
	p.TotalStaked = fixedpoint.SubFloor(p.TotalStaked, amount)
	if err := f.commit(p, pid, account, u); err != nil {
		return err
	}
	if !amount.IsZero() {
		if err := f.bank.Transfer(p.Asset, Address, account, amount); err != nil {
			return err
		}
	}
	f.st.Emit(model.LedgerFarm, model.EventWithdraw, account, state.PID(pid), amount, nil)
	return nil
}

// EmergencyWithdraw returns account's whole stake and forfeits its
// pending reward.
func (f *Farm) EmergencyWithdraw(account common.Address, pid uint64) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	p, err := f.updatePool(cfg, pid)
	if err != nil {
		return err
	}
	u, err := f.Position(pid, account)
	if err != nil {
		return err
	}
	amount := u.Stake
	p.TotalStaked = fixedpoint.SubFloor(p.TotalStaked, amount)
	u.Stake = new(uint256.Int)
	u.RewardDebt = new(uint256.Int)
	if err := f.savePool(pid, p); err != nil {
		return err
	}
	if err := f.savePosition(pid, account, u); err != nil {
		return err
	}
	if err := f.notifyRewarder(p, account, u.Stake); err != nil {
		return err
	}
	if err := f.bank.Transfer(p.Asset, Address, account, amount); err != nil {
		return err
	}
	f.st.Emit(model.LedgerFarm, model.EventEmergencyWithdraw, account, state.PID(pid), amount, nil)
	return nil
}

// PendingTokens returns what account would be paid by a harvest now.
func (f *Farm) PendingTokens(pid uint64, account common.Address) (Pending, error) {
	cfg, err := f.config()
	if err != nil {
		return Pending{}, err
	}
	p, err := f.Pool(pid)
	if err != nil {
		return Pending{}, err
	}
	u, err := f.Position(pid, account)
	if err != nil {
		return Pending{}, err
	}
	now := f.st.Now()
	if now > p.LastRewardTime && !p.TotalStaked.IsZero() {
		total, err := pool.Reward(&cfg.Schedule, p.LastRewardTime, now, p.AllocPoint, cfg.TotalAllocPoint)
		if err != nil {
			return Pending{}, err
		}
		_, lp, err := splitDev(cfg, total)
		if err != nil {
			return Pending{}, err
		}
		if p, err = pool.Advance(p, now, lp, fixedpoint.FarmPrecision()); err != nil {
			return Pending{}, err
		}
	}
	reward, _, err := pool.Pending(p, u, fixedpoint.FarmPrecision())
	if err != nil {
		return Pending{}, err
	}
	out := Pending{Reward: reward, Bonus: new(uint256.Int)}
	if p.Rewarder != (common.Address{}) {
		if out.BonusToken, out.Bonus, err = f.rewarders.PendingTokens(p.Rewarder, account); err != nil {
			return Pending{}, err
		}
	}
	return out, nil
}

// harvest pays u's base pending reward.
func (f *Farm) harvest(cfg *config, p pool.Pool, pid uint64, account common.Address, u pool.Position) error {
	if u.Stake.IsZero() {
		return nil
	}
	pending, _, err := pool.Pending(p, u, fixedpoint.FarmPrecision())
	if err != nil || pending.IsZero() {
		return err
	}
	if err := f.bank.Transfer(cfg.RewardToken, Address, account, pending); err != nil {
		return fmt.Errorf("farm harvest: %w", err)
	}
	f.st.Emit(model.LedgerFarm, model.EventHarvest, account, state.PID(pid), pending, nil)
	return nil
}

// commit resets u's debt, stores both records and notifies the rewarder.
func (f *Farm) commit(p pool.Pool, pid uint64, account common.Address, u pool.Position) error {
	if err := pool.Settle(p, &u, fixedpoint.FarmPrecision()); err != nil {
		return err
	}
	if err := f.savePool(pid, p); err != nil {
		return err
	}
	if err := f.savePosition(pid, account, u); err != nil {
		return err
	}
	return f.notifyRewarder(p, account, u.Stake)
}

func (f *Farm) notifyRewarder(p pool.Pool, account common.Address, stake *uint256.Int) error {
	if p.Rewarder == (common.Address{}) {
		return nil
	}
	return f.rewarders.OnReward(p.Rewarder, Address, account, stake)
}
