package boost

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/pool"
	"github.com/netswap/boost-engine/internal/state"
)

var precision = fixedpoint.Precision()

// --- Emission ---

// poolReward is pool p's share of the master pool's emission over
// [p.LastRewardTime, now].
func (f *Farm) poolReward(cfg *config, p pool.Pool, now uint64) (*uint256.Int, error) {
	if cfg.TotalAllocPoint == 0 || p.AllocPoint == 0 {
		return new(uint256.Int), nil
	}
	emitted, err := f.upstream.PoolReward(cfg.MasterPID, p.LastRewardTime, now)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(emitted, uint256.NewInt(p.AllocPoint), uint256.NewInt(cfg.TotalAllocPoint))
}

// simulate returns p advanced to now without storing it.
func (f *Farm) simulate(cfg *config, p pool.Pool) (pool.Pool, error) {
	now := f.st.Now()
	if now <= p.LastRewardTime {
		return p, nil
	}
	reward := new(uint256.Int)
	if !p.TotalStaked.IsZero() {
		var err error
		if reward, err = f.poolReward(cfg, p, now); err != nil {
			return p, err
		}
	}
	return pool.Advance(p, now, reward, precision)
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

// SyncUpstream brings every pool up to date under the base farm's current
// weights. The base farm calls it before changing a weight or its rate.
// Before Initialize there is nothing to sync.
func (f *Farm) SyncUpstream() error {
	cfg, err := f.config()
	if errors.Is(err, model.ErrNotInitialized) {
		return nil
	}
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

func (f *Farm) updatePool(cfg *config, pid uint64) (pool.Pool, error) {
	p, err := f.Pool(pid)
	if err != nil {
		return p, err
	}
	if f.st.Now() <= p.LastRewardTime {
		return p, nil
	}
	before := p.LastRewardTime
	if p, err = f.simulate(cfg, p); err != nil {
		return p, err
	}
	if err := f.savePool(pid, p); err != nil {
		return p, err
	}
	f.st.Emit(model.LedgerBoost, model.EventUpdatePool, common.Address{}, state.PID(pid), nil, map[string]string{
		"from":                  fmt.Sprint(before),
		"acc_reward_per_share":  p.AccRewardPerShare.Dec(),
		"acc_reward_per_factor": p.AccRewardPerFactor.Dec(),
		"total_staked":          p.TotalStaked.Dec(),
		"total_factor":          p.TotalFactor.Dec(),
	})
	return p, nil
}

// HarvestFromUpstream collects the master pool's pending reward from the
// base farm. It does nothing before Init.
func (f *Farm) HarvestFromUpstream() error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	return f.harvestUpstream(cfg)
}

func (f *Farm) harvestUpstream(cfg *config) error {
	if !cfg.Initialized {
		return nil
	}
	return f.upstream.Deposit(Address, cfg.MasterPID, new(uint256.Int))
}

// --- Staking ---

// Deposit stakes amount for account, paying both reward streams and any
// claimable reward. A zero amount only harvests.
func (f *Farm) Deposit(account common.Address, pid uint64, amount *uint256.Int) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	if err := f.harvestUpstream(cfg); err != nil {
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
	if err := f.harvest(cfg, p, pid, account, &u); err != nil {
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
	f.st.Emit(model.LedgerBoost, model.EventDeposit, account, state.PID(pid), amount, nil)
	return nil
}

// Withdraw unstakes amount for account, paying both reward streams and any
// claimable reward. A zero amount only harvests.
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
		return fmt.Errorf("boost withdraw %s from %s: %w", amount.Dec(), u.Stake.Dec(), model.ErrInsufficientStake)
	}
	if err := f.harvestUpstream(cfg); err != nil {
		return err
	}
	p, err := f.updatePool(cfg, pid)
	if err != nil {
		return err
	}
	if err := f.harvest(cfg, p, pid, account, &u); err != nil {
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
	f.st.Emit(model.LedgerBoost, model.EventWithdraw, account, state.PID(pid), amount, nil)
	return nil
}

// EmergencyWithdraw returns account's whole stake and forfeits both
// streams and any claimable reward.
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
	p.TotalStaked = fixedpoint.SubFloor(p.TotalStaked, u.Stake)
	p.TotalFactor = fixedpoint.SubFloor(p.TotalFactor, u.Factor)
	u = pool.Position{}
	u.Normalize()
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
	f.st.Emit(model.LedgerBoost, model.EventEmergencyWithdraw, account, state.PID(pid), amount, nil)
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
	if p, err = f.simulate(cfg, p); err != nil {
		return Pending{}, err
	}
	u, err := f.Position(pid, account)
	if err != nil {
		return Pending{}, err
	}
	reward, err := owed(p, u)
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

// owed is base pending + boost pending + claimable.
func owed(p pool.Pool, u pool.Position) (*uint256.Int, error) {
	base, boosted, err := pool.Pending(p, u, precision)
	if err != nil {
		return nil, err
	}
	total, err := fixedpoint.Add(base, boosted)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(total, u.Claimable)
}

// harvest pays everything u is owed and clears its claimable reward.
func (f *Farm) harvest(cfg *config, p pool.Pool, pid uint64, account common.Address, u *pool.Position) error {
	if u.Stake.IsZero() && u.Claimable.IsZero() {
		return nil
	}
	pending, err := owed(p, *u)
	if err != nil {
		return err
	}
	u.Claimable = new(uint256.Int)
	if pending.IsZero() {
		return nil
	}
	if err := f.bank.Transfer(cfg.RewardToken, Address, account, pending); err != nil {
		return fmt.Errorf("boost harvest: %w", err)
	}
	f.st.Emit(model.LedgerBoost, model.EventHarvest, account, state.PID(pid), pending, nil)
	return nil
}

// commit recomputes u's factor from its stake and veBalance, resets both
// debts, stores both records and notifies the rewarder.
func (f *Farm) commit(p pool.Pool, pid uint64, account common.Address, u pool.Position) error {
	ve, err := f.ve.BalanceOf(account)
	if err != nil {
		return err
	}
	factor := fixedpoint.GeometricMean(u.Stake, ve)
	if p.TotalFactor, err = fixedpoint.Add(fixedpoint.SubFloor(p.TotalFactor, u.Factor), factor); err != nil {
		return err
	}
	u.Factor = factor
	if err := pool.Settle(p, &u, precision); err != nil {
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
