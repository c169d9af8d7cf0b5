// Package rewarder implements per-second bonus emitters attached to farm
// pools. A rewarder pays one bonus token to the stakers of one pool, in
// proportion to the stake the farm reports on every position change. It
// pays out of what it holds and carries any shortfall as unpaid rewards.
package rewarder

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/asset"
	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/state"
)

// Record is the persisted state of one rewarder.
type Record struct {
	Owner               common.Address
	RewardToken         common.Address
	StakeAsset          common.Address
	Farm                common.Address
	TokenPerSec         *uint256.Int
	AccTokenPerShare    *uint256.Int
	LastRewardTimestamp uint64
	TotalShares         *uint256.Int
}

// UserInfo is one staker's bookkeeping in a rewarder.
type UserInfo struct {
	Amount        *uint256.Int
	RewardDebt    *uint256.Int
	UnpaidRewards *uint256.Int
}

var keyCount = state.GlobalKey(model.LedgerRewarder, "count")

// Registry creates and drives rewarders inside one operation's state.
type Registry struct {
	st   *state.State
	bank *asset.Bank
}

// New binds a Registry to st.
func New(st *state.State, bank *asset.Bank) *Registry {
	return &Registry{st: st, bank: bank}
}

// Create registers a rewarder owned by owner that pays rewardToken at
// tokenPerSec to stakers of stakeAsset in farm, starting at startTime.
func (r *Registry) Create(owner, rewardToken, stakeAsset, farm common.Address, tokenPerSec *uint256.Int, startTime uint64) (common.Address, error) {
	if farm == (common.Address{}) || rewardToken == (common.Address{}) {
		return common.Address{}, fmt.Errorf("rewarder: zero farm or token: %w", model.ErrParameterOutOfRange)
	}
	n, err := r.st.Uint64(keyCount)
	if err != nil {
		return common.Address{}, err
	}
	addr := state.DeriveAddress("rewarder/" + strconv.FormatUint(n, 10))
	if startTime < r.st.Now() {
		startTime = r.st.Now()
	}
	rec := Record{
		Owner:               owner,
		RewardToken:         rewardToken,
		StakeAsset:          stakeAsset,
		Farm:                farm,
		TokenPerSec:         tokenPerSec,
		AccTokenPerShare:    new(uint256.Int),
		LastRewardTimestamp: startTime,
		TotalShares:         new(uint256.Int),
	}
	if err := r.st.Store(state.RewarderKey(addr), &rec); err != nil {
		return common.Address{}, err
	}
	if err := r.st.SetUint64(keyCount, n+1); err != nil {
		return common.Address{}, err
	}
	r.st.Emit(model.LedgerRewarder, model.EventRewarderCreated, addr, nil, tokenPerSec, map[string]string{
		"owner":        owner.Hex(),
		"reward_token": rewardToken.Hex(),
		"stake_asset":  stakeAsset.Hex(),
		"farm":         farm.Hex(),
	})
	return addr, nil
}

// Get returns the rewarder at addr.
func (r *Registry) Get(addr common.Address) (Record, error) {
	var rec Record
	ok, err := r.st.Load(state.RewarderKey(addr), &rec)
	if err != nil {
		return rec, err
	}
	if !ok {
		return rec, fmt.Errorf("rewarder %s: %w", addr.Hex(), model.ErrNotFound)
	}
	rec.TokenPerSec = fixedpoint.OrZero(rec.TokenPerSec)
	rec.AccTokenPerShare = fixedpoint.OrZero(rec.AccTokenPerShare)
	rec.TotalShares = fixedpoint.OrZero(rec.TotalShares)
	return rec, nil
}

// Exists reports whether addr is a rewarder.
func (r *Registry) Exists(addr common.Address) (bool, error) {
	_, ok, err := r.st.Raw(state.RewarderKey(addr))
	return ok, err
}

func (r *Registry) user(addr, account common.Address) (UserInfo, error) {
	var u UserInfo
	if _, err := r.st.Load(state.RewarderUserKey(addr, account), &u); err != nil {
		return u, err
	}
	u.Amount = fixedpoint.OrZero(u.Amount)
	u.RewardDebt = fixedpoint.OrZero(u.RewardDebt)
	u.UnpaidRewards = fixedpoint.OrZero(u.UnpaidRewards)
	return u, nil
}

// advance accrues rec up to now.
func advance(rec Record, now uint64) (Record, error) {
	if now <= rec.LastRewardTimestamp {
		return rec, nil
	}
	if !rec.TotalShares.IsZero() {
		emitted, err := fixedpoint.Mul(uint256.NewInt(now-rec.LastRewardTimestamp), rec.TokenPerSec)
		if err != nil {
			return rec, err
		}
		inc, err := fixedpoint.MulDiv(emitted, fixedpoint.FarmPrecision(), rec.TotalShares)
		if err != nil {
			return rec, err
		}
		if rec.AccTokenPerShare, err = fixedpoint.Add(rec.AccTokenPerShare, inc); err != nil {
			return rec, err
		}
	}
	rec.LastRewardTimestamp = now
	return rec, nil
}

func owed(rec Record, u UserInfo) (*uint256.Int, error) {
	acc, err := fixedpoint.MulDiv(u.Amount, rec.AccTokenPerShare, fixedpoint.FarmPrecision())
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(fixedpoint.SubFloor(acc, u.RewardDebt), u.UnpaidRewards)
}

// OnReward pays account's bonus and records its new stake. Only the farm
// the rewarder was created for may call it.
func (r *Registry) OnReward(addr, caller, account common.Address, newAmount *uint256.Int) error {
	rec, err := r.Get(addr)
	if err != nil {
		return err
	}
	if caller != rec.Farm {
		return fmt.Errorf("rewarder %s: caller %s: %w", addr.Hex(), caller.Hex(), model.ErrUnauthorized)
	}
	if rec, err = advance(rec, r.st.Now()); err != nil {
		return err
	}
	u, err := r.user(addr, account)
	if err != nil {
		return err
	}

	if !u.Amount.IsZero() || !u.UnpaidRewards.IsZero() {
		pending, err := owed(rec, u)
		if err != nil {
			return err
		}
		held, err := r.bank.BalanceOf(rec.RewardToken, addr)
		if err != nil {
			return err
		}
		pay := fixedpoint.Min(pending, held)
		if err := r.bank.Transfer(rec.RewardToken, addr, account, pay); err != nil {
			return err
		}
		u.UnpaidRewards = fixedpoint.SubFloor(pending, pay)
	}

	if rec.TotalShares, err = fixedpoint.Add(fixedpoint.SubFloor(rec.TotalShares, u.Amount), newAmount); err != nil {
		return err
	}
	u.Amount = newAmount.Clone()
	if u.RewardDebt, err = fixedpoint.MulDiv(u.Amount, rec.AccTokenPerShare, fixedpoint.FarmPrecision()); err != nil {
		return err
	}
	if err := r.st.Store(state.RewarderUserKey(addr, account), &u); err != nil {
		return err
	}
	return r.st.Store(state.RewarderKey(addr), &rec)
}

// PendingTokens returns the bonus token and the amount account would be
// paid by an OnReward now.
func (r *Registry) PendingTokens(addr, account common.Address) (common.Address, *uint256.Int, error) {
	rec, err := r.Get(addr)
	if err != nil {
		return common.Address{}, nil, err
	}
	if rec, err = advance(rec, r.st.Now()); err != nil {
		return common.Address{}, nil, err
	}
	u, err := r.user(addr, account)
	if err != nil {
		return common.Address{}, nil, err
	}
	pending, err := owed(rec, u)
	if err != nil {
		return common.Address{}, nil, err
	}
	return rec.RewardToken, pending, nil
}

// SetRewardRate changes the emission rate after accruing at the old one.
func (r *Registry) SetRewardRate(addr, caller common.Address, tokenPerSec *uint256.Int) error {
	rec, err := r.Get(addr)
	if err != nil {
		return err
	}
	if caller != rec.Owner {
		return fmt.Errorf("rewarder %s: %w", addr.Hex(), model.ErrUnauthorized)
	}
	if rec, err = advance(rec, r.st.Now()); err != nil {
		return err
	}
	old := rec.TokenPerSec
	rec.TokenPerSec = tokenPerSec
	if err := r.st.Store(state.RewarderKey(addr), &rec); err != nil {
		return err
	}
	r.st.Emit(model.LedgerRewarder, model.EventRewardRateUpdated, addr, nil, tokenPerSec, map[string]string{
		"old": old.Dec(),
	})
	return nil
}
