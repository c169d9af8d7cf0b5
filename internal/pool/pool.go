// Package pool holds the per-pool accumulator state shared by the base and
// boosted farms, and the pure functions that advance it.
//
// A pool's emission is split into a base stream, shared by stake, and a
// boost stream, shared by factor. The base farm is the special case
// BoostShareBp == 0, where every unit goes to the base stream.
package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/schedule"
)

// Pool is the accumulator state of one deposit asset.
type Pool struct {
	Asset              common.Address
	AllocPoint         uint64
	LastRewardTime     uint64
	AccRewardPerShare  *uint256.Int
	TotalStaked        *uint256.Int
	Rewarder           common.Address
	BoostShareBp       uint32
	AccRewardPerFactor *uint256.Int
	TotalFactor        *uint256.Int
}

// Position is one account's bookkeeping inside a pool.
type Position struct {
	Stake            *uint256.Int
	RewardDebt       *uint256.Int
	Factor           *uint256.Int
	FactorRewardDebt *uint256.Int
	Claimable        *uint256.Int
}

// Normalize replaces nil quantities with zero. Decoded records may carry nils.
func (p *Pool) Normalize() {
	p.AccRewardPerShare = fixedpoint.OrZero(p.AccRewardPerShare)
	p.TotalStaked = fixedpoint.OrZero(p.TotalStaked)
	p.AccRewardPerFactor = fixedpoint.OrZero(p.AccRewardPerFactor)
	p.TotalFactor = fixedpoint.OrZero(p.TotalFactor)
}

// Clone returns a deep copy.
func (p Pool) Clone() Pool {
	p.Normalize()
	p.AccRewardPerShare = p.AccRewardPerShare.Clone()
	p.TotalStaked = p.TotalStaked.Clone()
	p.AccRewardPerFactor = p.AccRewardPerFactor.Clone()
	p.TotalFactor = p.TotalFactor.Clone()
	return p
}

// Normalize replaces nil quantities with zero.
func (u *Position) Normalize() {
	u.Stake = fixedpoint.OrZero(u.Stake)
	u.RewardDebt = fixedpoint.OrZero(u.RewardDebt)
	u.Factor = fixedpoint.OrZero(u.Factor)
	u.FactorRewardDebt = fixedpoint.OrZero(u.FactorRewardDebt)
	u.Claimable = fixedpoint.OrZero(u.Claimable)
}

// Reward returns the pool's share of the schedule's emission over
// [from, to]: accrued * alloc / totalAlloc.
func Reward(s *schedule.Schedule, from, to, alloc, totalAlloc uint64) (*uint256.Int, error) {
	if totalAlloc == 0 || alloc == 0 || to <= from {
		return new(uint256.Int), nil
	}
	accrued, err := s.Accrued(from, to)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(accrued, uint256.NewInt(alloc), uint256.NewInt(totalAlloc))
}

// Advance moves the accumulators of p to now, distributing reward (the
// pool's emission since LastRewardTime). It is a no-op when now is not
// after LastRewardTime, so repeated calls with the same now are idempotent.
// Reward that finds no stake (or no factor) is not distributed.
func Advance(p Pool, now uint64, reward, precision *uint256.Int) (Pool, error) {
	next := p.Clone()
	if now <= next.LastRewardTime {
		return next, nil
	}
	if p.BoostShareBp > fixedpoint.MaxBasisPoints {
		return next, fmt.Errorf("pool: boost share %d bp: %w", p.BoostShareBp, model.ErrParameterOutOfRange)
	}
	if !reward.IsZero() {
		bp := uint256.NewInt(fixedpoint.MaxBasisPoints)
		boostBp := uint256.NewInt(uint64(p.BoostShareBp))
		baseBp := new(uint256.Int).Sub(bp, boostBp)

		if !next.TotalStaked.IsZero() && !baseBp.IsZero() {
			inc, err := share(reward, baseBp, precision, next.TotalStaked, bp)
			if err != nil {
				return next, err
			}
			if next.AccRewardPerShare, err = fixedpoint.Add(next.AccRewardPerShare, inc); err != nil {
				return next, err
			}
		}
		if !next.TotalFactor.IsZero() && !boostBp.IsZero() {
			inc, err := share(reward, boostBp, precision, next.TotalFactor, bp)
			if err != nil {
				return next, err
			}
			if next.AccRewardPerFactor, err = fixedpoint.Add(next.AccRewardPerFactor, inc); err != nil {
				return next, err
			}
		}
	}
	next.LastRewardTime = now
	return next, nil
}

// share computes reward*partBp*precision / (supply*bp).
func share(reward, partBp, precision, supply, bp *uint256.Int) (*uint256.Int, error) {
	num, err := fixedpoint.Mul(reward, partBp)
	if err != nil {
		return nil, err
	}
	den, err := fixedpoint.Mul(supply, bp)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDiv(num, precision, den)
}

// Accrued returns what a position has earned against the current
// accumulators, before subtracting its debts: stake*accShare/P and
// factor*accFactor/P.
func Accrued(p Pool, u Position, precision *uint256.Int) (base, boost *uint256.Int, err error) {
	p.Normalize()
	u.Normalize()
	if base, err = fixedpoint.MulDiv(u.Stake, p.AccRewardPerShare, precision); err != nil {
		return nil, nil, err
	}
	if boost, err = fixedpoint.MulDiv(u.Factor, p.AccRewardPerFactor, precision); err != nil {
		return nil, nil, err
	}
	return base, boost, nil
}

// Pending returns the base-stream and boost-stream rewards owed to u,
// excluding Claimable. Accumulators never decrease, so neither term can be
// negative while the debts were set by Settle; SubFloor guards rounding.
func Pending(p Pool, u Position, precision *uint256.Int) (base, boost *uint256.Int, err error) {
	u.Normalize()
	accBase, accBoost, err := Accrued(p, u, precision)
	if err != nil {
		return nil, nil, err
	}
	return fixedpoint.SubFloor(accBase, u.RewardDebt), fixedpoint.SubFloor(accBoost, u.FactorRewardDebt), nil
}

// Settle resets both debts of u to the current accumulator levels.
func Settle(p Pool, u *Position, precision *uint256.Int) error {
	u.Normalize()
	base, boost, err := Accrued(p, *u, precision)
	if err != nil {
		return err
	}
	u.RewardDebt = base
	u.FactorRewardDebt = boost
	return nil
}
