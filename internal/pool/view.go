package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/model"
)

// View converts p into its API read model.
func (p Pool) View(pid uint64) model.PoolView {
	p.Normalize()
	v := model.PoolView{
		PID:               pid,
		Asset:             p.Asset.Hex(),
		AllocPoint:        p.AllocPoint,
		LastRewardTime:    p.LastRewardTime,
		AccRewardPerShare: p.AccRewardPerShare.Dec(),
		TotalStaked:       model.NewAmount(p.TotalStaked),
		BoostShareBp:      p.BoostShareBp,
	}
	if p.Rewarder != (common.Address{}) {
		v.Rewarder = p.Rewarder.Hex()
	}
	if p.BoostShareBp > 0 || !p.TotalFactor.IsZero() {
		v.AccRewardPerFactor = p.AccRewardPerFactor.Dec()
		v.TotalFactor = p.TotalFactor.Dec()
	}
	return v
}

// View converts u into its API read model. pending is the total reward
// owed now; bonus is zero when the pool has no rewarder.
func (u Position) View(pid uint64, account common.Address, pending *uint256.Int, bonusToken common.Address, bonus *uint256.Int) model.PositionView {
	u.Normalize()
	v := model.PositionView{
		PID:          pid,
		Account:      account.Hex(),
		Stake:        model.NewAmount(u.Stake),
		RewardDebt:   u.RewardDebt.Dec(),
		Claimable:    model.NewAmount(u.Claimable),
		Pending:      model.NewAmount(pending),
		PendingBonus: model.NewAmount(bonus),
	}
	if !u.Factor.IsZero() || !u.FactorRewardDebt.IsZero() {
		v.Factor = u.Factor.Dec()
		v.FactorRewardDebt = u.FactorRewardDebt.Dec()
	}
	if bonusToken != (common.Address{}) {
		v.BonusToken = bonusToken.Hex()
	}
	return v
}
