package boost

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/pool"
	"github.com/netswap/boost-engine/internal/state"
)

// UpdateFactor re-weights account's boost in every pool where it has
// stake, after its veBalance changed to newVeBalance. The boost-stream
// reward earned under the old factor moves into Claimable; the base
// stream is untouched.
func (f *Farm) UpdateFactor(account common.Address, newVeBalance *uint256.Int) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	for pid := uint64(0); pid < cfg.PoolLength; pid++ {
		u, err := f.Position(pid, account)
		if err != nil {
			return err
		}
		if u.Stake.IsZero() {
			continue
		}
		p, err := f.updatePool(cfg, pid)
		if err != nil {
			return err
		}
		if err := f.refactor(pid, p, account, u, newVeBalance); err != nil {
			return err
		}
	}
	return nil
}

func (f *Farm) refactor(pid uint64, p pool.Pool, account common.Address, u pool.Position, ve *uint256.Int) error {
	_, boosted, err := pool.Pending(p, u, precision)
	if err != nil {
		return err
	}
	if u.Claimable, err = fixedpoint.Add(u.Claimable, boosted); err != nil {
		return err
	}
	oldFactor := u.Factor
	u.Factor = fixedpoint.GeometricMean(u.Stake, ve)
	if p.TotalFactor, err = fixedpoint.Add(fixedpoint.SubFloor(p.TotalFactor, oldFactor), u.Factor); err != nil {
		return err
	}
	if u.FactorRewardDebt, err = fixedpoint.MulDiv(u.Factor, p.AccRewardPerFactor, precision); err != nil {
		return err
	}
	if err := f.savePool(pid, p); err != nil {
		return err
	}
	if err := f.savePosition(pid, account, u); err != nil {
		return err
	}
	f.st.Emit(model.LedgerBoost, model.EventUpdateFactor, account, state.PID(pid), u.Factor, map[string]string{
		"old_factor": oldFactor.Dec(),
		"ve_balance": ve.Dec(),
		"claimable":  u.Claimable.Dec(),
	})
	return nil
}
