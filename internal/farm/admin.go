package farm

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/pool"
	"github.com/netswap/boost-engine/internal/state"
)

// Add creates a pool for stakeAsset with weight allocPoint. Each asset may
// have at most one pool. All pools are updated first so the new weight
// only affects emission from now on.
func (f *Farm) Add(caller common.Address, allocPoint uint64, stakeAsset, bonus common.Address) (uint64, error) {
	cfg, err := f.config()
	if err != nil {
		return 0, err
	}
	if err := f.onlyOwner(cfg, caller); err != nil {
		return 0, err
	}
	if taken, err := f.st.Uint64(assetKey(stakeAsset)); err != nil {
		return 0, err
	} else if taken != 0 {
		return 0, fmt.Errorf("farm: %s in pool %d: %w", stakeAsset.Hex(), taken-1, model.ErrDuplicatePool)
	}
	if err := f.checkRewarder(bonus, stakeAsset); err != nil {
		return 0, err
	}
	if err := f.syncDownstream(); err != nil {
		return 0, err
	}
	if err := f.massUpdate(cfg); err != nil {
		return 0, err
	}

	now := f.st.Now()
	last := now
	if cfg.StartTimestamp > last {
		last = cfg.StartTimestamp
	}
	pid := cfg.PoolLength
	p := pool.Pool{
		Asset:          stakeAsset,
		AllocPoint:     allocPoint,
		LastRewardTime: last,
		Rewarder:       bonus,
	}
	p.Normalize()
	if err := f.savePool(pid, p); err != nil {
		return 0, err
	}
	if err := f.st.SetUint64(assetKey(stakeAsset), pid+1); err != nil {
		return 0, err
	}
	cfg.TotalAllocPoint += allocPoint
	cfg.PoolLength++
	if err := f.save(cfg); err != nil {
		return 0, err
	}

	f.st.Emit(model.LedgerFarm, model.EventAddPool, common.Address{}, state.PID(pid), nil, map[string]string{
		"alloc_point": strconv.FormatUint(allocPoint, 10),
		"asset":       stakeAsset.Hex(),
		"rewarder":    bonus.Hex(),
	})
	return pid, nil
}

// Set changes a pool's weight, and its rewarder when overwrite is true.
func (f *Farm) Set(caller common.Address, pid, allocPoint uint64, bonus common.Address, overwrite bool) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	if err := f.onlyOwner(cfg, caller); err != nil {
		return err
	}
	current, err := f.Pool(pid)
	if err != nil {
		return err
	}
	if overwrite {
		if err := f.checkRewarder(bonus, current.Asset); err != nil {
			return err
		}
	}
	if err := f.syncDownstream(); err != nil {
		return err
	}
	if err := f.massUpdate(cfg); err != nil {
		return err
	}
	p, err := f.Pool(pid)
	if err != nil {
		return err
	}
	cfg.TotalAllocPoint = cfg.TotalAllocPoint - p.AllocPoint + allocPoint
	p.AllocPoint = allocPoint
	if overwrite {
		p.Rewarder = bonus
	}
	if err := f.savePool(pid, p); err != nil {
		return err
	}
	if err := f.save(cfg); err != nil {
		return err
	}

	f.st.Emit(model.LedgerFarm, model.EventSetPool, common.Address{}, state.PID(pid), nil, map[string]string{
		"alloc_point": strconv.FormatUint(allocPoint, 10),
		"rewarder":    p.Rewarder.Hex(),
		"overwrite":   strconv.FormatBool(overwrite),
	})
	return nil
}

// UpdateEmissionRate sets the per-second emission from now on. Pools are
// updated at the old rate first.
func (f *Farm) UpdateEmissionRate(caller common.Address, rate *uint256.Int) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	if err := f.onlyOwner(cfg, caller); err != nil {
		return err
	}
	if err := f.syncDownstream(); err != nil {
		return err
	}
	if err := f.massUpdate(cfg); err != nil {
		return err
	}
	old := cfg.Schedule.RateAt(f.st.Now())
	if err := cfg.Schedule.SetRate(f.st.Now(), rate); err != nil {
		return err
	}
	if err := f.save(cfg); err != nil {
		return err
	}
	f.st.Emit(model.LedgerFarm, model.EventUpdateEmissionRate, caller, nil, rate, map[string]string{
		"old": old.Dec(),
	})
	return nil
}

// SetDevAddr hands the dev share to a new account. Only the current dev
// account may call it.
func (f *Farm) SetDevAddr(caller, dev common.Address) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	if caller != cfg.DevAddr {
		return fmt.Errorf("farm: %s is not the dev: %w", caller.Hex(), model.ErrUnauthorized)
	}
	cfg.DevAddr = dev
	if err := f.save(cfg); err != nil {
		return err
	}
	f.st.Emit(model.LedgerFarm, model.EventSetDevAddr, dev, nil, nil, map[string]string{
		"previous": caller.Hex(),
	})
	return nil
}

func (f *Farm) checkRewarder(bonus, stakeAsset common.Address) error {
	if bonus == (common.Address{}) {
		return nil
	}
	rec, err := f.rewarders.Get(bonus)
	if err != nil {
		return err
	}
	if rec.Farm != Address {
		return fmt.Errorf("farm: rewarder %s belongs to %s: %w", bonus.Hex(), rec.Farm.Hex(), model.ErrParameterOutOfRange)
	}
	if rec.StakeAsset != stakeAsset {
		return fmt.Errorf("farm: rewarder %s is for %s, pool stakes %s: %w", bonus.Hex(), rec.StakeAsset.Hex(), stakeAsset.Hex(), model.ErrParameterOutOfRange)
	}
	return nil
}
