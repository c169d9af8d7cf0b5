// Package boost implements the boosted farm. Its emission is whatever the
// base farm pays for one master pool, which the boosted farm stakes a
// dummy asset into. Inside each boosted pool the emission is split into a
// base stream shared by stake and a boost stream shared by factor, where
// factor = floor(sqrt(stake * veBalance)).
package boost

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/asset"
	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/pool"
	"github.com/netswap/boost-engine/internal/rewarder"
	"github.com/netswap/boost-engine/internal/state"
)

// Address is the boosted farm's custody account in the asset bank.
var Address = state.DeriveAddress("ledger/boost")

// Upstream is the base farm the boosted farm draws its emission from.
type Upstream interface {
	Custody() common.Address
	Pool(pid uint64) (pool.Pool, error)
	Deposit(account common.Address, pid uint64, amount *uint256.Int) error
	PoolReward(pid, from, to uint64) (*uint256.Int, error)
}

// VeBalances reads veBalances.
type VeBalances interface {
	BalanceOf(account common.Address) (*uint256.Int, error)
}

// Params configures a new boosted farm.
type Params struct {
	Owner       common.Address
	RewardToken common.Address
	MasterPID   uint64
}

// Info is the boosted farm's global state.
type Info struct {
	Owner           common.Address
	RewardToken     common.Address
	DummyToken      common.Address
	MasterPID       uint64
	Initialized     bool
	TotalAllocPoint uint64
	PoolLength      uint64
}

// Pending is what a staker would receive from a harvest now. Reward
// includes both streams and any claimable reward.
type Pending struct {
	Reward     *uint256.Int
	BonusToken common.Address
	Bonus      *uint256.Int
}

type config struct {
	Owner           common.Address
	RewardToken     common.Address
	DummyToken      common.Address
	MasterPID       uint64
	Initialized     bool
	TotalAllocPoint uint64
	PoolLength      uint64
}

var keyConfig = state.GlobalKey(model.LedgerBoost, "config")

func assetKey(a common.Address) []byte {
	return state.GlobalKey(model.LedgerBoost, "asset/"+a.Hex())
}

// Farm is the boosted farm bound to one operation's state.
type Farm struct {
	st        *state.State
	bank      *asset.Bank
	rewarders *rewarder.Registry
	upstream  Upstream
	ve        VeBalances
}

// New binds the boosted farm to st.
func New(st *state.State, bank *asset.Bank, rewarders *rewarder.Registry, upstream Upstream, ve VeBalances) *Farm {
	return &Farm{st: st, bank: bank, rewarders: rewarders, upstream: upstream, ve: ve}
}

// Initialize creates the boosted farm. It emits nothing until Init.
func (f *Farm) Initialize(p Params) error {
	var cur config
	if ok, err := f.st.Load(keyConfig, &cur); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("boost: %w", model.ErrAlreadyInitialized)
	}
	if p.RewardToken == (common.Address{}) {
		return fmt.Errorf("boost: zero reward token: %w", model.ErrParameterOutOfRange)
	}
	return f.save(&config{Owner: p.Owner, RewardToken: p.RewardToken, MasterPID: p.MasterPID})
}

// Init moves the caller's whole balance of dummy into the boosted farm and
// stakes it in the upstream master pool.
func (f *Farm) Init(caller, dummy common.Address) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	if err := f.onlyOwner(cfg, caller); err != nil {
		return err
	}
	if cfg.Initialized {
		return fmt.Errorf("boost: already has a balance of dummy token: %w", model.ErrAlreadyInitialized)
	}
	master, err := f.upstream.Pool(cfg.MasterPID)
	if err != nil {
		return err
	}
	if master.Asset != dummy {
		return fmt.Errorf("boost: master pool %d stakes %s, not %s: %w",
			cfg.MasterPID, master.Asset.Hex(), dummy.Hex(), model.ErrParameterOutOfRange)
	}
	bal, err := f.bank.BalanceOf(dummy, caller)
	if err != nil {
		return err
	}
	if bal.IsZero() {
		return fmt.Errorf("boost: zero dummy balance: %w", model.ErrInvalidAmount)
	}
	if err := f.bank.TransferFrom(dummy, Address, caller, Address, bal); err != nil {
		return err
	}
	if err := f.bank.Approve(dummy, Address, f.upstream.Custody(), bal); err != nil {
		return err
	}
	if err := f.upstream.Deposit(Address, cfg.MasterPID, bal); err != nil {
		return err
	}

	cfg.DummyToken = dummy
	cfg.Initialized = true
	if err := f.save(cfg); err != nil {
		return err
	}
	f.st.Emit(model.LedgerBoost, model.EventInit, caller, nil, bal, nil)
	return nil
}

// Info returns the boosted farm's global state.
func (f *Farm) Info() (Info, error) {
	cfg, err := f.config()
	if err != nil {
		return Info{}, err
	}
	return Info(*cfg), nil
}

// Add creates a boosted pool for stakeAsset. boostShareBp of its emission
// goes to the boost stream.
func (f *Farm) Add(caller common.Address, allocPoint uint64, boostShareBp uint32, stakeAsset, bonus common.Address) (uint64, error) {
	cfg, err := f.config()
	if err != nil {
		return 0, err
	}
	if err := f.onlyOwner(cfg, caller); err != nil {
		return 0, err
	}
	if !cfg.Initialized {
		return 0, fmt.Errorf("boost: add before init: %w", model.ErrNotInitialized)
	}
	if boostShareBp > fixedpoint.MaxBasisPoints {
		return 0, fmt.Errorf("boost: share %d bp: %w", boostShareBp, model.ErrParameterOutOfRange)
	}
	if taken, err := f.st.Uint64(assetKey(stakeAsset)); err != nil {
		return 0, err
	} else if taken != 0 {
		return 0, fmt.Errorf("boost: %s in pool %d: %w", stakeAsset.Hex(), taken-1, model.ErrDuplicatePool)
	}
	if err := f.checkRewarder(bonus, stakeAsset); err != nil {
		return 0, err
	}
	if err := f.massUpdate(cfg); err != nil {
		return 0, err
	}

	pid := cfg.PoolLength
	p := pool.Pool{
		Asset:          stakeAsset,
		AllocPoint:     allocPoint,
		LastRewardTime: f.st.Now(),
		Rewarder:       bonus,
		BoostShareBp:   boostShareBp,
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

	f.st.Emit(model.LedgerBoost, model.EventAddPool, common.Address{}, state.PID(pid), nil, map[string]string{
		"alloc_point":    strconv.FormatUint(allocPoint, 10),
		"boost_share_bp": strconv.FormatUint(uint64(boostShareBp), 10),
		"asset":          stakeAsset.Hex(),
		"rewarder":       bonus.Hex(),
	})
	return pid, nil
}

// Set changes a pool's weight and boost share, and its rewarder when
// overwrite is true. Every pool is updated under the old parameters first.
func (f *Farm) Set(caller common.Address, pid, allocPoint uint64, boostShareBp uint32, bonus common.Address, overwrite bool) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	if err := f.onlyOwner(cfg, caller); err != nil {
		return err
	}
	if boostShareBp > fixedpoint.MaxBasisPoints {
		return fmt.Errorf("boost: share %d bp: %w", boostShareBp, model.ErrParameterOutOfRange)
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
	if err := f.massUpdate(cfg); err != nil {
		return err
	}
	p, err := f.Pool(pid)
	if err != nil {
		return err
	}
	cfg.TotalAllocPoint = cfg.TotalAllocPoint - p.AllocPoint + allocPoint
	p.AllocPoint = allocPoint
	p.BoostShareBp = boostShareBp
	if overwrite {
		p.Rewarder = bonus
	}
	if err := f.savePool(pid, p); err != nil {
		return err
	}
	if err := f.save(cfg); err != nil {
		return err
	}

	f.st.Emit(model.LedgerBoost, model.EventSetPool, common.Address{}, state.PID(pid), nil, map[string]string{
		"alloc_point":    strconv.FormatUint(allocPoint, 10),
		"boost_share_bp": strconv.FormatUint(uint64(boostShareBp), 10),
		"rewarder":       p.Rewarder.Hex(),
		"overwrite":      strconv.FormatBool(overwrite),
	})
	return nil
}

// --- Records ---

func (f *Farm) config() (*config, error) {
	var cfg config
	ok, err := f.st.Load(keyConfig, &cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("boost: %w", model.ErrNotInitialized)
	}
	return &cfg, nil
}

func (f *Farm) save(cfg *config) error {
	return f.st.Store(keyConfig, cfg)
}

// Pool returns pool pid as last stored, without advancing it.
func (f *Farm) Pool(pid uint64) (pool.Pool, error) {
	var p pool.Pool
	ok, err := f.st.Load(state.PoolKey(model.LedgerBoost, pid), &p)
	if err != nil {
		return p, err
	}
	if !ok {
		return p, fmt.Errorf("boost pool %d: %w", pid, model.ErrPoolNotFound)
	}
	p.Normalize()
	return p, nil
}

func (f *Farm) savePool(pid uint64, p pool.Pool) error {
	return f.st.Store(state.PoolKey(model.LedgerBoost, pid), &p)
}

// Position returns account's position in pool pid. Missing positions are
// zero.
func (f *Farm) Position(pid uint64, account common.Address) (pool.Position, error) {
	var u pool.Position
	_, err := f.st.Load(state.PositionKey(model.LedgerBoost, pid, account), &u)
	u.Normalize()
	return u, err
}

func (f *Farm) savePosition(pid uint64, account common.Address, u pool.Position) error {
	return f.st.Store(state.PositionKey(model.LedgerBoost, pid, account), &u)
}

// Claimable returns the boost-stream reward settled for account by
// veBalance changes and not yet paid.
func (f *Farm) Claimable(pid uint64, account common.Address) (*uint256.Int, error) {
	u, err := f.Position(pid, account)
	if err != nil {
		return nil, err
	}
	return u.Claimable, nil
}

func (f *Farm) onlyOwner(cfg *config, caller common.Address) error {
	if caller != cfg.Owner {
		return fmt.Errorf("boost: %s is not the owner: %w", caller.Hex(), model.ErrUnauthorized)
	}
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
		return fmt.Errorf("boost: rewarder %s belongs to %s: %w", bonus.Hex(), rec.Farm.Hex(), model.ErrParameterOutOfRange)
	}
	if rec.StakeAsset != stakeAsset {
		return fmt.Errorf("boost: rewarder %s is for %s, pool stakes %s: %w", bonus.Hex(), rec.StakeAsset.Hex(), stakeAsset.Hex(), model.ErrParameterOutOfRange)
	}
	return nil
}
