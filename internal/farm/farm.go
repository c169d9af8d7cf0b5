// Package farm implements the base farm: a per-second reward emission
// split across weighted pools and shared inside each pool by stake.
//
// The farm mints its reward token as pools are updated, keeps stakers'
// deposits in its custody account, and pays accrued rewards on every
// stake change. A pool's update is lazy: it happens on the next
// operation that touches the pool and is exact across any number of
// emission rate changes.
package farm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/asset"
	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/pool"
	"github.com/netswap/boost-engine/internal/rewarder"
	"github.com/netswap/boost-engine/internal/schedule"
	"github.com/netswap/boost-engine/internal/state"
)

// Address is the farm's custody account in the asset bank.
var Address = state.DeriveAddress("ledger/farm")

// MaxDevPercent is the per-mille denominator of the dev share.
const MaxDevPercent = 1000

// Params configures a new farm.
type Params struct {
	Owner          common.Address
	RewardToken    common.Address
	DevAddr        common.Address
	DevPercent     uint64
	RewardPerSec   *uint256.Int
	StartTimestamp uint64
}

// Info is the farm's global state.
type Info struct {
	Owner           common.Address
	RewardToken     common.Address
	DevAddr         common.Address
	DevPercent      uint64
	StartTimestamp  uint64
	TotalAllocPoint uint64
	PoolLength      uint64
	RewardPerSec    *uint256.Int
}

// Pending is what a staker would receive from a harvest now.
type Pending struct {
	Reward     *uint256.Int
	BonusToken common.Address
	Bonus      *uint256.Int
}

type config struct {
	Owner           common.Address
	RewardToken     common.Address
	DevAddr         common.Address
	DevPercent      uint64
	StartTimestamp  uint64
	TotalAllocPoint uint64
	PoolLength      uint64
	Schedule        schedule.Schedule
}

var keyConfig = state.GlobalKey(model.LedgerFarm, "config")

func assetKey(a common.Address) []byte {
	return state.GlobalKey(model.LedgerFarm, "asset/"+a.Hex())
}

// Downstream is a ledger whose emission is a share of one of this farm's
// pools. It is synced before any weight or rate change so that its past
// interval is priced with the old parameters.
type Downstream interface {
	SyncUpstream() error
}

// Farm is the base farm bound to one operation's state.
type Farm struct {
	st         *state.State
	bank       *asset.Bank
	rewarders  *rewarder.Registry
	downstream []Downstream
}

// New binds the farm to st.
func New(st *state.State, bank *asset.Bank, rewarders *rewarder.Registry) *Farm {
	return &Farm{st: st, bank: bank, rewarders: rewarders}
}

// Attach registers d to be synced before emission parameters change.
func (f *Farm) Attach(d Downstream) {
	f.downstream = append(f.downstream, d)
}

func (f *Farm) syncDownstream() error {
	for _, d := range f.downstream {
		if err := d.SyncUpstream(); err != nil {
			return err
		}
	}
	return nil
}

// Initialize creates the farm. Nothing is emitted before StartTimestamp.
func (f *Farm) Initialize(p Params) error {
	if _, ok, err := f.load(); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("farm: %w", model.ErrAlreadyInitialized)
	}
	if p.DevPercent > MaxDevPercent {
		return fmt.Errorf("farm: dev percent %d: %w", p.DevPercent, model.ErrParameterOutOfRange)
	}
	if p.RewardToken == (common.Address{}) {
		return fmt.Errorf("farm: zero reward token: %w", model.ErrParameterOutOfRange)
	}
	cfg := config{
		Owner:          p.Owner,
		RewardToken:    p.RewardToken,
		DevAddr:        p.DevAddr,
		DevPercent:     p.DevPercent,
		StartTimestamp: p.StartTimestamp,
		Schedule:       *schedule.New(p.StartTimestamp, fixedpoint.OrZero(p.RewardPerSec)),
	}
	return f.save(&cfg)
}

// Custody returns the account that holds the farm's stakes and rewards.
func (f *Farm) Custody() common.Address { return Address }

// Info returns the farm's global state.
func (f *Farm) Info() (Info, error) {
	cfg, err := f.config()
	if err != nil {
		return Info{}, err
	}
	return Info{
		Owner:           cfg.Owner,
		RewardToken:     cfg.RewardToken,
		DevAddr:         cfg.DevAddr,
		DevPercent:      cfg.DevPercent,
		StartTimestamp:  cfg.StartTimestamp,
		TotalAllocPoint: cfg.TotalAllocPoint,
		PoolLength:      cfg.PoolLength,
		RewardPerSec:    cfg.Schedule.RateAt(f.st.Now()),
	}, nil
}

// --- Records ---

func (f *Farm) load() (*config, bool, error) {
	var cfg config
	ok, err := f.st.Load(keyConfig, &cfg)
	return &cfg, ok, err
}

func (f *Farm) config() (*config, error) {
	cfg, ok, err := f.load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("farm: %w", model.ErrNotInitialized)
	}
	return cfg, nil
}

func (f *Farm) save(cfg *config) error {
	return f.st.Store(keyConfig, cfg)
}

// Pool returns pool pid as last stored, without advancing it.
func (f *Farm) Pool(pid uint64) (pool.Pool, error) {
	var p pool.Pool
	ok, err := f.st.Load(state.PoolKey(model.LedgerFarm, pid), &p)
	if err != nil {
		return p, err
	}
	if !ok {
		return p, fmt.Errorf("farm pool %d: %w", pid, model.ErrPoolNotFound)
	}
	p.Normalize()
	return p, nil
}

func (f *Farm) savePool(pid uint64, p pool.Pool) error {
	return f.st.Store(state.PoolKey(model.LedgerFarm, pid), &p)
}

// Position returns account's position in pool pid. Missing positions are
// zero.
func (f *Farm) Position(pid uint64, account common.Address) (pool.Position, error) {
	var u pool.Position
	_, err := f.st.Load(state.PositionKey(model.LedgerFarm, pid, account), &u)
	u.Normalize()
	return u, err
}

func (f *Farm) savePosition(pid uint64, account common.Address, u pool.Position) error {
	return f.st.Store(state.PositionKey(model.LedgerFarm, pid, account), &u)
}

func (f *Farm) onlyOwner(cfg *config, caller common.Address) error {
	if caller != cfg.Owner {
		return fmt.Errorf("farm: %s is not the owner: %w", caller.Hex(), model.ErrUnauthorized)
	}
	return nil
}
