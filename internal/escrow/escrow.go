// Package escrow implements ve staking: stakers lock the base asset and
// accrue veBalance every second, faster during a speed-up window that
// opens on qualifying deposits, up to a cap proportional to what they have
// staked. Withdrawing any amount burns the staker's whole veBalance.
package escrow

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/asset"
	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/state"
)

// Address is the escrow's custody account in the asset bank and the owner
// of the ve registry.
var Address = state.DeriveAddress("ledger/escrow")

// Parameter limits.
const (
	MaxCapPctLimit        = 10_000_000
	MaxSpeedUpThreshold   = 100
	MaxSpeedUpDuration    = 365 * 24 * 60 * 60
	capScale              = 100
	thresholdScale        = 100
	maxRatePerSharePerSec = "1000000000000000000000000000000000000"
)

var (
	maxRate   = uint256.MustFromDecimal(maxRatePerSharePerSec)
	precision = fixedpoint.Precision()
	keyConfig = state.GlobalKey(model.LedgerEscrow, "config")
)

// VeToken is the registry the escrow mints into and burns from.
type VeToken interface {
	Mint(caller, account common.Address, amount *uint256.Int) error
	BurnFrom(caller, account common.Address, amount *uint256.Int) error
	BalanceOf(account common.Address) (*uint256.Int, error)
}

// Params configures a new escrow.
type Params struct {
	Owner                   common.Address
	BaseAsset               common.Address
	VePerSharePerSec        *uint256.Int
	SpeedUpVePerSharePerSec *uint256.Int
	SpeedUpThreshold        uint64
	SpeedUpDuration         uint64
	MaxCapPct               uint64
}

// Config is the escrow's global state.
type Config struct {
	Owner                   common.Address
	BaseAsset               common.Address
	VePerSharePerSec        *uint256.Int
	SpeedUpVePerSharePerSec *uint256.Int
	SpeedUpThreshold        uint64
	SpeedUpDuration         uint64
	MaxCapPct               uint64
	AccVePerShare           *uint256.Int
	LastRewardTimestamp     uint64
	TotalStaked             *uint256.Int
}

// Position is one staker's escrow record.
type Position struct {
	Principal           *uint256.Int
	RewardDebt          *uint256.Int
	LastClaimTimestamp  uint64
	SpeedUpEndTimestamp uint64
}

// Staking is the escrow bound to one operation's state.
type Staking struct {
	st   *state.State
	bank *asset.Bank
	ve   VeToken
}

// New binds the escrow to st.
func New(st *state.State, bank *asset.Bank, ve VeToken) *Staking {
	return &Staking{st: st, bank: bank, ve: ve}
}

// Initialize creates the escrow.
func (s *Staking) Initialize(p Params) error {
	var cur Config
	if ok, err := s.st.Load(keyConfig, &cur); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("escrow: %w", model.ErrAlreadyInitialized)
	}
	if p.BaseAsset == (common.Address{}) {
		return fmt.Errorf("escrow: zero base asset: %w", model.ErrParameterOutOfRange)
	}
	if err := checkRate(p.VePerSharePerSec); err != nil {
		return err
	}
	if err := checkRate(p.SpeedUpVePerSharePerSec); err != nil {
		return err
	}
	if err := checkThreshold(p.SpeedUpThreshold); err != nil {
		return err
	}
	if p.SpeedUpDuration > MaxSpeedUpDuration {
		return fmt.Errorf("escrow: speed up duration %d: %w", p.SpeedUpDuration, model.ErrParameterOutOfRange)
	}
	if p.MaxCapPct == 0 || p.MaxCapPct > MaxCapPctLimit {
		return fmt.Errorf("escrow: max cap pct %d: %w", p.MaxCapPct, model.ErrParameterOutOfRange)
	}
	cfg := Config{
		Owner:                   p.Owner,
		BaseAsset:               p.BaseAsset,
		VePerSharePerSec:        p.VePerSharePerSec.Clone(),
		SpeedUpVePerSharePerSec: p.SpeedUpVePerSharePerSec.Clone(),
		SpeedUpThreshold:        p.SpeedUpThreshold,
		SpeedUpDuration:         p.SpeedUpDuration,
		MaxCapPct:               p.MaxCapPct,
		AccVePerShare:           new(uint256.Int),
		LastRewardTimestamp:     s.st.Now(),
		TotalStaked:             new(uint256.Int),
	}
	return s.save(&cfg)
}

// Config returns the escrow's global state as last stored.
func (s *Staking) Config() (Config, error) {
	var cfg Config
	ok, err := s.st.Load(keyConfig, &cfg)
	if err != nil {
		return cfg, err
	}
	if !ok {
		return cfg, fmt.Errorf("escrow: %w", model.ErrNotInitialized)
	}
	cfg.VePerSharePerSec = fixedpoint.OrZero(cfg.VePerSharePerSec)
	cfg.SpeedUpVePerSharePerSec = fixedpoint.OrZero(cfg.SpeedUpVePerSharePerSec)
	cfg.AccVePerShare = fixedpoint.OrZero(cfg.AccVePerShare)
	cfg.TotalStaked = fixedpoint.OrZero(cfg.TotalStaked)
	return cfg, nil
}

func (s *Staking) save(cfg *Config) error {
	return s.st.Store(keyConfig, cfg)
}

// Position returns account's escrow record. Missing records are zero.
func (s *Staking) Position(account common.Address) (Position, error) {
	var u Position
	_, err := s.st.Load(state.EscrowKey(account), &u)
	u.Principal = fixedpoint.OrZero(u.Principal)
	u.RewardDebt = fixedpoint.OrZero(u.RewardDebt)
	return u, err
}

func (s *Staking) savePosition(account common.Address, u Position) error {
	return s.st.Store(state.EscrowKey(account), &u)
}

func checkRate(r *uint256.Int) error {
	if r == nil || r.Gt(maxRate) {
		return fmt.Errorf("escrow: rate %v above 1e36: %w", r, model.ErrParameterOutOfRange)
	}
	return nil
}

func checkThreshold(t uint64) error {
	if t == 0 || t > MaxSpeedUpThreshold {
		return fmt.Errorf("escrow: speed up threshold %d: %w", t, model.ErrParameterOutOfRange)
	}
	return nil
}

func (s *Staking) onlyOwner(cfg *Config, caller common.Address) error {
	if caller != cfg.Owner {
		return fmt.Errorf("escrow: %s is not the owner: %w", caller.Hex(), model.ErrUnauthorized)
	}
	return nil
}
