package escrow

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
)

// advance returns cfg with the accumulator brought up to now. The rate is
// per staked share, so accrual does not depend on the total staked as long
// as something is staked.
func advance(cfg Config, now uint64) (Config, error) {
	if now <= cfg.LastRewardTimestamp {
		return cfg, nil
	}
	if cfg.TotalStaked.IsZero() {
		cfg.LastRewardTimestamp = now
		return cfg, nil
	}
	elapsed := uint256.NewInt(now - cfg.LastRewardTimestamp)
	inc, err := fixedpoint.Mul(elapsed, cfg.VePerSharePerSec)
	if err != nil {
		return cfg, err
	}
	if cfg.AccVePerShare, err = fixedpoint.Add(cfg.AccVePerShare, inc); err != nil {
		return cfg, err
	}
	cfg.LastRewardTimestamp = now
	return cfg, nil
}

// UpdateRewardVars brings the global accumulator up to date.
func (s *Staking) UpdateRewardVars() error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	_, err = s.updateRewardVars(cfg)
	return err
}

func (s *Staking) updateRewardVars(cfg Config) (Config, error) {
	now := s.st.Now()
	if now <= cfg.LastRewardTimestamp {
		return cfg, nil
	}
	cfg, err := advance(cfg, now)
	if err != nil {
		return cfg, err
	}
	if err := s.save(&cfg); err != nil {
		return cfg, err
	}
	s.st.Emit(model.LedgerEscrow, model.EventUpdateRewardVars, common.Address{}, nil, nil, map[string]string{
		"acc_ve_per_share": cfg.AccVePerShare.Dec(),
		"total_staked":     cfg.TotalStaked.Dec(),
	})
	return cfg, nil
}

// pending is the veBalance account could claim now under cfg, after the
// cap is applied.
func (s *Staking) pending(cfg Config, account common.Address, u Position) (*uint256.Int, error) {
	if u.Principal.IsZero() {
		return new(uint256.Int), nil
	}
	now := s.st.Now()
	accrued, err := fixedpoint.MulDiv(u.Principal, cfg.AccVePerShare, precision)
	if err != nil {
		return nil, err
	}
	pending := fixedpoint.SubFloor(accrued, u.RewardDebt)

	if u.SpeedUpEndTimestamp != 0 {
		end := min(now, u.SpeedUpEndTimestamp)
		if end > u.LastClaimTimestamp {
			rate, err := fixedpoint.Mul(uint256.NewInt(end-u.LastClaimTimestamp), cfg.SpeedUpVePerSharePerSec)
			if err != nil {
				return nil, err
			}
			bonus, err := fixedpoint.MulDiv(rate, u.Principal, precision)
			if err != nil {
				return nil, err
			}
			if pending, err = fixedpoint.Add(pending, bonus); err != nil {
				return nil, err
			}
		}
	}
	if pending.IsZero() {
		return pending, nil
	}

	ve, err := s.ve.BalanceOf(account)
	if err != nil {
		return nil, err
	}
	return capped(ve, pending, u.Principal, cfg.MaxCapPct)
}

// capped limits pending so that the veBalance never exceeds
// principal * maxCapPct / 100.
func capped(ve, pending, principal *uint256.Int, maxCapPct uint64) (*uint256.Int, error) {
	scale := uint256.NewInt(capScale)
	scaledVe, err := fixedpoint.Mul(ve, scale)
	if err != nil {
		return nil, err
	}
	limit, err := fixedpoint.Mul(principal, uint256.NewInt(maxCapPct))
	if err != nil {
		return nil, err
	}
	if !scaledVe.Lt(limit) {
		return new(uint256.Int), nil
	}
	scaledPending, err := fixedpoint.Mul(pending, scale)
	if err != nil {
		return nil, err
	}
	total, err := fixedpoint.Add(scaledVe, scaledPending)
	if err != nil {
		return nil, err
	}
	if total.Gt(limit) {
		room := new(uint256.Int).Sub(limit, scaledVe)
		return room.Div(room, scale), nil
	}
	return pending, nil
}

// PendingVe returns the veBalance account could claim now.
func (s *Staking) PendingVe(account common.Address) (*uint256.Int, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	if cfg, err = advance(cfg, s.st.Now()); err != nil {
		return nil, err
	}
	u, err := s.Position(account)
	if err != nil {
		return nil, err
	}
	return s.pending(cfg, account, u)
}

// claim mints account's pending veBalance. An expired speed-up window is
// closed first.
func (s *Staking) claim(cfg Config, account common.Address, u *Position) error {
	now := s.st.Now()
	pending, err := s.pending(cfg, account, *u)
	if err != nil {
		return err
	}
	if u.SpeedUpEndTimestamp != 0 && now >= u.SpeedUpEndTimestamp {
		u.SpeedUpEndTimestamp = 0
	}
	if pending.IsZero() {
		return nil
	}
	u.LastClaimTimestamp = now
	if u.RewardDebt, err = fixedpoint.MulDiv(cfg.AccVePerShare, u.Principal, precision); err != nil {
		return err
	}
	if err := s.ve.Mint(Address, account, pending); err != nil {
		return err
	}
	s.st.Emit(model.LedgerEscrow, model.EventClaim, account, nil, pending, nil)
	return nil
}

// Claim mints account's pending veBalance.
func (s *Staking) Claim(account common.Address) error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	u, err := s.Position(account)
	if err != nil {
		return err
	}
	if u.Principal.IsZero() {
		return fmt.Errorf("escrow claim: %w", model.ErrNothingStaked)
	}
	if cfg, err = s.updateRewardVars(cfg); err != nil {
		return err
	}
	if err := s.claim(cfg, account, &u); err != nil {
		return err
	}
	return s.savePosition(account, u)
}

// Deposit stakes amount of the base asset for account. A first deposit, or
// one of at least SpeedUpThreshold percent of the current principal, opens
// a new speed-up window.
func (s *Staking) Deposit(account common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("escrow deposit: %w", model.ErrInvalidAmount)
	}
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	if cfg, err = s.updateRewardVars(cfg); err != nil {
		return err
	}
	u, err := s.Position(account)
	if err != nil {
		return err
	}
	now := s.st.Now()

	if !u.Principal.IsZero() {
		if err := s.claim(cfg, account, &u); err != nil {
			return err
		}
		u.LastClaimTimestamp = now
		qualifies, err := reachesThreshold(amount, u.Principal, cfg.SpeedUpThreshold)
		if err != nil {
			return err
		}
		if qualifies {
			u.SpeedUpEndTimestamp = now + cfg.SpeedUpDuration
		}
	} else {
		u.SpeedUpEndTimestamp = now + cfg.SpeedUpDuration
		u.LastClaimTimestamp = now
	}

	if u.Principal, err = fixedpoint.Add(u.Principal, amount); err != nil {
		return err
	}
	if u.RewardDebt, err = fixedpoint.MulDiv(cfg.AccVePerShare, u.Principal, precision); err != nil {
		return err
	}
	if cfg.TotalStaked, err = fixedpoint.Add(cfg.TotalStaked, amount); err != nil {
		return err
	}
	if err := s.save(&cfg); err != nil {
		return err
	}
	if err := s.savePosition(account, u); err != nil {
		return err
	}
	if err := s.bank.TransferFrom(cfg.BaseAsset, Address, account, Address, amount); err != nil {
		return err
	}
	s.st.Emit(model.LedgerEscrow, model.EventDeposit, account, nil, amount, map[string]string{
		"speed_up_end_timestamp": fmt.Sprint(u.SpeedUpEndTimestamp),
	})
	return nil
}

// reachesThreshold reports amount*100 >= threshold*principal.
func reachesThreshold(amount, principal *uint256.Int, threshold uint64) (bool, error) {
	lhs, err := fixedpoint.Mul(amount, uint256.NewInt(thresholdScale))
	if err != nil {
		return false, err
	}
	rhs, err := fixedpoint.Mul(principal, uint256.NewInt(threshold))
	if err != nil {
		return false, err
	}
	return !lhs.Lt(rhs), nil
}

// Withdraw returns amount of principal to account and burns its whole
// veBalance. Pending veBalance is forfeited.
func (s *Staking) Withdraw(account common.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return fmt.Errorf("escrow withdraw: %w", model.ErrInvalidAmount)
	}
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	u, err := s.Position(account)
	if err != nil {
		return err
	}
	if u.Principal.Lt(amount) {
		return fmt.Errorf("escrow withdraw %s from %s: %w", amount.Dec(), u.Principal.Dec(), model.ErrInsufficientStake)
	}
	if cfg, err = s.updateRewardVars(cfg); err != nil {
		return err
	}
	now := s.st.Now()

	u.Principal = new(uint256.Int).Sub(u.Principal, amount)
	if u.RewardDebt, err = fixedpoint.MulDiv(cfg.AccVePerShare, u.Principal, precision); err != nil {
		return err
	}
	u.LastClaimTimestamp = now
	u.SpeedUpEndTimestamp = 0
	cfg.TotalStaked = fixedpoint.SubFloor(cfg.TotalStaked, amount)
	if err := s.save(&cfg); err != nil {
		return err
	}
	if err := s.savePosition(account, u); err != nil {
		return err
	}

	ve, err := s.ve.BalanceOf(account)
	if err != nil {
		return err
	}
	if !ve.IsZero() {
		if err := s.ve.BurnFrom(Address, account, ve); err != nil {
			return err
		}
	}
	if err := s.bank.Transfer(cfg.BaseAsset, Address, account, amount); err != nil {
		return err
	}
	s.st.Emit(model.LedgerEscrow, model.EventWithdraw, account, nil, amount, map[string]string{
		"ve_burned": ve.Dec(),
	})
	return nil
}
