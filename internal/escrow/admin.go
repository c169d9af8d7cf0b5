package escrow

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/model"
)

// SetVePerSharePerSec changes the base accrual rate. Accrual up to now is
// settled at the old rate.
func (s *Staking) SetVePerSharePerSec(caller common.Address, rate *uint256.Int) error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	if err := s.onlyOwner(&cfg, caller); err != nil {
		return err
	}
	if err := checkRate(rate); err != nil {
		return err
	}
	if cfg, err = s.updateRewardVars(cfg); err != nil {
		return err
	}
	old := cfg.VePerSharePerSec
	cfg.VePerSharePerSec = rate.Clone()
	if err := s.save(&cfg); err != nil {
		return err
	}
	s.st.Emit(model.LedgerEscrow, model.EventUpdateVePerSharePerSec, caller, nil, rate, map[string]string{"old": old.Dec()})
	return nil
}

// SetMaxCapPct raises the veBalance cap. The cap can never be lowered.
func (s *Staking) SetMaxCapPct(caller common.Address, pct uint64) error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	if err := s.onlyOwner(&cfg, caller); err != nil {
		return err
	}
	if pct <= cfg.MaxCapPct || pct > MaxCapPctLimit {
		return fmt.Errorf("escrow: max cap pct %d (current %d): %w", pct, cfg.MaxCapPct, model.ErrParameterOutOfRange)
	}
	old := cfg.MaxCapPct
	cfg.MaxCapPct = pct
	if err := s.save(&cfg); err != nil {
		return err
	}
	s.st.Emit(model.LedgerEscrow, model.EventUpdateMaxCapPct, caller, nil, uint256.NewInt(pct), map[string]string{"old": fmt.Sprint(old)})
	return nil
}

// SetSpeedUpThreshold sets the minimum deposit, in percent of the current
// principal, that opens a new speed-up window.
func (s *Staking) SetSpeedUpThreshold(caller common.Address, threshold uint64) error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	if err := s.onlyOwner(&cfg, caller); err != nil {
		return err
	}
	if err := checkThreshold(threshold); err != nil {
		return err
	}
	old := cfg.SpeedUpThreshold
	cfg.SpeedUpThreshold = threshold
	if err := s.save(&cfg); err != nil {
		return err
	}
	s.st.Emit(model.LedgerEscrow, model.EventUpdateSpeedUpThreshold, caller, nil, uint256.NewInt(threshold), map[string]string{"old": fmt.Sprint(old)})
	return nil
}

// SetSpeedUpDuration sets the length of future speed-up windows. Open
// windows keep their end timestamp.
func (s *Staking) SetSpeedUpDuration(caller common.Address, seconds uint64) error {
	cfg, err := s.Config()
	if err != nil {
		return err
	}
	if err := s.onlyOwner(&cfg, caller); err != nil {
		return err
	}
	if seconds > MaxSpeedUpDuration {
		return fmt.Errorf("escrow: speed up duration %d: %w", seconds, model.ErrParameterOutOfRange)
	}
	old := cfg.SpeedUpDuration
	cfg.SpeedUpDuration = seconds
	if err := s.save(&cfg); err != nil {
		return err
	}
	s.st.Emit(model.LedgerEscrow, model.EventUpdateSpeedUpDuration, caller, nil, uint256.NewInt(seconds), map[string]string{"old": fmt.Sprint(old)})
	return nil
}
