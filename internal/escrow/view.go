package escrow

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/netswap/boost-engine/internal/model"
)

// View returns the escrow's global state with the accumulator brought up
// to now.
func (s *Staking) View() (model.EscrowView, error) {
	cfg, err := s.Config()
	if err != nil {
		return model.EscrowView{}, err
	}
	if cfg, err = advance(cfg, s.st.Now()); err != nil {
		return model.EscrowView{}, err
	}
	return model.EscrowView{
		BaseAsset:               cfg.BaseAsset.Hex(),
		TotalStaked:             model.NewAmount(cfg.TotalStaked),
		AccVePerShare:           cfg.AccVePerShare.Dec(),
		LastRewardTimestamp:     cfg.LastRewardTimestamp,
		VePerSharePerSec:        cfg.VePerSharePerSec.Dec(),
		SpeedUpVePerSharePerSec: cfg.SpeedUpVePerSharePerSec.Dec(),
		SpeedUpThreshold:        cfg.SpeedUpThreshold,
		SpeedUpDuration:         cfg.SpeedUpDuration,
		MaxCapPct:               cfg.MaxCapPct,
	}, nil
}

// PositionView returns account's escrow record with its pending and
// current veBalance.
func (s *Staking) PositionView(account common.Address) (model.EscrowPositionView, error) {
	u, err := s.Position(account)
	if err != nil {
		return model.EscrowPositionView{}, err
	}
	pending, err := s.PendingVe(account)
	if err != nil {
		return model.EscrowPositionView{}, err
	}
	ve, err := s.ve.BalanceOf(account)
	if err != nil {
		return model.EscrowPositionView{}, err
	}
	return model.EscrowPositionView{
		Account:             account.Hex(),
		Principal:           model.NewAmount(u.Principal),
		RewardDebt:          u.RewardDebt.Dec(),
		LastClaimTimestamp:  u.LastClaimTimestamp,
		SpeedUpEndTimestamp: u.SpeedUpEndTimestamp,
		PendingVe:           model.NewAmount(pending),
		VeBalance:           model.NewAmount(ve),
	}, nil
}
