package engine

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/model"
)

// EscrowParams changes escrow parameters. Nil fields are left as they are.
type EscrowParams struct {
	VePerSharePerSec *uint256.Int
	MaxCapPct        *uint64
	SpeedUpThreshold *uint64
	SpeedUpDuration  *uint64
}

// EscrowDeposit locks amount of the base asset for account.
func (e *Engine) EscrowDeposit(ctx context.Context, account common.Address, amount *uint256.Int) error {
	return e.exec(ctx, "escrow.deposit", func(l *ledgers) error {
		return l.escrow.Deposit(account, amount)
	})
}

// EscrowWithdraw unlocks amount and burns account's whole veBalance.
func (e *Engine) EscrowWithdraw(ctx context.Context, account common.Address, amount *uint256.Int) error {
	return e.exec(ctx, "escrow.withdraw", func(l *ledgers) error {
		return l.escrow.Withdraw(account, amount)
	})
}

// EscrowClaim mints account's pending veBalance.
func (e *Engine) EscrowClaim(ctx context.Context, account common.Address) error {
	return e.exec(ctx, "escrow.claim", func(l *ledgers) error {
		return l.escrow.Claim(account)
	})
}

// EscrowUpdate brings the escrow accumulator up to date.
func (e *Engine) EscrowUpdate(ctx context.Context) error {
	return e.exec(ctx, "escrow.update", func(l *ledgers) error {
		return l.escrow.UpdateRewardVars()
	})
}

// EscrowSetParams applies every non-nil field of p in one operation.
func (e *Engine) EscrowSetParams(ctx context.Context, caller common.Address, p EscrowParams) error {
	return e.exec(ctx, "escrow.set_params", func(l *ledgers) error {
		if p.VePerSharePerSec != nil {
			if err := l.escrow.SetVePerSharePerSec(caller, p.VePerSharePerSec); err != nil {
				return err
			}
		}
		if p.MaxCapPct != nil {
			if err := l.escrow.SetMaxCapPct(caller, *p.MaxCapPct); err != nil {
				return err
			}
		}
		if p.SpeedUpThreshold != nil {
			if err := l.escrow.SetSpeedUpThreshold(caller, *p.SpeedUpThreshold); err != nil {
				return err
			}
		}
		if p.SpeedUpDuration != nil {
			if err := l.escrow.SetSpeedUpDuration(caller, *p.SpeedUpDuration); err != nil {
				return err
			}
		}
		return nil
	})
}

// Escrow returns the escrow's global state.
func (e *Engine) Escrow(ctx context.Context) (model.EscrowView, error) {
	var v model.EscrowView
	err := e.read(ctx, func(l *ledgers) (err error) {
		v, err = l.escrow.View()
		return err
	})
	return v, err
}

// EscrowPosition returns account's escrow record.
func (e *Engine) EscrowPosition(ctx context.Context, account common.Address) (model.EscrowPositionView, error) {
	var v model.EscrowPositionView
	err := e.read(ctx, func(l *ledgers) (err error) {
		v, err = l.escrow.PositionView(account)
		return err
	})
	return v, err
}
