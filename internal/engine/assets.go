package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/boost"
	"github.com/netswap/boost-engine/internal/escrow"
	"github.com/netswap/boost-engine/internal/farm"
	"github.com/netswap/boost-engine/internal/model"
)

// Mint creates amount of asset for to. Only the deployment owner may mint.
func (e *Engine) Mint(ctx context.Context, caller, asset, to common.Address, amount *uint256.Int) error {
	return e.exec(ctx, "asset.mint", func(l *ledgers) error {
		if err := onlyOwner(l, caller); err != nil {
			return err
		}
		return l.bank.Mint(asset, to, amount)
	})
}

// Approve sets spender's allowance over owner's asset. Ledger custody
// accounts cannot grant allowances.
func (e *Engine) Approve(ctx context.Context, asset, owner, spender common.Address, amount *uint256.Int) error {
	return e.exec(ctx, "asset.approve", func(l *ledgers) error {
		if err := notCustody(l, owner); err != nil {
			return err
		}
		return l.bank.Approve(asset, owner, spender, amount)
	})
}

// Transfer moves amount of asset from one account to another. Funds held
// by a ledger only leave through that ledger's operations.
func (e *Engine) Transfer(ctx context.Context, asset, from, to common.Address, amount *uint256.Int) error {
	return e.exec(ctx, "asset.transfer", func(l *ledgers) error {
		if err := notCustody(l, from); err != nil {
			return err
		}
		return l.bank.Transfer(asset, from, to, amount)
	})
}

func notCustody(l *ledgers, account common.Address) error {
	switch account {
	case farm.Address, boost.Address, escrow.Address:
		return fmt.Errorf("engine: %s is a ledger account: %w", account.Hex(), model.ErrUnauthorized)
	}
	ok, err := l.rewarders.Exists(account)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("engine: %s is a rewarder: %w", account.Hex(), model.ErrUnauthorized)
	}
	return nil
}

// Balance returns account's balance of asset.
func (e *Engine) Balance(ctx context.Context, asset, account common.Address) (model.Amount, error) {
	var out model.Amount
	err := e.read(ctx, func(l *ledgers) error {
		bal, err := l.bank.BalanceOf(asset, account)
		if err != nil {
			return err
		}
		out = model.NewAmount(bal)
		return nil
	})
	return out, err
}

// VeBalance returns account's veBalance and the total supply.
func (e *Engine) VeBalance(ctx context.Context, account common.Address) (balance, supply model.Amount, err error) {
	err = e.read(ctx, func(l *ledgers) error {
		bal, err := l.ve.BalanceOf(account)
		if err != nil {
			return err
		}
		total, err := l.ve.TotalSupply()
		if err != nil {
			return err
		}
		balance, supply = model.NewAmount(bal), model.NewAmount(total)
		return nil
	})
	return balance, supply, err
}
