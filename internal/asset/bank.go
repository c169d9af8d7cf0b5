// Package asset is the in-process asset transfer service: fungible balances
// and allowances for any number of assets, identified by address.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/state"
)

// Bank moves asset balances inside one operation's state.
type Bank struct {
	st *state.State
}

// New binds a Bank to st.
func New(st *state.State) *Bank {
	return &Bank{st: st}
}

func supplyKey(asset common.Address) []byte {
	return state.GlobalKey(model.LedgerAsset, "supply/"+asset.Hex())
}

// BalanceOf returns account's balance of asset.
func (b *Bank) BalanceOf(asset, account common.Address) (*uint256.Int, error) {
	return b.st.Uint(state.BalanceKey(asset, account))
}

// TotalSupply returns the minted-minus-burned amount of asset.
func (b *Bank) TotalSupply(asset common.Address) (*uint256.Int, error) {
	return b.st.Uint(supplyKey(asset))
}

// Allowance returns how much spender may pull from owner.
func (b *Bank) Allowance(asset, owner, spender common.Address) (*uint256.Int, error) {
	return b.st.Uint(state.AllowanceKey(asset, owner, spender))
}

// Approve sets spender's allowance over owner's asset. The all-ones value
// is an unlimited allowance that TransferFrom never decrements.
func (b *Bank) Approve(asset, owner, spender common.Address, amount *uint256.Int) error {
	if err := b.st.SetUint(state.AllowanceKey(asset, owner, spender), amount); err != nil {
		return err
	}
	b.st.Emit(model.LedgerAsset, model.EventApproval, owner, nil, amount, map[string]string{
		"asset":   asset.Hex(),
		"spender": spender.Hex(),
	})
	return nil
}

// Transfer moves amount from one account to another.
func (b *Bank) Transfer(asset, from, to common.Address, amount *uint256.Int) error {
	if err := b.move(asset, from, to, amount); err != nil {
		return err
	}
	b.emitTransfer(asset, from, to, amount)
	return nil
}

// TransferFrom moves amount from owner to to on behalf of spender,
// consuming allowance.
func (b *Bank) TransferFrom(asset, spender, owner, to common.Address, amount *uint256.Int) error {
	if spender != owner {
		key := state.AllowanceKey(asset, owner, spender)
		allowed, err := b.st.Uint(key)
		if err != nil {
			return err
		}
		if !isUnlimited(allowed) {
			left, err := fixedpoint.Sub(allowed, amount)
			if err != nil {
				return fmt.Errorf("allowance %s < %s: %w", allowed.Dec(), amount.Dec(), model.ErrTransferFailed)
			}
			if err := b.st.SetUint(key, left); err != nil {
				return err
			}
		}
	}
	return b.Transfer(asset, owner, to, amount)
}

// Mint creates amount of asset for to.
func (b *Bank) Mint(asset, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	supply, err := b.TotalSupply(asset)
	if err != nil {
		return err
	}
	if supply, err = fixedpoint.Add(supply, amount); err != nil {
		return err
	}
	if err := b.credit(asset, to, amount); err != nil {
		return err
	}
	if err := b.st.SetUint(supplyKey(asset), supply); err != nil {
		return err
	}
	b.emitTransfer(asset, common.Address{}, to, amount)
	return nil
}

// Burn destroys amount of from's asset.
func (b *Bank) Burn(asset, from common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := b.debit(asset, from, amount); err != nil {
		return err
	}
	supply, err := b.TotalSupply(asset)
	if err != nil {
		return err
	}
	if err := b.st.SetUint(supplyKey(asset), fixedpoint.SubFloor(supply, amount)); err != nil {
		return err
	}
	b.emitTransfer(asset, from, common.Address{}, amount)
	return nil
}

// --- Balance helpers ---

func (b *Bank) move(asset, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() || from == to {
		// Self and zero transfers only check the balance.
		bal, err := b.BalanceOf(asset, from)
		if err != nil {
			return err
		}
		if bal.Lt(amount) {
			return fmt.Errorf("balance %s < %s: %w", bal.Dec(), amount.Dec(), model.ErrTransferFailed)
		}
		return nil
	}
	if err := b.debit(asset, from, amount); err != nil {
		return err
	}
	return b.credit(asset, to, amount)
}

func (b *Bank) debit(asset, account common.Address, amount *uint256.Int) error {
	key := state.BalanceKey(asset, account)
	bal, err := b.st.Uint(key)
	if err != nil {
		return err
	}
	left, err := fixedpoint.Sub(bal, amount)
	if err != nil {
		return fmt.Errorf("balance %s < %s: %w", bal.Dec(), amount.Dec(), model.ErrTransferFailed)
	}
	return b.st.SetUint(key, left)
}

func (b *Bank) credit(asset, account common.Address, amount *uint256.Int) error {
	key := state.BalanceKey(asset, account)
	bal, err := b.st.Uint(key)
	if err != nil {
		return err
	}
	if bal, err = fixedpoint.Add(bal, amount); err != nil {
		return err
	}
	return b.st.SetUint(key, bal)
}

func (b *Bank) emitTransfer(asset, from, to common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	b.st.Emit(model.LedgerAsset, model.EventTransfer, from, nil, amount, map[string]string{
		"asset": asset.Hex(),
		"to":    to.Hex(),
	})
}

func isUnlimited(x *uint256.Int) bool {
	return x.Eq(new(uint256.Int).SetAllOne())
}

// Unlimited returns the allowance value that is never decremented.
func Unlimited() *uint256.Int { return new(uint256.Int).SetAllOne() }
