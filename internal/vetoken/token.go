// Package vetoken is the veBalance registry: a non-transferable balance
// that only its owner (the escrow ledger) can mint or burn. Every balance
// change is reported synchronously to the boosted farm.
package vetoken

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
	"github.com/netswap/boost-engine/internal/model"
	"github.com/netswap/boost-engine/internal/state"
)

// Hook receives every veBalance change.
type Hook interface {
	UpdateFactor(account common.Address, newVeBalance *uint256.Int) error
}

var (
	keyOwner       = state.GlobalKey(model.LedgerVe, "owner")
	keySupply      = state.GlobalKey(model.LedgerVe, "supply")
	keyBoostedFarm = state.GlobalKey(model.LedgerVe, "boostedFarm")
)

// Token is the registry bound to one operation's state.
type Token struct {
	st   *state.State
	hook Hook
}

// New binds the registry to st. hook is called when a boosted farm has
// been registered with SetBoostedFarm; it may be nil.
func New(st *state.State, hook Hook) *Token {
	return &Token{st: st, hook: hook}
}

// Initialize sets the first owner. It fails once an owner exists.
func (t *Token) Initialize(owner common.Address) error {
	cur, err := t.Owner()
	if err != nil {
		return err
	}
	if cur != (common.Address{}) {
		return fmt.Errorf("ve owner already set: %w", model.ErrAlreadyInitialized)
	}
	return t.st.SetAddress(keyOwner, owner)
}

// Owner returns the account allowed to mint and burn.
func (t *Token) Owner() (common.Address, error) {
	return t.st.Address(keyOwner)
}

// BoostedFarm returns the registered boosted farm, zero if none.
func (t *Token) BoostedFarm() (common.Address, error) {
	return t.st.Address(keyBoostedFarm)
}

// BalanceOf returns account's veBalance.
func (t *Token) BalanceOf(account common.Address) (*uint256.Int, error) {
	return t.st.Uint(state.VeKey(account))
}

// TotalSupply returns the sum of all veBalances.
func (t *Token) TotalSupply() (*uint256.Int, error) {
	return t.st.Uint(keySupply)
}

// Mint credits amount to account and notifies the boosted farm.
func (t *Token) Mint(caller, account common.Address, amount *uint256.Int) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	bal, err := t.BalanceOf(account)
	if err != nil {
		return err
	}
	if bal, err = fixedpoint.Add(bal, amount); err != nil {
		return err
	}
	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	if supply, err = fixedpoint.Add(supply, amount); err != nil {
		return err
	}
	if err := t.write(account, bal, supply); err != nil {
		return err
	}
	t.st.Emit(model.LedgerVe, model.EventVeMint, account, nil, amount, nil)
	return t.notify(account, bal)
}

// BurnFrom debits amount from account and notifies the boosted farm.
func (t *Token) BurnFrom(caller, account common.Address, amount *uint256.Int) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	bal, err := t.BalanceOf(account)
	if err != nil {
		return err
	}
	if bal, err = fixedpoint.Sub(bal, amount); err != nil {
		return fmt.Errorf("burn %s ve from %s: %w", amount.Dec(), account.Hex(), model.ErrInvalidAmount)
	}
	supply, err := t.TotalSupply()
	if err != nil {
		return err
	}
	if err := t.write(account, bal, fixedpoint.SubFloor(supply, amount)); err != nil {
		return err
	}
	t.st.Emit(model.LedgerVe, model.EventVeBurn, account, nil, amount, nil)
	return t.notify(account, bal)
}

// SetBoostedFarm registers the farm that receives balance changes.
func (t *Token) SetBoostedFarm(caller, farm common.Address) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	return t.st.SetAddress(keyBoostedFarm, farm)
}

// TransferOwnership hands mint and burn rights to newOwner.
func (t *Token) TransferOwnership(caller, newOwner common.Address) error {
	if err := t.onlyOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("new owner is the zero address: %w", model.ErrParameterOutOfRange)
	}
	if err := t.st.SetAddress(keyOwner, newOwner); err != nil {
		return err
	}
	t.st.Emit(model.LedgerVe, model.EventOwnershipTransferred, newOwner, nil, nil, map[string]string{
		"previous": caller.Hex(),
	})
	return nil
}

func (t *Token) onlyOwner(caller common.Address) error {
	owner, err := t.Owner()
	if err != nil {
		return err
	}
	if caller != owner || owner == (common.Address{}) {
		return fmt.Errorf("ve: %s is not the owner: %w", caller.Hex(), model.ErrUnauthorized)
	}
	return nil
}

func (t *Token) write(account common.Address, bal, supply *uint256.Int) error {
	if err := t.st.SetUint(state.VeKey(account), bal); err != nil {
		return err
	}
	return t.st.SetUint(keySupply, supply)
}

func (t *Token) notify(account common.Address, bal *uint256.Int) error {
	if t.hook == nil {
		return nil
	}
	farm, err := t.BoostedFarm()
	if err != nil || farm == (common.Address{}) {
		return err
	}
	return t.hook.UpdateFactor(account, bal)
}
