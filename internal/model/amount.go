package model

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// displayExp shifts base units to whole tokens (18 decimals).
const displayExp = -18

// NewAmount converts a base-unit quantity into its API representation.
func NewAmount(x *uint256.Int) Amount {
	if x == nil {
		return Amount{Raw: "0", Display: decimal.Zero}
	}
	return Amount{
		Raw:     x.Dec(),
		Display: decimal.NewFromBigInt(x.ToBig(), displayExp),
	}
}

// ParseDisplay converts a whole-token decimal (e.g. "1.5") into base units.
// Fractions finer than 18 decimals are truncated.
func ParseDisplay(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, ErrInvalidAmount
	}
	v, overflow := uint256.FromBig(d.Shift(-displayExp).Truncate(0).BigInt())
	if overflow {
		return nil, ErrInvalidAmount
	}
	return v, nil
}
