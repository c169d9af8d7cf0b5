// Package fixedpoint provides the scaled-integer arithmetic behind every
// reward accumulator. All quantities are uint256 values; intermediate
// overflow is reported as an error rather than wrapped.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when a result does not fit in 256 bits.
	ErrOverflow = errors.New("fixedpoint: uint256 overflow")

	// ErrUnderflow is returned when a subtraction would go negative.
	ErrUnderflow = errors.New("fixedpoint: uint256 underflow")

	// ErrDivideByZero is returned by MulDiv for a zero denominator.
	ErrDivideByZero = errors.New("fixedpoint: division by zero")
)

const (
	// Decimals is the number of decimals of every token handled by the engine.
	Decimals = 18

	// MaxBasisPoints is the denominator of boost share parameters.
	MaxBasisPoints = 10_000
)

// Precision is the accumulator scale (1e18) shared by the boosted farm and
// the escrow ledger.
func Precision() *uint256.Int { return uint256.NewInt(1e18) }

// FarmPrecision is the accumulator scale (1e12) of the base farm.
func FarmPrecision() *uint256.Int { return uint256.NewInt(1e12) }

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// New returns v as a uint256.
func New(v uint64) *uint256.Int { return uint256.NewInt(v) }

// Ether returns v * 1e18.
func Ether(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), Precision())
}

// Parse reads a base-10 integer string.
func Parse(s string) (*uint256.Int, error) {
	return uint256.FromDecimal(s)
}

// OrZero returns x, or a fresh zero when x is nil.
func OrZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}

// Add returns x + y.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x - y.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// SubFloor returns x - y, or zero when y > x.
func SubFloor(x, y *uint256.Int) *uint256.Int {
	if y.Gt(x) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Mul returns x * y.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDiv returns floor(x * y / d) using a 512-bit intermediate product.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivideByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sqrt returns floor(sqrt(x)).
func Sqrt(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// GeometricMean returns floor(sqrt(a * b)). The product is formed in 512
// bits when needed so large stakes cannot overflow.
func GeometricMean(a, b *uint256.Int) *uint256.Int {
	if a.IsZero() || b.IsZero() {
		return new(uint256.Int)
	}
	if p, overflow := new(uint256.Int).MulOverflow(a, b); !overflow {
		return p.Sqrt(p)
	}
	// The product needs 512 bits: bisect on mid <= floor(a*b/mid).
	lo, hi := new(uint256.Int), new(uint256.Int).SetAllOne()
	one := uint256.NewInt(1)
	for lo.Lt(hi) {
		mid := new(uint256.Int).Sub(hi, lo)
		mid.Rsh(mid, 1).Add(mid, lo).Add(mid, one)
		q, overflow := new(uint256.Int).MulDivOverflow(a, b, mid)
		if overflow || !mid.Gt(q) {
			lo = mid
		} else {
			hi = mid.Sub(mid, one)
		}
	}
	return lo
}

// Min returns the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x.Clone()
	}
	return y.Clone()
}
