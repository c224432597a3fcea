// Package fixedpoint implements unsigned 18-decimal fixed-point quantities
// backed by 256-bit integers. Every arithmetic operation is checked: overflow,
// underflow and division by zero are reported as errors, never wrapped.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional decimal digits carried by an Amount.
const Decimals = 18

var (
	// ErrOverflow is returned when a result does not fit in 256 bits.
	ErrOverflow = errors.New("fixedpoint: overflow")
	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("fixedpoint: underflow")
	// ErrDivisionByZero is returned for a zero divisor.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	// ErrInvalidValue is returned when parsing a malformed or negative quantity.
	ErrInvalidValue = errors.New("fixedpoint: invalid value")
)

// One is the fixed-point unit, 10^18 base units.
var One = Amount{u: *uint256.NewInt(1_000_000_000_000_000_000)}

// Zero is the zero Amount.
var Zero = Amount{}

// Amount is an unsigned fixed-point quantity expressed in base units
// (1 unit == 10^18 base units). The zero value is 0 and Amount is safe to copy.
type Amount struct {
	u uint256.Int
}

// New returns an Amount of v base units.
func New(v uint64) Amount {
	return Amount{u: *uint256.NewInt(v)}
}

// Units returns n whole units (n * One).
func Units(n uint64) Amount {
	a, err := New(n).Mul(One)
	if err != nil {
		// n*10^18 always fits in 256 bits.
		panic(err)
	}
	return a
}

// FromBig converts a non-negative big.Int of base units.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 {
		return Zero, fmt.Errorf("%w: %v", ErrInvalidValue, b)
	}
	u, overflow := uint256.FromBig(b)
	if overflow {
		return Zero, fmt.Errorf("%w: %s does not fit in 256 bits", ErrOverflow, b.String())
	}
	return Amount{u: *u}, nil
}

// FromString parses a decimal integer of base units, e.g. "1000000000000000000".
func FromString(s string) (Amount, error) {
	var u uint256.Int
	if err := u.SetFromDecimal(s); err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidValue, s, err)
	}
	return Amount{u: u}, nil
}

// ParseUnits parses a human decimal quantity of units, e.g. "10.5", into base
// units. More than 18 fractional digits is rejected rather than truncated.
func ParseUnits(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidValue, s, err)
	}
	if d.IsNegative() {
		return Zero, fmt.Errorf("%w: %q is negative", ErrInvalidValue, s)
	}
	scaled := d.Shift(Decimals)
	if !scaled.IsInteger() {
		return Zero, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidValue, s, Decimals)
	}
	return FromBig(scaled.BigInt())
}

// MustParseUnits is like ParseUnits but panics on error. Intended for
// constants and tests.
func MustParseUnits(s string) Amount {
	a, err := ParseUnits(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b.
func (a Amount) Add(b Amount) (Amount, error) {
	var z uint256.Int
	if _, overflow := z.AddOverflow(&a.u, &b.u); overflow {
		return Zero, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return Amount{u: z}, nil
}

// Sub returns a-b.
func (a Amount) Sub(b Amount) (Amount, error) {
	var z uint256.Int
	if _, underflow := z.SubOverflow(&a.u, &b.u); underflow {
		return Zero, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	return Amount{u: z}, nil
}

// Mul returns the raw product a*b in base units. It does not rescale; use
// MulDiv(b, One) style helpers for fixed-point products.
func (a Amount) Mul(b Amount) (Amount, error) {
	var z uint256.Int
	if _, overflow := z.MulOverflow(&a.u, &b.u); overflow {
		return Zero, fmt.Errorf("%w: %s * %s", ErrOverflow, a, b)
	}
	return Amount{u: z}, nil
}

// Div returns floor(a/b).
func (a Amount) Div(b Amount) (Amount, error) {
	if b.IsZero() {
		return Zero, fmt.Errorf("%w: %s / 0", ErrDivisionByZero, a)
	}
	var z uint256.Int
	z.Div(&a.u, &b.u)
	return Amount{u: z}, nil
}

// MulDiv returns floor(a*b/d) using a 512-bit intermediate product, so only
// the final quotient has to fit in 256 bits.
func (a Amount) MulDiv(b, d Amount) (Amount, error) {
	if d.IsZero() {
		return Zero, fmt.Errorf("%w: %s * %s / 0", ErrDivisionByZero, a, b)
	}
	var z uint256.Int
	if _, overflow := z.MulDivOverflow(&a.u, &b.u, &d.u); overflow {
		return Zero, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, a, b, d)
	}
	return Amount{u: z}, nil
}

// MulUint64 returns a*n.
func (a Amount) MulUint64(n uint64) (Amount, error) {
	return a.Mul(New(n))
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.u.Cmp(&b.u) }

// Lt reports whether a < b.
func (a Amount) Lt(b Amount) bool { return a.u.Lt(&b.u) }

// Gt reports whether a > b.
func (a Amount) Gt(b Amount) bool { return a.u.Gt(&b.u) }

// Eq reports whether a == b.
func (a Amount) Eq(b Amount) bool { return a.u.Eq(&b.u) }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.u.IsZero() }

// Big returns a freshly allocated big.Int of base units.
func (a Amount) Big() *big.Int { return a.u.ToBig() }

// String returns the base-unit decimal integer representation.
func (a Amount) String() string { return a.u.Dec() }

// Format renders the amount in units with trailing zeros trimmed, e.g. "10.5".
func (a Amount) Format() string {
	return decimal.NewFromBigInt(a.Big(), -Decimals).String()
}

// Float64 returns an approximate unit value, for metrics and display only.
func (a Amount) Float64() float64 {
	return decimal.NewFromBigInt(a.Big(), -Decimals).InexactFloat64()
}

// MarshalText encodes the amount as base units.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes base units produced by MarshalText.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := FromString(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
