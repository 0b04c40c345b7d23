// Package wad implements floor-division fixed-point arithmetic with 18
// fractional decimal digits over 256-bit unsigned integers, matching the
// precision and width of the money markets this module replicates.
package wad

import (
	"errors"

	"github.com/holiman/uint256"
)

// One is the scaling factor: 1.0 in fixed-point form.
var One = uint256.NewInt(1_000_000_000_000_000_000)

var (
	// ErrOverflow reports an intermediate product wider than 256 bits.
	ErrOverflow = errors.New("wad: arithmetic overflow")
	// ErrDivisionByZero reports a zero divisor.
	ErrDivisionByZero = errors.New("wad: division by zero")
)

// MulDown returns floor(a*b / 1e18).
func MulDown(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, One), nil
}

// DivDown returns floor(a*1e18 / b).
func DivDown(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	scaled, overflow := new(uint256.Int).MulOverflow(a, One)
	if overflow {
		return nil, ErrOverflow
	}
	return scaled.Div(scaled, b), nil
}

// MulDivDown returns floor(a*b / d).
func MulDivDown(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return product.Div(product, d), nil
}

// MulDivUp returns ceil(a*b / d). Rounding up is used where truncation would
// favour the caller over the pool, mirroring MulDivDown everywhere else.
func MulDivUp(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	quotient := new(uint256.Int).Div(product, d)
	remainder := new(uint256.Int).Mod(product, d)
	if !remainder.IsZero() {
		quotient.AddUint64(quotient, 1)
	}
	return quotient, nil
}
