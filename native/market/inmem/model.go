package inmem

import (
	"github.com/holiman/uint256"

	"marketvault/native/wad"
)

// JumpRateModel prices borrow demand with a kinked utilization curve: a
// linear slope up to the kink and a steeper jump slope beyond it, pushing
// rates up sharply when liquidity runs thin. All parameters are per-second
// WAD rates except Kink, a WAD utilization ratio.
type JumpRateModel struct {
	Base       *uint256.Int
	Multiplier *uint256.Int
	Jump       *uint256.Int
	Kink       *uint256.Int
}

// BorrowRate returns the per-second borrow rate for the given liquidity
// figures.
func (m *JumpRateModel) BorrowRate(cash, borrows, reserves *uint256.Int) *uint256.Int {
	util := utilization(cash, borrows, reserves)
	rate := new(uint256.Int).Set(m.Base)

	if util.Cmp(m.Kink) <= 0 {
		rate.Add(rate, scale(util, m.Multiplier))
		return rate
	}

	rate.Add(rate, scale(m.Kink, m.Multiplier))
	excess := new(uint256.Int).Sub(util, m.Kink)
	rate.Add(rate, scale(excess, m.Jump))
	return rate
}

// utilization = borrows / (cash + borrows - reserves), WAD scaled. Zero when
// nothing is borrowed; saturates at one when reserves consume the equity or
// when the figures are too large to scale without wrapping.
func utilization(cash, borrows, reserves *uint256.Int) *uint256.Int {
	if borrows.IsZero() {
		return uint256.NewInt(0)
	}
	denom, overflow := new(uint256.Int).AddOverflow(cash, borrows)
	if overflow {
		return new(uint256.Int).Set(wad.One)
	}
	if !denom.Gt(reserves) {
		return new(uint256.Int).Set(wad.One)
	}
	denom.Sub(denom, reserves)
	util, overflow := new(uint256.Int).MulOverflow(borrows, wad.One)
	if overflow {
		return new(uint256.Int).Set(wad.One)
	}
	return util.Div(util, denom)
}

// scale multiplies a WAD utilization by a WAD rate. Operands are bounded
// well below 2^128 so the product cannot overflow.
func scale(util, rate *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Mul(util, rate)
	return out.Div(out, wad.One)
}
