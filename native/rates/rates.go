// Package rates replays a money market's interest accrual without touching
// its state, reproducing the exact exchange rate the market itself would
// store if it accrued at the given instant.
package rates

import (
	"errors"

	"github.com/holiman/uint256"

	"marketvault/native/market"
	"marketvault/native/wad"
)

var (
	// ErrRateTooHigh reports a rate-model output above the market's own
	// ceiling. It signals upstream corruption or manipulation and is never
	// retried.
	ErrRateTooHigh = errors.New("rates: borrow rate exceeds maximum")
	// ErrReservesExceedEquity reports an insolvent snapshot where reserves
	// outgrow cash plus borrows. Unsigned subtraction would wrap here, so
	// the engine fails instead of trusting the upstream invariant.
	ErrReservesExceedEquity = errors.New("rates: reserves exceed cash plus borrows")
)

// MaxBorrowRate is the highest per-second borrow rate the engine accepts:
// 0.0005e16 in the rate model's fixed-point base, the same ceiling the
// market enforces on itself.
var MaxBorrowRate = uint256.NewInt(5_000_000_000_000)

// ComputeExchangeRate simulates one accrual step over the snapshot and
// returns the resulting exchange rate. When the snapshot is already current
// the stored rate is returned unchanged, guaranteeing exact agreement with
// the market's own value.
func ComputeExchangeRate(snap market.Snapshot, model market.RateModel, now uint64) (*uint256.Int, error) {
	if now <= snap.AccrualTimestamp {
		return new(uint256.Int).Set(snap.StoredExchangeRate), nil
	}
	elapsed := now - snap.AccrualTimestamp

	borrowRate := model.BorrowRate(snap.Cash, snap.BorrowsPrior, snap.ReservesPrior)
	if borrowRate.Gt(MaxBorrowRate) {
		return nil, ErrRateTooHigh
	}

	rateOverPeriod, overflow := new(uint256.Int).MulOverflow(borrowRate, uint256.NewInt(elapsed))
	if overflow {
		return nil, wad.ErrOverflow
	}
	interest, err := wad.MulDown(rateOverPeriod, snap.BorrowsPrior)
	if err != nil {
		return nil, err
	}

	reserveShare, err := wad.MulDown(snap.ReserveFactor, interest)
	if err != nil {
		return nil, err
	}
	totalReserves, overflow := new(uint256.Int).AddOverflow(reserveShare, snap.ReservesPrior)
	if overflow {
		return nil, wad.ErrOverflow
	}
	totalBorrows, overflow := new(uint256.Int).AddOverflow(interest, snap.BorrowsPrior)
	if overflow {
		return nil, wad.ErrOverflow
	}

	if snap.TotalPrincipalSupply.IsZero() {
		return new(uint256.Int).Set(snap.InitialExchangeRate), nil
	}

	equity, overflow := new(uint256.Int).AddOverflow(snap.Cash, totalBorrows)
	if overflow {
		return nil, wad.ErrOverflow
	}
	if equity.Lt(totalReserves) {
		return nil, ErrReservesExceedEquity
	}
	equity.Sub(equity, totalReserves)
	return wad.DivDown(equity, snap.TotalPrincipalSupply)
}
