// Package market defines the boundary to an external money market: the
// read-only accrual snapshot it publishes and the capability interfaces a
// vault needs to observe and move value through it. The market owns and
// mutates all of this state; this module only reads it and invokes the two
// mutating entry points.
package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Status codes returned by the market's mutating entry points. Zero means
// success; everything else is surfaced verbatim to callers.
const (
	StatusOK uint64 = iota
	StatusPaused
	StatusInsufficientCash
	StatusInsufficientPrincipal
	StatusTransferFailed
	StatusAccrualFailed
)

// Snapshot is a point-in-time view of a market's accrual state. All amounts
// are 256-bit unsigned integers; rate and ratio values are WAD scaled.
type Snapshot struct {
	// AccrualTimestamp is the last time the market itself updated state.
	AccrualTimestamp uint64
	// StoredExchangeRate is the rate persisted at the last accrual.
	StoredExchangeRate *uint256.Int
	// Cash is the liquid underlying held directly by the market.
	Cash *uint256.Int
	// BorrowsPrior is the outstanding borrow total as of the last accrual.
	BorrowsPrior *uint256.Int
	// ReservesPrior is the reserve total as of the last accrual.
	ReservesPrior *uint256.Int
	// TotalPrincipalSupply is the circulating principal token supply.
	TotalPrincipalSupply *uint256.Int
	// ReserveFactor is the WAD fraction of interest routed to reserves.
	ReserveFactor *uint256.Int
	// InitialExchangeRate applies while no principal tokens exist.
	InitialExchangeRate *uint256.Int
}

// RateModel prices borrow demand from the market's liquidity figures. The
// model is opaque to this module; its output is only sanity-bounded.
type RateModel interface {
	BorrowRate(cash, borrows, reserves *uint256.Int) *uint256.Int
}

// Market is the capability surface of an external money market. Snapshot
// accessors are plain reads over state only the market mutates; Mint and
// RedeemUnderlying return a status code in the market's own numbering.
type Market interface {
	RateModel

	Address() common.Address
	AccrualTimestamp() uint64
	StoredExchangeRate() *uint256.Int
	Cash() *uint256.Int
	TotalBorrows() *uint256.Int
	TotalReserves() *uint256.Int
	TotalPrincipalSupply() *uint256.Int
	ReserveFactor() *uint256.Int
	InitialExchangeRate() *uint256.Int
	IsPaused() bool

	Mint(supplier common.Address, assets *uint256.Int) uint64
	RedeemUnderlying(supplier common.Address, assets *uint256.Int) uint64
	PrincipalBalanceOf(addr common.Address) *uint256.Int
	ClaimRewards(holder common.Address)
}

// Token is the ledger capability for an underlying or reward asset. The
// sender is explicit: callers hold the authority for the balances they move.
type Token interface {
	BalanceOf(addr common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
	Approve(owner, spender common.Address, amount *uint256.Int) error
}

// TakeSnapshot assembles a consistent view of the market's accrual state.
// The getters read state that only the market mutates, so the assembled
// struct is coherent for the duration of the enclosing operation.
func TakeSnapshot(m Market) Snapshot {
	return Snapshot{
		AccrualTimestamp:     m.AccrualTimestamp(),
		StoredExchangeRate:   m.StoredExchangeRate(),
		Cash:                 m.Cash(),
		BorrowsPrior:         m.TotalBorrows(),
		ReservesPrior:        m.TotalReserves(),
		TotalPrincipalSupply: m.TotalPrincipalSupply(),
		ReserveFactor:        m.ReserveFactor(),
		InitialExchangeRate:  m.InitialExchangeRate(),
	}
}
