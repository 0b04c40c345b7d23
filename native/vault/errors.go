package vault

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount rejects zero or nil amounts.
	ErrInvalidAmount = errors.New("vault: amount must be positive")
	// ErrDepositsPaused reports a deposit attempted while the market is
	// paused. Withdrawals are never gated on pause state.
	ErrDepositsPaused = errors.New("vault: market paused, deposits disabled")
	// ErrZeroShares reports a deposit too small to mint a single share.
	ErrZeroShares = errors.New("vault: deposit yields zero shares")
	// ErrInsufficientShares reports a withdrawal beyond the owner's balance.
	ErrInsufficientShares = errors.New("vault: insufficient share balance")
	// ErrInsufficientLiquidity reports a withdrawal beyond the market's
	// liquid cash, regardless of the owner's notional entitlement.
	ErrInsufficientLiquidity = errors.New("vault: insufficient market liquidity")
	// ErrNoRewardRoute reports a reward claim with no reward token wired.
	ErrNoRewardRoute = errors.New("vault: reward route not configured")
)

// MarketOperationError reports a non-zero status code returned by the
// market's mint or redeem entry point. The code is carried verbatim for
// diagnosis; the enclosing operation is rolled back in full.
type MarketOperationError struct {
	Op   string
	Code uint64
}

func (e *MarketOperationError) Error() string {
	return fmt.Sprintf("vault: market %s failed with code %d", e.Op, e.Code)
}
