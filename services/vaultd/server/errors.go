package server

import (
	"errors"
	"fmt"
	"net/http"

	"marketvault/native/rates"
	"marketvault/native/vault"
)

// translate maps domain errors onto HTTP statuses and a stable metric reason.
// Caller-correctable conditions map to 4xx; market-side failures surface as
// 502 since the fault lies with the upstream market, not this service.
func translate(err error) (status int, message, reason string) {
	var opErr *vault.MarketOperationError
	switch {
	case errors.Is(err, vault.ErrInvalidAmount):
		return http.StatusBadRequest, err.Error(), "invalid_amount"
	case errors.Is(err, vault.ErrZeroShares):
		return http.StatusBadRequest, err.Error(), "zero_shares"
	case errors.Is(err, vault.ErrDepositsPaused):
		return http.StatusConflict, err.Error(), "paused"
	case errors.Is(err, vault.ErrInsufficientShares):
		return http.StatusConflict, err.Error(), "insufficient_shares"
	case errors.Is(err, vault.ErrInsufficientLiquidity):
		return http.StatusConflict, err.Error(), "insufficient_liquidity"
	case errors.Is(err, vault.ErrNoRewardRoute):
		return http.StatusConflict, err.Error(), "no_reward_route"
	case errors.Is(err, rates.ErrRateTooHigh):
		return http.StatusBadGateway, err.Error(), "rate_too_high"
	case errors.Is(err, rates.ErrReservesExceedEquity):
		return http.StatusBadGateway, err.Error(), "reserves_exceed_equity"
	case errors.As(err, &opErr):
		return http.StatusBadGateway, err.Error(), fmt.Sprintf("market_code_%d", opErr.Code)
	default:
		return http.StatusInternalServerError, "internal error", "internal"
	}
}
