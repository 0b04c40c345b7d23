package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"marketvault/native/market"
)

// Deposit pulls assets from the caller, supplies them to the market, and
// credits shares priced at the pre-deposit valuation. A non-zero market
// status code unwinds the asset transfer and fails the whole operation.
//
// Shares are priced before control leaves the vault and credited only after
// the market accepts the mint; nothing local is left half-updated across the
// external call.
func (v *Vault) Deposit(caller common.Address, assets *uint256.Int) (*uint256.Int, error) {
	if assets == nil || assets.IsZero() {
		return nil, ErrInvalidAmount
	}
	if v.mkt.IsPaused() {
		return nil, ErrDepositsPaused
	}

	shares, err := v.ConvertToShares(assets)
	if err != nil {
		return nil, err
	}
	if shares.IsZero() {
		return nil, ErrZeroShares
	}

	if err := v.asset.Transfer(caller, v.addr, assets); err != nil {
		return nil, err
	}
	if err := v.asset.Approve(v.addr, v.mkt.Address(), assets); err != nil {
		if rbErr := v.asset.Transfer(v.addr, caller, assets); rbErr != nil {
			return nil, fmt.Errorf("vault: rollback after failed approve: %w", rbErr)
		}
		return nil, err
	}
	if code := v.mkt.Mint(v.addr, assets); code != market.StatusOK {
		// Revoke the spending capability before handing the funds back.
		if rbErr := v.asset.Approve(v.addr, v.mkt.Address(), uint256.NewInt(0)); rbErr != nil {
			return nil, fmt.Errorf("vault: rollback after failed mint: %w", rbErr)
		}
		if rbErr := v.asset.Transfer(v.addr, caller, assets); rbErr != nil {
			return nil, fmt.Errorf("vault: rollback after failed mint: %w", rbErr)
		}
		return nil, &MarketOperationError{Op: "mint", Code: code}
	}

	v.credit(caller, shares)
	v.logger.Info("vault deposit",
		"caller", caller.Hex(),
		"assets", assets.Dec(),
		"shares", shares.Dec(),
	)
	return shares, nil
}

// Withdraw redeems underlying from the market and pays the caller, burning
// the smallest share amount covering the assets. The withdrawal is bounded
// by market cash and by the caller's share balance; a non-zero market status
// code fails the operation with nothing burned or paid.
func (v *Vault) Withdraw(caller common.Address, assets *uint256.Int) (*uint256.Int, error) {
	if assets == nil || assets.IsZero() {
		return nil, ErrInvalidAmount
	}
	if assets.Gt(v.mkt.Cash()) {
		return nil, ErrInsufficientLiquidity
	}

	shares, err := v.sharesForWithdraw(assets)
	if err != nil {
		return nil, err
	}
	if shares.Gt(v.ShareBalanceOf(caller)) {
		return nil, ErrInsufficientShares
	}

	if code := v.mkt.RedeemUnderlying(v.addr, assets); code != market.StatusOK {
		return nil, &MarketOperationError{Op: "redeemUnderlying", Code: code}
	}

	// Shares are debited only once the payout has actually moved; a failed
	// transfer leaves the caller's balance untouched.
	if err := v.asset.Transfer(v.addr, caller, assets); err != nil {
		return nil, err
	}
	v.debit(caller, shares)
	v.logger.Info("vault withdraw",
		"caller", caller.Hex(),
		"assets", assets.Dec(),
		"shares", shares.Dec(),
	)
	return shares, nil
}
