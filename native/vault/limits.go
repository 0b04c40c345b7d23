package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MaxDeposit reports deposit capacity for the owner: zero while the market
// is paused, otherwise unbounded.
func (v *Vault) MaxDeposit(common.Address) *uint256.Int {
	if v.mkt.IsPaused() {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).SetAllOne()
}

// MaxMint reports share-mint capacity under the same pause gate as
// MaxDeposit.
func (v *Vault) MaxMint(common.Address) *uint256.Int {
	if v.mkt.IsPaused() {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).SetAllOne()
}

// MaxWithdraw bounds a withdrawal by both the owner's entitlement and the
// market's liquid cash. Entitled assets may be lent out and illiquid; pause
// state is deliberately ignored so holders can always exit up to cash.
func (v *Vault) MaxWithdraw(owner common.Address) (*uint256.Int, error) {
	entitled, err := v.ConvertToAssets(v.ShareBalanceOf(owner))
	if err != nil {
		return nil, err
	}
	cash := v.mkt.Cash()
	if cash.Lt(entitled) {
		return new(uint256.Int).Set(cash), nil
	}
	return entitled, nil
}

// MaxRedeem bounds a redemption by the owner's share balance and the share
// value of the market's liquid cash.
func (v *Vault) MaxRedeem(owner common.Address) (*uint256.Int, error) {
	liquid, err := v.ConvertToShares(v.mkt.Cash())
	if err != nil {
		return nil, err
	}
	balance := v.ShareBalanceOf(owner)
	if liquid.Lt(balance) {
		return liquid, nil
	}
	return balance, nil
}
