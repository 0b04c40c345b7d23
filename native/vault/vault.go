// Package vault implements share-based accounting over a pooled money-market
// position: valuation at the market's live exchange rate, liquidity and
// pause bounded limits, and deposit/withdraw orchestration against the
// external market.
package vault

import (
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"marketvault/native/market"
	"marketvault/native/rates"
	"marketvault/native/wad"
)

// Vault wraps a single market position. The share ledger is the only state
// the vault owns; every valuation is recomputed from the market per call and
// never cached, since interest accrues continuously.
type Vault struct {
	addr  common.Address
	asset market.Token
	mkt   market.Market

	rewardToken     market.Token
	rewardRecipient common.Address

	now func() uint64

	totalShares *uint256.Int
	balances    map[common.Address]*uint256.Int

	logger *slog.Logger
}

// New constructs a vault over the given underlying asset and market. The
// vault's own address identifies its principal-token position in the market.
func New(addr common.Address, asset market.Token, mkt market.Market) *Vault {
	return &Vault{
		addr:        addr,
		asset:       asset,
		mkt:         mkt,
		now:         func() uint64 { return uint64(time.Now().Unix()) },
		totalShares: uint256.NewInt(0),
		balances:    make(map[common.Address]*uint256.Int),
		logger:      slog.Default(),
	}
}

// SetClock overrides the timestamp source used for accrual simulation.
func (v *Vault) SetClock(now func() uint64) {
	if v == nil || now == nil {
		return
	}
	v.now = now
}

// SetLogger wires the structured logger used for operation logging.
func (v *Vault) SetLogger(logger *slog.Logger) {
	if v == nil || logger == nil {
		return
	}
	v.logger = logger
}

// SetRewardRoute configures the reward token and its immutable recipient.
func (v *Vault) SetRewardRoute(token market.Token, recipient common.Address) {
	if v == nil {
		return
	}
	v.rewardToken = token
	v.rewardRecipient = recipient
}

// Address returns the vault's own address.
func (v *Vault) Address() common.Address { return v.addr }

// Market returns the wrapped market.
func (v *Vault) Market() market.Market { return v.mkt }

// ExchangeRate returns the rate the market would store if it accrued right
// now, without mutating anything.
func (v *Vault) ExchangeRate() (*uint256.Int, error) {
	return rates.ComputeExchangeRate(market.TakeSnapshot(v.mkt), v.mkt, v.now())
}

// TotalAssets values the vault's principal-token balance at the current
// exchange rate.
func (v *Vault) TotalAssets() (*uint256.Int, error) {
	rate, err := v.ExchangeRate()
	if err != nil {
		return nil, err
	}
	return wad.MulDown(v.mkt.PrincipalBalanceOf(v.addr), rate)
}

// ShareBalanceOf returns the owner's share balance.
func (v *Vault) ShareBalanceOf(owner common.Address) *uint256.Int {
	if bal, ok := v.balances[owner]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// TotalShares returns the circulating share supply.
func (v *Vault) TotalShares() *uint256.Int {
	return new(uint256.Int).Set(v.totalShares)
}

// ConvertToShares prices assets in shares at the current valuation,
// truncating in the pool's favour. With no shares outstanding the mapping is
// one to one.
func (v *Vault) ConvertToShares(assets *uint256.Int) (*uint256.Int, error) {
	if v.totalShares.IsZero() {
		return new(uint256.Int).Set(assets), nil
	}
	total, err := v.TotalAssets()
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		return new(uint256.Int).Set(assets), nil
	}
	return wad.MulDivDown(assets, v.totalShares, total)
}

// ConvertToAssets prices shares in assets at the current valuation,
// truncating in the pool's favour.
func (v *Vault) ConvertToAssets(shares *uint256.Int) (*uint256.Int, error) {
	if v.totalShares.IsZero() {
		return new(uint256.Int).Set(shares), nil
	}
	total, err := v.TotalAssets()
	if err != nil {
		return nil, err
	}
	return wad.MulDivDown(shares, total, v.totalShares)
}

// sharesForWithdraw returns the smallest share amount covering the assets.
func (v *Vault) sharesForWithdraw(assets *uint256.Int) (*uint256.Int, error) {
	if v.totalShares.IsZero() {
		return new(uint256.Int).Set(assets), nil
	}
	total, err := v.TotalAssets()
	if err != nil {
		return nil, err
	}
	return wad.MulDivUp(assets, v.totalShares, total)
}

func (v *Vault) credit(owner common.Address, shares *uint256.Int) {
	bal, ok := v.balances[owner]
	if !ok {
		bal = uint256.NewInt(0)
		v.balances[owner] = bal
	}
	bal.Add(bal, shares)
	v.totalShares.Add(v.totalShares, shares)
}

func (v *Vault) debit(owner common.Address, shares *uint256.Int) {
	if bal, ok := v.balances[owner]; ok {
		bal.Sub(bal, shares)
	}
	v.totalShares.Sub(v.totalShares, shares)
}
