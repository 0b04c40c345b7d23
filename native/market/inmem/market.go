// Package inmem provides an in-memory money market implementing the
// market.Market capability surface. vaultd serves it as the reference market
// and tests use it as a realistic collaborator: it accrues interest with the
// same formula the rates engine replays, so the two agree by construction.
package inmem

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"marketvault/native/market"
	"marketvault/native/rates"
	"marketvault/native/wad"
)

// Market holds the full accrual state of a single money market.
type Market struct {
	addr       common.Address
	model      market.RateModel
	underlying *Ledger
	reward     *Ledger

	now func() uint64

	accrualTimestamp uint64
	exchangeRate     *uint256.Int
	cash             *uint256.Int
	borrows          *uint256.Int
	reserves         *uint256.Int
	principalSupply  *uint256.Int
	reserveFactor    *uint256.Int
	initialRate      *uint256.Int
	paused           bool

	principal     map[common.Address]*uint256.Int
	rewardAccrued map[common.Address]*uint256.Int
}

// NewMarket constructs an empty market over the underlying ledger. The
// initial exchange rate applies until principal tokens circulate.
func NewMarket(addr common.Address, underlying *Ledger, model market.RateModel, initialRate, reserveFactor *uint256.Int) *Market {
	m := &Market{
		addr:            addr,
		model:           model,
		underlying:      underlying,
		now:             func() uint64 { return uint64(time.Now().Unix()) },
		exchangeRate:    new(uint256.Int).Set(initialRate),
		cash:            uint256.NewInt(0),
		borrows:         uint256.NewInt(0),
		reserves:        uint256.NewInt(0),
		principalSupply: uint256.NewInt(0),
		reserveFactor:   new(uint256.Int).Set(reserveFactor),
		initialRate:     new(uint256.Int).Set(initialRate),
		principal:       make(map[common.Address]*uint256.Int),
		rewardAccrued:   make(map[common.Address]*uint256.Int),
	}
	m.accrualTimestamp = m.now()
	return m
}

// SetClock overrides the market's timestamp source.
func (m *Market) SetClock(now func() uint64) {
	if now == nil {
		return
	}
	m.now = now
	m.accrualTimestamp = now()
}

// SetPaused toggles the pause flag. Only minting honours it.
func (m *Market) SetPaused(paused bool) { m.paused = paused }

// SetRewardLedger wires the ledger reward claims pay out on.
func (m *Market) SetRewardLedger(reward *Ledger) { m.reward = reward }

// AccrueReward records reward entitlement for a holder, claimable later.
func (m *Market) AccrueReward(holder common.Address, amount *uint256.Int) {
	owed, ok := m.rewardAccrued[holder]
	if !ok {
		owed = uint256.NewInt(0)
		m.rewardAccrued[holder] = owed
	}
	owed.Add(owed, amount)
}

// Seed installs an accrual state directly: cash is minted to the market on
// the underlying ledger and the principal supply is assigned to holder.
func (m *Market) Seed(holder common.Address, cash, borrows, reserves, principalSupply *uint256.Int) error {
	m.cash = new(uint256.Int).Set(cash)
	m.borrows = new(uint256.Int).Set(borrows)
	m.reserves = new(uint256.Int).Set(reserves)
	m.principalSupply = new(uint256.Int).Set(principalSupply)
	m.underlying.Mint(m.addr, cash)
	if !principalSupply.IsZero() {
		m.principal[holder] = new(uint256.Int).Set(principalSupply)
	}
	m.accrualTimestamp = m.now()
	return m.restate()
}

func (m *Market) Address() common.Address        { return m.addr }
func (m *Market) AccrualTimestamp() uint64       { return m.accrualTimestamp }
func (m *Market) StoredExchangeRate() *uint256.Int { return new(uint256.Int).Set(m.exchangeRate) }
func (m *Market) Cash() *uint256.Int             { return new(uint256.Int).Set(m.cash) }
func (m *Market) TotalBorrows() *uint256.Int     { return new(uint256.Int).Set(m.borrows) }
func (m *Market) TotalReserves() *uint256.Int    { return new(uint256.Int).Set(m.reserves) }
func (m *Market) TotalPrincipalSupply() *uint256.Int {
	return new(uint256.Int).Set(m.principalSupply)
}
func (m *Market) ReserveFactor() *uint256.Int       { return new(uint256.Int).Set(m.reserveFactor) }
func (m *Market) InitialExchangeRate() *uint256.Int { return new(uint256.Int).Set(m.initialRate) }
func (m *Market) IsPaused() bool                    { return m.paused }

// BorrowRate delegates to the configured rate model.
func (m *Market) BorrowRate(cash, borrows, reserves *uint256.Int) *uint256.Int {
	return m.model.BorrowRate(cash, borrows, reserves)
}

// PrincipalBalanceOf returns the holder's principal-token balance.
func (m *Market) PrincipalBalanceOf(addr common.Address) *uint256.Int {
	if bal, ok := m.principal[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// Mint accrues, pulls approved underlying from the supplier, and issues
// principal tokens at the stored exchange rate.
func (m *Market) Mint(supplier common.Address, assets *uint256.Int) uint64 {
	if m.paused {
		return market.StatusPaused
	}
	if err := m.accrue(); err != nil {
		return market.StatusAccrualFailed
	}
	if err := m.underlying.spendAllowance(supplier, m.addr, m.addr, assets); err != nil {
		return market.StatusTransferFailed
	}
	minted, err := wad.DivDown(assets, m.exchangeRate)
	if err != nil {
		// Hand the funds back; the mint never happened.
		_ = m.underlying.Transfer(m.addr, supplier, assets)
		return market.StatusAccrualFailed
	}
	bal, ok := m.principal[supplier]
	if !ok {
		bal = uint256.NewInt(0)
		m.principal[supplier] = bal
	}
	bal.Add(bal, minted)
	m.principalSupply.Add(m.principalSupply, minted)
	m.cash.Add(m.cash, assets)
	return market.StatusOK
}

// RedeemUnderlying accrues, burns the covering principal amount, and pays
// the supplier from cash. Redeeming is allowed while paused.
func (m *Market) RedeemUnderlying(supplier common.Address, assets *uint256.Int) uint64 {
	if err := m.accrue(); err != nil {
		return market.StatusAccrualFailed
	}
	if assets.Gt(m.cash) {
		return market.StatusInsufficientCash
	}
	burned, err := wad.MulDivUp(assets, wad.One, m.exchangeRate)
	if err != nil {
		return market.StatusAccrualFailed
	}
	bal, ok := m.principal[supplier]
	if !ok || burned.Gt(bal) {
		return market.StatusInsufficientPrincipal
	}
	if err := m.underlying.Transfer(m.addr, supplier, assets); err != nil {
		return market.StatusTransferFailed
	}
	bal.Sub(bal, burned)
	m.principalSupply.Sub(m.principalSupply, burned)
	m.cash.Sub(m.cash, assets)
	return market.StatusOK
}

// ClaimRewards pays any recorded reward entitlement onto the reward ledger.
func (m *Market) ClaimRewards(holder common.Address) {
	if m.reward == nil {
		return
	}
	owed, ok := m.rewardAccrued[holder]
	if !ok || owed.IsZero() {
		return
	}
	m.reward.Mint(holder, owed)
	owed.Clear()
}

// accrue folds the interest earned since the last update into borrows and
// reserves and refreshes the stored exchange rate.
func (m *Market) accrue() error {
	now := m.now()
	if now <= m.accrualTimestamp {
		return nil
	}
	elapsed := now - m.accrualTimestamp

	rate := m.model.BorrowRate(m.cash, m.borrows, m.reserves)
	if rate.Gt(rates.MaxBorrowRate) {
		return rates.ErrRateTooHigh
	}
	period := new(uint256.Int).Mul(rate, uint256.NewInt(elapsed))
	interest, err := wad.MulDown(period, m.borrows)
	if err != nil {
		return err
	}
	reserveShare, err := wad.MulDown(m.reserveFactor, interest)
	if err != nil {
		return err
	}
	m.reserves.Add(m.reserves, reserveShare)
	m.borrows.Add(m.borrows, interest)
	m.accrualTimestamp = now
	return m.restate()
}

func (m *Market) restate() error {
	if m.principalSupply.IsZero() {
		m.exchangeRate = new(uint256.Int).Set(m.initialRate)
		return nil
	}
	equity := new(uint256.Int).Add(m.cash, m.borrows)
	if equity.Lt(m.reserves) {
		return rates.ErrReservesExceedEquity
	}
	equity.Sub(equity, m.reserves)
	refreshed, err := wad.DivDown(equity, m.principalSupply)
	if err != nil {
		return err
	}
	m.exchangeRate = refreshed
	return nil
}
