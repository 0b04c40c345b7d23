package inmem

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	errInsufficientBalance   = errors.New("inmem: insufficient balance")
	errInsufficientAllowance = errors.New("inmem: insufficient allowance")
)

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Ledger is an in-memory token ledger implementing market.Token. It backs
// the reference market's underlying and reward assets.
type Ledger struct {
	balances   map[common.Address]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
	}
}

// Mint credits newly issued balance to the address.
func (l *Ledger) Mint(addr common.Address, amount *uint256.Int) {
	bal := l.balance(addr)
	bal.Add(bal, amount)
}

// BalanceOf returns the address's balance.
func (l *Ledger) BalanceOf(addr common.Address) *uint256.Int {
	if bal, ok := l.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return uint256.NewInt(0)
}

// Transfer moves amount between balances.
func (l *Ledger) Transfer(from, to common.Address, amount *uint256.Int) error {
	fromBal := l.balance(from)
	if fromBal.Lt(amount) {
		return errInsufficientBalance
	}
	fromBal.Sub(fromBal, amount)
	toBal := l.balance(to)
	toBal.Add(toBal, amount)
	return nil
}

// Approve sets the spender's allowance over the owner's balance.
func (l *Ledger) Approve(owner, spender common.Address, amount *uint256.Int) error {
	l.allowances[allowanceKey{owner, spender}] = new(uint256.Int).Set(amount)
	return nil
}

// Allowance returns the spender's remaining allowance.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := l.allowances[allowanceKey{owner, spender}]; ok {
		return new(uint256.Int).Set(a)
	}
	return uint256.NewInt(0)
}

// spendAllowance consumes allowance and moves the funds.
func (l *Ledger) spendAllowance(owner, spender, to common.Address, amount *uint256.Int) error {
	key := allowanceKey{owner, spender}
	remaining, ok := l.allowances[key]
	if !ok || remaining.Lt(amount) {
		return errInsufficientAllowance
	}
	if err := l.Transfer(owner, to, amount); err != nil {
		return err
	}
	remaining.Sub(remaining, amount)
	return nil
}

func (l *Ledger) balance(addr common.Address) *uint256.Int {
	bal, ok := l.balances[addr]
	if !ok {
		bal = uint256.NewInt(0)
		l.balances[addr] = bal
	}
	return bal
}
