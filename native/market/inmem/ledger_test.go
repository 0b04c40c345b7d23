package inmem

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	ledgerAlice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	ledgerBob   = common.HexToAddress("0x0000000000000000000000000000000000000b22")
)

func TestLedgerMintAndTransfer(t *testing.T) {
	l := NewLedger()
	l.Mint(ledgerAlice, uint256.NewInt(1000))
	require.Equal(t, uint256.NewInt(1000), l.BalanceOf(ledgerAlice))

	require.NoError(t, l.Transfer(ledgerAlice, ledgerBob, uint256.NewInt(400)))
	require.Equal(t, uint256.NewInt(600), l.BalanceOf(ledgerAlice))
	require.Equal(t, uint256.NewInt(400), l.BalanceOf(ledgerBob))
}

func TestLedgerTransferInsufficientBalance(t *testing.T) {
	l := NewLedger()
	l.Mint(ledgerAlice, uint256.NewInt(100))
	err := l.Transfer(ledgerAlice, ledgerBob, uint256.NewInt(101))
	require.ErrorIs(t, err, errInsufficientBalance)
	require.Equal(t, uint256.NewInt(100), l.BalanceOf(ledgerAlice))
}

func TestLedgerAllowance(t *testing.T) {
	l := NewLedger()
	l.Mint(ledgerAlice, uint256.NewInt(1000))

	require.True(t, l.Allowance(ledgerAlice, ledgerBob).IsZero())
	require.NoError(t, l.Approve(ledgerAlice, ledgerBob, uint256.NewInt(300)))
	require.Equal(t, uint256.NewInt(300), l.Allowance(ledgerAlice, ledgerBob))

	err := l.spendAllowance(ledgerAlice, ledgerBob, ledgerBob, uint256.NewInt(301))
	require.ErrorIs(t, err, errInsufficientAllowance)

	require.NoError(t, l.spendAllowance(ledgerAlice, ledgerBob, ledgerBob, uint256.NewInt(200)))
	require.Equal(t, uint256.NewInt(100), l.Allowance(ledgerAlice, ledgerBob))
	require.Equal(t, uint256.NewInt(200), l.BalanceOf(ledgerBob))
}

func TestLedgerBalanceOfReturnsCopy(t *testing.T) {
	l := NewLedger()
	l.Mint(ledgerAlice, uint256.NewInt(5))
	bal := l.BalanceOf(ledgerAlice)
	bal.Clear()
	require.Equal(t, uint256.NewInt(5), l.BalanceOf(ledgerAlice))
}
