package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"marketvault/native/market"
	"marketvault/native/market/inmem"
	"marketvault/native/wad"
)

var (
	assetA   = common.HexToAddress("0x0000000000000000000000000000000000000aa1")
	assetB   = common.HexToAddress("0x0000000000000000000000000000000000000bb2")
	deployer = common.HexToAddress("0x0000000000000000000000000000000000000d01")
)

func testMarket(addr common.Address) market.Market {
	model := &inmem.JumpRateModel{
		Base:       uint256.NewInt(0),
		Multiplier: uint256.NewInt(0),
		Jump:       uint256.NewInt(0),
		Kink:       new(uint256.Int).Set(wad.One),
	}
	return inmem.NewMarket(addr, inmem.NewLedger(), model, new(uint256.Int).Set(wad.One), uint256.NewInt(0))
}

func TestRegisterAndResolve(t *testing.T) {
	reg := New()

	_, err := reg.Resolve(assetA)
	require.ErrorIs(t, err, ErrMarketUnresolved)

	mktA := testMarket(common.HexToAddress("0x00000000000000000000000000000000000000a1"))
	reg.Register(assetA, mktA)

	got, err := reg.Resolve(assetA)
	require.NoError(t, err)
	require.Same(t, mktA, got)

	_, err = reg.Resolve(assetB)
	require.ErrorIs(t, err, ErrMarketUnresolved)
}

func TestRegisterOverwrites(t *testing.T) {
	reg := New()
	first := testMarket(common.HexToAddress("0x00000000000000000000000000000000000000a1"))
	second := testMarket(common.HexToAddress("0x00000000000000000000000000000000000000a2"))

	reg.Register(assetA, first)
	reg.Register(assetA, second)

	got, err := reg.Resolve(assetA)
	require.NoError(t, err)
	require.Same(t, second, got)
	require.Len(t, reg.Assets(), 1)
}

func TestAssetsListsRegistrations(t *testing.T) {
	reg := New()
	reg.Register(assetA, testMarket(common.HexToAddress("0x00000000000000000000000000000000000000a1")))
	reg.Register(assetB, testMarket(common.HexToAddress("0x00000000000000000000000000000000000000a2")))

	assets := reg.Assets()
	require.Len(t, assets, 2)
	require.ElementsMatch(t, []common.Address{assetA, assetB}, assets)
}

func TestVaultAddressDeterministic(t *testing.T) {
	first := VaultAddress(deployer, assetA)
	require.Equal(t, first, VaultAddress(deployer, assetA))
	require.NotEqual(t, first, VaultAddress(deployer, assetB))
	require.NotEqual(t, first, VaultAddress(assetA, deployer))
	require.NotEqual(t, common.Address{}, first)
}
