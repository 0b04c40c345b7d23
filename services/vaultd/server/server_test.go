package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"marketvault/native/market/inmem"
	"marketvault/native/vault"
	"marketvault/native/wad"
)

const (
	testSecret = "s3cret"
	testClock  = uint64(1_000_000)
)

var (
	testAsset  = common.HexToAddress("0x0000000000000000000000000000000000000aa1")
	testMkt    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testVault  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	testHolder = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

func newFixture(t *testing.T, seed bool) (http.Handler, *inmem.Market, *inmem.Ledger) {
	t.Helper()
	ledger := inmem.NewLedger()
	model := &inmem.JumpRateModel{
		Base:       uint256.NewInt(1_000_000_000_000),
		Multiplier: uint256.NewInt(0),
		Jump:       uint256.NewInt(0),
		Kink:       new(uint256.Int).Set(wad.One),
	}
	mkt := inmem.NewMarket(testMkt, ledger, model, new(uint256.Int).Set(wad.One), uint256.NewInt(100_000_000_000_000_000))
	mkt.SetClock(func() uint64 { return testClock })
	if seed {
		require.NoError(t, mkt.Seed(testVault,
			uint256.NewInt(1000), uint256.NewInt(500), uint256.NewInt(10), uint256.NewInt(1000)))
	}

	v := vault.New(testVault, ledger, mkt)
	v.SetClock(func() uint64 { return testClock })
	v.SetLogger(discardLogger())

	srv := New(discardLogger())
	srv.SetAuth(defaultSecretHeader(), testSecret)
	srv.AddVault(testAsset, v)
	return srv.Router(), mkt, ledger
}

func defaultSecretHeader() string { return "X-MarketVault-Shared-Secret" }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func doJSON(handler http.Handler, method, path, payload string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if authed {
		req.Header.Set(defaultSecretHeader(), testSecret)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestExchangeRateEndpoint(t *testing.T) {
	handler, _, _ := newFixture(t, true)

	rec := doJSON(handler, http.MethodGet, "/v1/vaults/"+testAsset.Hex()+"/exchange-rate", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "1490000000000000000", body["wad"])
	require.Equal(t, "1.49", body["decimal"])
}

func TestTotalAssetsEndpoint(t *testing.T) {
	handler, _, _ := newFixture(t, true)

	rec := doJSON(handler, http.MethodGet, "/v1/vaults/"+testAsset.Hex()+"/total-assets", "", false)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "1490", body["totalAssets"])
	require.Equal(t, "0", body["totalShares"])
}

func TestUnknownAssetReturnsNotFound(t *testing.T) {
	handler, _, _ := newFixture(t, true)
	other := common.HexToAddress("0x0000000000000000000000000000000000000ff1")

	rec := doJSON(handler, http.MethodGet, "/v1/vaults/"+other.Hex()+"/exchange-rate", "", false)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(handler, http.MethodGet, "/v1/vaults/not-an-address/exchange-rate", "", false)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMutatingEndpointsRequireSecret(t *testing.T) {
	handler, _, ledger := newFixture(t, false)
	ledger.Mint(testHolder, uint256.NewInt(1000))
	payload := `{"account":"` + testHolder.Hex() + `","amount":"1000"}`

	rec := doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", payload, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", payload, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1000", decodeBody(t, rec)["shares"])
}

func TestDepositThenWithdraw(t *testing.T) {
	handler, _, ledger := newFixture(t, false)
	ledger.Mint(testHolder, uint256.NewInt(1000))

	payload := `{"account":"` + testHolder.Hex() + `","amount":"1000"}`
	rec := doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", payload, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, ledger.BalanceOf(testHolder).IsZero())

	payload = `{"account":"` + testHolder.Hex() + `","amount":"400"}`
	rec = doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/withdraw", payload, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "400", decodeBody(t, rec)["shares"])
	require.Equal(t, uint256.NewInt(400), ledger.BalanceOf(testHolder))
}

func TestDepositWhilePausedConflicts(t *testing.T) {
	handler, mkt, ledger := newFixture(t, false)
	ledger.Mint(testHolder, uint256.NewInt(1000))
	mkt.SetPaused(true)

	payload := `{"account":"` + testHolder.Hex() + `","amount":"1000"}`
	rec := doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", payload, true)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLimitsEndpoint(t *testing.T) {
	handler, mkt, ledger := newFixture(t, false)
	ledger.Mint(testHolder, uint256.NewInt(1000))

	payload := `{"account":"` + testHolder.Hex() + `","amount":"1000"}`
	rec := doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", payload, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(handler, http.MethodGet, "/v1/vaults/"+testAsset.Hex()+"/limits/"+testHolder.Hex(), "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, new(uint256.Int).SetAllOne().Dec(), body["maxDeposit"])
	require.Equal(t, "1000", body["maxWithdraw"])
	require.Equal(t, "1000", body["maxRedeem"])

	mkt.SetPaused(true)
	rec = doJSON(handler, http.MethodGet, "/v1/vaults/"+testAsset.Hex()+"/limits/"+testHolder.Hex(), "", false)
	body = decodeBody(t, rec)
	require.Equal(t, "0", body["maxDeposit"])
	require.Equal(t, "0", body["maxMint"])
	require.Equal(t, "1000", body["maxWithdraw"])
}

func TestInvalidPayloadRejected(t *testing.T) {
	handler, _, _ := newFixture(t, false)

	rec := doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", "{not json", true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := `{"account":"nope","amount":"1"}`
	rec = doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", payload, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload = `{"account":"` + testHolder.Hex() + `","amount":"-5"}`
	rec = doJSON(handler, http.MethodPost, "/v1/vaults/"+testAsset.Hex()+"/deposit", payload, true)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
