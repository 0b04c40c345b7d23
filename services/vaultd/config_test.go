package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func discardTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const configFixture = `
env: test
deployer: "0x0000000000000000000000000000000000000d01"
markets:
  - symbol: USDX
    asset: "0x0000000000000000000000000000000000000aa1"
    market: "0x00000000000000000000000000000000000000a1"
    initial_exchange_rate: "1000000000000000000"
    reserve_factor: "100000000000000000"
    base_rate: "1000000000000"
    multiplier: "0"
    jump: "0"
    kink: "1000000000000000000"
    seed_cash: "1000"
    seed_borrows: "500"
    seed_reserves: "10"
    seed_principal: "1000"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vaultd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, configFixture))
	require.NoError(t, err)
	require.Equal(t, defaultListen, cfg.Listen)
	require.Equal(t, defaultSharedSecretHeader, cfg.SharedSecretHeader)
	require.Equal(t, defaultRateLimitPerMin, cfg.RateLimitPerMin)
	require.Len(t, cfg.Markets, 1)
	require.Equal(t, "USDX", cfg.Markets[0].Symbol)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(envListen, "127.0.0.1:9999")
	t.Setenv(envSharedSecret, "hunter2")
	t.Setenv(envRateLimitPerMin, "30")

	cfg, err := LoadConfig(writeConfig(t, configFixture))
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9999", cfg.Listen)
	require.Equal(t, "hunter2", cfg.SharedSecretValue)
	require.Equal(t, 30, cfg.RateLimitPerMin)
}

func TestLoadConfigRejectsBadAddresses(t *testing.T) {
	bad := `
deployer: "not-an-address"
`
	_, err := LoadConfig(writeConfig(t, bad))
	require.Error(t, err)

	bad = `
deployer: "0x0000000000000000000000000000000000000d01"
markets:
  - symbol: USDX
    asset: "nope"
    market: "0x00000000000000000000000000000000000000a1"
`
	_, err = LoadConfig(writeConfig(t, bad))
	require.Error(t, err)
}

func TestLoadConfigRejectsBadAmounts(t *testing.T) {
	bad := `
deployer: "0x0000000000000000000000000000000000000d01"
markets:
  - symbol: USDX
    asset: "0x0000000000000000000000000000000000000aa1"
    market: "0x00000000000000000000000000000000000000a1"
    initial_exchange_rate: "1.5"
`
	_, err := LoadConfig(writeConfig(t, bad))
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	got, err := parseAmount("")
	require.NoError(t, err)
	require.True(t, got.IsZero())

	got, err = parseAmount("1490")
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1490), got)

	_, err = parseAmount("-1")
	require.Error(t, err)
}

func TestBuildServerFromConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, configFixture))
	require.NoError(t, err)

	srv, err := buildServer(cfg, discardTestLogger())
	require.NoError(t, err)
	require.NotNil(t, srv.Router())
}
