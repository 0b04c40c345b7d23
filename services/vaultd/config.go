package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for vaultd.
type Config struct {
	Listen             string         `yaml:"listen"`
	Env                string         `yaml:"env"`
	SharedSecretHeader string         `yaml:"shared_secret_header"`
	SharedSecretValue  string         `yaml:"-"`
	RateLimitPerMin    int            `yaml:"rate_limit_per_min"`
	Deployer           string         `yaml:"deployer"`
	Markets            []MarketConfig `yaml:"markets"`
}

// MarketConfig describes one served market: identities, rate-model curve,
// and the accrual state the reference market is seeded with. Numeric values
// are decimal strings, WAD scaled where they denote rates or ratios.
type MarketConfig struct {
	Symbol              string `yaml:"symbol"`
	Asset               string `yaml:"asset"`
	Market              string `yaml:"market"`
	InitialExchangeRate string `yaml:"initial_exchange_rate"`
	ReserveFactor       string `yaml:"reserve_factor"`
	BaseRate            string `yaml:"base_rate"`
	Multiplier          string `yaml:"multiplier"`
	Jump                string `yaml:"jump"`
	Kink                string `yaml:"kink"`
	SeedCash            string `yaml:"seed_cash"`
	SeedBorrows         string `yaml:"seed_borrows"`
	SeedReserves        string `yaml:"seed_reserves"`
	SeedPrincipal       string `yaml:"seed_principal"`
	Paused              bool   `yaml:"paused"`
}

const (
	envListen             = "VAULTD_LISTEN"
	envEnv                = "VAULTD_ENV"
	envSharedSecretHeader = "VAULTD_SHARED_SECRET_HEADER"
	envSharedSecret       = "VAULTD_SHARED_SECRET"
	envRateLimitPerMin    = "VAULTD_RATE_PER_MIN"

	defaultListen             = "0.0.0.0:9460"
	defaultSharedSecretHeader = "X-MarketVault-Shared-Secret"
	defaultRateLimitPerMin    = 120
)

// LoadConfig reads the YAML configuration, applies environment overrides,
// and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Listen:             defaultListen,
		SharedSecretHeader: defaultSharedSecretHeader,
		RateLimitPerMin:    defaultRateLimitPerMin,
	}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("decode config: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(envListen)); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv(envEnv)); v != "" {
		c.Env = v
	}
	if v := strings.TrimSpace(os.Getenv(envSharedSecretHeader)); v != "" {
		c.SharedSecretHeader = v
	}
	if v := strings.TrimSpace(os.Getenv(envSharedSecret)); v != "" {
		c.SharedSecretValue = v
	}
	if v := strings.TrimSpace(os.Getenv(envRateLimitPerMin)); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			c.RateLimitPerMin = parsed
		}
	}
}

func (c *Config) normalize() {
	c.Listen = strings.TrimSpace(c.Listen)
	c.Env = strings.TrimSpace(c.Env)
	c.SharedSecretHeader = strings.TrimSpace(c.SharedSecretHeader)
	c.Deployer = strings.TrimSpace(c.Deployer)
	for i := range c.Markets {
		c.Markets[i].Symbol = strings.TrimSpace(c.Markets[i].Symbol)
		c.Markets[i].Asset = strings.TrimSpace(c.Markets[i].Asset)
		c.Markets[i].Market = strings.TrimSpace(c.Markets[i].Market)
	}
}

func (c *Config) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address required")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("config: rate limit must be positive")
	}
	if !common.IsHexAddress(c.Deployer) {
		return fmt.Errorf("config: deployer must be a hex address")
	}
	for _, mc := range c.Markets {
		if mc.Symbol == "" {
			return fmt.Errorf("config: market symbol required")
		}
		if !common.IsHexAddress(mc.Asset) {
			return fmt.Errorf("config: market %s: asset must be a hex address", mc.Symbol)
		}
		if !common.IsHexAddress(mc.Market) {
			return fmt.Errorf("config: market %s: market must be a hex address", mc.Symbol)
		}
		for field, value := range map[string]string{
			"initial_exchange_rate": mc.InitialExchangeRate,
			"reserve_factor":        mc.ReserveFactor,
			"base_rate":             mc.BaseRate,
			"multiplier":            mc.Multiplier,
			"jump":                  mc.Jump,
			"kink":                  mc.Kink,
		} {
			if _, err := parseAmount(value); err != nil {
				return fmt.Errorf("config: market %s: %s: %w", mc.Symbol, field, err)
			}
		}
		for field, value := range map[string]string{
			"seed_cash":      mc.SeedCash,
			"seed_borrows":   mc.SeedBorrows,
			"seed_reserves":  mc.SeedReserves,
			"seed_principal": mc.SeedPrincipal,
		} {
			if value == "" {
				continue
			}
			if _, err := parseAmount(value); err != nil {
				return fmt.Errorf("config: market %s: %s: %w", mc.Symbol, field, err)
			}
		}
	}
	return nil
}

// parseAmount parses a non-negative decimal string into a 256-bit integer.
// Empty strings parse as zero.
func parseAmount(value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uint256.NewInt(0), nil
	}
	parsed, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return parsed, nil
}
