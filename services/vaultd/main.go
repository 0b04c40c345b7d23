// Command vaultd serves share-vault accounting over configured money markets:
// exchange-rate replication, valuation and limit queries, and authenticated
// deposit/withdraw/reward operations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"marketvault/native/market/inmem"
	"marketvault/native/registry"
	"marketvault/native/vault"
	"marketvault/observability/logging"
	"marketvault/services/vaultd/server"
)

func main() {
	cfgPath := flag.String("config", "", "path to the vaultd YAML config")
	flag.Parse()

	cfg, err := LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vaultd: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("vaultd", cfg.Env, slog.LevelInfo)

	srv, err := buildServer(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("vaultd listening", "addr", cfg.Listen, "markets", len(cfg.Markets))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}

// buildServer constructs the reference markets from the configuration,
// registers them, and mounts a vault per asset at its deterministic address.
func buildServer(cfg Config, logger *slog.Logger) (*server.Server, error) {
	deployer := common.HexToAddress(cfg.Deployer)
	reg := registry.New()
	srv := server.New(logger)
	srv.SetAuth(cfg.SharedSecretHeader, cfg.SharedSecretValue)
	srv.SetRateLimit(cfg.RateLimitPerMin)

	for _, mc := range cfg.Markets {
		asset := common.HexToAddress(mc.Asset)
		ledger := inmem.NewLedger()

		model, err := buildModel(mc)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", mc.Symbol, err)
		}
		initialRate, err := parseAmount(mc.InitialExchangeRate)
		if err != nil {
			return nil, fmt.Errorf("market %s: initial_exchange_rate: %w", mc.Symbol, err)
		}
		reserveFactor, err := parseAmount(mc.ReserveFactor)
		if err != nil {
			return nil, fmt.Errorf("market %s: reserve_factor: %w", mc.Symbol, err)
		}

		mkt := inmem.NewMarket(common.HexToAddress(mc.Market), ledger, model, initialRate, reserveFactor)
		mkt.SetPaused(mc.Paused)
		if err := seedMarket(mkt, deployer, mc); err != nil {
			return nil, fmt.Errorf("market %s: seed: %w", mc.Symbol, err)
		}

		reg.Register(asset, mkt)
		resolved, err := reg.Resolve(asset)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", mc.Symbol, err)
		}

		v := vault.New(registry.VaultAddress(deployer, asset), ledger, resolved)
		v.SetLogger(logger.With("asset", asset.Hex(), "symbol", mc.Symbol))

		rewardLedger := inmem.NewLedger()
		mkt.SetRewardLedger(rewardLedger)
		v.SetRewardRoute(rewardLedger, deployer)

		srv.AddVault(asset, v)
		logger.Info("vault mounted",
			"symbol", mc.Symbol,
			"asset", asset.Hex(),
			"market", mkt.Address().Hex(),
			"vault", v.Address().Hex(),
			"paused", mc.Paused,
		)
	}
	return srv, nil
}

func buildModel(mc MarketConfig) (*inmem.JumpRateModel, error) {
	base, err := parseAmount(mc.BaseRate)
	if err != nil {
		return nil, fmt.Errorf("base_rate: %w", err)
	}
	multiplier, err := parseAmount(mc.Multiplier)
	if err != nil {
		return nil, fmt.Errorf("multiplier: %w", err)
	}
	jump, err := parseAmount(mc.Jump)
	if err != nil {
		return nil, fmt.Errorf("jump: %w", err)
	}
	kink, err := parseAmount(mc.Kink)
	if err != nil {
		return nil, fmt.Errorf("kink: %w", err)
	}
	return &inmem.JumpRateModel{Base: base, Multiplier: multiplier, Jump: jump, Kink: kink}, nil
}

func seedMarket(mkt *inmem.Market, holder common.Address, mc MarketConfig) error {
	cash, err := parseAmount(mc.SeedCash)
	if err != nil {
		return err
	}
	borrows, err := parseAmount(mc.SeedBorrows)
	if err != nil {
		return err
	}
	reserves, err := parseAmount(mc.SeedReserves)
	if err != nil {
		return err
	}
	principal, err := parseAmount(mc.SeedPrincipal)
	if err != nil {
		return err
	}
	if cash.IsZero() && borrows.IsZero() && reserves.IsZero() && principal.IsZero() {
		return nil
	}
	return mkt.Seed(holder, cash, borrows, reserves, principal)
}
