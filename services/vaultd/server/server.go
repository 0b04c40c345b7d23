// Package server exposes the vaultd HTTP API: read-only valuation and limit
// queries plus authenticated deposit, withdraw, and reward endpoints.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"marketvault/native/vault"
	"marketvault/observability"
)

const requestIDHeader = "X-Request-Id"

// Server routes API traffic onto the registered vaults. Vault state is not
// safe for concurrent mutation, so a single lock serialises writes while
// valuation reads share it.
type Server struct {
	mu     sync.RWMutex
	vaults map[common.Address]*vault.Vault

	secretHeader string
	secretValue  string
	limiter      *rate.Limiter

	logger  *slog.Logger
	metrics *observability.VaultMetrics
}

// New constructs an empty server. Vaults are attached with AddVault and the
// shared secret with SetAuth before Router is called.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		vaults:  make(map[common.Address]*vault.Vault),
		limiter: rate.NewLimiter(rate.Limit(2), 120),
		logger:  logger,
		metrics: observability.Metrics(),
	}
}

// AddVault registers the vault serving the given asset.
func (s *Server) AddVault(asset common.Address, v *vault.Vault) {
	if v == nil {
		return
	}
	s.vaults[asset] = v
}

// SetAuth configures the shared-secret header guarding mutating endpoints.
func (s *Server) SetAuth(header, value string) {
	s.secretHeader = strings.TrimSpace(header)
	s.secretValue = strings.TrimSpace(value)
}

// SetRateLimit caps the sustained request rate, expressed per minute.
func (s *Server) SetRateLimit(perMin int) {
	if perMin <= 0 {
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin)
}

// Router assembles the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withRequestID, s.throttle)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1/vaults/{asset}", func(r chi.Router) {
		r.Get("/exchange-rate", s.handleExchangeRate)
		r.Get("/total-assets", s.handleTotalAssets)
		r.Get("/limits/{owner}", s.handleLimits)
		r.Group(func(r chi.Router) {
			r.Use(s.requireSecret)
			r.Post("/deposit", s.handleDeposit)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/rewards/claim", s.handleClaimRewards)
		})
	})
	return r
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.RecordError("http", "throttled")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secretValue == "" {
			s.metrics.RecordError("http", "auth_unconfigured")
			writeError(w, http.StatusForbidden, "mutating endpoints disabled: no shared secret configured")
			return
		}
		got := strings.TrimSpace(r.Header.Get(s.secretHeader))
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.secretValue)) != 1 {
			s.metrics.RecordError("http", "auth_rejected")
			writeError(w, http.StatusUnauthorized, "invalid shared secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resolveVault parses the {asset} route parameter and looks up its vault.
func (s *Server) resolveVault(w http.ResponseWriter, r *http.Request) (*vault.Vault, common.Address, bool) {
	raw := chi.URLParam(r, "asset")
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "asset must be a hex address")
		return nil, common.Address{}, false
	}
	asset := common.HexToAddress(raw)
	v, ok := s.vaults[asset]
	if !ok {
		writeError(w, http.StatusNotFound, "no vault registered for asset")
		return nil, common.Address{}, false
	}
	return v, asset, true
}

func (s *Server) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	v, asset, ok := s.resolveVault(w, r)
	if !ok {
		return
	}
	s.mu.RLock()
	current, err := v.ExchangeRate()
	s.mu.RUnlock()
	if err != nil {
		s.fail(w, "exchange_rate", started, err)
		return
	}
	s.metrics.SetExchangeRate(asset.Hex(), wadFloat(current))
	s.metrics.ObserveRequest("exchange_rate", "ok", time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":   asset.Hex(),
		"wad":     current.Dec(),
		"decimal": wadDecimal(current),
	})
}

func (s *Server) handleTotalAssets(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	v, asset, ok := s.resolveVault(w, r)
	if !ok {
		return
	}
	s.mu.RLock()
	total, err := v.TotalAssets()
	shares := v.TotalShares()
	s.mu.RUnlock()
	if err != nil {
		s.fail(w, "total_assets", started, err)
		return
	}
	s.metrics.ObserveRequest("total_assets", "ok", time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":       asset.Hex(),
		"totalAssets": total.Dec(),
		"totalShares": shares.Dec(),
	})
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	v, _, ok := s.resolveVault(w, r)
	if !ok {
		return
	}
	rawOwner := chi.URLParam(r, "owner")
	if !common.IsHexAddress(rawOwner) {
		writeError(w, http.StatusBadRequest, "owner must be a hex address")
		return
	}
	owner := common.HexToAddress(rawOwner)

	s.mu.RLock()
	maxDeposit := v.MaxDeposit(owner)
	maxMint := v.MaxMint(owner)
	maxWithdraw, wErr := v.MaxWithdraw(owner)
	maxRedeem, rErr := v.MaxRedeem(owner)
	s.mu.RUnlock()
	if wErr != nil {
		s.fail(w, "limits", started, wErr)
		return
	}
	if rErr != nil {
		s.fail(w, "limits", started, rErr)
		return
	}
	s.metrics.ObserveRequest("limits", "ok", time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]string{
		"owner":       owner.Hex(),
		"maxDeposit":  maxDeposit.Dec(),
		"maxMint":     maxMint.Dec(),
		"maxWithdraw": maxWithdraw.Dec(),
		"maxRedeem":   maxRedeem.Dec(),
	})
}

type operationRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// decodeOperation parses and validates the shared deposit/withdraw payload.
func decodeOperation(w http.ResponseWriter, r *http.Request) (common.Address, *uint256.Int, bool) {
	var req operationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return common.Address{}, nil, false
	}
	if !common.IsHexAddress(strings.TrimSpace(req.Account)) {
		writeError(w, http.StatusBadRequest, "account must be a hex address")
		return common.Address{}, nil, false
	}
	amount, err := uint256.FromDecimal(strings.TrimSpace(req.Amount))
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a decimal integer")
		return common.Address{}, nil, false
	}
	return common.HexToAddress(req.Account), amount, true
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	v, asset, ok := s.resolveVault(w, r)
	if !ok {
		return
	}
	account, amount, ok := decodeOperation(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	shares, err := v.Deposit(account, amount)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, "deposit", started, err)
		return
	}
	s.metrics.ObserveRequest("deposit", "ok", time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":   asset.Hex(),
		"account": account.Hex(),
		"assets":  amount.Dec(),
		"shares":  shares.Dec(),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	v, asset, ok := s.resolveVault(w, r)
	if !ok {
		return
	}
	account, amount, ok := decodeOperation(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	shares, err := v.Withdraw(account, amount)
	s.mu.Unlock()
	if err != nil {
		s.fail(w, "withdraw", started, err)
		return
	}
	s.metrics.ObserveRequest("withdraw", "ok", time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":   asset.Hex(),
		"account": account.Hex(),
		"assets":  amount.Dec(),
		"shares":  shares.Dec(),
	})
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	v, asset, ok := s.resolveVault(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	amount, err := v.ClaimRewards()
	s.mu.Unlock()
	if err != nil {
		s.fail(w, "claim_rewards", started, err)
		return
	}
	s.metrics.ObserveRequest("claim_rewards", "ok", time.Since(started).Seconds())
	writeJSON(w, http.StatusOK, map[string]string{
		"asset":  asset.Hex(),
		"amount": amount.Dec(),
	})
}

func (s *Server) fail(w http.ResponseWriter, op string, started time.Time, err error) {
	status, message, reason := translate(err)
	s.metrics.ObserveRequest(op, "error", time.Since(started).Seconds())
	s.metrics.RecordError(op, reason)
	if status >= http.StatusInternalServerError {
		s.logger.Error("vault operation failed", "op", op, "error", err)
	} else {
		s.logger.Warn("vault operation rejected", "op", op, "error", err)
	}
	writeError(w, status, message)
}

// wadDecimal renders a WAD value as a decimal string, trailing zeros trimmed.
func wadDecimal(x *uint256.Int) string {
	ratio := new(big.Rat).SetFrac(x.ToBig(), big.NewInt(1_000_000_000_000_000_000))
	out := ratio.FloatString(18)
	out = strings.TrimRight(out, "0")
	return strings.TrimSuffix(out, ".")
}

func wadFloat(x *uint256.Int) float64 {
	ratio := new(big.Rat).SetFrac(x.ToBig(), big.NewInt(1_000_000_000_000_000_000))
	f, _ := ratio.Float64()
	return f
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
