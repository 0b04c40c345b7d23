// Package registry maintains the asset to money-market mapping and derives
// the deterministic address a vault for a given asset deploys at.
package registry

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	"marketvault/native/market"
)

// ErrMarketUnresolved reports a lookup for an asset with no registered
// market. It fails the enclosing creation or lookup call.
var ErrMarketUnresolved = errors.New("registry: no market for asset")

// Registry maps underlying assets to their markets. Entries are inserted or
// overwritten by key and never deleted.
type Registry struct {
	mu      sync.RWMutex
	markets map[common.Address]market.Market
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{markets: make(map[common.Address]market.Market)}
}

// Register binds an asset to its market, replacing any previous binding.
func (r *Registry) Register(asset common.Address, m market.Market) {
	if r == nil || m == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[asset] = m
}

// Resolve returns the market registered for the asset.
func (r *Registry) Resolve(asset common.Address) (market.Market, error) {
	if r == nil {
		return nil, ErrMarketUnresolved
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[asset]
	if !ok {
		return nil, ErrMarketUnresolved
	}
	return m, nil
}

// Assets lists every registered asset.
func (r *Registry) Assets() []common.Address {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	assets := make([]common.Address, 0, len(r.markets))
	for asset := range r.markets {
		assets = append(assets, asset)
	}
	return assets
}

// VaultAddress derives the deterministic address of the vault a deployer
// creates for an asset. The same pair always yields the same address.
func VaultAddress(deployer, asset common.Address) common.Address {
	digest := gethcrypto.Keccak256(deployer.Bytes(), asset.Bytes())
	return common.BytesToAddress(digest[12:])
}
