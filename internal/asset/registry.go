package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byID     map[AssetID]*Asset
	bySymbol map[string][]*Asset // upper-case symbol -> assets on different chains
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds an asset to the registry.
// Panics if an asset with the same ID is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.byID[id]; exists {
		panic(fmt.Sprintf("asset: %s already registered", id))
	}

	key := strings.ToUpper(a.Symbol())
	r.byID[id] = a
	r.bySymbol[key] = append(r.bySymbol[key], a)
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// GetBySymbolAndChain retrieves an asset by symbol (case-insensitive) and chain ID.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))] {
		if a.ChainID() == chainID {
			return a, true
		}
	}
	return nil, false
}

// GetNative retrieves the native coin for a chain.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// GetToken retrieves a token by chain and address. Native markers resolve to
// the chain's native coin.
func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	return r.Get(NewTokenAssetID(chainID, address))
}

// Resolve looks up an asset on chainID by symbol or by address.
func (r *Registry) Resolve(chainID uint64, ref string) (*Asset, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	if strings.HasPrefix(ref, "0x") || strings.HasPrefix(ref, "0X") {
		addr, native, err := NormalizeAddress(ref)
		if err != nil {
			return nil, false
		}
		if native {
			return r.GetNative(chainID)
		}
		return r.GetToken(chainID, addr)
	}
	return r.GetBySymbolAndChain(ref, chainID)
}

// ResolveOrPlaceholder resolves address on chainID or returns an unverified
// placeholder asset for it. Used for intermediate hop tokens upstream APIs
// report that the registry does not carry.
func (r *Registry) ResolveOrPlaceholder(chainID uint64, address, symbol string, decimals uint8) *Asset {
	if a, ok := r.Resolve(chainID, address); ok {
		return a
	}
	addr, native, err := NormalizeAddress(address)
	if symbol == "" {
		symbol = "UNKNOWN"
	}
	if err != nil || native {
		return NewAsset(NewNativeAssetID(chainID), symbol, decimals, Unverified())
	}
	return NewAsset(NewTokenAssetID(chainID, addr), symbol, decimals, Unverified())
}

// All returns all registered assets ordered by chain then symbol.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].ChainID() != result[j].ChainID() {
			return result[i].ChainID() < result[j].ChainID()
		}
		return result[i].Symbol() < result[j].Symbol()
	})
	return result
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
