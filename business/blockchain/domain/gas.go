// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/params"
)

// GasPreset names a speed tier for the gas price a swap is quoted with.
type GasPreset string

const (
	PresetSlow     GasPreset = "slow"
	PresetStandard GasPreset = "standard"
	PresetFast     GasPreset = "fast"
	PresetInstant  GasPreset = "instant"
)

// AllPresets lists the presets from cheapest to most aggressive.
var AllPresets = []GasPreset{PresetSlow, PresetStandard, PresetFast, PresetInstant}

// presetPerMille scales the node's suggested price per preset.
var presetPerMille = map[GasPreset]int64{
	PresetSlow:     850,
	PresetStandard: 1000,
	PresetFast:     1250,
	PresetInstant:  1600,
}

// ParseGasPreset parses a preset name. Empty selects standard.
func ParseGasPreset(s string) (GasPreset, bool) {
	p := GasPreset(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return PresetStandard, true
	}
	_, ok := presetPerMille[p]
	return p, ok
}

// GasPrice represents gas price information.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int, ts time.Time) *GasPrice {
	return &GasPrice{Wei: new(big.Int).Set(wei), Timestamp: ts}
}

// NewGasPriceFromGwei creates a GasPrice from a gwei value.
func NewGasPriceFromGwei(gwei float64, ts time.Time) *GasPrice {
	wei, _ := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(params.GWei)).Int(nil)
	return &GasPrice{Wei: wei, Timestamp: ts}
}

// Gwei returns the price in gwei.
func (g *GasPrice) Gwei() float64 {
	if g == nil || g.Wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(g.Wei), big.NewFloat(params.GWei)).Float64()
	return f
}

// GasEstimate represents estimated gas costs for an operation.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total gas cost.
func NewGasEstimate(gasLimit uint64, gasPrice *GasPrice) *GasEstimate {
	totalWei := new(big.Int).Mul(gasPrice.Wei, new(big.Int).SetUint64(gasLimit))

	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: gasPrice,
		TotalWei: totalWei,
	}
}

// TotalGwei returns the total cost in gwei.
func (e *GasEstimate) TotalGwei() float64 {
	return (&GasPrice{Wei: e.TotalWei}).Gwei()
}

// GasPresets holds one price per preset for a chain.
type GasPresets struct {
	ChainID   uint64
	Prices    map[GasPreset]*GasPrice
	FetchedAt time.Time
}

// Get returns the price for preset, or nil.
func (p *GasPresets) Get(preset GasPreset) *GasPrice {
	if p == nil {
		return nil
	}
	return p.Prices[preset]
}

// DerivePresets scales base into the four presets. Each price is capped at
// maxWei when maxWei is non-nil.
func DerivePresets(chainID uint64, base, maxWei *big.Int, now time.Time) *GasPresets {
	out := &GasPresets{ChainID: chainID, Prices: make(map[GasPreset]*GasPrice, len(AllPresets)), FetchedAt: now}
	for _, preset := range AllPresets {
		wei := new(big.Int).Mul(base, big.NewInt(presetPerMille[preset]))
		wei.Quo(wei, big.NewInt(1000))
		if maxWei != nil && wei.Cmp(maxWei) > 0 {
			wei.Set(maxWei)
		}
		out.Prices[preset] = &GasPrice{Wei: wei, Timestamp: now}
	}
	return out
}

// FallbackPresets builds presets from fixed gwei values.
func FallbackPresets(chainID uint64, gwei map[GasPreset]float64, now time.Time) *GasPresets {
	out := &GasPresets{ChainID: chainID, Prices: make(map[GasPreset]*GasPrice, len(AllPresets)), FetchedAt: now}
	for _, preset := range AllPresets {
		out.Prices[preset] = NewGasPriceFromGwei(gwei[preset], now)
	}
	return out
}

// GasPriceSpec is what a caller asks for: a preset, or an explicit wei price.
type GasPriceSpec struct {
	Preset GasPreset
	Wei    *big.Int
}

// PresetSpec selects a preset.
func PresetSpec(p GasPreset) GasPriceSpec {
	return GasPriceSpec{Preset: p}
}

// ExplicitSpec pins an explicit wei price.
func ExplicitSpec(wei *big.Int) GasPriceSpec {
	return GasPriceSpec{Wei: wei}
}

// IsExplicit reports whether the caller pinned a price.
func (s GasPriceSpec) IsExplicit() bool {
	return s.Wei != nil && s.Wei.Sign() > 0
}

// GasSource records where a resolved price came from.
type GasSource string

const (
	SourceOracle   GasSource = "oracle"
	SourceFallback GasSource = "fallback"
	SourceCaller   GasSource = "caller"
)

// GasQuote is a resolved gas price.
type GasQuote struct {
	ChainID uint64
	Preset  GasPreset
	Price   *GasPrice
	Source  GasSource
}
