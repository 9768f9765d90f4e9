package domain

import (
	"strings"

	blockchain "github.com/fd1az/swap-aggregator/business/blockchain/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

// Preference biases scoring towards one aspect of a route.
type Preference string

const (
	PreferenceBalanced Preference = "balanced"
	PreferenceSpeed    Preference = "speed"
	PreferenceCost     Preference = "cost"
	PreferenceSecurity Preference = "security"
)

// ParsePreference parses a preference name. Empty selects balanced.
func ParsePreference(s string) (Preference, bool) {
	switch p := Preference(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PreferenceBalanced, true
	case PreferenceBalanced, PreferenceSpeed, PreferenceCost, PreferenceSecurity:
		return p, true
	default:
		return "", false
	}
}

// GasPriceSpec is a preset name or an explicit wei price.
type GasPriceSpec = blockchain.GasPriceSpec

// QuoteRequest is what adapters are asked to price.
type QuoteRequest struct {
	From       *asset.Asset
	To         *asset.Asset
	Amount     asset.Amount
	Wallet     Optional[string]
	GasPrice   GasPriceSpec
	Preference Preference
}

// IsCrossChain reports whether the swap leaves the source chain.
func (r QuoteRequest) IsCrossChain() bool {
	return r.From.ChainID() != r.To.ChainID()
}
