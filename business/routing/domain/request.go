package domain

import (
	"strings"

	blockchain "github.com/fd1az/swap-aggregator/business/blockchain/domain"
	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

// RouteRequest asks for ranked routes between two registry tokens.
type RouteRequest struct {
	// ClientID keys the per-client rate limit.
	ClientID string
	From     *asset.Asset
	To       *asset.Asset
	// Amount is a human decimal string in From units.
	Amount            string
	Wallet            quoting.Optional[string]
	PreferredProvider string
	Preference        string
	// Slippage is a percentage in (0,100].
	Slippage  quoting.Optional[float64]
	GasPreset string
	// GasPriceWei pins the gas price, overriding GasPreset.
	GasPriceWei quoting.Optional[string]
}

// NormalizedRequest is a validated RouteRequest.
type NormalizedRequest struct {
	ClientID          string
	From              *asset.Asset
	To                *asset.Asset
	Amount            asset.Amount
	Wallet            quoting.Optional[string]
	PreferredProvider string
	Preference        quoting.Preference
	Slippage          quoting.Optional[float64]
	GasPrice          blockchain.GasPriceSpec
}

// QuoteRequest is the adapter-facing view of r.
func (r NormalizedRequest) QuoteRequest() quoting.QuoteRequest {
	return quoting.QuoteRequest{
		From:       r.From,
		To:         r.To,
		Amount:     r.Amount,
		Wallet:     r.Wallet,
		GasPrice:   r.GasPrice,
		Preference: r.Preference,
	}
}

// RouteResult is the ranked outcome of one aggregation call.
type RouteResult struct {
	Routes           []ScoredRoute
	Cached           bool
	Fingerprint      string
	ProvidersQueried []string
	ProvidersFailed  []string
}

// Top returns the best route, if any.
func (r RouteResult) Top() (ScoredRoute, bool) {
	if len(r.Routes) == 0 {
		return ScoredRoute{}, false
	}
	return r.Routes[0], true
}

// NormalizeProvider lower-cases and trims a provider name.
func NormalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
