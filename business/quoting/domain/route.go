package domain

import (
	"strings"
	"time"

	"github.com/fd1az/swap-aggregator/internal/asset"
)

// ProviderKind distinguishes the two upstream families.
type ProviderKind string

const (
	KindRFQ         ProviderKind = "rfq"
	KindAggregation ProviderKind = "aggregation"
)

// RouteStep is one hop of a route, executed on a single protocol.
type RouteStep struct {
	Protocol  string
	TokenIn   *asset.Asset
	TokenOut  *asset.Asset
	AmountIn  asset.Amount
	AmountOut asset.Amount
	// Fee is denominated in TokenOut.
	Fee asset.Amount
	// Share is the fraction of the hop this protocol handles, in (0,1].
	Share float64
}

// RouteProposal is a normalised, unscored route from one provider.
type RouteProposal struct {
	ID            string
	Provider      string
	Kind          ProviderKind
	From          *asset.Asset
	To            *asset.Asset
	AmountIn      asset.Amount
	Steps         []RouteStep
	EstimatedOut  asset.Amount
	EstimatedGas  uint64
	EstimatedTime time.Duration
	PriceImpact   float64
	Risks         []string
	Advantages    []string
	QuoteID       string
	FetchedAt     time.Time
}

// PathSignature joins the lower-cased protocol names with '>'.
func (p RouteProposal) PathSignature() string {
	return PathSignature(p.Steps)
}

// PathSignature joins the lower-cased protocol names of steps with '>'.
func PathSignature(steps []RouteStep) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = strings.ToLower(strings.TrimSpace(s.Protocol))
	}
	return strings.Join(names, ">")
}

// Protocols returns the step protocols in order.
func (p RouteProposal) Protocols() []string {
	out := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Protocol
	}
	return out
}

// Clone returns a copy that shares no slices with p.
func (p RouteProposal) Clone() RouteProposal {
	c := p
	c.Steps = append([]RouteStep(nil), p.Steps...)
	c.Risks = append([]string(nil), p.Risks...)
	c.Advantages = append([]string(nil), p.Advantages...)
	return c
}
