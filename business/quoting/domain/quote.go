package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	blockchain "github.com/fd1az/swap-aggregator/business/blockchain/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

const (
	// DefaultAggregationGas is assumed when an aggregation quote omits gas.
	DefaultAggregationGas uint64 = 150_000

	// DefaultAggregationTime is the expected inclusion time of an on-chain swap.
	DefaultAggregationTime = 30 * time.Second

	// wideSpreadThreshold flags auctions whose start/end spread exceeds 1%.
	wideSpreadThreshold = 0.01

	multiHopThreshold = 2
)

// ProviderQuote is a decoded upstream quote. The set of variants is closed:
// RFQQuote and AggregationQuote.
type ProviderQuote interface {
	providerQuote()
	ProviderName() string
}

// AuctionPreset is one Dutch-auction speed tier of an RFQ quote.
type AuctionPreset struct {
	Name               string
	AuctionStartAmount asset.Amount
	AuctionEndAmount   asset.Amount
	StartAuctionIn     time.Duration
	AuctionDuration    time.Duration
}

// RFQQuote is an intent-based quote filled by resolvers.
type RFQQuote struct {
	Provider string
	QuoteID  string
	From     *asset.Asset
	To       *asset.Asset
	AmountIn asset.Amount
	Presets  []AuctionPreset
	// SettlementDelay is the destination withdrawal timelock for cross-chain swaps.
	SettlementDelay Optional[time.Duration]
	// FromUSD and ToUSD are USD reference prices per whole token.
	FromUSD   Optional[decimal.Decimal]
	ToUSD     Optional[decimal.Decimal]
	FetchedAt time.Time
}

func (RFQQuote) providerQuote()         {}
func (q RFQQuote) ProviderName() string { return q.Provider }

// IsCrossChain reports whether the quote settles on another chain.
func (q RFQQuote) IsCrossChain() bool {
	return q.From.ChainID() != q.To.ChainID()
}

// Hop is one leg of an aggregation route.
type Hop struct {
	TokenIn  *asset.Asset
	TokenOut *asset.Asset
	// Protocol is the dominant venue of the hop and Share its fraction.
	Protocol string
	Share    float64
	// Venues is the number of venues the hop is split across.
	Venues int
}

// AggregationQuote is a DEX-aggregation quote executed by the caller.
type AggregationQuote struct {
	Provider    string
	From        *asset.Asset
	To          *asset.Asset
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	Gas         Optional[uint64]
	PriceImpact Optional[float64]
	Hops        []Hop
	GasPrice    blockchain.GasQuote
	FetchedAt   time.Time
}

func (AggregationQuote) providerQuote()         {}
func (q AggregationQuote) ProviderName() string { return q.Provider }

// ToProposals converts a quote variant into proposals.
func ToProposals(q ProviderQuote) []RouteProposal {
	switch v := q.(type) {
	case RFQQuote:
		return rfqProposals(v)
	case AggregationQuote:
		return []RouteProposal{aggregationProposal(v)}
	default:
		return nil
	}
}

func rfqProposals(q RFQQuote) []RouteProposal {
	protocol := "fusion"
	if q.IsCrossChain() {
		protocol = "fusion-plus"
	}
	settlement := q.SettlementDelay.OrElse(0)

	out := make([]RouteProposal, 0, len(q.Presets))
	for _, preset := range q.Presets {
		var risks []string
		advantages := []string{
			"gasless: resolver pays the network fee",
			"guaranteed minimum output via Dutch auction",
		}

		if q.IsCrossChain() {
			risks = append(risks, "cross-chain settlement: funds are escrowed until the destination withdrawal")
		}
		if spread := auctionSpread(preset); spread > wideSpreadThreshold {
			risks = append(risks, fmt.Sprintf("wide auction spread (%.2f%%)", spread*100))
		}

		out = append(out, RouteProposal{
			ID:       uuid.NewString(),
			Provider: q.Provider,
			Kind:     KindRFQ,
			From:     q.From,
			To:       q.To,
			AmountIn: q.AmountIn,
			Steps: []RouteStep{{
				Protocol:  protocol,
				TokenIn:   q.From,
				TokenOut:  q.To,
				AmountIn:  q.AmountIn,
				AmountOut: preset.AuctionEndAmount,
				Fee:       asset.Zero(q.To),
				Share:     1,
			}},
			EstimatedOut:  preset.AuctionEndAmount,
			EstimatedGas:  0,
			EstimatedTime: preset.StartAuctionIn + preset.AuctionDuration + settlement,
			PriceImpact:   usdImpact(q.AmountIn, preset.AuctionEndAmount, q.FromUSD, q.ToUSD),
			Risks:         risks,
			Advantages:    append(advantages, "auction preset: "+preset.Name),
			QuoteID:       q.QuoteID,
			FetchedAt:     q.FetchedAt,
		})
	}
	return out
}

func aggregationProposal(q AggregationQuote) RouteProposal {
	gas := q.Gas.OrElse(DefaultAggregationGas)

	steps := make([]RouteStep, len(q.Hops))
	var advantages, risks []string
	venues := 0
	for i, h := range q.Hops {
		in := asset.Zero(h.TokenIn)
		if i == 0 {
			in = q.AmountIn
		}
		outAmt := asset.Zero(h.TokenOut)
		if i == len(q.Hops)-1 {
			outAmt = q.AmountOut
		}
		steps[i] = RouteStep{
			Protocol:  h.Protocol,
			TokenIn:   h.TokenIn,
			TokenOut:  h.TokenOut,
			AmountIn:  in,
			AmountOut: outAmt,
			Fee:       asset.Zero(h.TokenOut),
			Share:     h.Share,
		}
		if h.Venues > venues {
			venues = h.Venues
		}
	}

	if venues > 1 {
		advantages = append(advantages, fmt.Sprintf("split across %d venues", venues))
	}
	if len(q.Hops) > multiHopThreshold {
		risks = append(risks, fmt.Sprintf("multi-hop route (%d hops)", len(q.Hops)))
	}

	if price := q.GasPrice.Price; price != nil && price.Wei != nil {
		switch q.GasPrice.Source {
		case blockchain.SourceOracle:
			advantages = append(advantages, fmt.Sprintf("gas priced from live oracle (%s, %.2f gwei)", q.GasPrice.Preset, price.Gwei()))
		case blockchain.SourceCaller:
			advantages = append(advantages, fmt.Sprintf("gas price pinned by caller (%.2f gwei)", price.Gwei()))
		case blockchain.SourceFallback:
			risks = append(risks, fmt.Sprintf("gas price from fallback %s preset (%.2f gwei); live oracle unavailable", q.GasPrice.Preset, price.Gwei()))
		}
		fee := blockchain.NewGasEstimate(gas, price)
		advantages = append(advantages, "estimated network fee "+formatNative(fee.TotalWei)+" native")
	}

	return RouteProposal{
		ID:            uuid.NewString(),
		Provider:      q.Provider,
		Kind:          KindAggregation,
		From:          q.From,
		To:            q.To,
		AmountIn:      q.AmountIn,
		Steps:         steps,
		EstimatedOut:  q.AmountOut,
		EstimatedGas:  gas,
		EstimatedTime: DefaultAggregationTime,
		PriceImpact:   q.PriceImpact.OrElse(0),
		Risks:         risks,
		Advantages:    advantages,
		FetchedAt:     q.FetchedAt,
	}
}

// auctionSpread is (start-end)/start.
func auctionSpread(p AuctionPreset) float64 {
	start := p.AuctionStartAmount
	if start.Raw().Sign() <= 0 || p.AuctionEndAmount.Asset() == nil {
		return 0
	}
	diff := new(big.Int).Sub(start.Raw(), p.AuctionEndAmount.Raw())
	if diff.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(diff, start.Raw()).Float64()
	return f
}

// usdImpact is the relative USD value lost between input and output, floored at 0.
func usdImpact(in, out asset.Amount, fromUSD, toUSD Optional[decimal.Decimal]) float64 {
	fp, okF := fromUSD.Get()
	tp, okT := toUSD.Get()
	if !okF || !okT || !fp.IsPositive() || !tp.IsPositive() {
		return 0
	}

	now := time.Now()
	valueIn, err := asset.NewPrice(in.Asset(), asset.USD, fp, now).Convert(in)
	if err != nil || !valueIn.IsPositive() {
		return 0
	}
	valueOut, err := asset.NewPrice(out.Asset(), asset.USD, tp, now).Convert(out)
	if err != nil {
		return 0
	}

	ratio := valueOut.Ratio(valueIn)
	if ratio == nil {
		return 0
	}
	r, _ := ratio.Float64()
	if impact := 1 - r; impact > 0 {
		return impact
	}
	return 0
}

func formatNative(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -18).String()
}
