package domain

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	blockchain "github.com/fd1az/swap-aggregator/business/blockchain/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

func mustAmount(t *testing.T, a *asset.Asset, s string) asset.Amount {
	t.Helper()
	amt, err := asset.ParseString(a, s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return amt
}

func TestToProposals_RFQ(t *testing.T) {
	q := RFQQuote{
		Provider: "fusion",
		QuoteID:  "q-1",
		From:     asset.ETH,
		To:       asset.USDC,
		AmountIn: mustAmount(t, asset.ETH, "1"),
		Presets: []AuctionPreset{
			{
				Name:               "fast",
				AuctionStartAmount: mustAmount(t, asset.USDC, "2000"),
				AuctionEndAmount:   mustAmount(t, asset.USDC, "1990"),
				StartAuctionIn:     12 * time.Second,
				AuctionDuration:    48 * time.Second,
			},
			{
				Name:               "slow",
				AuctionStartAmount: mustAmount(t, asset.USDC, "2010"),
				AuctionEndAmount:   mustAmount(t, asset.USDC, "1950"),
				StartAuctionIn:     24 * time.Second,
				AuctionDuration:    600 * time.Second,
			},
		},
		FromUSD: Some(decimal.NewFromInt(2000)),
		ToUSD:   Some(decimal.NewFromInt(1)),
	}

	props := ToProposals(q)
	if len(props) != 2 {
		t.Fatalf("expected one proposal per preset, got %d", len(props))
	}

	fast := props[0]
	if fast.Kind != KindRFQ || fast.EstimatedGas != 0 || fast.QuoteID != "q-1" {
		t.Errorf("unexpected rfq proposal %+v", fast)
	}
	if fast.EstimatedTime != time.Minute {
		t.Errorf("expected 60s, got %s", fast.EstimatedTime)
	}
	if fast.EstimatedOut.RawString() != "1990000000" {
		t.Errorf("output must be the auction floor, got %s", fast.EstimatedOut.RawString())
	}
	if fast.PathSignature() != "fusion" {
		t.Errorf("unexpected path %q", fast.PathSignature())
	}
	// 1990 out of 2000 USD
	if diff := fast.PriceImpact - 0.005; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected 0.5%% impact, got %v", fast.PriceImpact)
	}
	if len(fast.Risks) != 0 {
		t.Errorf("narrow same-chain auction should have no risks, got %v", fast.Risks)
	}

	slow := props[1]
	if len(slow.Risks) != 1 || !strings.Contains(slow.Risks[0], "wide auction spread") {
		t.Errorf("expected spread risk, got %v", slow.Risks)
	}
	if fast.ID == slow.ID {
		t.Error("proposal ids must be unique")
	}
}

func TestToProposals_RFQCrossChain(t *testing.T) {
	q := RFQQuote{
		Provider:        "fusion",
		From:            asset.USDC,
		To:              asset.USDCArbitrum,
		AmountIn:        mustAmount(t, asset.USDC, "100"),
		SettlementDelay: Some(5 * time.Minute),
		Presets: []AuctionPreset{{
			Name:               "medium",
			AuctionStartAmount: mustAmount(t, asset.USDCArbitrum, "99.9"),
			AuctionEndAmount:   mustAmount(t, asset.USDCArbitrum, "99.5"),
			AuctionDuration:    time.Minute,
		}},
	}

	p := ToProposals(q)[0]
	if p.PathSignature() != "fusion-plus" {
		t.Errorf("expected fusion-plus, got %q", p.PathSignature())
	}
	if p.EstimatedTime != 6*time.Minute {
		t.Errorf("settlement delay must be added, got %s", p.EstimatedTime)
	}
	if p.PriceImpact != 0 {
		t.Errorf("missing usd prices must yield zero impact, got %v", p.PriceImpact)
	}
	if len(p.Risks) == 0 || !strings.Contains(p.Risks[0], "cross-chain") {
		t.Errorf("expected cross-chain risk, got %v", p.Risks)
	}
}

func TestToProposals_Aggregation(t *testing.T) {
	q := AggregationQuote{
		Provider:  "oneinch",
		From:      asset.ETH,
		To:        asset.DAI,
		AmountIn:  mustAmount(t, asset.ETH, "1"),
		AmountOut: mustAmount(t, asset.DAI, "1999"),
		Hops: []Hop{
			{TokenIn: asset.ETH, TokenOut: asset.WETH, Protocol: "WETH", Share: 1, Venues: 1},
			{TokenIn: asset.WETH, TokenOut: asset.USDC, Protocol: "UNISWAP_V3", Share: 0.7, Venues: 2},
			{TokenIn: asset.USDC, TokenOut: asset.DAI, Protocol: "CURVE", Share: 1, Venues: 1},
		},
		GasPrice: blockchain.GasQuote{
			Preset: blockchain.PresetStandard,
			Price:  blockchain.NewGasPriceFromGwei(30, time.Now()),
			Source: blockchain.SourceFallback,
		},
	}

	p := ToProposals(q)[0]
	if p.EstimatedGas != DefaultAggregationGas {
		t.Errorf("missing gas should default, got %d", p.EstimatedGas)
	}
	if p.PathSignature() != "weth>uniswap_v3>curve" {
		t.Errorf("unexpected path %q", p.PathSignature())
	}
	if !p.Steps[1].AmountIn.IsZero() || p.Steps[1].AmountIn.Asset() != asset.WETH {
		t.Error("intermediate hop amounts must be zero amounts of the hop token")
	}
	if p.Steps[2].AmountOut.RawString() != q.AmountOut.RawString() {
		t.Error("last hop must carry the quoted output")
	}

	joined := strings.Join(p.Risks, "|")
	if !strings.Contains(joined, "multi-hop") || !strings.Contains(joined, "fallback") {
		t.Errorf("expected multi-hop and fallback risks, got %v", p.Risks)
	}
	if !strings.Contains(strings.Join(p.Advantages, "|"), "split across 2 venues") {
		t.Errorf("expected split advantage, got %v", p.Advantages)
	}
}

func TestOptional(t *testing.T) {
	if v := None[int]().OrElse(7); v != 7 {
		t.Errorf("expected default, got %d", v)
	}
	n := 3
	if v, ok := FromPtr(&n).Get(); !ok || v != 3 {
		t.Errorf("expected 3, got %d %v", v, ok)
	}
	if FromPtr[int](nil).IsSome() {
		t.Error("nil pointer must be None")
	}
}

func TestAuctionSpread_NoSpreadWhenEndAboveStart(t *testing.T) {
	p := AuctionPreset{
		AuctionStartAmount: asset.NewAmount(asset.USDC, big.NewInt(100)),
		AuctionEndAmount:   asset.NewAmount(asset.USDC, big.NewInt(120)),
	}
	if s := auctionSpread(p); s != 0 {
		t.Errorf("expected 0, got %v", s)
	}
}

func TestParsePreference(t *testing.T) {
	if p, ok := ParsePreference(""); !ok || p != PreferenceBalanced {
		t.Error("empty preference should be balanced")
	}
	if p, ok := ParsePreference("Speed"); !ok || p != PreferenceSpeed {
		t.Error("expected speed")
	}
	if _, ok := ParsePreference("yolo"); ok {
		t.Error("unknown preference must be rejected")
	}
}
