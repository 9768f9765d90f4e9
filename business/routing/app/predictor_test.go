package app

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/config"
)

type stubSource struct {
	result domain.RouteResult
	err    error
}

func (s stubSource) GetRoutes(context.Context, domain.RouteRequest) (domain.RouteResult, error) {
	return s.result, s.err
}

func testPredictorConfig() config.PredictorConfig {
	return config.PredictorConfig{
		DefaultSlippage:      0.005,
		SafetyMargin:         0.0025,
		VolatilityMultiplier: 2,
		MinSlippage:          0.001,
		MaxSlippage:          0.3,
		MinSamples:           3,
		DefaultTime:          time.Minute,
	}
}

func scored(t *testing.T, id string, out int64, opts ...proposalOpt) domain.ScoredRoute {
	t.Helper()
	p := proposal(t, id, "1inch", out, opts...)
	return newTestScorer(nil).Score(p, ScoreContext{Preference: quoting.PreferenceBalanced, WorstOut: p.EstimatedOut})
}

func TestPredict_NoHistory(t *testing.T) {
	routes := []domain.ScoredRoute{
		scored(t, "r1", 2_000_000_000, withImpact(0.01)),
		scored(t, "r2", 1_990_000_000),
	}
	src := stubSource{result: domain.RouteResult{Routes: routes, Fingerprint: "fp"}}
	p := NewPredictor(src, NewRecorder(nil, &mockLogger{}), testPredictorConfig(), &mockLogger{})

	pred, err := p.Predict(context.Background(), ethUSDC("1"))
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(pred.OptimalSlippage-0.0075) > 1e-12 {
		t.Errorf("expected default plus margin 0.0075, got %v", pred.OptimalSlippage)
	}
	// 0.55 + 0.07*2 - 4*0.01
	if math.Abs(pred.SuccessProbability-0.65) > 1e-9 {
		t.Errorf("expected success 0.65, got %v", pred.SuccessProbability)
	}
	if pred.RecommendedRoute == nil || pred.RecommendedRoute.ID != "r1" {
		t.Fatalf("expected r1 recommended, got %+v", pred.RecommendedRoute)
	}
	if pred.PredictedGas != 150_000 || pred.EstimatedTime != 30*time.Second {
		t.Errorf("gas/time should come from the top route, got %d / %v", pred.PredictedGas, pred.EstimatedTime)
	}
	if len(pred.RouteOrdering) != 2 || pred.RouteOrdering[0] != "r1" || pred.Fingerprint != "fp" {
		t.Errorf("unexpected ordering %v", pred.RouteOrdering)
	}
}

func TestPredict_VolatilityAndHistory(t *testing.T) {
	rec := NewRecorder(nil, &mockLogger{})
	ctx := context.Background()
	for _, s := range []float64{0.01, 0.02, 0.03, 0.04} {
		rec.Record(ctx, domain.TransactionOutcome{
			From: asset.ETH, To: asset.USDC, Amount: "1",
			RoutePath: []string{"uniswap-v3"}, GasCost: 100_000,
			Slippage: s, Success: true,
		})
	}
	rec.Record(ctx, domain.TransactionOutcome{
		From: asset.ETH, To: asset.USDC, RoutePath: []string{"uniswap-v3"}, GasCost: 200_000, Success: false,
	})

	routes := []domain.ScoredRoute{scored(t, "r1", 2_000_000_000)}
	p := NewPredictor(stubSource{result: domain.RouteResult{Routes: routes}}, rec, testPredictorConfig(), &mockLogger{})

	pred, err := p.Predict(ctx, ethUSDC("1"))
	if err != nil {
		t.Fatal(err)
	}

	// sample stddev of 0.01..0.04 is 0.0129099
	want := 2*0.012909944487358056 + 0.0025
	if math.Abs(pred.OptimalSlippage-want) > 1e-9 || pred.VolatilitySamples != 4 {
		t.Errorf("expected slippage %v from 4 samples, got %v from %d", want, pred.OptimalSlippage, pred.VolatilitySamples)
	}

	// model 0.62 blended with observed 4/5
	if math.Abs(pred.SuccessProbability-(0.5*0.62+0.5*0.8)) > 1e-9 {
		t.Errorf("unexpected blended success %v", pred.SuccessProbability)
	}
	if pred.PredictedGas != 120_000 {
		t.Errorf("expected historical mean gas 120000, got %d", pred.PredictedGas)
	}
}

func TestPredict_SlippageBounds(t *testing.T) {
	cfg := testPredictorConfig()
	cfg.MinSamples = 2
	cfg.SafetyMargin = 0
	routes := []domain.ScoredRoute{scored(t, "r1", 1)}

	tests := []struct {
		name      string
		slippages []float64
		want      float64
	}{
		{name: "calm_pair_floor", slippages: []float64{0.0001, 0.0001}, want: 0.001},
		{name: "wild_pair_ceiling", slippages: []float64{0.0, 0.9}, want: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecorder(nil, &mockLogger{})
			for _, s := range tt.slippages {
				rec.Record(context.Background(), domain.TransactionOutcome{
					From: asset.ETH, To: asset.USDC, RoutePath: []string{"x"}, Slippage: s, Success: true,
				})
			}
			p := NewPredictor(stubSource{result: domain.RouteResult{Routes: routes}}, rec, cfg, &mockLogger{})
			pred, err := p.Predict(context.Background(), ethUSDC("1"))
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(pred.OptimalSlippage-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, pred.OptimalSlippage)
			}
			if pred.OptimalSlippage <= 0 || pred.OptimalSlippage >= 1 {
				t.Errorf("slippage %v outside (0,1)", pred.OptimalSlippage)
			}
		})
	}
}

func TestPredict_NoRoutes(t *testing.T) {
	src := stubSource{result: domain.RouteResult{Routes: []domain.ScoredRoute{}}}
	p := NewPredictor(src, nil, testPredictorConfig(), &mockLogger{})

	pred, err := p.Predict(context.Background(), ethUSDC("1"))
	if err != nil {
		t.Fatal(err)
	}
	if pred.RecommendedRoute != nil || pred.SuccessProbability != 0 || pred.EstimatedTime != time.Minute {
		t.Errorf("empty routes should yield defaults, got %+v", pred)
	}
	if pred.RouteOrdering == nil {
		t.Error("ordering should be an empty list")
	}
}

func TestPredict_PropagatesErrors(t *testing.T) {
	want := apperror.New(apperror.CodeAllProvidersUnavailable)
	p := NewPredictor(stubSource{err: want}, nil, testPredictorConfig(), &mockLogger{})

	if _, err := p.Predict(context.Background(), ethUSDC("1")); !errors.Is(err, want) {
		t.Errorf("expected aggregation error, got %v", err)
	}
}

func TestPredict_MatchesAggregatorTop(t *testing.T) {
	prov := &fakeProvider{name: "1inch", proposals: []quoting.RouteProposal{
		proposal(t, "best", "1inch", 2_000_000_000),
		proposal(t, "worse", "1inch", 1_900_000_000, withImpact(0.02), withProtocols("curve")),
	}}
	f := newAggregator(t, 100, prov)
	p := NewPredictor(f.agg, nil, testPredictorConfig(), &mockLogger{})
	ctx := context.Background()

	res, err := f.agg.GetRoutes(ctx, ethUSDC("1"))
	if err != nil {
		t.Fatal(err)
	}
	pred, err := p.Predict(ctx, ethUSDC("1"))
	if err != nil {
		t.Fatal(err)
	}

	if pred.RecommendedRoute.ID != res.Routes[0].ID {
		t.Errorf("prediction %s disagrees with top route %s", pred.RecommendedRoute.ID, res.Routes[0].ID)
	}
	if prov.calls.Load() != 1 {
		t.Errorf("prediction within TTL should reuse the cache, calls=%d", prov.calls.Load())
	}
}
