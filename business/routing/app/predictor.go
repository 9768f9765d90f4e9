package app

import (
	"context"
	"math"
	"time"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/config"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

const (
	successBase      = 0.55
	successPerRoute  = 0.07
	successMaxRoutes = 5
	successImpact    = 4.0
)

// Predictor recommends execution parameters for a request. It reads routes
// from the same source callers use, so within one cache TTL its
// recommendation is the aggregator's top route.
type Predictor struct {
	routes  RouteSource
	history PairHistory
	cfg     config.PredictorConfig
	logger  logger.LoggerInterface
}

// NewPredictor creates a predictor. history may be nil.
func NewPredictor(routes RouteSource, history PairHistory, cfg config.PredictorConfig, log logger.LoggerInterface) *Predictor {
	if cfg.DefaultTime <= 0 {
		cfg.DefaultTime = time.Minute
	}
	return &Predictor{routes: routes, history: history, cfg: cfg, logger: log}
}

// Predict returns parameters for req. Request-level aggregation errors are
// returned unchanged.
func (p *Predictor) Predict(ctx context.Context, req domain.RouteRequest) (domain.Prediction, error) {
	result, err := p.routes.GetRoutes(ctx, req)
	if err != nil {
		return domain.Prediction{}, err
	}

	slippage, samples := p.slippage(req)
	pred := domain.Prediction{
		OptimalSlippage:   slippage,
		EstimatedTime:     p.cfg.DefaultTime,
		VolatilitySamples: samples,
		Fingerprint:       result.Fingerprint,
		RouteOrdering:     make([]string, len(result.Routes)),
	}
	for i, r := range result.Routes {
		pred.RouteOrdering[i] = r.ID
	}

	top, ok := result.Top()
	if !ok {
		return pred, nil
	}

	pred.RecommendedRoute = &top
	pred.PredictedGas = top.EstimatedGas
	if top.ExecutionTime > 0 {
		pred.EstimatedTime = time.Duration(top.ExecutionTime * float64(time.Second))
	}

	n := min(len(result.Routes), successMaxRoutes)
	success := clamp01(successBase + successPerRoute*float64(n) - successImpact*finite(top.PriceImpact))

	if p.history != nil {
		if stats, ok := p.history.PathStats(top.PathSignature()); ok && stats.Attempts >= p.cfg.MinSamples && stats.Attempts > 0 {
			success = clamp01(0.5*success + 0.5*stats.SuccessRate())
			if stats.MeanGas > 0 {
				pred.PredictedGas = uint64(math.Round(stats.MeanGas))
			}
		}
	}
	pred.SuccessProbability = success

	return pred, nil
}

// slippage is volatility-scaled with a safety margin, clamped to the
// configured bounds which sit strictly inside (0,1).
func (p *Predictor) slippage(req domain.RouteRequest) (float64, int) {
	vol, n := 0.0, 0
	if p.history != nil {
		vol, n = p.history.PairVolatility(req.From, req.To)
	}

	s := p.cfg.DefaultSlippage + p.cfg.SafetyMargin
	if n >= p.cfg.MinSamples && n > 0 {
		s = finite(vol)*p.cfg.VolatilityMultiplier + p.cfg.SafetyMargin
	}
	return math.Min(p.cfg.MaxSlippage, math.Max(p.cfg.MinSlippage, s)), n
}
