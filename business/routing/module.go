// Package routing implements the routing bounded context: fan-out
// aggregation, scoring, caching, parameter prediction and outcome feedback.
package routing

import (
	"context"
	"fmt"
	"strings"

	quotingDI "github.com/fd1az/swap-aggregator/business/quoting/di"
	"github.com/fd1az/swap-aggregator/business/routing/app"
	routingDI "github.com/fd1az/swap-aggregator/business/routing/di"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/business/routing/infra/httpapi"
	"github.com/fd1az/swap-aggregator/business/routing/infra/outcomes"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/cache"
	"github.com/fd1az/swap-aggregator/internal/config"
	"github.com/fd1az/swap-aggregator/internal/di"
	"github.com/fd1az/swap-aggregator/internal/logger"
	"github.com/fd1az/swap-aggregator/internal/monolith"
	"github.com/fd1az/swap-aggregator/internal/ratelimit"
)

// Module implements the routing bounded context.
type Module struct{}

// RegisterServices registers all routing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register RouteCache (private - shared by every request)
	di.RegisterToken(c, routingDI.RouteCache, func(sr di.ServiceRegistry) *cache.Cache[string, []domain.ScoredRoute] {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		return cache.New[string, []domain.ScoredRoute](cfg.Cache.SweepInterval,
			cache.WithMaxEntries[string, []domain.ScoredRoute](cfg.Cache.MaxEntries),
			cache.WithOnEvict[string, []domain.ScoredRoute](func(key string) {
				log.Debug(context.Background(), "route cache evicted entry", "fingerprint", key)
			}),
		)
	})

	// Register RateLimiter (private - per-client sliding window)
	di.RegisterToken(c, routingDI.RateLimiter, func(sr di.ServiceRegistry) *ratelimit.SlidingWindow {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		return ratelimit.NewSlidingWindow(cfg.RateLimit.Window, cfg.RateLimit.Quota)
	})

	// Register OutcomeLog (private - memory ring or sqlite)
	di.RegisterToken(c, routingDI.OutcomeLog, func(sr di.ServiceRegistry) app.OutcomeLog {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		registry := sr.Get(monolith.AssetRegistryKey).(*asset.Registry)

		switch strings.ToLower(cfg.Outcomes.Store) {
		case "sqlite":
			sink, err := outcomes.OpenSQLite(cfg.Outcomes.SQLitePath, registry)
			if err != nil {
				panic("failed to open outcome store: " + err.Error())
			}
			return sink
		default:
			return outcomes.NewMemoryLog(cfg.Outcomes.MemoryCap)
		}
	})

	// Register Recorder (public - outcome feedback)
	di.RegisterToken(c, routingDI.Recorder, func(sr di.ServiceRegistry) *app.Recorder {
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)
		return app.NewRecorder(routingDI.GetOutcomeLog(sr), log)
	})

	// Register Scorer (private - history-aware scoring)
	di.RegisterToken(c, routingDI.Scorer, func(sr di.ServiceRegistry) *app.Scorer {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		return app.NewScorer(cfg.Scoring, routingDI.GetRecorder(sr))
	})

	// Register Aggregator (public - ranked routes)
	di.RegisterToken(c, routingDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		agg, err := app.NewAggregator(
			quotingDI.GetProviders(sr),
			routingDI.GetRouteCache(sr),
			routingDI.GetRateLimiter(sr),
			routingDI.GetScorer(sr),
			app.AggregatorConfig{
				CacheTTL:        cfg.Cache.TTL,
				ProviderTimeout: cfg.Scoring.ProviderTimeout,
				DedupTolerance:  cfg.Scoring.DedupTolerance,
			},
			log,
		)
		if err != nil {
			panic("failed to create aggregator: " + err.Error())
		}
		return agg
	})

	// Register Predictor (public - execution parameters)
	di.RegisterToken(c, routingDI.Predictor, func(sr di.ServiceRegistry) *app.Predictor {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)
		return app.NewPredictor(routingDI.GetAggregator(sr), routingDI.GetRecorder(sr), cfg.Predictor, log)
	})

	// Register Insights (public - route explanations)
	di.RegisterToken(c, routingDI.Insights, func(sr di.ServiceRegistry) *app.InsightGenerator {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		return app.NewInsightGenerator(cfg.Insights.RiskThreshold)
	})

	// Register Handler (private - public API)
	di.RegisterToken(c, routingDI.Handler, func(sr di.ServiceRegistry) *httpapi.Handler {
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)
		registry := sr.Get(monolith.AssetRegistryKey).(*asset.Registry)

		return httpapi.NewHandler(
			routingDI.GetAggregator(sr),
			routingDI.GetPredictor(sr),
			routingDI.GetRecorder(sr),
			routingDI.GetInsights(sr),
			quotingDI.GetOrders(sr),
			registry,
			log,
		)
	})

	return nil
}

// Startup restores outcome history, starts background pruning and mounts the API.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	routeCache := routingDI.GetRouteCache(sr)
	mono.OnClose(func() error {
		routeCache.Close()
		return nil
	})
	mono.OnClose(routingDI.GetOutcomeLog(sr).Close)

	restored, err := routingDI.GetRecorder(sr).Restore(ctx, cfg.Outcomes.RestoreLimit)
	if err != nil {
		log.Warn(ctx, "failed to restore outcome history", "error", err)
	}

	routingDI.GetRateLimiter(sr).Start(ctx, cfg.RateLimit.PruneInterval)

	agg := routingDI.GetAggregator(sr)
	routingDI.GetHandler(sr).Register(mono.Mux())

	mono.Health().RegisterCheck("route-cache", func(context.Context) (bool, string) {
		s := routeCache.Stats()
		return true, fmt.Sprintf("entries=%d hits=%d misses=%d evictions=%d", s.Entries, s.Hits, s.Misses, s.Evictions)
	})

	log.Info(ctx, "routing module started",
		"providers", agg.ProviderNames(),
		"outcome_store", cfg.Outcomes.Store,
		"outcomes_restored", restored,
	)
	return nil
}
