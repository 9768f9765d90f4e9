// Package di contains dependency injection tokens for the routing context.
package di

import (
	"github.com/fd1az/swap-aggregator/business/routing/app"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/business/routing/infra/httpapi"
	"github.com/fd1az/swap-aggregator/internal/cache"
	"github.com/fd1az/swap-aggregator/internal/di"
	"github.com/fd1az/swap-aggregator/internal/ratelimit"
)

// Public service tokens - exposed to other modules
var (
	Aggregator = di.NewToken[*app.Aggregator]("routing.Aggregator")
	Predictor  = di.NewToken[*app.Predictor]("routing.Predictor")
	Recorder   = di.NewToken[*app.Recorder]("routing.Recorder")
	Insights   = di.NewToken[*app.InsightGenerator]("routing.Insights")
)

// Private dependency tokens - internal to routing module
var (
	RouteCache  = di.NewToken[*cache.Cache[string, []domain.ScoredRoute]]("routing:routeCache")
	RateLimiter = di.NewToken[*ratelimit.SlidingWindow]("routing:rateLimiter")
	Scorer      = di.NewToken[*app.Scorer]("routing:scorer")
	OutcomeLog  = di.NewToken[app.OutcomeLog]("routing:outcomeLog")
	Handler     = di.NewToken[*httpapi.Handler]("routing:httpHandler")
)

// Helper functions for type-safe access
func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetPredictor(c di.ServiceRegistry) *app.Predictor {
	return di.GetToken(c, Predictor)
}

func GetRecorder(c di.ServiceRegistry) *app.Recorder {
	return di.GetToken(c, Recorder)
}

func GetInsights(c di.ServiceRegistry) *app.InsightGenerator {
	return di.GetToken(c, Insights)
}

func GetRouteCache(c di.ServiceRegistry) *cache.Cache[string, []domain.ScoredRoute] {
	return di.GetToken(c, RouteCache)
}

func GetRateLimiter(c di.ServiceRegistry) *ratelimit.SlidingWindow {
	return di.GetToken(c, RateLimiter)
}

func GetScorer(c di.ServiceRegistry) *app.Scorer {
	return di.GetToken(c, Scorer)
}

func GetOutcomeLog(c di.ServiceRegistry) app.OutcomeLog {
	return di.GetToken(c, OutcomeLog)
}

func GetHandler(c di.ServiceRegistry) *httpapi.Handler {
	return di.GetToken(c, Handler)
}
