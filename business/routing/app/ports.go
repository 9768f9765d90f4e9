// Package app contains the routing use cases: aggregation, scoring,
// prediction, insights and outcome recording.
package app

import (
	"context"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/ratelimit"
)

// OutcomeLog persists recorded outcomes.
type OutcomeLog interface {
	Append(ctx context.Context, o domain.TransactionOutcome) error
	// Load returns up to limit outcomes, oldest first.
	Load(ctx context.Context, limit int) ([]domain.TransactionOutcome, error)
	Close() error
}

// PathHistory answers per-path statistics.
type PathHistory interface {
	PathStats(signature string) (domain.PathStats, bool)
}

// PairHistory answers per-pair realised slippage volatility.
type PairHistory interface {
	PathHistory
	// PairVolatility returns the slippage standard deviation and sample count.
	PairVolatility(from, to *asset.Asset) (float64, int)
}

// RateLimiter decides whether a client may issue another request.
type RateLimiter interface {
	CheckAndRecord(clientID string) ratelimit.Decision
}

// RouteSource produces ranked routes.
type RouteSource interface {
	GetRoutes(ctx context.Context, req domain.RouteRequest) (domain.RouteResult, error)
}
