// Package app contains the provider ports of the quoting context.
package app

import (
	"context"
	"time"

	"github.com/fd1az/swap-aggregator/business/quoting/domain"
)

// Provider is an upstream quote source. Implementations return either a
// complete set of proposals or an error, never a partial set.
type Provider interface {
	Name() string
	Kind() domain.ProviderKind
	Quote(ctx context.Context, req domain.QuoteRequest) ([]domain.RouteProposal, error)
}

// OrderProvider is implemented by RFQ providers that accept signed orders.
type OrderProvider interface {
	SubmitOrder(ctx context.Context, chainID uint64, order domain.SignedOrder) (domain.OrderReceipt, error)
	OrderStatus(ctx context.Context, chainID uint64, orderHash string) (domain.OrderState, error)
	WaitForOrder(ctx context.Context, chainID uint64, orderHash string, interval time.Duration) (domain.OrderState, error)
}

// HealthReporter is implemented by providers that guard upstream calls with a breaker.
type HealthReporter interface {
	BreakerState() string
}
