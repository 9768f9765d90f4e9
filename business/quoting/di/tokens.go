// Package di contains dependency injection tokens for the quoting context.
package di

import (
	"github.com/fd1az/swap-aggregator/business/quoting/app"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/fusion"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/oneinch"
	"github.com/fd1az/swap-aggregator/internal/di"
)

// Public service tokens - exposed to other modules
var (
	// Providers lists the enabled adapters in configuration order.
	Providers = di.NewToken[[]app.Provider]("quoting.Providers")
	// Orders is nil when the RFQ adapter is disabled.
	Orders = di.NewToken[app.OrderProvider]("quoting.Orders")
)

// Private dependency tokens - internal to quoting module
var (
	FusionProvider  = di.NewToken[*fusion.Provider]("quoting:fusionProvider")
	OneInchProvider = di.NewToken[*oneinch.Provider]("quoting:oneinchProvider")
)

// Helper functions for type-safe access
func GetProviders(c di.ServiceRegistry) []app.Provider {
	return di.GetToken(c, Providers)
}

func GetOrders(c di.ServiceRegistry) app.OrderProvider {
	return di.GetToken(c, Orders)
}

func GetFusionProvider(c di.ServiceRegistry) *fusion.Provider {
	return di.GetToken(c, FusionProvider)
}

func GetOneInchProvider(c di.ServiceRegistry) *oneinch.Provider {
	return di.GetToken(c, OneInchProvider)
}
