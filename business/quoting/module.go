// Package quoting implements the quoting bounded context: upstream adapters
// that turn RFQ and aggregation quotes into route proposals.
package quoting

import (
	"context"

	blockchainDI "github.com/fd1az/swap-aggregator/business/blockchain/di"
	"github.com/fd1az/swap-aggregator/business/quoting/app"
	quotingDI "github.com/fd1az/swap-aggregator/business/quoting/di"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/fusion"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/oneinch"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/upstream"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/circuitbreaker"
	"github.com/fd1az/swap-aggregator/internal/config"
	"github.com/fd1az/swap-aggregator/internal/di"
	"github.com/fd1az/swap-aggregator/internal/logger"
	"github.com/fd1az/swap-aggregator/internal/monolith"
)

// Module implements the quoting bounded context.
type Module struct{}

func upstreamConfig(name string, p config.ProviderConfig) upstream.Config {
	return upstream.Config{
		Name:              name,
		BaseURL:           p.BaseURL,
		APIKey:            p.APIKey,
		Timeout:           p.Timeout,
		RequestsPerMinute: p.RequestsPerMinute,
	}
}

// RegisterServices registers all quoting services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register FusionProvider (private - RFQ adapter)
	di.RegisterToken(c, quotingDI.FusionProvider, func(sr di.ServiceRegistry) *fusion.Provider {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		p, err := fusion.NewProvider(upstreamConfig(fusion.ProviderName, cfg.Providers.Fusion), log)
		if err != nil {
			panic("failed to create fusion provider: " + err.Error())
		}
		return p
	})

	// Register OneInchProvider (private - aggregation adapter)
	di.RegisterToken(c, quotingDI.OneInchProvider, func(sr di.ServiceRegistry) *oneinch.Provider {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)
		registry := sr.Get(monolith.AssetRegistryKey).(*asset.Registry)

		p, err := oneinch.NewProvider(
			upstreamConfig(oneinch.ProviderName, cfg.Providers.Aggregation),
			blockchainDI.GetGasService(sr),
			registry,
			log,
		)
		if err != nil {
			panic("failed to create aggregation provider: " + err.Error())
		}
		return p
	})

	// Register Providers (public - consumed by routing)
	di.RegisterToken(c, quotingDI.Providers, func(sr di.ServiceRegistry) []app.Provider {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)

		var providers []app.Provider
		if cfg.Providers.Fusion.Enabled {
			providers = append(providers, quotingDI.GetFusionProvider(sr))
		}
		if cfg.Providers.Aggregation.Enabled {
			providers = append(providers, quotingDI.GetOneInchProvider(sr))
		}
		return providers
	})

	// Register Orders (public - RFQ order passthrough)
	di.RegisterToken(c, quotingDI.Orders, func(sr di.ServiceRegistry) app.OrderProvider {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		if !cfg.Providers.Fusion.Enabled {
			return nil
		}
		return quotingDI.GetFusionProvider(sr)
	})

	return nil
}

// Startup initializes the quoting module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	providers := quotingDI.GetProviders(mono.Services())

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())

		reporter, ok := p.(app.HealthReporter)
		if !ok {
			continue
		}
		mono.Health().RegisterCheck("provider:"+p.Name(), func(context.Context) (bool, string) {
			state := reporter.BreakerState()
			return state != circuitbreaker.StateOpen, "circuit " + state
		})
	}

	log.Info(ctx, "quoting module started", "providers", names)
	return nil
}
