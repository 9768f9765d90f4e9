// Package blockchain implements the blockchain bounded context: gas presets
// per chain with a fallback that never fails a quote.
package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/params"

	"github.com/fd1az/swap-aggregator/business/blockchain/app"
	blockchainDI "github.com/fd1az/swap-aggregator/business/blockchain/di"
	"github.com/fd1az/swap-aggregator/business/blockchain/domain"
	"github.com/fd1az/swap-aggregator/business/blockchain/infra/ethereum"
	"github.com/fd1az/swap-aggregator/internal/config"
	"github.com/fd1az/swap-aggregator/internal/di"
	"github.com/fd1az/swap-aggregator/internal/logger"
	"github.com/fd1az/swap-aggregator/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		urls, err := ethereum.ParseRPCURLs(cfg.Gas.RPCURLs)
		if err != nil {
			panic("failed to parse rpc urls: " + err.Error())
		}

		oracleCfg := ethereum.DefaultGasOracleConfig(urls)
		if cfg.Gas.CacheTTL > 0 {
			oracleCfg.CacheTTL = cfg.Gas.CacheTTL
		}
		if cfg.Gas.MaxGasPriceGwei > 0 {
			oracleCfg.MaxGasPrice, _ = new(big.Float).Mul(
				big.NewFloat(cfg.Gas.MaxGasPriceGwei), big.NewFloat(params.GWei)).Int(nil)
		}

		oracle, err := ethereum.NewGasOracle(oracleCfg, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register GasService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.GasService, func(sr di.ServiceRegistry) *app.GasService {
		cfg := sr.Get(monolith.ConfigKey).(*config.Config)
		log := sr.Get(monolith.LoggerKey).(logger.LoggerInterface)

		fallback := map[domain.GasPreset]float64{
			domain.PresetSlow:     cfg.Gas.Fallback.Slow,
			domain.PresetStandard: cfg.Gas.Fallback.Standard,
			domain.PresetFast:     cfg.Gas.Fallback.Fast,
			domain.PresetInstant:  cfg.Gas.Fallback.Instant,
		}
		for preset, gwei := range fallback {
			if gwei <= 0 {
				fallback[preset] = app.DefaultFallbackGwei[preset]
			}
		}

		return app.NewGasService(blockchainDI.GetGasOracle(sr), fallback, log)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	oracle := blockchainDI.GetGasOracle(mono.Services())
	if err := oracle.Connect(ctx); err != nil {
		log.Error(ctx, "failed to connect gas oracle", "error", err)
	}
	mono.OnClose(oracle.Close)

	mono.Health().RegisterCheck("gas-oracle", func(context.Context) (bool, string) {
		// Fallback presets keep quoting alive, so an open breaker is informational.
		return true, fmt.Sprintf("chains=%v breakers=%v", oracle.Chains(), oracle.BreakerStates())
	})

	log.Info(ctx, "blockchain module started", "chains", oracle.Chains())
	return nil
}
