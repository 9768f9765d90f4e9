package app

import (
	"context"
	"math/big"
	"time"

	"github.com/fd1az/swap-aggregator/business/blockchain/domain"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

// DefaultFallbackGwei are conservative presets used when the oracle fails.
var DefaultFallbackGwei = map[domain.GasPreset]float64{
	domain.PresetSlow:     20,
	domain.PresetStandard: 30,
	domain.PresetFast:     50,
	domain.PresetInstant:  80,
}

// GasService resolves the gas price a quote is requested with.
type GasService struct {
	oracle   GasOracle
	fallback map[domain.GasPreset]float64
	logger   logger.LoggerInterface
	now      func() time.Time
}

// NewGasService creates a GasService. A nil oracle always resolves to the fallback.
func NewGasService(oracle GasOracle, fallback map[domain.GasPreset]float64, log logger.LoggerInterface) *GasService {
	if len(fallback) == 0 {
		fallback = DefaultFallbackGwei
	}
	return &GasService{
		oracle:   oracle,
		fallback: fallback,
		logger:   log,
		now:      time.Now,
	}
}

// Resolve never fails. An explicit caller price wins, then the oracle preset,
// then the hardcoded fallback for the preset.
func (s *GasService) Resolve(ctx context.Context, chainID uint64, spec domain.GasPriceSpec) domain.GasQuote {
	preset := spec.Preset
	if preset == "" {
		preset = domain.PresetStandard
	}

	if spec.IsExplicit() {
		return domain.GasQuote{
			ChainID: chainID,
			Preset:  preset,
			Price:   domain.NewGasPrice(spec.Wei, s.now()),
			Source:  domain.SourceCaller,
		}
	}

	if s.oracle != nil {
		presets, err := s.oracle.GetGasPresets(ctx, chainID)
		if err == nil {
			if price := presets.Get(preset); price != nil && price.Wei != nil && price.Wei.Sign() > 0 {
				return domain.GasQuote{ChainID: chainID, Preset: preset, Price: price, Source: domain.SourceOracle}
			}
		} else {
			s.logger.Warn(ctx, "gas oracle unavailable, using fallback preset",
				"chain_id", chainID, "preset", string(preset), "error", err)
		}
	}

	gwei, ok := s.fallback[preset]
	if !ok {
		gwei = DefaultFallbackGwei[preset]
	}
	return domain.GasQuote{
		ChainID: chainID,
		Preset:  preset,
		Price:   domain.NewGasPriceFromGwei(gwei, s.now()),
		Source:  domain.SourceFallback,
	}
}

// FallbackWei returns the fallback price for preset.
func (s *GasService) FallbackWei(preset domain.GasPreset) *big.Int {
	return domain.NewGasPriceFromGwei(s.fallback[preset], s.now()).Wei
}
