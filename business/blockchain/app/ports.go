// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/fd1az/swap-aggregator/business/blockchain/domain"
)

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPresets retrieves the current presets for a chain.
	GetGasPresets(ctx context.Context, chainID uint64) (*domain.GasPresets, error)
}
