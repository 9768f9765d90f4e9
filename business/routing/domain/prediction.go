package domain

import "time"

// Prediction holds recommended execution parameters for a request.
type Prediction struct {
	// OptimalSlippage is a fraction in (0,1).
	OptimalSlippage    float64
	PredictedGas       uint64
	SuccessProbability float64
	EstimatedTime      time.Duration
	// RecommendedRoute is nil when no route is available.
	RecommendedRoute *ScoredRoute
	RouteOrdering    []string
	// VolatilitySamples is the number of recorded outcomes behind the slippage.
	VolatilitySamples int
	Fingerprint       string
}
