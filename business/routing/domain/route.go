// Package domain holds the routing context's value types: scored routes,
// route requests and results, predictions and recorded outcomes.
package domain

import (
	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
)

// Components are the named sub-scores behind a confidence value, after
// preference multipliers were applied.
type Components struct {
	ImpactPenalty float64 `json:"impact_penalty"`
	TimePenalty   float64 `json:"time_penalty"`
	RiskPenalty   float64 `json:"risk_penalty"`
	GasPenalty    float64 `json:"gas_penalty"`
	ProtocolBonus float64 `json:"protocol_bonus"`
}

// ScoredRoute is a proposal with its score.
type ScoredRoute struct {
	quoting.RouteProposal

	Confidence      float64
	RiskScore       float64
	SavingsEstimate float64
	// ExecutionTime is in seconds.
	ExecutionTime   float64
	GasOptimization float64
	// GasDelta is baseline gas minus estimated gas. Negative means worse than baseline.
	GasDelta          int64
	Components        Components
	HistoryAdjustment float64
}

// Clone returns a copy that shares no slices with r.
func (r ScoredRoute) Clone() ScoredRoute {
	c := r
	c.RouteProposal = r.RouteProposal.Clone()
	return c
}

// CloneRoutes deep-copies a route list.
func CloneRoutes(routes []ScoredRoute) []ScoredRoute {
	if routes == nil {
		return nil
	}
	out := make([]ScoredRoute, len(routes))
	for i, r := range routes {
		out[i] = r.Clone()
	}
	return out
}
