package app

import (
	"fmt"
	"strings"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
)

const (
	lowConfidence       = 0.5
	notableImpact       = 0.01
	notableGasReduction = 0.5
)

// InsightGenerator explains a ranked route list in plain sentences.
type InsightGenerator struct {
	riskThreshold float64
}

// NewInsightGenerator creates a generator warning above riskThreshold.
func NewInsightGenerator(riskThreshold float64) *InsightGenerator {
	if riskThreshold <= 0 || riskThreshold > 1 {
		riskThreshold = 0.6
	}
	return &InsightGenerator{riskThreshold: riskThreshold}
}

// Insights is a pure function of routes, which must be ranked best first.
func (g *InsightGenerator) Insights(routes []domain.ScoredRoute) []string {
	if len(routes) == 0 {
		return []string{}
	}

	top := routes[0]
	out := []string{topRationale(top)}

	for _, r := range routes {
		if r.RiskScore > g.riskThreshold {
			out = append(out, fmt.Sprintf("Warning: route %s via %s carries elevated risk (%.2f): %s",
				shortID(r.ID), r.Provider, r.RiskScore, strings.Join(r.Risks, "; ")))
		}
	}

	for _, r := range routes {
		if r.Confidence < lowConfidence && r.PriceImpact > notableImpact {
			out = append(out, fmt.Sprintf("Route %s via %s has low confidence (%.2f) driven by %.2f%% price impact; consider a smaller amount",
				shortID(r.ID), r.Provider, r.Confidence, r.PriceImpact*100))
		}
	}

	if top.GasOptimization > notableGasReduction {
		out = append(out, fmt.Sprintf("Top route uses %.0f%% less gas than a standard swap", top.GasOptimization*100))
	}

	if len(routes) >= 2 {
		best, worst := top.Confidence, top.Confidence
		for _, r := range routes[1:] {
			best = max(best, r.Confidence)
			worst = min(worst, r.Confidence)
		}
		out = append(out, fmt.Sprintf("Confidence spread across %d routes is %.2f (best %.2f, worst %.2f)",
			len(routes), best-worst, best, worst))
	}

	return out
}

func topRationale(r domain.ScoredRoute) string {
	var reasons []string
	if r.SavingsEstimate > 0 {
		reasons = append(reasons, fmt.Sprintf("%.2f%% more output than the worst quote", r.SavingsEstimate*100))
	}
	if len(r.Advantages) > 0 {
		reasons = append(reasons, r.Advantages[0])
	}
	if len(r.Risks) == 0 {
		reasons = append(reasons, "no risk notes")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "highest combined score")
	}
	return fmt.Sprintf("Best route via %s (%s) with confidence %.2f: %s",
		r.Provider, r.PathSignature(), r.Confidence, strings.Join(reasons, ", "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
