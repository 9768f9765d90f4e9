package app

import (
	"errors"
	"math"
	"math/big"
	"sort"
	"strings"

	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/config"
)

// Multipliers scale the penalty weights for a preference.
type Multipliers struct {
	Impact float64
	Time   float64
	Risk   float64
	Gas    float64
}

// PreferenceMultipliers is the documented weighting per preference.
var PreferenceMultipliers = map[quoting.Preference]Multipliers{
	quoting.PreferenceBalanced: {Impact: 1, Time: 1, Risk: 1, Gas: 1},
	quoting.PreferenceSpeed:    {Impact: 1, Time: 1.25, Risk: 0.5, Gas: 0.5},
	quoting.PreferenceCost:     {Impact: 1.5, Time: 0.75, Risk: 1, Gas: 2},
	quoting.PreferenceSecurity: {Impact: 1.25, Time: 1, Risk: 2, Gas: 1},
}

// ScoreContext carries batch-level inputs to Score.
type ScoreContext struct {
	Preference quoting.Preference
	// WorstOut is the lowest output in the batch; zero disables savings.
	WorstOut asset.Amount
}

// Scorer turns proposals into scored routes with a deterministic weighted sum.
type Scorer struct {
	cfg        config.ScoringConfig
	recognized []string
	history    PathHistory
}

// NewScorer creates a scorer. history may be nil.
func NewScorer(cfg config.ScoringConfig, history PathHistory) *Scorer {
	recognized := make([]string, 0, len(cfg.RecognizedProtocols))
	for _, p := range cfg.RecognizedProtocols {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			recognized = append(recognized, p)
		}
	}
	// longest first so "fusion-plus" wins over "fusion"
	sort.SliceStable(recognized, func(i, j int) bool { return len(recognized[i]) > len(recognized[j]) })

	return &Scorer{cfg: cfg, recognized: recognized, history: history}
}

// Validate is the gate in front of scoring. Failures are MalformedRoute.
func (s *Scorer) Validate(p quoting.RouteProposal) error {
	var reason string
	switch {
	case strings.TrimSpace(p.ID) == "":
		reason = "empty route id"
	case p.From == nil || p.To == nil:
		reason = "missing route tokens"
	case len(p.Steps) == 0:
		reason = "empty step list"
	case p.EstimatedOut.Asset() == nil || !p.EstimatedOut.IsPositive():
		reason = "non-positive estimated output"
	case !p.EstimatedOut.Asset().Equals(p.To):
		reason = "estimated output not denominated in destination token"
	}
	if reason == "" {
		return nil
	}
	return apperror.Provider(apperror.CodeMalformedRoute, p.Provider, errors.New(reason))
}

// ScoreBatch scores proposals that passed Validate. Savings are relative to
// the worst output in the batch.
func (s *Scorer) ScoreBatch(ps []quoting.RouteProposal, pref quoting.Preference) []domain.ScoredRoute {
	if len(ps) == 0 {
		return []domain.ScoredRoute{}
	}

	worst := ps[0].EstimatedOut
	for _, p := range ps[1:] {
		if c, err := p.EstimatedOut.Cmp(worst); err == nil && c < 0 {
			worst = p.EstimatedOut
		}
	}

	out := make([]domain.ScoredRoute, len(ps))
	for i, p := range ps {
		out[i] = s.Score(p, ScoreContext{Preference: pref, WorstOut: worst})
	}
	return out
}

// Score computes the confidence and its components for p.
func (s *Scorer) Score(p quoting.RouteProposal, sc ScoreContext) domain.ScoredRoute {
	m, ok := PreferenceMultipliers[sc.Preference]
	if !ok {
		m = PreferenceMultipliers[quoting.PreferenceBalanced]
	}

	impactPenalty := s.impactPenalty(p.PriceImpact)
	timePenalty := s.timePenalty(p.EstimatedTime.Seconds())
	riskScore := clamp01(s.cfg.RiskPerNote*float64(len(p.Risks)) + s.cfg.RiskImpactFactor*impactPenalty)
	gasPenalty := s.gasPenalty(p.EstimatedGas)
	bonus := s.protocolBonus(p.Steps)
	history := s.historyAdjustment(p)

	c := domain.Components{
		ImpactPenalty: s.cfg.ImpactWeight * m.Impact * impactPenalty,
		TimePenalty:   s.cfg.TimeWeight * m.Time * timePenalty,
		RiskPenalty:   s.cfg.RiskWeight * m.Risk * riskScore,
		GasPenalty:    s.cfg.GasWeight * m.Gas * gasPenalty,
		ProtocolBonus: bonus,
	}
	confidence := clamp01(s.cfg.Base - c.ImpactPenalty - c.TimePenalty - c.RiskPenalty - c.GasPenalty + c.ProtocolBonus + history)

	baseline := s.baselineGas()
	return domain.ScoredRoute{
		RouteProposal:     p,
		Confidence:        confidence,
		RiskScore:         riskScore,
		SavingsEstimate:   savings(p.EstimatedOut, sc.WorstOut),
		ExecutionTime:     finite(p.EstimatedTime.Seconds()),
		GasOptimization:   math.Max(0, 1-float64(p.EstimatedGas)/float64(baseline)),
		GasDelta:          int64(baseline) - int64(p.EstimatedGas),
		Components:        c,
		HistoryAdjustment: history,
	}
}

func (s *Scorer) baselineGas() uint64 {
	if s.cfg.BaselineGas == 0 {
		return quoting.DefaultAggregationGas
	}
	return s.cfg.BaselineGas
}

// impactPenalty is min(1, impact/ceiling).
func (s *Scorer) impactPenalty(impact float64) float64 {
	impact = finite(impact)
	if impact <= 0 || s.cfg.ImpactCeiling <= 0 {
		return 0
	}
	return math.Min(1, impact/s.cfg.ImpactCeiling)
}

// timePenalty is logarithmic so early minutes weigh more than late ones.
func (s *Scorer) timePenalty(secs float64) float64 {
	secs = finite(secs)
	t0 := s.cfg.TimeReference.Seconds()
	tmax := s.cfg.TimeMax.Seconds()
	if secs <= 0 || t0 <= 0 || tmax <= t0 {
		return 0
	}
	return clamp01(math.Log1p(secs/t0) / math.Log1p(tmax/t0))
}

func (s *Scorer) gasPenalty(gas uint64) float64 {
	return math.Min(1, float64(gas)/(2*float64(s.baselineGas())))
}

// protocolBonus rewards each distinct recognised protocol beyond the first.
func (s *Scorer) protocolBonus(steps []quoting.RouteStep) float64 {
	seen := make(map[string]struct{})
	for _, st := range steps {
		if name, ok := s.recognize(st.Protocol); ok {
			seen[name] = struct{}{}
		}
	}
	if len(seen) < 2 {
		return 0
	}
	return math.Min(s.cfg.ProtocolBonusCap, s.cfg.ProtocolBonus*float64(len(seen)-1))
}

// recognize maps "uniswap-v3" onto "uniswap".
func (s *Scorer) recognize(protocol string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(protocol))
	for _, r := range s.recognized {
		if name == r || strings.HasPrefix(name, r+"-") || strings.HasPrefix(name, r+"_") {
			return r, true
		}
	}
	return "", false
}

func (s *Scorer) historyAdjustment(p quoting.RouteProposal) float64 {
	if s.history == nil || s.cfg.HistoryWeight == 0 {
		return 0
	}
	stats, ok := s.history.PathStats(p.PathSignature())
	if !ok || stats.Attempts < s.cfg.HistoryMinSamples || stats.Attempts == 0 {
		return 0
	}
	return s.cfg.HistoryWeight * (stats.SuccessRate() - 0.5)
}

// savings is (out-worst)/worst computed exactly.
func savings(out, worst asset.Amount) float64 {
	if worst.Asset() == nil || !worst.IsPositive() || out.Asset() == nil {
		return 0
	}
	diff := new(big.Int).Sub(out.Raw(), worst.Raw())
	if diff.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(diff, worst.Raw()).Float64()
	return finite(f)
}

func clamp01(v float64) float64 {
	v = finite(v)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// finite maps NaN and Inf to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
