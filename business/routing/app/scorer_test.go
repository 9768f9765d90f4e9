package app

import (
	"math"
	"testing"
	"time"

	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/config"
)

type fakeHistory map[string]domain.PathStats

func (h fakeHistory) PathStats(sig string) (domain.PathStats, bool) {
	s, ok := h[sig]
	return s, ok
}

func newTestScorer(h PathHistory) *Scorer {
	return NewScorer(config.DefaultScoring(), h)
}

func TestValidate(t *testing.T) {
	s := newTestScorer(nil)

	tests := []struct {
		name   string
		mutate func(*quoting.RouteProposal)
		ok     bool
	}{
		{name: "valid", mutate: func(*quoting.RouteProposal) {}, ok: true},
		{name: "empty_id", mutate: func(p *quoting.RouteProposal) { p.ID = " " }},
		{name: "empty_steps", mutate: func(p *quoting.RouteProposal) { p.Steps = nil }},
		{name: "zero_output", mutate: func(p *quoting.RouteProposal) { p.EstimatedOut = asset.Zero(asset.USDC) }},
		{name: "unset_output", mutate: func(p *quoting.RouteProposal) { p.EstimatedOut = asset.Amount{} }},
		{name: "nil_token", mutate: func(p *quoting.RouteProposal) { p.To = nil }},
		{name: "wrong_output_token", mutate: func(p *quoting.RouteProposal) { p.EstimatedOut = asset.NewAmountFromUint64(asset.DAI, 5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := proposal(t, "r1", "p", 1_000_000)
			tt.mutate(&p)
			err := s.Validate(p)
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && !apperror.IsCode(err, apperror.CodeMalformedRoute) {
				t.Errorf("expected MalformedRoute, got %v", err)
			}
		})
	}
}

func TestScore_Bounds(t *testing.T) {
	s := newTestScorer(nil)

	tests := []struct {
		name string
		opts []proposalOpt
	}{
		{name: "clean"},
		{name: "nan_impact", opts: []proposalOpt{withImpact(math.NaN())}},
		{name: "inf_impact", opts: []proposalOpt{withImpact(math.Inf(1))}},
		{name: "negative_impact", opts: []proposalOpt{withImpact(-0.3)}},
		{name: "huge_impact", opts: []proposalOpt{withImpact(5)}},
		{name: "many_risks", opts: []proposalOpt{withRisks("a", "b", "c", "d", "e", "f", "g", "h", "i")}},
		{name: "week_long", opts: []proposalOpt{withTime(7 * 24 * time.Hour)}},
		{name: "zero_time_zero_gas", opts: []proposalOpt{withTime(0), withGas(0)}},
		{name: "huge_gas", opts: []proposalOpt{withGas(math.MaxUint32)}},
		{name: "everything_bad", opts: []proposalOpt{withImpact(1), withRisks("x", "y"), withTime(48 * time.Hour), withGas(9_000_000)}},
		{name: "many_protocols", opts: []proposalOpt{withProtocols("uniswap-v2", "curve", "balancer", "dodo", "kyber", "maverick", "solidly")}},
	}

	for _, tt := range tests {
		for pref := range PreferenceMultipliers {
			p := proposal(t, "r", "p", 1_000_000, tt.opts...)
			r := s.Score(p, ScoreContext{Preference: pref, WorstOut: p.EstimatedOut})
			if r.Confidence < 0 || r.Confidence > 1 || math.IsNaN(r.Confidence) {
				t.Errorf("%s/%s: confidence out of range: %v", tt.name, pref, r.Confidence)
			}
			if r.RiskScore < 0 || r.RiskScore > 1 || math.IsNaN(r.RiskScore) {
				t.Errorf("%s/%s: risk out of range: %v", tt.name, pref, r.RiskScore)
			}
		}
	}
}

func TestScore_ImpactMonotonic(t *testing.T) {
	s := newTestScorer(nil)
	prev := 2.0
	for _, impact := range []float64{0, 0.001, 0.005, 0.01, 0.02, 0.04} {
		p := proposal(t, "r", "p", 1_000_000, withImpact(impact))
		c := s.Score(p, ScoreContext{Preference: quoting.PreferenceBalanced}).Confidence
		if c >= prev {
			t.Errorf("impact %v: confidence %v did not decrease from %v", impact, c, prev)
		}
		prev = c
	}
}

func TestTimePenalty_DiminishingSensitivity(t *testing.T) {
	s := newTestScorer(nil)

	early := s.timePenalty(180) - s.timePenalty(120)
	late := s.timePenalty(31*60) - s.timePenalty(30*60)
	if early <= late {
		t.Errorf("2m->3m (%v) should differ more than 30m->31m (%v)", early, late)
	}
	if s.timePenalty(60) >= s.timePenalty(61) {
		t.Error("time penalty must be increasing")
	}
}

func TestScore_PreferenceShift(t *testing.T) {
	s := newTestScorer(nil)
	p := proposal(t, "r", "p", 1_000_000, withRisks("cross-chain settlement"), withTime(10*time.Minute))

	security := s.Score(p, ScoreContext{Preference: quoting.PreferenceSecurity}).Confidence
	speed := s.Score(p, ScoreContext{Preference: quoting.PreferenceSpeed}).Confidence
	if security == speed {
		t.Fatalf("preferences must change confidence, both %v", security)
	}
	if security >= speed {
		t.Errorf("security (%v) should weigh risk more heavily than speed (%v)", security, speed)
	}

	// worst case for the property: the largest possible time penalty
	slow := proposal(t, "r", "p", 1_000_000, withRisks("one"), withTime(24*time.Hour), withGas(0))
	if s.Score(slow, ScoreContext{Preference: quoting.PreferenceSecurity}).Confidence >=
		s.Score(slow, ScoreContext{Preference: quoting.PreferenceSpeed}).Confidence {
		t.Error("security must stay below speed for a risky route even at maximal time")
	}
}

func TestScore_ProtocolBonusCapped(t *testing.T) {
	s := newTestScorer(nil)

	one := s.Score(proposal(t, "a", "p", 1, withProtocols("uniswap-v3")), ScoreContext{})
	two := s.Score(proposal(t, "b", "p", 1, withProtocols("uniswap-v3", "curve")), ScoreContext{})
	same := s.Score(proposal(t, "c", "p", 1, withProtocols("uniswap-v2", "uniswap-v3")), ScoreContext{})
	many := s.Score(proposal(t, "d", "p", 1, withProtocols("uniswap", "curve", "balancer", "dodo", "kyber", "maverick", "solidly", "camelot")), ScoreContext{})
	unknown := s.Score(proposal(t, "e", "p", 1, withProtocols("pmm1", "pmm2")), ScoreContext{})

	if one.Components.ProtocolBonus != 0 || same.Components.ProtocolBonus != 0 || unknown.Components.ProtocolBonus != 0 {
		t.Error("a single recognised protocol earns no bonus")
	}
	if two.Components.ProtocolBonus <= 0 {
		t.Error("two recognised protocols should earn a bonus")
	}
	cfg := config.DefaultScoring()
	if many.Components.ProtocolBonus != cfg.ProtocolBonusCap {
		t.Errorf("bonus should cap at %v, got %v", cfg.ProtocolBonusCap, many.Components.ProtocolBonus)
	}
	if cfg.ProtocolBonusCap >= cfg.ImpactWeight {
		t.Error("bonus cap must not dominate price impact")
	}
}

func TestScore_GasOptimization(t *testing.T) {
	s := newTestScorer(nil)

	better := s.Score(proposal(t, "a", "p", 1, withGas(75_000)), ScoreContext{})
	worse := s.Score(proposal(t, "b", "p", 1, withGas(300_000)), ScoreContext{})
	gasless := s.Score(proposal(t, "c", "p", 1, withGas(0)), ScoreContext{})

	if better.GasOptimization != 0.5 || better.GasDelta != 75_000 {
		t.Errorf("unexpected better route gas: %v %d", better.GasOptimization, better.GasDelta)
	}
	if worse.GasOptimization != 0 || worse.GasDelta != -150_000 {
		t.Errorf("worse-than-baseline must be visible in GasDelta: %v %d", worse.GasOptimization, worse.GasDelta)
	}
	if gasless.GasOptimization != 1 {
		t.Errorf("gasless route should be fully optimised, got %v", gasless.GasOptimization)
	}
}

func TestScoreBatch_Savings(t *testing.T) {
	s := newTestScorer(nil)
	routes := s.ScoreBatch([]quoting.RouteProposal{
		proposal(t, "a", "p", 1_000_000),
		proposal(t, "b", "p", 1_010_000),
		proposal(t, "c", "p", 1_000_000),
	}, quoting.PreferenceBalanced)

	if routes[0].SavingsEstimate != 0 || routes[2].SavingsEstimate != 0 {
		t.Error("routes matching the worst output have no savings")
	}
	if math.Abs(routes[1].SavingsEstimate-0.01) > 1e-12 {
		t.Errorf("expected 1%% savings, got %v", routes[1].SavingsEstimate)
	}
	if len(s.ScoreBatch(nil, quoting.PreferenceBalanced)) != 0 {
		t.Error("empty batch scores to empty list")
	}
}

func TestScore_HistoryAdjustment(t *testing.T) {
	h := fakeHistory{
		"uniswap-v3": {Attempts: 10, Successes: 10, MeanGas: 120_000},
		"curve":      {Attempts: 10, Successes: 0},
		"balancer":   {Attempts: 2, Successes: 2},
	}
	s := newTestScorer(h)
	base := newTestScorer(nil)

	good := proposal(t, "a", "p", 1, withImpact(0.02))
	bad := proposal(t, "b", "p", 1, withImpact(0.02), withProtocols("curve"))
	sparse := proposal(t, "c", "p", 1, withImpact(0.02), withProtocols("balancer"))

	if got := s.Score(good, ScoreContext{}); got.HistoryAdjustment != 0.05 || got.Confidence <= base.Score(good, ScoreContext{}).Confidence {
		t.Errorf("reliable path should gain confidence, got %+v", got.HistoryAdjustment)
	}
	if got := s.Score(bad, ScoreContext{}); got.HistoryAdjustment != -0.05 {
		t.Errorf("failing path should lose confidence, got %v", got.HistoryAdjustment)
	}
	if got := s.Score(sparse, ScoreContext{}); got.HistoryAdjustment != 0 {
		t.Errorf("too few samples must not adjust, got %v", got.HistoryAdjustment)
	}
}
