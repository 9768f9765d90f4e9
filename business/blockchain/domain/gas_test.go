package domain

import (
	"math/big"
	"testing"
	"time"
)

func TestDerivePresets(t *testing.T) {
	base := big.NewInt(20_000_000_000) // 20 gwei
	p := DerivePresets(1, base, nil, time.Unix(0, 0))

	want := map[GasPreset]float64{
		PresetSlow:     17,
		PresetStandard: 20,
		PresetFast:     25,
		PresetInstant:  32,
	}
	for preset, gwei := range want {
		if got := p.Get(preset).Gwei(); got != gwei {
			t.Errorf("%s: expected %v gwei, got %v", preset, gwei, got)
		}
	}
}

func TestDerivePresets_Capped(t *testing.T) {
	base := big.NewInt(400_000_000_000)
	maxWei := big.NewInt(500_000_000_000)
	p := DerivePresets(1, base, maxWei, time.Now())

	if p.Get(PresetInstant).Wei.Cmp(maxWei) != 0 {
		t.Errorf("instant should be capped at max, got %s", p.Get(PresetInstant).Wei)
	}
	if p.Get(PresetStandard).Wei.Cmp(base) != 0 {
		t.Errorf("standard should be untouched, got %s", p.Get(PresetStandard).Wei)
	}
}

func TestParseGasPreset(t *testing.T) {
	tests := []struct {
		in   string
		want GasPreset
		ok   bool
	}{
		{"", PresetStandard, true},
		{"FAST", PresetFast, true},
		{" instant ", PresetInstant, true},
		{"ludicrous", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseGasPreset(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseGasPreset(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestGasEstimate(t *testing.T) {
	est := NewGasEstimate(150_000, NewGasPriceFromGwei(30, time.Now()))
	if est.TotalGwei() != 4_500_000 {
		t.Errorf("expected 4.5M gwei, got %v", est.TotalGwei())
	}
}
