package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cache.TTL != 30*time.Second || cfg.Cache.MaxEntries != 500 {
		t.Errorf("unexpected cache defaults %+v", cfg.Cache)
	}
	if cfg.RateLimit.Window != time.Minute || cfg.RateLimit.Quota != 15 {
		t.Errorf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
	if cfg.Scoring.ImpactWeight != 0.45 || cfg.Scoring.TimeReference != time.Minute {
		t.Errorf("unexpected scoring defaults %+v", cfg.Scoring)
	}
	if len(cfg.Scoring.RecognizedProtocols) == 0 {
		t.Error("expected recognized protocol defaults")
	}
	if cfg.Outcomes.Store != "memory" {
		t.Errorf("expected memory store, got %q", cfg.Outcomes.Store)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SWAP_PORT", "9000")
	t.Setenv("SWAP_FUSION_ENABLED", "false")
	t.Setenv("SWAP_RPC_ARBITRUM", "https://arb.example")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Providers.Fusion.Enabled {
		t.Error("expected fusion disabled")
	}
	if cfg.Gas.RPCURLs["42161"] != "https://arb.example" {
		t.Errorf("expected arbitrum rpc, got %v", cfg.Gas.RPCURLs)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("scoring:\n  gas_weight: 0.3\noutcomes:\n  store: sqlite\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scoring.GasWeight != 0.3 || cfg.Outcomes.Store != "sqlite" {
		t.Errorf("file values not applied: %+v %+v", cfg.Scoring, cfg.Outcomes)
	}
	// untouched keys keep defaults
	if cfg.Scoring.ImpactWeight != 0.45 {
		t.Errorf("expected default impact weight, got %v", cfg.Scoring.ImpactWeight)
	}
}

func TestScoringValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScoringConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*ScoringConfig) {}},
		{name: "negative_weight", mutate: func(s *ScoringConfig) { s.RiskWeight = -1 }, wantErr: true},
		{name: "bonus_cap_too_large", mutate: func(s *ScoringConfig) { s.ProtocolBonusCap = s.ImpactWeight }, wantErr: true},
		{name: "time_max_below_reference", mutate: func(s *ScoringConfig) { s.TimeMax = s.TimeReference }, wantErr: true},
		{name: "zero_baseline_gas", mutate: func(s *ScoringConfig) { s.BaselineGas = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultScoring()
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
