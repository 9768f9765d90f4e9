// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Gas       GasConfig       `mapstructure:"gas"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Insights  InsightsConfig  `mapstructure:"insights"`
	Outcomes  OutcomesConfig  `mapstructure:"outcomes"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds the API and health listener settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	HealthPort      int           `mapstructure:"health_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ProvidersConfig holds upstream quote service settings.
type ProvidersConfig struct {
	Fusion      ProviderConfig `mapstructure:"fusion"`
	Aggregation ProviderConfig `mapstructure:"aggregation"`
}

// ProviderConfig configures a single upstream adapter.
type ProviderConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// GasConfig configures the gas oracle and its fallback presets.
type GasConfig struct {
	// RPCURLs maps a chain id (as string key) to an RPC endpoint.
	RPCURLs         map[string]string `mapstructure:"rpc_urls"`
	CacheTTL        time.Duration     `mapstructure:"cache_ttl"`
	MaxGasPriceGwei float64           `mapstructure:"max_gas_price_gwei"`
	Fallback        GasFallbackConfig `mapstructure:"fallback"`
}

// GasFallbackConfig holds the conservative presets used when the oracle fails, in gwei.
type GasFallbackConfig struct {
	Slow     float64 `mapstructure:"slow"`
	Standard float64 `mapstructure:"standard"`
	Fast     float64 `mapstructure:"fast"`
	Instant  float64 `mapstructure:"instant"`
}

// CacheConfig configures the route cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// RateLimitConfig configures the per-client sliding window.
type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window"`
	Quota         int           `mapstructure:"quota"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// ScoringConfig holds the route scoring policy.
type ScoringConfig struct {
	Base                float64       `mapstructure:"base"`
	ImpactWeight        float64       `mapstructure:"impact_weight"`
	TimeWeight          float64       `mapstructure:"time_weight"`
	RiskWeight          float64       `mapstructure:"risk_weight"`
	GasWeight           float64       `mapstructure:"gas_weight"`
	ImpactCeiling       float64       `mapstructure:"impact_ceiling"`
	TimeReference       time.Duration `mapstructure:"time_reference"`
	TimeMax             time.Duration `mapstructure:"time_max"`
	RiskPerNote         float64       `mapstructure:"risk_per_note"`
	RiskImpactFactor    float64       `mapstructure:"risk_impact_factor"`
	ProtocolBonus       float64       `mapstructure:"protocol_bonus"`
	ProtocolBonusCap    float64       `mapstructure:"protocol_bonus_cap"`
	BaselineGas         uint64        `mapstructure:"baseline_gas"`
	HistoryWeight       float64       `mapstructure:"history_weight"`
	HistoryMinSamples   int           `mapstructure:"history_min_samples"`
	DedupTolerance      float64       `mapstructure:"dedup_tolerance"`
	RecognizedProtocols []string      `mapstructure:"recognized_protocols"`
	ProviderTimeout     time.Duration `mapstructure:"provider_timeout"`
}

// PredictorConfig holds parameter prediction policy.
type PredictorConfig struct {
	DefaultSlippage      float64       `mapstructure:"default_slippage"`
	SafetyMargin         float64       `mapstructure:"safety_margin"`
	VolatilityMultiplier float64       `mapstructure:"volatility_multiplier"`
	MinSlippage          float64       `mapstructure:"min_slippage"`
	MaxSlippage          float64       `mapstructure:"max_slippage"`
	MinSamples           int           `mapstructure:"min_samples"`
	DefaultTime          time.Duration `mapstructure:"default_time"`
}

// InsightsConfig holds insight thresholds.
type InsightsConfig struct {
	RiskThreshold float64 `mapstructure:"risk_threshold"`
}

// OutcomesConfig selects the outcome log sink.
type OutcomesConfig struct {
	Store        string `mapstructure:"store"` // memory | sqlite
	SQLitePath   string `mapstructure:"sqlite_path"`
	MemoryCap    int    `mapstructure:"memory_cap"`
	RestoreLimit int    `mapstructure:"restore_limit"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SWAP")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "SWAP_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SWAP_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SWAP_LOG_LEVEL", "LOG_LEVEL")

	// Server
	v.BindEnv("server.port", "SWAP_PORT", "PORT")
	v.BindEnv("server.health_port", "SWAP_HEALTH_PORT")

	// Providers
	v.BindEnv("providers.fusion.enabled", "SWAP_FUSION_ENABLED")
	v.BindEnv("providers.fusion.base_url", "SWAP_FUSION_URL")
	v.BindEnv("providers.fusion.api_key", "SWAP_FUSION_API_KEY", "ONEINCH_API_KEY")
	v.BindEnv("providers.aggregation.enabled", "SWAP_AGGREGATION_ENABLED")
	v.BindEnv("providers.aggregation.base_url", "SWAP_AGGREGATION_URL")
	v.BindEnv("providers.aggregation.api_key", "SWAP_AGGREGATION_API_KEY", "ONEINCH_API_KEY")

	// Gas
	v.BindEnv("gas.rpc_urls.1", "SWAP_RPC_ETHEREUM", "ETH_HTTP_URL")
	v.BindEnv("gas.rpc_urls.42161", "SWAP_RPC_ARBITRUM")
	v.BindEnv("gas.rpc_urls.10", "SWAP_RPC_OPTIMISM")
	v.BindEnv("gas.rpc_urls.8453", "SWAP_RPC_BASE")
	v.BindEnv("gas.rpc_urls.137", "SWAP_RPC_POLYGON")
	v.BindEnv("gas.rpc_urls.56", "SWAP_RPC_BSC")

	// Outcomes
	v.BindEnv("outcomes.store", "SWAP_OUTCOMES_STORE")
	v.BindEnv("outcomes.sqlite_path", "SWAP_OUTCOMES_SQLITE_PATH")

	// Telemetry
	v.BindEnv("telemetry.enabled", "SWAP_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SWAP_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SWAP_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "SWAP_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "swap-aggregator")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Provider defaults
	v.SetDefault("providers.fusion.enabled", true)
	v.SetDefault("providers.fusion.base_url", "https://api.1inch.dev")
	v.SetDefault("providers.fusion.timeout", "20s")
	v.SetDefault("providers.fusion.requests_per_minute", 60)
	v.SetDefault("providers.aggregation.enabled", true)
	v.SetDefault("providers.aggregation.base_url", "https://api.1inch.dev")
	v.SetDefault("providers.aggregation.timeout", "20s")
	v.SetDefault("providers.aggregation.requests_per_minute", 60)

	// Gas defaults
	v.SetDefault("gas.cache_ttl", "12s") // ~1 block
	v.SetDefault("gas.max_gas_price_gwei", 500)
	v.SetDefault("gas.fallback.slow", 20)
	v.SetDefault("gas.fallback.standard", 30)
	v.SetDefault("gas.fallback.fast", 50)
	v.SetDefault("gas.fallback.instant", 80)

	// Cache defaults
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("cache.max_entries", 500)
	v.SetDefault("cache.sweep_interval", "60s")

	// Rate limit defaults
	v.SetDefault("rate_limit.window", "60s")
	v.SetDefault("rate_limit.quota", 15)
	v.SetDefault("rate_limit.prune_interval", "60s")

	// Scoring defaults
	for k, val := range DefaultScoring().asMap() {
		v.SetDefault("scoring."+k, val)
	}

	// Predictor defaults
	v.SetDefault("predictor.default_slippage", 0.005)
	v.SetDefault("predictor.safety_margin", 0.0025)
	v.SetDefault("predictor.volatility_multiplier", 2.0)
	v.SetDefault("predictor.min_slippage", 0.001)
	v.SetDefault("predictor.max_slippage", 0.3)
	v.SetDefault("predictor.min_samples", 3)
	v.SetDefault("predictor.default_time", "60s")

	// Insights defaults
	v.SetDefault("insights.risk_threshold", 0.6)

	// Outcome defaults
	v.SetDefault("outcomes.store", "memory")
	v.SetDefault("outcomes.sqlite_path", "outcomes.db")
	v.SetDefault("outcomes.memory_cap", 10000)
	v.SetDefault("outcomes.restore_limit", 50000)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swap-aggregator")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// DefaultScoring returns the default scoring policy.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Base:              1.0,
		ImpactWeight:      0.45,
		TimeWeight:        0.20,
		RiskWeight:        0.25,
		GasWeight:         0.10,
		ImpactCeiling:     0.05,
		TimeReference:     60 * time.Second,
		TimeMax:           time.Hour,
		RiskPerNote:       0.15,
		RiskImpactFactor:  0.5,
		ProtocolBonus:     0.015,
		ProtocolBonusCap:  0.05,
		BaselineGas:       150_000,
		HistoryWeight:     0.1,
		HistoryMinSamples: 3,
		DedupTolerance:    0.001,
		RecognizedProtocols: []string{
			"uniswap", "sushiswap", "curve", "balancer", "pancakeswap",
			"1inch", "fusion", "fusion-plus", "dodo", "kyber", "maverick",
			"solidly", "velodrome", "aerodrome", "camelot", "trader-joe",
		},
		ProviderTimeout: 20 * time.Second,
	}
}

func (s ScoringConfig) asMap() map[string]any {
	return map[string]any{
		"base":                 s.Base,
		"impact_weight":        s.ImpactWeight,
		"time_weight":          s.TimeWeight,
		"risk_weight":          s.RiskWeight,
		"gas_weight":           s.GasWeight,
		"impact_ceiling":       s.ImpactCeiling,
		"time_reference":       s.TimeReference.String(),
		"time_max":             s.TimeMax.String(),
		"risk_per_note":        s.RiskPerNote,
		"risk_impact_factor":   s.RiskImpactFactor,
		"protocol_bonus":       s.ProtocolBonus,
		"protocol_bonus_cap":   s.ProtocolBonusCap,
		"baseline_gas":         s.BaselineGas,
		"history_weight":       s.HistoryWeight,
		"history_min_samples":  s.HistoryMinSamples,
		"dedup_tolerance":      s.DedupTolerance,
		"recognized_protocols": s.RecognizedProtocols,
		"provider_timeout":     s.ProviderTimeout.String(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	if !c.Providers.Fusion.Enabled && !c.Providers.Aggregation.Enabled {
		return fmt.Errorf("at least one provider must be enabled")
	}
	for name, p := range map[string]ProviderConfig{
		"fusion":      c.Providers.Fusion,
		"aggregation": c.Providers.Aggregation,
	} {
		if p.Enabled && p.BaseURL == "" {
			return fmt.Errorf("providers.%s.base_url is required", name)
		}
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive")
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Quota <= 0 {
		return fmt.Errorf("rate_limit.window and rate_limit.quota must be positive")
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	p := c.Predictor
	if p.MinSlippage <= 0 || p.MaxSlippage >= 1 || p.MinSlippage > p.MaxSlippage {
		return fmt.Errorf("predictor slippage bounds must satisfy 0 < min <= max < 1")
	}
	switch c.Outcomes.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("outcomes.store must be memory or sqlite, got %q", c.Outcomes.Store)
	}
	return nil
}

// Validate checks the scoring policy keeps its documented directions.
func (s ScoringConfig) Validate() error {
	for name, w := range map[string]float64{
		"impact_weight": s.ImpactWeight,
		"time_weight":   s.TimeWeight,
		"risk_weight":   s.RiskWeight,
		"gas_weight":    s.GasWeight,
	} {
		if w < 0 {
			return fmt.Errorf("scoring.%s must not be negative", name)
		}
	}
	if s.ImpactCeiling <= 0 {
		return fmt.Errorf("scoring.impact_ceiling must be positive")
	}
	if s.TimeReference <= 0 || s.TimeMax <= s.TimeReference {
		return fmt.Errorf("scoring.time_max must exceed scoring.time_reference")
	}
	if s.ProtocolBonusCap >= s.ImpactWeight {
		return fmt.Errorf("scoring.protocol_bonus_cap must stay below scoring.impact_weight")
	}
	if s.BaselineGas == 0 {
		return fmt.Errorf("scoring.baseline_gas must be positive")
	}
	if s.DedupTolerance < 0 || s.DedupTolerance >= 1 {
		return fmt.Errorf("scoring.dedup_tolerance must be in [0,1)")
	}
	return nil
}
