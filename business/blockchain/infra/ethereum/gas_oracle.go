// Package ethereum implements the gas oracle over go-ethereum RPC clients.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/params"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-aggregator/business/blockchain/domain"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/cache"
	"github.com/fd1az/swap-aggregator/internal/circuitbreaker"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-aggregator/business/blockchain/infra/ethereum"
	meterName  = tracerName
)

// PriceSuggester is the slice of ethclient.Client the oracle needs.
type PriceSuggester interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	Close()
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	RPCURLs     map[uint64]string // chain id -> RPC endpoint
	CacheTTL    time.Duration     // How long to cache presets
	MaxGasPrice *big.Int          // Maximum acceptable gas price (safety)
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig(rpcURLs map[uint64]string) GasOracleConfig {
	return GasOracleConfig{
		RPCURLs:     rpcURLs,
		CacheTTL:    12 * time.Second, // ~1 block
		MaxGasPrice: new(big.Int).Mul(big.NewInt(500), big.NewInt(params.GWei)),
	}
}

// ParseRPCURLs converts a config map keyed by decimal chain id.
func ParseRPCURLs(raw map[string]string) (map[uint64]string, error) {
	out := make(map[uint64]string, len(raw))
	for k, v := range raw {
		if v == "" {
			continue
		}
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in gas.rpc_urls: %w", k, err)
		}
		out[id] = v
	}
	return out, nil
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	gasPriceFetches metric.Int64Counter
	gasPriceGwei    metric.Float64Gauge
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
}

// GasOracle implements app.GasOracle with one RPC client per chain.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface

	clients  map[uint64]PriceSuggester
	breakers map[uint64]*circuitbreaker.CircuitBreaker[*big.Int]
	clientMu sync.RWMutex

	// Caching
	presetCache *cache.Cache[uint64, *domain.GasPresets]

	// Observability
	tracer  trace.Tracer
	metrics *gasOracleMetrics
	now     func() time.Time
}

// Option configures a GasOracle.
type Option func(*GasOracle)

// WithClient installs a pre-built client for chainID instead of dialing.
func WithClient(chainID uint64, c PriceSuggester) Option {
	return func(g *GasOracle) {
		g.clients[chainID] = c
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *GasOracle) {
		g.now = now
	}
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, log logger.LoggerInterface, opts ...Option) (*GasOracle, error) {
	g := &GasOracle{
		config:   cfg,
		logger:   log,
		clients:  make(map[uint64]PriceSuggester),
		breakers: make(map[uint64]*circuitbreaker.CircuitBreaker[*big.Int]),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.presetCache = cache.New[uint64, *domain.GasPresets](5*time.Minute,
		cache.WithClock[uint64, *domain.GasPresets](g.now))

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	for chainID := range g.clients {
		g.initCircuitBreaker(chainID)
	}

	return g, nil
}

// initMetrics initializes OTEL metric instruments.
func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.gasPriceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPriceGwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current standard gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas preset cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas preset cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// initCircuitBreaker initializes the breaker for a chain.
func (g *GasOracle) initCircuitBreaker(chainID uint64) {
	cfg := circuitbreaker.DefaultConfig("gas-oracle-" + strconv.FormatUint(chainID, 10))
	cfg.OnStateChange = func(name, from, to string) {
		g.logger.Warn(context.Background(), "gas oracle circuit state changed",
			"breaker", name, "from", from, "to", to)
	}
	g.breakers[chainID] = circuitbreaker.New[*big.Int](cfg)
}

// Connect dials every configured RPC endpoint that has no client yet.
// A chain that fails to dial is skipped; its quotes use fallback presets.
func (g *GasOracle) Connect(ctx context.Context) error {
	ctx, span := g.tracer.Start(ctx, "gas.connect")
	defer span.End()

	g.clientMu.Lock()
	defer g.clientMu.Unlock()

	for chainID, url := range g.config.RPCURLs {
		if _, ok := g.clients[chainID]; ok {
			continue
		}

		client, err := ethclient.DialContext(ctx, url)
		if err != nil {
			span.RecordError(err)
			g.logger.Error(ctx, "failed to connect gas oracle", "chain_id", chainID, "error", err)
			continue
		}

		g.clients[chainID] = client
		g.initCircuitBreaker(chainID)
		g.logger.Info(ctx, "gas oracle connected", "chain_id", chainID)
	}

	span.SetAttributes(attribute.Int("chains", len(g.clients)))
	span.SetStatus(codes.Ok, "connected")

	return nil
}

// Chains returns the chain ids with a connected client, ascending.
func (g *GasOracle) Chains() []uint64 {
	g.clientMu.RLock()
	defer g.clientMu.RUnlock()

	out := make([]uint64, 0, len(g.clients))
	for id := range g.clients {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BreakerStates reports each chain's breaker state.
func (g *GasOracle) BreakerStates() map[uint64]string {
	g.clientMu.RLock()
	defer g.clientMu.RUnlock()

	out := make(map[uint64]string, len(g.breakers))
	for id, cb := range g.breakers {
		out[id] = cb.State()
	}
	return out
}

// GetGasPresets retrieves the presets for chainID with caching.
func (g *GasOracle) GetGasPresets(ctx context.Context, chainID uint64) (*domain.GasPresets, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_presets",
		trace.WithAttributes(attribute.Int64("chain_id", int64(chainID))),
	)
	defer span.End()

	// Check cache first
	if presets, found := g.presetCache.Get(ctx, chainID); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return presets, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)

	g.clientMu.RLock()
	client, ok := g.clients[chainID]
	cb := g.breakers[chainID]
	g.clientMu.RUnlock()

	if !ok {
		err := apperror.New(apperror.CodeGasOracleUnavailable,
			apperror.WithContext(fmt.Sprintf("no rpc client for chain %d", chainID)))
		span.RecordError(err)
		return nil, err
	}

	g.metrics.gasPriceFetches.Add(ctx, 1)

	// Fetch through circuit breaker
	wei, err := cb.Execute(func() (*big.Int, error) {
		return client.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to get gas price for chain %d", chainID)))
	}

	// Safety check
	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		span.AddEvent("gas_price_exceeded_max",
			trace.WithAttributes(attribute.String("wei", wei.String())))
		g.logger.Warn(ctx, "gas price exceeds max", "chain_id", chainID, "wei", wei.String())
	}

	presets := domain.DerivePresets(chainID, wei, g.config.MaxGasPrice, g.now())

	// Update cache
	g.presetCache.Set(ctx, chainID, presets, g.config.CacheTTL)

	// Record metric
	standard := presets.Get(domain.PresetStandard).Gwei()
	g.metrics.gasPriceGwei.Record(ctx, standard,
		metric.WithAttributes(attribute.Int64("chain_id", int64(chainID))))

	span.SetAttributes(attribute.Float64("gwei", standard))
	span.SetStatus(codes.Ok, "fetched")

	return presets, nil
}

// Close closes every client.
func (g *GasOracle) Close() error {
	g.clientMu.Lock()
	defer g.clientMu.Unlock()

	for id, c := range g.clients {
		c.Close()
		delete(g.clients, id)
	}

	g.presetCache.Close()

	return nil
}
