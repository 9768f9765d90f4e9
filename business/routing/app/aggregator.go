package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchain "github.com/fd1az/swap-aggregator/business/blockchain/domain"
	quotingapp "github.com/fd1az/swap-aggregator/business/quoting/app"
	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/cache"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-aggregator/business/routing/app"
	meterName  = tracerName

	defaultProviderTimeout = 20 * time.Second
	defaultCacheTTL        = 30 * time.Second
	defaultDedupTolerance  = 0.001
)

// AggregatorConfig holds aggregation policy.
type AggregatorConfig struct {
	CacheTTL        time.Duration
	ProviderTimeout time.Duration
	// DedupTolerance is the relative output difference under which two
	// proposals on the same path are duplicates.
	DedupTolerance float64
}

// Aggregator fans a request out to every provider and ranks the union.
type Aggregator struct {
	providers []quotingapp.Provider
	cache     *cache.Cache[string, []domain.ScoredRoute]
	limiter   RateLimiter
	scorer    *Scorer
	cfg       AggregatorConfig
	logger    logger.LoggerInterface
	tracer    trace.Tracer

	requests         metric.Int64Counter
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
	providerFailures metric.Int64Counter
	malformed        metric.Int64Counter
	latency          metric.Float64Histogram
}

// NewAggregator creates an Aggregator. The cache and limiter are shared,
// process-wide instances owned by the caller.
func NewAggregator(
	providers []quotingapp.Provider,
	routeCache *cache.Cache[string, []domain.ScoredRoute],
	limiter RateLimiter,
	scorer *Scorer,
	cfg AggregatorConfig,
	log logger.LoggerInterface,
) (*Aggregator, error) {
	if len(providers) == 0 {
		return nil, errors.New("aggregator: no providers")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = defaultProviderTimeout
	}
	if cfg.DedupTolerance <= 0 || cfg.DedupTolerance >= 1 {
		cfg.DedupTolerance = defaultDedupTolerance
	}

	a := &Aggregator{
		providers: providers,
		cache:     routeCache,
		limiter:   limiter,
		scorer:    scorer,
		cfg:       cfg,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return a, nil
}

func (a *Aggregator) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.requests, err = meter.Int64Counter("routing_requests_total",
		metric.WithDescription("Route aggregation requests"))
	if err != nil {
		return err
	}
	a.cacheHits, err = meter.Int64Counter("routing_cache_hits_total",
		metric.WithDescription("Route requests served from cache"))
	if err != nil {
		return err
	}
	a.cacheMisses, err = meter.Int64Counter("routing_cache_misses_total",
		metric.WithDescription("Route requests that queried providers"))
	if err != nil {
		return err
	}
	a.providerFailures, err = meter.Int64Counter("routing_provider_failures_total",
		metric.WithDescription("Provider calls that contributed nothing"))
	if err != nil {
		return err
	}
	a.malformed, err = meter.Int64Counter("routing_malformed_routes_total",
		metric.WithDescription("Proposals excluded by the validation gate"))
	if err != nil {
		return err
	}
	a.latency, err = meter.Float64Histogram("routing_request_duration_seconds",
		metric.WithDescription("Route aggregation latency"),
		metric.WithUnit("s"))
	return err
}

// ProviderNames lists the configured providers.
func (a *Aggregator) ProviderNames() []string {
	names := make([]string, len(a.providers))
	for i, p := range a.providers {
		names[i] = p.Name()
	}
	return names
}

// CacheLen reports live cache entries.
func (a *Aggregator) CacheLen() int {
	return a.cache.Len()
}

// Normalize validates req. Failures are InvalidRequest.
func (a *Aggregator) Normalize(req domain.RouteRequest) (domain.NormalizedRequest, error) {
	if req.From == nil || req.To == nil {
		return domain.NormalizedRequest{}, apperror.InvalidRequest("from and to tokens are required")
	}
	if req.From.Equals(req.To) {
		return domain.NormalizedRequest{}, apperror.InvalidRequest("from and to tokens must differ")
	}

	amount, err := asset.ParseString(req.From, strings.TrimSpace(req.Amount))
	if err != nil {
		return domain.NormalizedRequest{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("invalid amount"), apperror.WithCause(err))
	}
	if !amount.IsPositive() {
		return domain.NormalizedRequest{}, apperror.InvalidRequest("amount must be positive")
	}

	if s, ok := req.Slippage.Get(); ok && (!(s > 0) || s > 100) {
		return domain.NormalizedRequest{}, apperror.InvalidRequest("slippage must be within (0,100]")
	}

	pref, ok := quoting.ParsePreference(req.Preference)
	if !ok {
		return domain.NormalizedRequest{}, apperror.InvalidRequest("unknown preference " + req.Preference)
	}

	preferred := domain.NormalizeProvider(req.PreferredProvider)
	if preferred != "" && a.provider(preferred) == nil {
		return domain.NormalizedRequest{}, apperror.InvalidRequest("unknown or disabled provider " + req.PreferredProvider)
	}

	preset, ok := blockchain.ParseGasPreset(req.GasPreset)
	if !ok {
		return domain.NormalizedRequest{}, apperror.InvalidRequest("unknown gas preset " + req.GasPreset)
	}
	gas := blockchain.PresetSpec(preset)
	if raw, ok := req.GasPriceWei.Get(); ok {
		wei, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
		if !ok || wei.Sign() <= 0 {
			return domain.NormalizedRequest{}, apperror.InvalidRequest("gas price must be a positive wei integer")
		}
		gas = blockchain.ExplicitSpec(wei)
		gas.Preset = preset
	}

	return domain.NormalizedRequest{
		ClientID:          req.ClientID,
		From:              req.From,
		To:                req.To,
		Amount:            amount,
		Wallet:            req.Wallet,
		PreferredProvider: preferred,
		Preference:        pref,
		Slippage:          req.Slippage,
		GasPrice:          gas,
	}, nil
}

func (a *Aggregator) provider(name string) quotingapp.Provider {
	for _, p := range a.providers {
		if domain.NormalizeProvider(p.Name()) == name {
			return p
		}
	}
	return nil
}

// GetRoutes returns ranked routes for req. Only InvalidRequest,
// RateLimitExceeded and AllProvidersUnavailable are returned as errors; an
// empty route list is a valid result.
func (a *Aggregator) GetRoutes(ctx context.Context, req domain.RouteRequest) (domain.RouteResult, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "routing.get_routes")
	defer span.End()

	a.requests.Add(ctx, 1)
	defer func() {
		a.latency.Record(ctx, time.Since(start).Seconds())
	}()

	norm, err := a.Normalize(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return domain.RouteResult{}, err
	}
	span.SetAttributes(
		attribute.String("from", norm.From.String()),
		attribute.String("to", norm.To.String()),
		attribute.String("amount", norm.Amount.RawString()),
		attribute.String("preference", string(norm.Preference)),
	)

	if d := a.limiter.CheckAndRecord(norm.ClientID); !d.Allowed {
		err := apperror.RateLimited("route request", d.RetryAfter)
		span.SetStatus(codes.Error, "rate limited")
		return domain.RouteResult{}, err
	}

	fp := Fingerprint(norm)
	span.SetAttributes(attribute.String("fingerprint", fp))

	if routes, ok := a.cache.Get(ctx, fp); ok {
		a.cacheHits.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("cached", true))
		return domain.RouteResult{
			Routes:      domain.CloneRoutes(routes),
			Cached:      true,
			Fingerprint: fp,
		}, nil
	}
	a.cacheMisses.Add(ctx, 1)

	targets := a.providers
	if norm.PreferredProvider != "" {
		targets = []quotingapp.Provider{a.provider(norm.PreferredProvider)}
	}

	proposals, queried, failed, causes := a.fanOut(ctx, targets, norm.QuoteRequest())
	if len(failed) == len(targets) {
		err := apperror.New(apperror.CodeAllProvidersUnavailable,
			apperror.WithContext(strings.Join(failed, ",")),
			apperror.WithCause(errors.Join(causes...)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "all providers unavailable")
		a.logger.Warn(ctx, "all providers failed", "providers", failed, "fingerprint", fp)
		return domain.RouteResult{}, err
	}

	routes := a.rank(dedup(proposals, a.cfg.DedupTolerance), norm.Preference)
	a.cache.Set(ctx, fp, domain.CloneRoutes(routes), a.cfg.CacheTTL)

	span.SetAttributes(attribute.Int("routes", len(routes)), attribute.Int("providers_failed", len(failed)))
	span.SetStatus(codes.Ok, "routes ranked")
	a.logger.Debug(ctx, "routes aggregated", "fingerprint", fp, "routes", len(routes), "failed", failed)

	return domain.RouteResult{
		Routes:           routes,
		Fingerprint:      fp,
		ProvidersQueried: queried,
		ProvidersFailed:  failed,
	}, nil
}

type providerResult struct {
	proposals []quoting.RouteProposal
	err       error
}

// fanOut queries targets concurrently. Results are collected by index so the
// outcome does not depend on completion order.
func (a *Aggregator) fanOut(ctx context.Context, targets []quotingapp.Provider, req quoting.QuoteRequest) (
	valid []quoting.RouteProposal, queried, failed []string, causes []error,
) {
	results := make([]providerResult, len(targets))

	var wg sync.WaitGroup
	for i, p := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.callProvider(ctx, p, req)
		}()
	}
	wg.Wait()

	for i, p := range targets {
		name := p.Name()
		queried = append(queried, name)
		res := results[i]

		if res.err != nil {
			failed = append(failed, name)
			causes = append(causes, res.err)
			a.providerFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", name),
				attribute.String("code", string(apperror.GetCode(res.err))),
			))
			a.logger.Warn(ctx, "provider contributed nothing", "provider", name, "error", res.err)
			continue
		}

		kept := 0
		for _, prop := range res.proposals {
			if err := a.scorer.Validate(prop); err != nil {
				a.malformed.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", name)))
				a.logger.Warn(ctx, "excluding malformed route", "provider", name, "route_id", prop.ID, "error", err)
				continue
			}
			valid = append(valid, prop)
			kept++
		}
		if len(res.proposals) > 0 && kept == 0 {
			failed = append(failed, name)
			causes = append(causes, apperror.Provider(apperror.CodeMalformedRoute, name,
				fmt.Errorf("all %d proposals malformed", len(res.proposals))))
			a.providerFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", name),
				attribute.String("code", string(apperror.CodeMalformedRoute)),
			))
		}
	}
	return valid, queried, failed, causes
}

func (a *Aggregator) callProvider(ctx context.Context, p quotingapp.Provider, req quoting.QuoteRequest) (res providerResult) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ProviderTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			res = providerResult{err: apperror.Provider(apperror.CodeProviderError, p.Name(), fmt.Errorf("panic: %v", r))}
		}
	}()

	props, err := p.Quote(ctx, req)
	if err != nil {
		if !apperror.IsAppError(err) {
			err = apperror.Provider(apperror.CodeProviderUnavailable, p.Name(), err)
		}
		return providerResult{err: err}
	}
	return providerResult{proposals: props}
}

// rank scores and orders routes: confidence desc, output desc, gas asc, id asc.
func (a *Aggregator) rank(ps []quoting.RouteProposal, pref quoting.Preference) []domain.ScoredRoute {
	routes := a.scorer.ScoreBatch(ps, pref)
	sort.SliceStable(routes, func(i, j int) bool {
		ri, rj := routes[i], routes[j]
		if ri.Confidence != rj.Confidence {
			return ri.Confidence > rj.Confidence
		}
		if c := ri.EstimatedOut.Raw().Cmp(rj.EstimatedOut.Raw()); c != 0 {
			return c > 0
		}
		if ri.EstimatedGas != rj.EstimatedGas {
			return ri.EstimatedGas < rj.EstimatedGas
		}
		return ri.ID < rj.ID
	})
	return routes
}

// dedup keeps, for each path signature, only proposals whose outputs differ
// by at least tolerance from every higher-output proposal on the same path.
func dedup(ps []quoting.RouteProposal, tolerance float64) []quoting.RouteProposal {
	sorted := append([]quoting.RouteProposal(nil), ps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].EstimatedOut.Raw().Cmp(sorted[j].EstimatedOut.Raw()); c != 0 {
			return c > 0
		}
		return sorted[i].ID < sorted[j].ID
	})

	tol := new(big.Rat).SetFloat64(tolerance)
	kept := make(map[string][]quoting.RouteProposal)
	out := make([]quoting.RouteProposal, 0, len(sorted))
	for _, p := range sorted {
		sig := p.PathSignature()
		dup := false
		for _, k := range kept[sig] {
			if withinTolerance(k.EstimatedOut.Raw(), p.EstimatedOut.Raw(), tol) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept[sig] = append(kept[sig], p)
		out = append(out, p)
	}
	return out
}

// withinTolerance reports (hi-lo)/hi < tol, with hi >= lo > 0.
func withinTolerance(hi, lo *big.Int, tol *big.Rat) bool {
	if hi.Sign() <= 0 {
		return false
	}
	diff := new(big.Rat).SetFrac(new(big.Int).Sub(hi, lo), hi)
	return diff.Cmp(tol) < 0
}
