// Package oneinch adapts the DEX aggregation swap API to the Provider port.
package oneinch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blockchain "github.com/fd1az/swap-aggregator/business/blockchain/domain"
	"github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/upstream"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/httpclient"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-aggregator/business/quoting/infra/oneinch"
	meterName  = tracerName

	// ProviderName tags proposals from this adapter.
	ProviderName = "1inch"

	DefaultBaseURL = "https://api.1inch.dev"
)

// noRouteMarkers identify 400 answers that mean "nothing to quote".
var noRouteMarkers = []string{"insufficient liquidity", "no route", "cannot estimate"}

// GasResolver resolves the gas price the quote is requested with.
type GasResolver interface {
	Resolve(ctx context.Context, chainID uint64, spec blockchain.GasPriceSpec) blockchain.GasQuote
}

// Provider is the aggregation adapter.
type Provider struct {
	client   *upstream.Client
	gas      GasResolver
	registry *asset.Registry
	logger   logger.LoggerInterface
	tracer   trace.Tracer
	now      func() time.Time

	emptyResults metric.Int64Counter
}

// NewProvider creates the adapter. Hop tokens unknown to registry become
// unverified placeholders.
func NewProvider(cfg upstream.Config, gas GasResolver, registry *asset.Registry, log logger.LoggerInterface) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = ProviderName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if registry == nil {
		registry = asset.DefaultRegistry()
	}

	client, err := upstream.New(cfg, log)
	if err != nil {
		return nil, err
	}

	empty, err := otel.Meter(meterName).Int64Counter(
		"oneinch_empty_results_total",
		metric.WithDescription("Quotes answered with no route"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Provider{
		client:       client,
		gas:          gas,
		registry:     registry,
		logger:       log,
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
		emptyResults: empty,
	}, nil
}

func (p *Provider) Name() string              { return p.client.Name() }
func (p *Provider) Kind() domain.ProviderKind { return domain.KindAggregation }
func (p *Provider) BreakerState() string      { return p.client.BreakerState() }

// Quote prices req as a single aggregated route.
func (p *Provider) Quote(ctx context.Context, req domain.QuoteRequest) ([]domain.RouteProposal, error) {
	ctx, span := p.tracer.Start(ctx, "oneinch.quote",
		trace.WithAttributes(
			attribute.String("from", req.From.String()),
			attribute.String("to", req.To.String()),
		),
	)
	defer span.End()

	if req.IsCrossChain() || !req.From.IsEVM() {
		err := apperror.Provider(apperror.CodeProviderUnsupported, p.Name(),
			fmt.Errorf("%s -> %s: same-chain EVM swaps only", req.From.Network(), req.To.Network()))
		span.RecordError(err)
		return nil, err
	}

	chainID := req.From.ChainID()
	gasQuote := p.gas.Resolve(ctx, chainID, req.GasPrice)
	p.logger.Debug(ctx, "gas price resolved",
		"chain_id", chainID, "preset", gasQuote.Preset, "source", gasQuote.Source, "gwei", gasQuote.Price.Gwei())

	params := map[string]string{
		"src":               req.From.APIAddress(),
		"dst":               req.To.APIAddress(),
		"amount":            req.Amount.RawString(),
		"includeProtocols":  "true",
		"includeGas":        "true",
		"includeTokensInfo": "true",
	}
	if gasQuote.Price != nil && gasQuote.Price.Wei != nil {
		params["gasPrice"] = gasQuote.Price.Wei.String()
	}

	var dto quoteDTO
	resp, err := p.client.GetJSON(ctx, fmt.Sprintf("/swap/v6.0/%d/quote", chainID), params, &dto)
	if err != nil {
		if isNoRoute(resp, err) {
			p.emptyResults.Add(ctx, 1)
			span.SetAttributes(attribute.Int("proposals", 0))
			p.logger.Info(ctx, "no route available", "provider", p.Name(), "from", req.From.String(), "to", req.To.String())
			return []domain.RouteProposal{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}

	out, err := asset.ParseRaw(req.To, dto.DstAmount)
	if err != nil {
		return nil, apperror.Provider(apperror.CodeMalformedRoute, p.Name(), fmt.Errorf("dstAmount: %w", err))
	}

	q := domain.AggregationQuote{
		Provider:  p.Name(),
		From:      req.From,
		To:        req.To,
		AmountIn:  req.Amount,
		AmountOut: out,
		Gas:       domain.FromPtr(dto.Gas),
		Hops:      p.hops(req, dto.Protocols),
		GasPrice:  gasQuote,
		FetchedAt: p.now(),
	}

	props := domain.ToProposals(q)
	span.SetAttributes(attribute.Int("proposals", len(props)))
	span.SetStatus(codes.Ok, "quoted")
	return props, nil
}

// hops flattens the main route. Each hop keeps its dominant split.
func (p *Provider) hops(req domain.QuoteRequest, routes [][][]splitDTO) []domain.Hop {
	if len(routes) == 0 || len(routes[0]) == 0 {
		return []domain.Hop{{
			TokenIn:  req.From,
			TokenOut: req.To,
			Protocol: ProviderName,
			Share:    1,
			Venues:   1,
		}}
	}

	chainID := req.From.ChainID()
	main := routes[0]
	out := make([]domain.Hop, 0, len(main))
	for i, splits := range main {
		best := splits[0]
		for _, s := range splits[1:] {
			if s.Part > best.Part {
				best = s
			}
		}

		tokenIn := p.token(chainID, best.FromTokenAddress)
		tokenOut := p.token(chainID, best.ToTokenAddress)
		if i == 0 {
			tokenIn = req.From
		}
		if i == len(main)-1 {
			tokenOut = req.To
		}

		out = append(out, domain.Hop{
			TokenIn:  tokenIn,
			TokenOut: tokenOut,
			Protocol: protocolName(best.Name),
			Share:    best.Part / 100,
			Venues:   len(splits),
		})
	}
	return out
}

func (p *Provider) token(chainID uint64, address string) *asset.Asset {
	return p.registry.ResolveOrPlaceholder(chainID, address, "", 18)
}

// protocolName turns "UNISWAP_V3" into "uniswap-v3".
func protocolName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(name, "_", "-")
}

func isNoRoute(resp *httpclient.Response, err error) bool {
	if resp == nil || resp.Response == nil || resp.StatusCode != http.StatusBadRequest {
		return false
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperror.CodeProviderError {
		return false
	}

	var body errorDTO
	if json.Unmarshal(resp.Body(), &body) != nil {
		return false
	}
	desc := strings.ToLower(body.Description + " " + body.Error)
	for _, m := range noRouteMarkers {
		if strings.Contains(desc, m) {
			return true
		}
	}
	return false
}
