// Package fusion adapts the intent-based RFQ API (Fusion for same-chain,
// Fusion+ for cross-chain swaps) to the Provider port.
package fusion

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/upstream"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

const (
	tracerName = "github.com/fd1az/swap-aggregator/business/quoting/infra/fusion"
	meterName  = tracerName

	// ProviderName tags proposals from this adapter.
	ProviderName = "fusion"

	zeroAddress = "0x0000000000000000000000000000000000000000"

	DefaultBaseURL = "https://api.1inch.dev"
)

// presetOrder fixes proposal order; unknown presets follow alphabetically.
var presetOrder = map[string]int{"fast": 0, "medium": 1, "slow": 2}

// Provider is the RFQ adapter.
type Provider struct {
	client *upstream.Client
	logger logger.LoggerInterface
	tracer trace.Tracer
	now    func() time.Time

	proposals metric.Int64Counter
}

// NewProvider creates the adapter.
func NewProvider(cfg upstream.Config, log logger.LoggerInterface) (*Provider, error) {
	if cfg.Name == "" {
		cfg.Name = ProviderName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	client, err := upstream.New(cfg, log)
	if err != nil {
		return nil, err
	}

	proposals, err := otel.Meter(meterName).Int64Counter(
		"fusion_proposals_total",
		metric.WithDescription("Proposals produced from RFQ quotes"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Provider{
		client:    client,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		proposals: proposals,
	}, nil
}

func (p *Provider) Name() string              { return p.client.Name() }
func (p *Provider) Kind() domain.ProviderKind { return domain.KindRFQ }
func (p *Provider) BreakerState() string      { return p.client.BreakerState() }

// Quote prices req. One proposal is returned per auction preset.
func (p *Provider) Quote(ctx context.Context, req domain.QuoteRequest) ([]domain.RouteProposal, error) {
	ctx, span := p.tracer.Start(ctx, "fusion.quote",
		trace.WithAttributes(
			attribute.String("from", req.From.String()),
			attribute.String("to", req.To.String()),
			attribute.Bool("cross_chain", req.IsCrossChain()),
		),
	)
	defer span.End()

	if !req.From.IsEVM() || !req.To.IsEVM() {
		err := apperror.Provider(apperror.CodeProviderUnsupported, p.Name(),
			fmt.Errorf("%s -> %s: only EVM networks are supported", req.From.Network(), req.To.Network()))
		span.RecordError(err)
		return nil, err
	}

	var (
		q   domain.RFQQuote
		err error
	)
	if req.IsCrossChain() {
		q, err = p.quoteCrossChain(ctx, req)
	} else {
		q, err = p.quoteSameChain(ctx, req)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}

	props := domain.ToProposals(q)
	p.proposals.Add(ctx, int64(len(props)))
	span.SetAttributes(attribute.Int("proposals", len(props)))
	span.SetStatus(codes.Ok, "quoted")

	return props, nil
}

func (p *Provider) quoteSameChain(ctx context.Context, req domain.QuoteRequest) (domain.RFQQuote, error) {
	path := fmt.Sprintf("/fusion/quoter/v2.0/%d/quote/receive", req.From.ChainID())
	params := map[string]string{
		"fromTokenAddress": req.From.APIAddress(),
		"toTokenAddress":   req.To.APIAddress(),
		"amount":           req.Amount.RawString(),
		"walletAddress":    req.Wallet.OrElse(zeroAddress),
		"enableEstimate":   "true",
	}

	var dto quoteDTO
	if _, err := p.client.GetJSON(ctx, path, params, &dto); err != nil {
		return domain.RFQQuote{}, err
	}

	presets, err := p.convertPresets(req.To, dto.Presets)
	if err != nil {
		return domain.RFQQuote{}, err
	}

	q := domain.RFQQuote{
		Provider:  p.Name(),
		QuoteID:   domain.FromPtr(dto.QuoteID).OrElse(""),
		From:      req.From,
		To:        req.To,
		AmountIn:  req.Amount,
		Presets:   presets,
		FetchedAt: p.now(),
	}
	if dto.Prices != nil && dto.Prices.USD != nil {
		q.FromUSD = parseUSD(dto.Prices.USD.FromToken)
		q.ToUSD = parseUSD(dto.Prices.USD.ToToken)
	}
	return q, nil
}

func (p *Provider) quoteCrossChain(ctx context.Context, req domain.QuoteRequest) (domain.RFQQuote, error) {
	params := map[string]string{
		"srcChain":        strconv.FormatUint(req.From.ChainID(), 10),
		"dstChain":        strconv.FormatUint(req.To.ChainID(), 10),
		"srcTokenAddress": req.From.APIAddress(),
		"dstTokenAddress": req.To.APIAddress(),
		"amount":          req.Amount.RawString(),
		"walletAddress":   req.Wallet.OrElse(zeroAddress),
		"enableEstimate":  "true",
	}

	var dto crossChainQuoteDTO
	if _, err := p.client.GetJSON(ctx, "/fusion-plus/quoter/v1.0/quote/receive", params, &dto); err != nil {
		return domain.RFQQuote{}, err
	}

	presets, err := p.convertPresets(req.To, dto.Presets)
	if err != nil {
		return domain.RFQQuote{}, err
	}

	q := domain.RFQQuote{
		Provider:  p.Name(),
		QuoteID:   domain.FromPtr(dto.QuoteID).OrElse(""),
		From:      req.From,
		To:        req.To,
		AmountIn:  req.Amount,
		Presets:   presets,
		FetchedAt: p.now(),
	}
	if dto.TimeLocks != nil && dto.TimeLocks.DstWithdrawal != nil {
		q.SettlementDelay = domain.Some(time.Duration(*dto.TimeLocks.DstWithdrawal) * time.Second)
	}
	if dto.Prices != nil && dto.Prices.USD != nil {
		q.FromUSD = parseUSD(dto.Prices.USD.SrcToken)
		q.ToUSD = parseUSD(dto.Prices.USD.DstToken)
	}
	return q, nil
}

func (p *Provider) convertPresets(to *asset.Asset, raw map[string]presetDTO) ([]domain.AuctionPreset, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, iok := presetOrder[names[i]]
		oj, jok := presetOrder[names[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})

	out := make([]domain.AuctionPreset, 0, len(names))
	for _, name := range names {
		dto := raw[name]
		start, err := asset.ParseRaw(to, dto.AuctionStartAmount)
		if err != nil {
			return nil, apperror.Provider(apperror.CodeMalformedRoute, p.Name(), fmt.Errorf("preset %s: %w", name, err))
		}
		end, err := asset.ParseRaw(to, dto.AuctionEndAmount)
		if err != nil {
			return nil, apperror.Provider(apperror.CodeMalformedRoute, p.Name(), fmt.Errorf("preset %s: %w", name, err))
		}

		out = append(out, domain.AuctionPreset{
			Name:               name,
			AuctionStartAmount: start,
			AuctionEndAmount:   end,
			StartAuctionIn:     time.Duration(domain.FromPtr(dto.StartAuctionIn).OrElse(0)) * time.Second,
			AuctionDuration:    time.Duration(*dto.AuctionDuration) * time.Second,
		})
	}
	return out, nil
}

func parseUSD(s *string) domain.Optional[decimal.Decimal] {
	if s == nil {
		return domain.None[decimal.Decimal]()
	}
	d, err := decimal.NewFromString(*s)
	if err != nil || !d.IsPositive() {
		return domain.None[decimal.Decimal]()
	}
	return domain.Some(d)
}

// SubmitOrder relays a maker-signed order.
func (p *Provider) SubmitOrder(ctx context.Context, chainID uint64, order domain.SignedOrder) (domain.OrderReceipt, error) {
	ctx, span := p.tracer.Start(ctx, "fusion.submit_order",
		trace.WithAttributes(attribute.Int64("chain_id", int64(chainID))))
	defer span.End()

	if err := p.client.Validate(order); err != nil {
		return domain.OrderReceipt{}, apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("signed order"), apperror.WithCause(err))
	}

	path := fmt.Sprintf("/fusion/relayer/v2.0/%d/order/submit", chainID)
	body := submitOrderDTO{
		Order:     order.Order,
		Signature: order.Signature,
		QuoteID:   order.QuoteID,
		Extension: order.Extension,
	}
	if _, err := p.client.PostJSON(ctx, path, body, nil); err != nil {
		span.RecordError(err)
		return domain.OrderReceipt{}, err
	}

	p.logger.Info(ctx, "order submitted", "chain_id", chainID, "order_hash", order.OrderHash)
	return domain.OrderReceipt{OrderHash: order.OrderHash, SubmittedAt: p.now()}, nil
}

// OrderStatus fetches the current order state. Unknown orders are reported
// with status not-found rather than an error.
func (p *Provider) OrderStatus(ctx context.Context, chainID uint64, orderHash string) (domain.OrderState, error) {
	ctx, span := p.tracer.Start(ctx, "fusion.order_status",
		trace.WithAttributes(attribute.String("order_hash", orderHash)))
	defer span.End()

	path := fmt.Sprintf("/fusion/orders/v2.0/%d/order/status/%s", chainID, orderHash)

	var dto orderStatusDTO
	resp, err := p.client.GetJSON(ctx, path, nil, &dto)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return domain.OrderState{OrderHash: orderHash, Status: domain.OrderNotFound, UpdatedAt: p.now()}, nil
		}
		span.RecordError(err)
		return domain.OrderState{}, err
	}

	fills := make([]string, 0, len(dto.Fills))
	for _, f := range dto.Fills {
		fills = append(fills, f.TxHash)
	}

	return domain.OrderState{
		OrderHash: orderHash,
		Status:    mapStatus(dto.Status),
		Fills:     fills,
		UpdatedAt: p.now(),
	}, nil
}

// WaitForOrder polls until the order reaches a terminal status or ctx ends.
func (p *Provider) WaitForOrder(ctx context.Context, chainID uint64, orderHash string, interval time.Duration) (domain.OrderState, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := p.OrderStatus(ctx, chainID, orderHash)
		if err == nil && state.Status.IsTerminal() {
			return state, nil
		}
		if err != nil {
			p.logger.Warn(ctx, "order status poll failed", "order_hash", orderHash, "error", err)
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ticker.C:
		}
	}
}

func mapStatus(s string) domain.OrderStatus {
	switch s {
	case "filled":
		return domain.OrderFilled
	case "expired":
		return domain.OrderExpired
	case "cancelled", "false-predicate", "not-enough-balance", "not-enough-allowance", "invalid-signature", "wrong-permit":
		return domain.OrderCancelled
	case "not-found":
		return domain.OrderNotFound
	default:
		return domain.OrderPending
	}
}
