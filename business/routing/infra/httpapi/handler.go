// Package httpapi exposes route aggregation, prediction and outcome
// reporting over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	quotingapp "github.com/fd1az/swap-aggregator/business/quoting/app"
	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
	"github.com/fd1az/swap-aggregator/internal/logger"
)

const (
	maxBodyBytes   = 1 << 20
	defaultChainID = asset.ChainIDEthereum
)

// RouteService returns ranked routes.
type RouteService interface {
	GetRoutes(ctx context.Context, req domain.RouteRequest) (domain.RouteResult, error)
}

// Predictor recommends execution parameters.
type Predictor interface {
	Predict(ctx context.Context, req domain.RouteRequest) (domain.Prediction, error)
}

// OutcomeRecorder ingests reported outcomes.
type OutcomeRecorder interface {
	Record(ctx context.Context, o domain.TransactionOutcome)
}

// InsightSource explains a ranked route list.
type InsightSource interface {
	Insights(routes []domain.ScoredRoute) []string
}

// Handler serves the public API.
type Handler struct {
	routes    RouteService
	predictor Predictor
	outcomes  OutcomeRecorder
	insights  InsightSource
	// orders is nil when no RFQ provider is enabled.
	orders   quotingapp.OrderProvider
	registry *asset.Registry
	validate *validator.Validate
	logger   logger.LoggerInterface
}

// NewHandler creates the API handler. orders may be nil.
func NewHandler(
	routes RouteService,
	predictor Predictor,
	outcomes OutcomeRecorder,
	insights InsightSource,
	orders quotingapp.OrderProvider,
	registry *asset.Registry,
	log logger.LoggerInterface,
) *Handler {
	return &Handler{
		routes:    routes,
		predictor: predictor,
		outcomes:  outcomes,
		insights:  insights,
		orders:    orders,
		registry:  registry,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    log,
	}
}

// Register mounts the API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/routes", h.handleRoutes)
	mux.HandleFunc("POST /v1/predict", h.handlePredict)
	mux.HandleFunc("POST /v1/outcomes", h.handleOutcome)
	mux.HandleFunc("POST /v1/orders", h.handleSubmitOrder)
	mux.HandleFunc("GET /v1/orders/{chainId}/{hash}", h.handleOrderStatus)
	mux.HandleFunc("GET /v1/tokens", h.handleTokens)
}

func (h *Handler) handleRoutes(w http.ResponseWriter, r *http.Request) {
	req, err := h.routeRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.routes.GetRoutes(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toRoutesResponse(res, h.insights.Insights(res.Routes)))
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	req, err := h.routeRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	pred, err := h.predictor.Predict(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toPredictionResponse(pred))
}

// handleOutcome always answers 202. Reporting is best-effort for callers.
func (h *Handler) handleOutcome(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusAccepted)

	var body outcomeRequest
	if err := h.decode(r, &body); err != nil {
		h.logger.Warn(r.Context(), "discarding outcome report", "error", err)
		return
	}

	from, err := h.resolveToken(body.ChainID, body.From)
	if err != nil {
		h.logger.Warn(r.Context(), "discarding outcome report", "error", err)
		return
	}
	to, err := h.resolveToken(orDefault(body.ToChainID, body.ChainID), body.To)
	if err != nil {
		h.logger.Warn(r.Context(), "discarding outcome report", "error", err)
		return
	}

	h.outcomes.Record(r.Context(), domain.TransactionOutcome{
		From:      from,
		To:        to,
		Amount:    body.Amount,
		RoutePath: body.RoutePath,
		Duration:  time.Duration(body.DurationMs) * time.Millisecond,
		GasCost:   body.GasCost,
		Slippage:  body.Slippage,
		Success:   body.Success,
	})
}

func (h *Handler) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		h.writeError(w, r, ordersDisabled())
		return
	}

	var body orderRequest
	if err := h.decode(r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	receipt, err := h.orders.SubmitOrder(r.Context(), body.ChainID, body.Order)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	if h.orders == nil {
		h.writeError(w, r, ordersDisabled())
		return
	}

	chainID, err := strconv.ParseUint(r.PathValue("chainId"), 10, 64)
	if err != nil || chainID == 0 {
		h.writeError(w, r, apperror.InvalidRequest("chainId must be a positive integer"))
		return
	}
	hash := strings.TrimSpace(r.PathValue("hash"))
	if err := h.validate.Var(hash, "required,hexadecimal"); err != nil {
		h.writeError(w, r, apperror.InvalidRequest("order hash must be hexadecimal"))
		return
	}

	state, err := h.orders.OrderStatus(r.Context(), chainID, hash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleTokens(w http.ResponseWriter, r *http.Request) {
	var chainFilter uint64
	if v := r.URL.Query().Get("chainId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			h.writeError(w, r, apperror.InvalidRequest("chainId must be an integer"))
			return
		}
		chainFilter = id
	}

	tokens := make([]tokenDTO, 0, h.registry.Count())
	for _, a := range h.registry.All() {
		if chainFilter != 0 && a.ChainID() != chainFilter {
			continue
		}
		tokens = append(tokens, toTokenDTO(a))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

// routeRequest decodes and resolves a route request body.
func (h *Handler) routeRequest(r *http.Request) (domain.RouteRequest, error) {
	var body routeRequest
	if err := h.decode(r, &body); err != nil {
		return domain.RouteRequest{}, err
	}

	from, err := h.resolveToken(body.ChainID, body.From)
	if err != nil {
		return domain.RouteRequest{}, err
	}
	to, err := h.resolveToken(orDefault(body.ToChainID, body.ChainID), body.To)
	if err != nil {
		return domain.RouteRequest{}, err
	}

	return domain.RouteRequest{
		ClientID:          ClientID(r),
		From:              from,
		To:                to,
		Amount:            body.Amount,
		Wallet:            quoting.FromPtr(body.Wallet),
		PreferredProvider: body.Provider,
		Preference:        body.Preference,
		Slippage:          quoting.FromPtr(body.Slippage),
		GasPreset:         body.GasPreset,
		GasPriceWei:       quoting.FromPtr(body.GasPriceWei),
	}, nil
}

func (h *Handler) decode(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		return apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext("malformed JSON body"), apperror.WithCause(err))
	}
	if err := h.validate.Struct(out); err != nil {
		return apperror.New(apperror.CodeInvalidRequest,
			apperror.WithContext(describeValidation(err)), apperror.WithCause(err))
	}
	return nil
}

func (h *Handler) resolveToken(chainID uint64, ref string) (*asset.Asset, error) {
	chainID = orDefault(chainID, defaultChainID)
	a, ok := h.registry.Resolve(chainID, ref)
	if !ok {
		return nil, apperror.InvalidRequest(fmt.Sprintf("unknown token %q on chain %d", ref, chainID))
	}
	return a, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(context.Background(), "failed to encode response", "error", err)
	}
}

// writeError renders err as an AppError response. Causes are logged, never
// written to the caller.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(apperror.CodeInternalError, "unhandled error", err)
	}
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		appErr = appErr.WithTraceID(sc.TraceID().String())
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", appErr.ToLog())
	} else {
		h.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "code", appErr.Code)
	}

	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	h.writeJSON(w, appErr.StatusCode, appErr.ToResponse())
}

// ClientID derives a stable rate-limit key from the caller's address and
// user agent.
func ClientID(r *http.Request) string {
	ip := ""
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	return crypto.Keccak256Hash([]byte(ip + "|" + r.UserAgent())).Hex()
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func ordersDisabled() error {
	return apperror.New(apperror.CodeServiceUnavailable, apperror.WithContext("RFQ order routing is disabled"))
}

func orDefault(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}
