// Package upstream is the HTTP plumbing shared by the provider adapters:
// outbound pacing, per-call timeout, circuit breaking, status mapping and
// schema validation of decoded bodies.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/circuitbreaker"
	"github.com/fd1az/swap-aggregator/internal/httpclient"
	"github.com/fd1az/swap-aggregator/internal/logger"
	"github.com/fd1az/swap-aggregator/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/swap-aggregator/business/quoting/infra/upstream"

	defaultTimeout = 20 * time.Second
)

// Config configures one upstream API.
type Config struct {
	Name              string
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerMinute int
	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// Client performs JSON calls against one upstream.
type Client struct {
	name     string
	timeout  time.Duration
	http     httpclient.Client
	limiter  *ratelimit.Limiter
	breaker  *circuitbreaker.CircuitBreaker[*httpclient.Response]
	validate *validator.Validate
	logger   logger.LoggerInterface
	tracer   trace.Tracer
}

// New builds a Client.
func New(cfg Config, log logger.LoggerInterface) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tracer := otel.Tracer(tracerName)

	opts := []httpclient.ClientOption{
		httpclient.WithProviderName(cfg.Name),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
		httpclient.WithBearerToken(cfg.APIKey),
	}
	if cfg.Transport != nil {
		opts = append(opts, httpclient.WithRoundTripper(cfg.Transport))
	}

	client, err := httpclient.NewInstrumentedClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig(cfg.Name)
	// Plain 4xx answers mean the upstream is healthy.
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || apperror.IsCode(err, apperror.CodeProviderError)
	}
	cbCfg.OnStateChange = func(name, from, to string) {
		log.Warn(context.Background(), "provider circuit state changed", "provider", name, "from", from, "to", to)
	}

	return &Client{
		name:     cfg.Name,
		timeout:  timeout,
		http:     client,
		limiter:  ratelimit.New(cfg.RequestsPerMinute),
		breaker:  circuitbreaker.New[*httpclient.Response](cbCfg),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log,
		tracer:   tracer,
	}, nil
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// BreakerState returns the circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State()
}

// Validate runs struct-tag validation on v.
func (c *Client) Validate(v any) error {
	if err := c.validate.Struct(v); err != nil {
		return apperror.Provider(apperror.CodeMalformedRoute, c.name, err)
	}
	return nil
}

// GetJSON performs a GET and decodes a validated body into out.
// On provider errors the raw response is returned alongside when available.
func (c *Client) GetJSON(ctx context.Context, path string, params map[string]string, out any) (*httpclient.Response, error) {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// PostJSON performs a POST with a JSON body and decodes a validated body into out.
func (c *Client) PostJSON(ctx context.Context, path string, body any, out any) (*httpclient.Response, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body any, out any) (*httpclient.Response, error) {
	ctx, span := c.tracer.Start(ctx, "upstream."+c.name,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("path", path),
		),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperror.Provider(apperror.CodeProviderUnavailable, c.name, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.breaker.Execute(func() (*httpclient.Response, error) {
		req := c.http.NewRequestWithOptions(
			httpclient.WithResponseErrorHandler(httpclient.ProviderErrorHandler(c.name)),
			httpclient.WithLabels(httpclient.NewLabel("endpoint", path)),
		)
		if params != nil {
			req.SetQueryParams(params)
		}
		if body != nil {
			req.SetBody(body)
		}
		if method == http.MethodPost {
			return req.Post(callCtx, path)
		}
		return req.Get(callCtx, path)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		if !apperror.IsAppError(err) {
			// network failures and timeouts
			err = apperror.Provider(apperror.CodeProviderUnavailable, c.name, err)
		}
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == apperror.CodeProviderRateLimited {
			if d := httpclient.RetryAfter(resp); d > 0 {
				appErr.RetryAfter = int(d / time.Second)
			}
		}
		return resp, err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			span.RecordError(err)
			return resp, apperror.Provider(apperror.CodeMalformedRoute, c.name, fmt.Errorf("decode: %w", err))
		}
		if err := c.Validate(out); err != nil {
			span.RecordError(err)
			return resp, err
		}
	}

	span.SetStatus(codes.Ok, "ok")
	return resp, nil
}
