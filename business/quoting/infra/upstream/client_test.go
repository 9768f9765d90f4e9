package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fd1az/swap-aggregator/internal/apperror"
)

type mockLogger struct{}

func (mockLogger) Debug(context.Context, string, ...any)       {}
func (mockLogger) Info(context.Context, string, ...any)        {}
func (mockLogger) Warn(context.Context, string, ...any)        {}
func (mockLogger) Error(context.Context, string, ...any)       {}
func (mockLogger) Debugc(context.Context, int, string, ...any) {}
func (mockLogger) Infoc(context.Context, int, string, ...any)  {}
func (mockLogger) Warnc(context.Context, int, string, ...any)  {}
func (mockLogger) Errorc(context.Context, int, string, ...any) {}

type payload struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

func newClient(t *testing.T, url string, timeout time.Duration) *Client {
	t.Helper()
	c, err := New(Config{Name: "test", BaseURL: url, APIKey: "k", Timeout: timeout}, mockLogger{})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestGetJSON(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode apperror.Code
	}{
		{
			name: "ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"amount":"123"}`))
			},
		},
		{
			name: "schema_invalid",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"amount":"lots"}`))
			},
			wantCode: apperror.CodeMalformedRoute,
		},
		{
			name: "undecodable",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>`))
			},
			wantCode: apperror.CodeMalformedRoute,
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantCode: apperror.CodeProviderAuthFailed,
		},
		{
			name: "server_error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantCode: apperror.CodeProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			var out payload
			_, err := newClient(t, srv.URL, time.Second).GetJSON(context.Background(), "/q", nil, &out)
			if tt.wantCode == "" {
				if err != nil || out.Amount != "123" {
					t.Fatalf("expected success, got %v (%+v)", err, out)
				}
				return
			}
			if !apperror.IsCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
			if !apperror.IsProviderError(err) {
				t.Errorf("expected provider error family, got %v", err)
			}
		})
	}
}

func TestGetJSON_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, 50*time.Millisecond).GetJSON(context.Background(), "/slow", nil, &payload{})
	if !apperror.IsCode(err, apperror.CodeProviderUnavailable) {
		t.Errorf("expected unavailable on timeout, got %v", err)
	}
}

func TestGetJSON_RateLimitedCarriesRetryAfter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, time.Second).GetJSON(context.Background(), "/q", nil, &payload{})
	appErr, ok := err.(*apperror.AppError)
	if !ok || appErr.Code != apperror.CodeProviderRateLimited || appErr.RetryAfter != 7 {
		t.Errorf("expected rate limited with retry 7s, got %#v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, time.Second)
	for i := 0; i < 5; i++ {
		c.GetJSON(context.Background(), "/q", nil, &payload{})
	}
	_, err := c.GetJSON(context.Background(), "/q", nil, &payload{})
	if !apperror.IsCode(err, apperror.CodeCircuitOpen) {
		t.Errorf("expected open circuit, got %v", err)
	}
	if calls != 5 {
		t.Errorf("open circuit must not reach upstream, got %d calls", calls)
	}
	if c.BreakerState() != "open" {
		t.Errorf("expected open state, got %s", c.BreakerState())
	}
}
