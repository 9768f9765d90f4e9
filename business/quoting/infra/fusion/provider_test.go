package fusion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/business/quoting/infra/upstream"
	"github.com/fd1az/swap-aggregator/internal/apperror"
	"github.com/fd1az/swap-aggregator/internal/asset"
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

const sameChainBody = `{
  "quoteId": "q-123",
  "fromTokenAmount": "1000000000000000000",
  "toTokenAmount": "1995000000",
  "recommended_preset": "fast",
  "presets": {
    "slow":   {"auctionDuration": 600, "startAuctionIn": 24, "auctionStartAmount": "2000000000", "auctionEndAmount": "1960000000"},
    "fast":   {"auctionDuration": 180, "startAuctionIn": 12, "auctionStartAmount": "1998000000", "auctionEndAmount": "1990000000"},
    "medium": {"auctionDuration": 360, "auctionStartAmount": "1999000000", "auctionEndAmount": "1985000000"}
  },
  "prices": {"usd": {"fromToken": "2000", "toToken": "1"}}
}`

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	p, err := NewProvider(upstream.Config{BaseURL: url, APIKey: "test-key", Timeout: time.Second}, mockLogger{})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return p
}

func ethToUSDC(t *testing.T) domain.QuoteRequest {
	t.Helper()
	amt, err := asset.ParseString(asset.ETH, "1")
	if err != nil {
		t.Fatal(err)
	}
	return domain.QuoteRequest{From: asset.ETH, To: asset.USDC, Amount: amt}
}

func TestQuote_SameChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fusion/quoter/v2.0/1/quote/receive" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("fromTokenAddress") != asset.NativePlaceholderHex {
			t.Errorf("native asset must use the placeholder, got %s", q.Get("fromTokenAddress"))
		}
		if q.Get("amount") != "1000000000000000000" || q.Get("walletAddress") != zeroAddress {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth")
		}
		w.Write([]byte(sameChainBody))
	}))
	defer srv.Close()

	props, err := newTestProvider(t, srv.URL).Quote(context.Background(), ethToUSDC(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(props) != 3 {
		t.Fatalf("expected 3 proposals, got %d", len(props))
	}

	wantOrder := []string{"fast", "medium", "slow"}
	for i, p := range props {
		if !strings.Contains(strings.Join(p.Advantages, "|"), "auction preset: "+wantOrder[i]) {
			t.Errorf("proposal %d: expected preset %s, got %v", i, wantOrder[i], p.Advantages)
		}
		if p.EstimatedGas != 0 || p.Kind != domain.KindRFQ || p.QuoteID != "q-123" {
			t.Errorf("proposal %d: unexpected %+v", i, p)
		}
	}
	if props[0].EstimatedTime != 192*time.Second {
		t.Errorf("expected startAuctionIn+duration, got %s", props[0].EstimatedTime)
	}
	if props[1].EstimatedTime != 360*time.Second {
		t.Errorf("missing startAuctionIn should default to 0, got %s", props[1].EstimatedTime)
	}
}

func TestQuote_CrossChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fusion-plus/quoter/v1.0/quote/receive" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("srcChain") != "1" || r.URL.Query().Get("dstChain") != "42161" {
			t.Errorf("unexpected chains %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{
			"srcTokenAmount": "100000000", "dstTokenAmount": "99500000",
			"presets": {"fast": {"auctionDuration": 60, "auctionStartAmount": "99600000", "auctionEndAmount": "99500000"}},
			"timeLocks": {"dstWithdrawal": 240}
		}`))
	}))
	defer srv.Close()

	amt, _ := asset.ParseString(asset.USDC, "100")
	props, err := newTestProvider(t, srv.URL).Quote(context.Background(),
		domain.QuoteRequest{From: asset.USDC, To: asset.USDCArbitrum, Amount: amt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(props) != 1 || props[0].EstimatedTime != 5*time.Minute {
		t.Fatalf("expected one 5m proposal, got %+v", props)
	}
	if props[0].PathSignature() != "fusion-plus" {
		t.Errorf("unexpected path %q", props[0].PathSignature())
	}
}

func TestQuote_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode apperror.Code
	}{
		{name: "missing_presets", status: 200, body: `{"fromTokenAmount":"1","toTokenAmount":"2"}`, wantCode: apperror.CodeMalformedRoute},
		{name: "bad_amount", status: 200, body: `{"fromTokenAmount":"1","toTokenAmount":"2","presets":{"fast":{"auctionDuration":1,"auctionStartAmount":"1.5","auctionEndAmount":"1"}}}`, wantCode: apperror.CodeMalformedRoute},
		{name: "auth", status: 401, body: `{}`, wantCode: apperror.CodeProviderAuthFailed},
		{name: "rate_limited", status: 429, body: `{}`, wantCode: apperror.CodeProviderRateLimited},
		{name: "unavailable", status: 503, body: `{}`, wantCode: apperror.CodeProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			props, err := newTestProvider(t, srv.URL).Quote(context.Background(), ethToUSDC(t))
			if props != nil {
				t.Errorf("failures must not return partial proposals")
			}
			if !apperror.IsCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestQuote_BitcoinUnsupported(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:0")
	amt, _ := asset.ParseString(asset.BTC, "0.5")
	_, err := p.Quote(context.Background(), domain.QuoteRequest{From: asset.BTC, To: asset.ETH, Amount: amt})
	if !apperror.IsCode(err, apperror.CodeProviderUnsupported) {
		t.Errorf("expected unsupported, got %v", err)
	}
}

func TestOrders(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/fusion/relayer/v2.0/1/order/submit":
			var body submitOrderDTO
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.QuoteID != "q-1" {
				t.Errorf("unexpected submit body %+v (%v)", body, err)
			}
			w.WriteHeader(http.StatusCreated)
		case strings.HasPrefix(r.URL.Path, "/fusion/orders/v2.0/1/order/status/0xabc"):
			if polls.Add(1) < 3 {
				w.Write([]byte(`{"orderHash":"0xabc","status":"pending"}`))
				return
			}
			w.Write([]byte(`{"orderHash":"0xabc","status":"filled","fills":[{"txHash":"0xf1"}]}`))
		case strings.HasPrefix(r.URL.Path, "/fusion/orders/v2.0/1/order/status/"):
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	ctx := context.Background()

	receipt, err := p.SubmitOrder(ctx, 1, domain.SignedOrder{
		OrderHash: "0xabc",
		QuoteID:   "q-1",
		Signature: "0xdeadbeef",
		Order:     map[string]any{"maker": zeroAddress},
	})
	if err != nil || receipt.OrderHash != "0xabc" {
		t.Fatalf("submit failed: %v %+v", err, receipt)
	}

	state, err := p.WaitForOrder(ctx, 1, "0xabc", 5*time.Millisecond)
	if err != nil || state.Status != domain.OrderFilled || len(state.Fills) != 1 {
		t.Fatalf("expected filled order, got %+v (%v)", state, err)
	}

	missing, err := p.OrderStatus(ctx, 1, "0xdef")
	if err != nil || missing.Status != domain.OrderNotFound {
		t.Errorf("expected not-found status, got %+v (%v)", missing, err)
	}

	if _, err := p.SubmitOrder(ctx, 1, domain.SignedOrder{QuoteID: "q"}); !apperror.IsCode(err, apperror.CodeInvalidRequest) {
		t.Errorf("invalid order must be rejected locally, got %v", err)
	}
}

func TestWaitForOrder_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orderHash":"0xabc","status":"pending"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(t, srv.URL).WaitForOrder(ctx, 1, "0xabc", 5*time.Millisecond)
	if err == nil {
		t.Error("expected context error")
	}
}
