package oneinch

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	blockchainapp "github.com/fd1az/swap-aggregator/business/blockchain/app"
	blockchain "github.com/fd1az/swap-aggregator/business/blockchain/domain"
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

// multiHopBody routes ETH -> WETH -> DAI -> USDC with a split on the second hop.
const multiHopBody = `{
  "dstAmount": "1990000000",
  "gas": 210000,
  "protocols": [[
    [{"name": "WETH", "part": 100, "fromTokenAddress": "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee", "toTokenAddress": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"}],
    [{"name": "UNISWAP_V3", "part": 70, "fromTokenAddress": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "toTokenAddress": "0x6b175474e89094c44da98b954eedeac495271d0f"},
     {"name": "CURVE", "part": 30, "fromTokenAddress": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", "toTokenAddress": "0x6b175474e89094c44da98b954eedeac495271d0f"}],
    [{"name": "CURVE_V2", "part": 100, "fromTokenAddress": "0x6b175474e89094c44da98b954eedeac495271d0f", "toTokenAddress": "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"}]
  ]]
}`

func newTestProvider(t *testing.T, url string) *Provider {
	t.Helper()
	gas := blockchainapp.NewGasService(nil, nil, mockLogger{})
	p, err := NewProvider(upstream.Config{BaseURL: url, APIKey: "k", Timeout: time.Second}, gas, asset.DefaultRegistry(), mockLogger{})
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

func TestQuote_MultiHop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/v6.0/1/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("includeProtocols") != "true" || q.Get("includeGas") != "true" {
			t.Errorf("missing include flags: %s", r.URL.RawQuery)
		}
		// oracle is absent so the standard fallback of 30 gwei applies
		if q.Get("gasPrice") != "30000000000" {
			t.Errorf("expected fallback gas price, got %s", q.Get("gasPrice"))
		}
		w.Write([]byte(multiHopBody))
	}))
	defer srv.Close()

	props, err := newTestProvider(t, srv.URL).Quote(context.Background(), ethToUSDC(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(props) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(props))
	}
	p := props[0]

	if got := p.PathSignature(); got != "weth>uniswap-v3>curve-v2" {
		t.Errorf("unexpected path %q", got)
	}
	if p.Steps[1].Share != 0.7 {
		t.Errorf("expected dominant share 0.7, got %v", p.Steps[1].Share)
	}
	if !p.Steps[1].TokenOut.Equals(asset.DAI) {
		t.Errorf("intermediate token should resolve from the registry, got %s", p.Steps[1].TokenOut)
	}
	if p.EstimatedGas != 210000 || p.EstimatedOut.RawString() != "1990000000" {
		t.Errorf("unexpected gas/out %d %s", p.EstimatedGas, p.EstimatedOut.RawString())
	}

	notes := strings.Join(append(p.Advantages, p.Risks...), "|")
	for _, want := range []string{"split across 2 venues", "multi-hop route (3 hops)", "fallback standard preset"} {
		if !strings.Contains(notes, want) {
			t.Errorf("expected note %q in %s", want, notes)
		}
	}
}

func TestQuote_CallerGasPriceAndDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("gasPrice") != "7000000000" {
			t.Errorf("caller gas price not forwarded: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"dstAmount": "1000"}`))
	}))
	defer srv.Close()

	req := ethToUSDC(t)
	req.GasPrice = blockchain.ExplicitSpec(big.NewInt(7_000_000_000))

	props, err := newTestProvider(t, srv.URL).Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := props[0]
	if p.EstimatedGas != domain.DefaultAggregationGas {
		t.Errorf("missing gas should default, got %d", p.EstimatedGas)
	}
	if len(p.Steps) != 1 || p.Steps[0].Protocol != ProviderName {
		t.Errorf("missing protocols should yield one direct step, got %+v", p.Steps)
	}
}

func TestQuote_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantEmpty bool
		wantCode  apperror.Code
	}{
		{name: "insufficient_liquidity", status: 400, body: `{"error":"Bad Request","description":"insufficient liquidity","statusCode":400}`, wantEmpty: true},
		{name: "no_route", status: 400, body: `{"description":"No route found"}`, wantEmpty: true},
		{name: "other_400", status: 400, body: `{"description":"invalid src token"}`, wantCode: apperror.CodeProviderError},
		{name: "server_error", status: 500, body: `insufficient liquidity`, wantCode: apperror.CodeProviderUnavailable},
		{name: "bad_amount", status: 200, body: `{"dstAmount":"abc"}`, wantCode: apperror.CodeMalformedRoute},
		{name: "empty_split", status: 200, body: `{"dstAmount":"1","protocols":[[[]]]}`, wantCode: apperror.CodeMalformedRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			props, err := newTestProvider(t, srv.URL).Quote(context.Background(), ethToUSDC(t))
			if tt.wantEmpty {
				if err != nil || props == nil || len(props) != 0 {
					t.Errorf("expected empty success, got %v (%v)", props, err)
				}
				return
			}
			if !apperror.IsCode(err, tt.wantCode) {
				t.Errorf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestQuote_CrossChainUnsupported(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:0")
	amt, _ := asset.ParseString(asset.USDC, "10")
	_, err := p.Quote(context.Background(), domain.QuoteRequest{From: asset.USDC, To: asset.USDCArbitrum, Amount: amt})
	if !apperror.IsCode(err, apperror.CodeProviderUnsupported) {
		t.Errorf("expected unsupported, got %v", err)
	}
}

func TestProtocolName(t *testing.T) {
	tests := map[string]string{
		"UNISWAP_V3": "uniswap-v3",
		" Curve ":    "curve",
		"PMM1":       "pmm1",
	}
	for in, want := range tests {
		if got := protocolName(in); got != want {
			t.Errorf("protocolName(%q) = %q, want %q", in, got, want)
		}
	}
}
