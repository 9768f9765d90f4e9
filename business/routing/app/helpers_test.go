package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	quoting "github.com/fd1az/swap-aggregator/business/quoting/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Debug(context.Context, string, ...any) {}
func (m *mockLogger) Info(context.Context, string, ...any)  {}
func (m *mockLogger) Warn(_ context.Context, msg string, _ ...any) {
	m.mu.Lock()
	m.warns = append(m.warns, msg)
	m.mu.Unlock()
}
func (m *mockLogger) Error(context.Context, string, ...any)       {}
func (m *mockLogger) Debugc(context.Context, int, string, ...any) {}
func (m *mockLogger) Infoc(context.Context, int, string, ...any)  {}
func (m *mockLogger) Warnc(context.Context, int, string, ...any)  {}
func (m *mockLogger) Errorc(context.Context, int, string, ...any) {}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeProvider returns canned proposals or an error, optionally after a delay.
type fakeProvider struct {
	name      string
	kind      quoting.ProviderKind
	proposals []quoting.RouteProposal
	err       error
	delay     time.Duration
	calls     atomic.Int32
}

func (f *fakeProvider) Name() string              { return f.name }
func (f *fakeProvider) Kind() quoting.ProviderKind { return f.kind }

func (f *fakeProvider) Quote(ctx context.Context, _ quoting.QuoteRequest) ([]quoting.RouteProposal, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]quoting.RouteProposal, len(f.proposals))
	for i, p := range f.proposals {
		out[i] = p.Clone()
	}
	return out, nil
}

type proposalOpt func(*quoting.RouteProposal)

func withImpact(v float64) proposalOpt {
	return func(p *quoting.RouteProposal) { p.PriceImpact = v }
}

func withTime(d time.Duration) proposalOpt {
	return func(p *quoting.RouteProposal) { p.EstimatedTime = d }
}

func withGas(g uint64) proposalOpt {
	return func(p *quoting.RouteProposal) { p.EstimatedGas = g }
}

func withRisks(r ...string) proposalOpt {
	return func(p *quoting.RouteProposal) { p.Risks = r }
}

func withProtocols(names ...string) proposalOpt {
	return func(p *quoting.RouteProposal) {
		p.Steps = nil
		for _, n := range names {
			p.Steps = append(p.Steps, quoting.RouteStep{Protocol: n, TokenIn: p.From, TokenOut: p.To, Share: 1})
		}
	}
}

// proposal builds a valid ETH->USDC proposal with out in raw USDC units.
func proposal(t *testing.T, id, provider string, out int64, opts ...proposalOpt) quoting.RouteProposal {
	t.Helper()
	in, err := asset.ParseString(asset.ETH, "1")
	if err != nil {
		t.Fatal(err)
	}
	p := quoting.RouteProposal{
		ID:            id,
		Provider:      provider,
		Kind:          quoting.KindAggregation,
		From:          asset.ETH,
		To:            asset.USDC,
		AmountIn:      in,
		EstimatedOut:  asset.NewAmountFromUint64(asset.USDC, uint64(out)),
		EstimatedGas:  150_000,
		EstimatedTime: 30 * time.Second,
	}
	withProtocols("uniswap-v3")(&p)
	for _, o := range opts {
		o(&p)
	}
	return p
}
