package outcomes

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

func outcome(i int, success bool) domain.TransactionOutcome {
	return domain.TransactionOutcome{
		From:       asset.ETH,
		To:         asset.USDC,
		Amount:     "1.5",
		RoutePath:  []string{"uniswap-v3", "curve"},
		Duration:   time.Duration(i) * time.Second,
		GasCost:    uint64(100_000 + i),
		Slippage:   0.001 * float64(i),
		Success:    success,
		RecordedAt: time.Unix(1_700_000_000+int64(i), 0).UTC(),
	}
}

func TestMemoryLog_RingKeepsNewest(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLog(3)

	for i := 1; i <= 5; i++ {
		if err := m.Append(ctx, outcome(i, true)); err != nil {
			t.Fatal(err)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", m.Len())
	}

	got, _ := m.Load(ctx, 0)
	for i, want := range []uint64{100_003, 100_004, 100_005} {
		if got[i].GasCost != want {
			t.Errorf("entry %d: expected gas %d, got %d", i, want, got[i].GasCost)
		}
	}

	limited, _ := m.Load(ctx, 2)
	if len(limited) != 2 || limited[0].GasCost != 100_004 {
		t.Errorf("limit should keep the newest entries, got %+v", limited)
	}
}

func TestMemoryLog_CopiesRoutePath(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLog(2)

	o := outcome(1, true)
	m.Append(ctx, o)
	o.RoutePath[0] = "mutated"

	got, _ := m.Load(ctx, 0)
	if got[0].RoutePath[0] != "uniswap-v3" {
		t.Error("stored outcome must not alias the caller's slice")
	}
}

func TestSQLiteLog_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "outcomes.db")

	s, err := OpenSQLite(path, asset.DefaultRegistry())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	for i := 1; i <= 4; i++ {
		if err := s.Append(ctx, outcome(i, i%2 == 0)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Load(ctx, 3)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(got))
	}
	first := got[0]
	if first.GasCost != 100_002 || !first.Success || first.Duration != 2*time.Second {
		t.Errorf("unexpected first outcome %+v", first)
	}
	if !first.From.Equals(asset.ETH) || !first.To.Equals(asset.USDC) {
		t.Errorf("tokens should resolve from the registry, got %s -> %s", first.From, first.To)
	}
	if first.PathSignature() != "uniswap-v3>curve" {
		t.Errorf("unexpected path %q", first.PathSignature())
	}
	if !first.RecordedAt.Equal(time.Unix(1_700_000_002, 0)) {
		t.Errorf("unexpected timestamp %s", first.RecordedAt)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// reopening after close sees the persisted rows
	s2, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	all, _ := s2.Load(ctx, 0)
	if len(all) != 4 {
		t.Errorf("expected 4 persisted outcomes, got %d", len(all))
	}
}

func TestSQLiteLog_LockedByAnotherOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outcomes.db")

	s, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := OpenSQLite(path, nil); err == nil {
		t.Error("second open must fail while the lock is held")
	}
}
