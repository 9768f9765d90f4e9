// Package outcomes provides OutcomeLog sinks: a bounded in-memory ring and a
// SQLite table.
package outcomes

import (
	"context"
	"sync"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
)

// DefaultMemoryCap bounds the in-memory ring.
const DefaultMemoryCap = 10_000

// MemoryLog keeps the most recent outcomes in a ring buffer.
type MemoryLog struct {
	mu   sync.Mutex
	buf  []domain.TransactionOutcome
	next int
	full bool
}

// NewMemoryLog creates a ring holding up to capacity outcomes.
func NewMemoryLog(capacity int) *MemoryLog {
	if capacity <= 0 {
		capacity = DefaultMemoryCap
	}
	return &MemoryLog{buf: make([]domain.TransactionOutcome, capacity)}
}

// Append stores o, overwriting the oldest entry when full.
func (m *MemoryLog) Append(_ context.Context, o domain.TransactionOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o.RoutePath = append([]string(nil), o.RoutePath...)
	m.buf[m.next] = o
	m.next = (m.next + 1) % len(m.buf)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Load returns up to limit of the newest outcomes, oldest first.
func (m *MemoryLog) Load(_ context.Context, limit int) ([]domain.TransactionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ordered []domain.TransactionOutcome
	if m.full {
		ordered = append(ordered, m.buf[m.next:]...)
	}
	ordered = append(ordered, m.buf[:m.next]...)

	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return append([]domain.TransactionOutcome(nil), ordered...), nil
}

// Len returns the number of stored outcomes.
func (m *MemoryLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.full {
		return len(m.buf)
	}
	return m.next
}

func (m *MemoryLog) Close() error { return nil }
