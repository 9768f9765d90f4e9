package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"
)

// SharedBucket is the client id used for malformed ids.
const SharedBucket = "_shared"

const maxClientIDLen = 256

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1 when rejected.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// SlidingWindow enforces quota requests per window per client.
// Timestamps are kept in arrival order, so the oldest is always at index 0.
type SlidingWindow struct {
	window time.Duration
	quota  int
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
}

// SlidingOption configures a SlidingWindow.
type SlidingOption func(*SlidingWindow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SlidingOption {
	return func(s *SlidingWindow) {
		s.now = now
	}
}

// NewSlidingWindow creates a limiter. Non-positive arguments fall back to 60s / 15.
func NewSlidingWindow(window time.Duration, quota int, opts ...SlidingOption) *SlidingWindow {
	if window <= 0 {
		window = 60 * time.Second
	}
	if quota <= 0 {
		quota = 15
	}

	s := &SlidingWindow{
		window:  window,
		quota:   quota,
		now:     time.Now,
		clients: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckAndRecord admits or rejects one request for clientID. It never fails;
// malformed ids are folded into a single shared bucket.
func (s *SlidingWindow) CheckAndRecord(clientID string) Decision {
	key := normalizeClientID(clientID)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stamps := purge(s.clients[key], now.Add(-s.window))

	if len(stamps) >= s.quota {
		s.clients[key] = stamps
		retry := stamps[0].Add(s.window).Sub(now)
		if retry <= 0 {
			retry = time.Millisecond
		}
		return Decision{Allowed: false, RetryAfter: retry}
	}

	s.clients[key] = append(stamps, now)
	return Decision{Allowed: true}
}

// Prune drops expired timestamps and forgets idle clients.
func (s *SlidingWindow) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	removed := 0
	for id, stamps := range s.clients {
		stamps = purge(stamps, cutoff)
		if len(stamps) == 0 {
			delete(s.clients, id)
			removed++
			continue
		}
		s.clients[id] = stamps
	}
	return removed
}

// Clients returns the number of tracked clients.
func (s *SlidingWindow) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Start runs Prune every interval until ctx is done.
func (s *SlidingWindow) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.window
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Prune()
			}
		}
	}()
}

// purge drops timestamps at or before cutoff, reusing the backing array.
func purge(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

func normalizeClientID(id string) string {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" || len(trimmed) > maxClientIDLen {
		return SharedBucket
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return SharedBucket
		}
	}
	return trimmed
}
