package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/fd1az/swap-aggregator/internal/apperror"
)

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 3
	cfg.Timeout = time.Hour

	var transitions []string
	cfg.OnStateChange = func(name, from, to string) {
		transitions = append(transitions, from+"->"+to)
	}

	cb := New[int](cfg)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected upstream error, got %v", i, err)
		}
	}

	if !cb.IsOpen() {
		t.Fatalf("expected open breaker, state=%s", cb.State())
	}

	called := false
	_, err := cb.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	if called {
		t.Error("open breaker must not invoke fn")
	}
	if !apperror.IsCode(err, apperror.CodeCircuitOpen) {
		t.Errorf("expected CIRCUIT_OPEN, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("unexpected transitions: %v", transitions)
	}
}

func TestCircuitBreaker_IsSuccessfulIgnoresErrors(t *testing.T) {
	cfg := DefaultConfig("ignore")
	cfg.ConsecutiveFailures = 1
	notFound := errors.New("not found")
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, notFound) }

	cb := New[string](cfg)
	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (string, error) { return "", notFound })
	}
	if cb.IsOpen() {
		t.Error("errors classified as successful must not trip the breaker")
	}
}

func TestCircuitBreaker_PassesValues(t *testing.T) {
	cb := New[string](DefaultConfig("values"))
	v, err := cb.Execute(func() (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("expected ok, got %q %v", v, err)
	}
	if cb.State() != "closed" {
		t.Errorf("expected closed, got %s", cb.State())
	}
}
