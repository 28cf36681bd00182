package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/bridgefoundry/wbtc-bridge/bridge"
)

func TestShouldProcessNilLastError(t *testing.T) {
	g := New(DefaultConfig)
	if !g.ShouldProcess(nil, 0, time.Now()) {
		t.Fatal("expected ShouldProcess to be true when last_error_at is nil")
	}
}

func TestShouldProcessBackoffWindow(t *testing.T) {
	g := New(DefaultConfig)
	last := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	attempts := 3 // backoff = min(2^3, cap) = 8 minutes

	before := last.Add(8*time.Minute - time.Second)
	if g.ShouldProcess(&last, attempts, before) {
		t.Fatal("expected ShouldProcess to be false strictly before the backoff instant")
	}

	atInstant := last.Add(8 * time.Minute)
	if !g.ShouldProcess(&last, attempts, atInstant) {
		t.Fatal("expected ShouldProcess to be true at the backoff instant")
	}
}

func TestBackoffCapsAt24h(t *testing.T) {
	g := New(DefaultConfig)
	got := g.Backoff(40) // 2^40 minutes dwarfs the 24h cap
	if got != 24*time.Hour {
		t.Fatalf("Backoff(40) = %v, want 24h", got)
	}
}

func TestOnExceptionAccumulatesAndCaps(t *testing.T) {
	g := New(Config{MaxAttempts: 3, MaxBackoff: time.Hour})
	history := bridge.ExceptionHistory{}
	now := time.Now()

	out := g.OnException(history, errors.New("boom"), now)
	if out.Attempts != 1 || out.ForceMaxAttempts {
		t.Fatalf("unexpected first outcome: %+v", out)
	}

	out = g.OnException(out.ExceptionHistory, errors.New("boom"), now)
	out = g.OnException(out.ExceptionHistory, errors.New("boom"), now)
	if out.Attempts != 3 || !out.ForceMaxAttempts {
		t.Fatalf("expected max attempts to be forced: %+v", out)
	}
}

func TestOnSuccessClears(t *testing.T) {
	g := New(DefaultConfig)
	out := g.OnSuccess()
	if len(out.ExceptionHistory) != 0 || out.Attempts != 0 || out.LastErrorAt != nil {
		t.Fatalf("expected cleared outcome, got %+v", out)
	}
}
