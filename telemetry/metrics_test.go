package telemetry

import (
	"context"
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register and panic
	if MessagesIngested == nil || BroadcastSends == nil || SummaryDuration == nil {
		t.Fatal("metrics not initialized")
	}
}

func TestCountersNilSafeBeforeInit(t *testing.T) {
	// Helpers must tolerate being called before Init in unit tests.
	CountIngest("twitch")
	CountBroadcast("youtube", nil)
	SetListenerUp("twitch", true)
}

func TestTimeFunc(t *testing.T) {
	d := TimeFunc(nil, func() { time.Sleep(5 * time.Millisecond) })
	if d < 5*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 5ms", d)
	}
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation(empty ctx) = %q, want empty", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
