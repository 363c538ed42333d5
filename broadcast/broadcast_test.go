package broadcast

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type stubSender struct {
	name  string
	err   error
	delay time.Duration
	calls atomic.Int32
	last  atomic.Value
}

func (s *stubSender) Platform() string { return s.name }

func (s *stubSender) Send(ctx context.Context, text string) error {
	s.calls.Add(1)
	s.last.Store(text)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestBroadcastFansOutToAllSenders(t *testing.T) {
	tw := &stubSender{name: "twitch"}
	ytb := &stubSender{name: "youtube"}
	c := &Coordinator{Senders: []Sender{tw, ytb}}

	results := c.Broadcast(context.Background(), "gg everyone")

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if tw.calls.Load() != 1 || ytb.calls.Load() != 1 {
		t.Errorf("sender calls = %d/%d, want 1/1", tw.calls.Load(), ytb.calls.Load())
	}
	if tw.last.Load() != "gg everyone" {
		t.Errorf("twitch sender got %v", tw.last.Load())
	}
}

func TestBroadcastCollectsFailuresWithoutEscalating(t *testing.T) {
	tw := &stubSender{name: "twitch", err: errors.New("not connected")}
	ytb := &stubSender{name: "youtube"}
	c := &Coordinator{Senders: []Sender{tw, ytb}}

	results := c.Broadcast(context.Background(), "hi")

	var twitchErr, youtubeErr error
	for _, r := range results {
		switch r.Platform {
		case "twitch":
			twitchErr = r.Err
		case "youtube":
			youtubeErr = r.Err
		}
	}
	if twitchErr == nil {
		t.Error("expected twitch result to carry the failure")
	}
	if youtubeErr != nil {
		t.Errorf("youtube should succeed independently, got %v", youtubeErr)
	}
}

func TestBroadcastSendsConcurrently(t *testing.T) {
	tw := &stubSender{name: "twitch", delay: 100 * time.Millisecond}
	ytb := &stubSender{name: "youtube", delay: 100 * time.Millisecond}
	c := &Coordinator{Senders: []Sender{tw, ytb}}

	start := time.Now()
	c.Broadcast(context.Background(), "hi")
	if d := time.Since(start); d > 180*time.Millisecond {
		t.Errorf("fan-out took %v; senders appear sequential", d)
	}
}

func TestBroadcastTimeoutBoundsSlowSender(t *testing.T) {
	slow := &stubSender{name: "twitch", delay: 5 * time.Second}
	c := &Coordinator{Senders: []Sender{slow}, Timeout: 50 * time.Millisecond}

	start := time.Now()
	results := c.Broadcast(context.Background(), "hi")
	if d := time.Since(start); d > time.Second {
		t.Fatalf("broadcast not bounded by timeout, took %v", d)
	}
	if results[0].Err == nil {
		t.Error("expected context deadline error for slow sender")
	}
}
