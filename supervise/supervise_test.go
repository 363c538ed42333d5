package supervise

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoRestartsFailedTask(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := NewStatus()
	var runs atomic.Int32
	done := make(chan struct{})

	Go(ctx, status, "flaky", func(ctx context.Context) error {
		n := runs.Add(1)
		if n < 3 {
			return errors.New("boom")
		}
		close(done)
		<-ctx.Done()
		return ctx.Err()
	})

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("task not restarted to third run; runs=%d", runs.Load())
	}
	if !status.Running("flaky") {
		t.Error("status should report task running while blocked")
	}
	cancel()
}

func TestGoStopsOnNilReturn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	status := NewStatus()
	var runs atomic.Int32
	Go(ctx, status, "oneshot", func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	time.Sleep(200 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("task ran %d times after clean return, want 1", got)
	}
	if status.Running("oneshot") {
		t.Error("finished task should not report running")
	}
}

func TestStatusUnknownTask(t *testing.T) {
	if NewStatus().Running("nope") {
		t.Error("unknown task should not report running")
	}
}
