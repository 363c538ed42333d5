// Package supervise runs long-lived background tasks (the platform listeners)
// as supervised goroutines: a task that returns an error is restarted with
// exponential backoff, and its up/down state is exposed for the health endpoint.
package supervise

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/streamline/brain/telemetry"
)

// Task is a long-lived unit of work. It should block until ctx is canceled or
// it fails; a nil return means the task finished on purpose and is not restarted.
type Task func(ctx context.Context) error

// Status tracks which supervised tasks are currently running.
type Status struct {
	mu      sync.RWMutex
	running map[string]bool
}

func NewStatus() *Status {
	return &Status{running: make(map[string]bool)}
}

// Running reports whether the named task is currently up.
func (s *Status) Running(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running[name]
}

func (s *Status) set(name string, up bool) {
	s.mu.Lock()
	s.running[name] = up
	s.mu.Unlock()
	telemetry.SetListenerUp(name, up)
}

// Go launches fn under supervision. Each failure is logged, counted, and
// followed by a backoff-delayed restart; a run that survives for a while
// resets the backoff.
func Go(ctx context.Context, status *Status, name string, fn Task) {
	go func() {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		b.MaxInterval = 2 * time.Minute
		for {
			if ctx.Err() != nil {
				return
			}
			status.set(name, true)
			started := time.Now()
			err := fn(ctx)
			status.set(name, false)
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				slog.Info("task finished", slog.String("task", name))
				return
			}
			// A run that lasted beyond the backoff ceiling counts as healthy.
			if time.Since(started) > b.MaxInterval {
				b.Reset()
			}
			wait := b.NextBackOff()
			slog.Error("task failed; restarting", slog.String("task", name), slog.Any("err", err), slog.Duration("backoff", wait))
			if telemetry.ListenerRestarts != nil {
				telemetry.ListenerRestarts.WithLabelValues(name).Inc()
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
}
