// Package broadcast fans a single operator message out to every connected
// platform sender. Outcomes are collected for logging and metrics only; a
// failed platform send never propagates to the caller.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamline/brain/telemetry"
	"github.com/streamline/brain/twitchchat"
	"github.com/streamline/brain/youtubeapi"
)

// Sender pushes one message into a platform's live chat.
type Sender interface {
	Platform() string
	Send(ctx context.Context, text string) error
}

// Result is one platform's outcome for a fan-out.
type Result struct {
	Platform string
	Err      error
}

// Coordinator fans out to all configured senders concurrently.
type Coordinator struct {
	Senders []Sender
	Timeout time.Duration // per-send bound; 0 means 10s
}

// Broadcast sends text to every platform and returns the per-platform results.
// It blocks until all sends finish; callers wanting fire-and-forget semantics
// run it on a detached goroutine with a request-independent context.
func (c *Coordinator) Broadcast(ctx context.Context, text string) []Result {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	results := make([]Result, len(c.Senders))
	var wg sync.WaitGroup
	for i, snd := range c.Senders {
		wg.Add(1)
		go func(i int, snd Sender) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			err := snd.Send(sctx, text)
			results[i] = Result{Platform: snd.Platform(), Err: err}
			telemetry.CountBroadcast(snd.Platform(), err)
			if err != nil {
				slog.Warn("broadcast send failed", slog.String("platform", snd.Platform()), slog.Any("err", err))
			} else {
				slog.Info("broadcast sent", slog.String("platform", snd.Platform()))
			}
		}(i, snd)
	}
	wg.Wait()
	return results
}

// TwitchSender submits through the persistent authenticated chat session.
type TwitchSender struct {
	Session *twitchchat.Session
}

func (t *TwitchSender) Platform() string { return "twitch" }

func (t *TwitchSender) Send(ctx context.Context, text string) error {
	return t.Session.Say(ctx, text)
}

// YouTubeSender resolves the active broadcast's live chat and inserts the message.
type YouTubeSender struct {
	API *youtubeapi.Service
}

func (y *YouTubeSender) Platform() string { return "youtube" }

func (y *YouTubeSender) Send(ctx context.Context, text string) error {
	chatID, err := y.API.ActiveBroadcastChatID(ctx)
	if err != nil {
		return err
	}
	return y.API.SendChatMessage(ctx, chatID, text)
}
