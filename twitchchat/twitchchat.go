// Package twitchchat owns the persistent Twitch IRC session. The same session
// is both the listener (inbound messages persisted as ChatEvents) and the
// sender used by the broadcast fan-out.
//
// Credentials: the IRC client requires a bot username and an OAuth token with
// chat:read/chat:edit scopes. The token is supplied by a TokenFunc so it can
// come from the environment or from the refreshed oauth_tokens table.
package twitchchat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/streamline/brain/store"
	"github.com/streamline/brain/telemetry"
)

// ErrNotConnected is returned by Say when no IRC session is live.
var ErrNotConnected = errors.New("twitch chat session not connected")

// TokenFunc supplies the bot's current OAuth token.
type TokenFunc func(ctx context.Context) (string, error)

// EventStore persists inbound chat events.
type EventStore interface {
	Insert(ctx context.Context, ev store.ChatEvent) error
}

// Session is a persistent authenticated chat session for one channel.
type Session struct {
	Channel  string
	Username string
	Token    TokenFunc
	Events   EventStore

	mu     sync.RWMutex
	client *twitch.Client
}

// Run connects to Twitch IRC and blocks until the context is canceled or the
// connection fails. It is intended to run under supervise.Go so a dropped
// connection is re-dialed with backoff (and a fresh token).
func (s *Session) Run(ctx context.Context) error {
	if s.Channel == "" || s.Username == "" {
		return fmt.Errorf("twitch session misconfigured: channel=%q username=%q", s.Channel, s.Username)
	}
	tok, err := s.Token(ctx)
	if err != nil {
		return fmt.Errorf("twitch token: %w", err)
	}
	client := twitch.NewClient(s.Username, normalizeToken(tok))

	client.OnConnect(func() {
		slog.Info("twitch chat connected; joining channel", slog.String("channel", s.Channel))
		client.Join(s.Channel)
	})
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		ev := eventFromMessage(msg)
		ictx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.Events.Insert(ictx, ev); err != nil {
			slog.Error("failed to persist twitch chat message", slog.Any("err", err))
			return
		}
		telemetry.CountIngest(store.PlatformTwitch)
	})

	s.setClient(client)
	defer s.setClient(nil)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Disconnect()
		case <-done:
		}
	}()

	if err := client.Connect(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("twitch chat connect: %w", err)
	}
	return nil
}

// Say submits a message to the channel over the live session.
func (s *Session) Say(ctx context.Context, text string) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return ErrNotConnected
	}
	client.Say(s.Channel, text)
	return nil
}

func (s *Session) setClient(c *twitch.Client) {
	s.mu.Lock()
	s.client = c
	s.mu.Unlock()
}

// eventFromMessage converts a platform-native message to the common shape.
// Subscriber status is best-effort from the subscriber/founder badges.
func eventFromMessage(msg twitch.PrivateMessage) store.ChatEvent {
	return store.ChatEvent{
		Username:     msg.User.DisplayName,
		MessageText:  msg.Message,
		Platform:     store.PlatformTwitch,
		IsSubscriber: msg.User.Badges["subscriber"] > 0 || msg.User.Badges["founder"] > 0,
	}
}

func normalizeToken(tok string) string {
	if tok == "" || strings.HasPrefix(tok, "oauth:") {
		return tok
	}
	return "oauth:" + tok
}
