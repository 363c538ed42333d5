package youtubeapi

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	yt "google.golang.org/api/youtube/v3"

	"github.com/streamline/brain/store"
	"github.com/streamline/brain/telemetry"
)

// EventStore persists inbound chat events.
type EventStore interface {
	Insert(ctx context.Context, ev store.ChatEvent) error
}

// Listener polls the live chat of a configured video at a fixed interval and
// persists each message. With no video configured it stays idle for the
// process lifetime; that is a no-op, not an error.
type Listener struct {
	API      *Service
	VideoID  string
	Events   EventStore
	Interval time.Duration // fixed poll cadence; 0 means 500ms
}

// Run resolves the video's active live chat and polls it until the context is
// canceled. Fetch or persist failures return an error so the supervisor can
// restart the listener with backoff.
func (l *Listener) Run(ctx context.Context) error {
	if l.VideoID == "" {
		slog.Info("youtube listener idle: no YT_VIDEO_ID configured")
		return nil
	}
	interval := l.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	chatID, err := l.API.ResolveLiveChatID(rctx, l.VideoID)
	cancel()
	if err != nil {
		return fmt.Errorf("resolve live chat: %w", err)
	}
	slog.Info("youtube listener polling", slog.String("video_id", l.VideoID), slog.Duration("interval", interval))

	pageToken := ""
	for {
		lctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		page, err := l.API.ListChatMessages(lctx, chatID, pageToken)
		cancel()
		if err != nil {
			return fmt.Errorf("poll live chat: %w", err)
		}
		for _, item := range page.Items {
			ev := eventFromChatItem(item)
			if ev.MessageText == "" {
				continue
			}
			ictx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := l.Events.Insert(ictx, ev)
			cancel()
			if err != nil {
				return fmt.Errorf("persist youtube chat message: %w", err)
			}
			telemetry.CountIngest(store.PlatformYouTube)
		}
		pageToken = page.NextPageToken

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// eventFromChatItem converts a platform-native message to the common shape.
// Subscriber status is best-effort from the sponsor/member flag.
func eventFromChatItem(item *yt.LiveChatMessage) store.ChatEvent {
	ev := store.ChatEvent{Platform: store.PlatformYouTube}
	if item.Snippet != nil {
		ev.MessageText = item.Snippet.DisplayMessage
	}
	if item.AuthorDetails != nil {
		ev.Username = item.AuthorDetails.DisplayName
		ev.IsSubscriber = item.AuthorDetails.IsChatSponsor
	}
	return ev
}
