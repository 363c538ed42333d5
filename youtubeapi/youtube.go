// Package youtubeapi wraps Google OAuth2 client config and the YouTube Data API
// for the relay's live chat needs: resolving a video's active live chat,
// polling its messages, and inserting broadcast messages. Tokens are persisted
// via the provided TokenStore interface so they can be refreshed and reused.
package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	yt "google.golang.org/api/youtube/v3"

	"github.com/streamline/brain/config"
)

const provider = "youtube"

type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, provider string, accessToken string, refreshToken string, expiry time.Time) error
	GetOAuthToken(ctx context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, err error)
}

type Service struct {
	cfg   *config.Config
	db    TokenStore
	oauth *oauth2.Config
}

func New(cfg *config.Config, ts TokenStore) *Service {
	scopes := []string{"https://www.googleapis.com/auth/youtube"}
	if cfg.YTScopes != "" {
		// allow comma or space separated
		s := strings.ReplaceAll(cfg.YTScopes, ",", " ")
		fields := strings.Fields(s)
		if len(fields) > 0 {
			scopes = fields
		}
	}
	oauth := &oauth2.Config{
		ClientID:     cfg.YTClientID,
		ClientSecret: cfg.YTClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.YTRedirectURI,
		Scopes:       scopes,
	}
	return &Service{cfg: cfg, db: ts, oauth: oauth}
}

func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	_ = s.db.UpsertOAuthToken(ctx, provider, tok.AccessToken, tok.RefreshToken, tok.Expiry)
	return tok, nil
}

// refreshIfNeeded implements the credential contract: within the expiry window
// with a refresh token present -> refresh; otherwise hand back what is stored
// (interactive re-auth via /auth/youtube/start is the fallback).
func (s *Service) refreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	access, refresh, expiry, err := s.db.GetOAuthToken(ctx, provider)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, errors.New("no youtube token stored")
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, Expiry: expiry}
	if time.Until(tok.Expiry) > 2*time.Minute {
		return tok, nil
	}
	ts := s.oauth.TokenSource(ctx, tok)
	newTok, err := ts.Token()
	if err != nil {
		return tok, err
	}
	_ = s.db.UpsertOAuthToken(ctx, provider, newTok.AccessToken, newTok.RefreshToken, newTok.Expiry)
	return newTok, nil
}

// Client returns an authorized YouTube Data API client.
func (s *Service) Client(ctx context.Context) (*yt.Service, error) {
	tok, err := s.refreshIfNeeded(ctx)
	if err != nil {
		return nil, err
	}
	client := s.oauth.Client(ctx, tok)
	return yt.New(client)
}

// ResolveLiveChatID resolves the active live chat attached to a video.
func (s *Service) ResolveLiveChatID(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("videoID empty")
	}
	svc, err := s.Client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].LiveStreamingDetails == nil {
		return "", fmt.Errorf("video %s has no live streaming details", videoID)
	}
	chatID := resp.Items[0].LiveStreamingDetails.ActiveLiveChatId
	if chatID == "" {
		return "", fmt.Errorf("video %s has no active live chat", videoID)
	}
	return chatID, nil
}

// ChatPage is one page of live chat messages plus the cursor for the next poll.
type ChatPage struct {
	Items         []*yt.LiveChatMessage
	NextPageToken string
}

// ListChatMessages fetches the next batch of messages after pageToken.
func (s *Service) ListChatMessages(ctx context.Context, liveChatID, pageToken string) (*ChatPage, error) {
	svc, err := s.Client(ctx)
	if err != nil {
		return nil, err
	}
	call := svc.LiveChatMessages.List(liveChatID, []string{"snippet", "authorDetails"}).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("liveChatMessages.list: %w", err)
	}
	return &ChatPage{Items: resp.Items, NextPageToken: resp.NextPageToken}, nil
}

// ActiveBroadcastChatID resolves the live chat of the authorized user's
// currently active broadcast. Used by the broadcast sender.
func (s *Service) ActiveBroadcastChatID(ctx context.Context) (string, error) {
	svc, err := s.Client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := svc.LiveBroadcasts.List([]string{"snippet"}).BroadcastStatus("active").BroadcastType("all").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("liveBroadcasts.list: %w", err)
	}
	for _, b := range resp.Items {
		if b.Snippet != nil && b.Snippet.LiveChatId != "" {
			return b.Snippet.LiveChatId, nil
		}
	}
	return "", errors.New("no active broadcast with a live chat")
}

// ActiveBroadcastCount returns how many broadcasts are currently active; diagnostic only.
func (s *Service) ActiveBroadcastCount(ctx context.Context) (int, error) {
	svc, err := s.Client(ctx)
	if err != nil {
		return 0, err
	}
	resp, err := svc.LiveBroadcasts.List([]string{"id"}).BroadcastStatus("active").BroadcastType("all").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("liveBroadcasts.list: %w", err)
	}
	return len(resp.Items), nil
}

// SendChatMessage inserts a text message into a live chat.
func (s *Service) SendChatMessage(ctx context.Context, liveChatID, text string) error {
	svc, err := s.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := svc.LiveChatMessages.Insert([]string{"snippet"}, newTextMessage(liveChatID, text)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("liveChatMessages.insert: %w", err)
	}
	return nil
}

// newTextMessage builds the insert payload for a plain text chat message.
func newTextMessage(liveChatID, text string) *yt.LiveChatMessage {
	return &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: liveChatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
}
