// Command brain is the StreamLine relay entrypoint.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts supervised platform listeners (Twitch IRC, YouTube live chat
//     polling) and centralized OAuth token refreshers.
//   - Exposes the HTTP API: status, health, summarize, broadcast, diagnostics,
//     OAuth re-auth, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/joho/godotenv"

	"github.com/streamline/brain/broadcast"
	"github.com/streamline/brain/config"
	"github.com/streamline/brain/db"
	"github.com/streamline/brain/oauth"
	"github.com/streamline/brain/server"
	"github.com/streamline/brain/store"
	"github.com/streamline/brain/summarize"
	"github.com/streamline/brain/supervise"
	"github.com/streamline/brain/telemetry"
	"github.com/streamline/brain/twitchapi"
	"github.com/streamline/brain/twitchchat"
	"github.com/streamline/brain/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("streamline-brain", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	// DB
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()
	if err := db.Migrate(context.Background(), database); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := &store.Store{DB: database}
	tokens := &db.TokenStoreAdapter{DB: database}
	ytService := youtubeapi.New(cfg, tokens)

	// Twitch token: env var for quick setups, oauth_tokens row once the
	// interactive /auth/twitch flow has run.
	twitchToken := func(tctx context.Context) (string, error) {
		if cfg.TwitchOAuthToken != "" {
			return cfg.TwitchOAuthToken, nil
		}
		access, _, _, _, err := db.GetOAuthToken(tctx, database, "twitch")
		if err != nil {
			return "", err
		}
		if access == "" {
			return "", errors.New("no twitch token: set TWITCH_OAUTH_TOKEN or visit /auth/twitch/start")
		}
		return access, nil
	}
	twitchSession := &twitchchat.Session{
		Channel:  cfg.TwitchChannel,
		Username: cfg.TwitchBotUsername,
		Token:    twitchToken,
		Events:   events,
	}

	// Supervised listeners
	listeners := supervise.NewStatus()
	if err := cfg.ValidateTwitchReady(); err == nil {
		supervise.Go(ctx, listeners, "twitch", twitchSession.Run)
	} else {
		slog.Info("twitch listener disabled", slog.Any("reason", err))
	}
	if err := cfg.ValidateYouTubeReady(); err == nil && cfg.YTVideoID != "" {
		ytListener := &youtubeapi.Listener{
			API:      ytService,
			VideoID:  cfg.YTVideoID,
			Events:   events,
			Interval: cfg.YTPollInterval,
		}
		supervise.Go(ctx, listeners, "youtube", ytListener.Run)
	} else {
		slog.Info("youtube listener idle", slog.String("video_id", cfg.YTVideoID))
	}

	// Centralized OAuth token refreshers
	oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		res, err := twitchapi.RefreshToken(rctx, cfg.TwitchClientID, cfg.TwitchClientSecret, refreshToken)
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), strings.Join(res.Scope, " "), nil
	})
	oauth.StartRefresher(ctx, database, "youtube", 10*time.Minute, 20*time.Minute, func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		if cfg.YTClientID == "" {
			return "", "", time.Time{}, "", errors.New("youtube oauth not configured")
		}
		oc := &oauth2.Config{ClientID: cfg.YTClientID, ClientSecret: cfg.YTClientSecret, Endpoint: google.Endpoint, RedirectURL: cfg.YTRedirectURI}
		newTok, err := oc.TokenSource(rctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return "", "", time.Time{}, "", err
		}
		return newTok.AccessToken, newTok.RefreshToken, newTok.Expiry, "", nil
	})

	// Summarizer
	deps := server.Deps{
		Cfg:         cfg,
		DB:          database,
		Events:      events,
		Broadcaster: &broadcast.Coordinator{Senders: senders(cfg, twitchSession, ytService)},
		Listeners:   listeners,
	}
	if err := cfg.ValidateSummarizerReady(); err != nil {
		slog.Warn("summarizer disabled", slog.Any("reason", err))
	} else {
		gemini, gerr := summarize.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if gerr != nil {
			slog.Error("gemini client init failed", slog.Any("err", gerr))
			os.Exit(1)
		}
		deps.Summarizer = &summarize.Service{Events: events, Gen: gemini}
	}
	if cfg.ValidateYouTubeReady() == nil {
		deps.Live = ytService
	}

	// HTTP server
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		if err := server.Start(ctx, server.NewHandlers(deps), addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()
	slog.Info("relay started", slog.String("addr", addr), slog.String("channel", cfg.TwitchChannel))

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}

// senders assembles the broadcast fan-out targets from whatever platforms are configured.
func senders(cfg *config.Config, session *twitchchat.Session, yt *youtubeapi.Service) []broadcast.Sender {
	var out []broadcast.Sender
	if cfg.ValidateTwitchReady() == nil {
		out = append(out, &broadcast.TwitchSender{Session: session})
	}
	if cfg.ValidateYouTubeReady() == nil {
		out = append(out, &broadcast.YouTubeSender{API: yt})
	}
	return out
}
