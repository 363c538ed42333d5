package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("YT_POLL_INTERVAL", "")
	t.Setenv("DB_DSN", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GeminiModel != "gemini-2.5-flash-lite" {
		t.Errorf("GeminiModel = %q, want default gemini-2.5-flash-lite", cfg.GeminiModel)
	}
	if cfg.YTPollInterval != 500*time.Millisecond {
		t.Errorf("YTPollInterval = %v, want 500ms default", cfg.YTPollInterval)
	}
	if cfg.DBDsn == "" {
		t.Error("expected default DB DSN, got empty")
	}
	if cfg.TwitchScopes != "chat:read chat:edit" {
		t.Errorf("TwitchScopes = %q, want chat bot default", cfg.TwitchScopes)
	}
}

func TestLoadPollIntervalOverride(t *testing.T) {
	t.Setenv("YT_POLL_INTERVAL", "2s")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.YTPollInterval != 2*time.Second {
		t.Errorf("YTPollInterval = %v, want 2s", cfg.YTPollInterval)
	}

	t.Setenv("YT_POLL_INTERVAL", "nonsense")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid YT_POLL_INTERVAL")
	}
}

func TestValidateTwitchReady(t *testing.T) {
	t.Setenv("TWITCH_CHANNEL", "chan")
	t.Setenv("TWITCH_BOT_USERNAME", "bot")
	cfg, _ := Load()
	if err := cfg.ValidateTwitchReady(); err != nil {
		t.Errorf("expected valid twitch config, got %v", err)
	}
	if err := os.Unsetenv("TWITCH_CHANNEL"); err != nil {
		t.Fatalf("failed to unset TWITCH_CHANNEL: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateTwitchReady(); err == nil {
		t.Errorf("expected error when missing twitch envs")
	}
}

func TestValidateSummarizerReady(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, _ := Load()
	if err := cfg.ValidateSummarizerReady(); err == nil {
		t.Error("expected error without GEMINI_API_KEY")
	}
	t.Setenv("GEMINI_API_KEY", "key")
	cfg, _ = Load()
	if err := cfg.ValidateSummarizerReady(); err != nil {
		t.Errorf("expected valid summarizer config, got %v", err)
	}
}
