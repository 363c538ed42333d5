package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/streamline/brain/config"
	"github.com/streamline/brain/db"
	"github.com/streamline/brain/testutil"
)

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := db.Connect(""); err == nil {
		t.Error("expected error for empty DSN")
	}
}

func TestConnectUsesConfigDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	// sql.Open is lazy, so the default DSN yields a handle without a live server.
	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		t.Fatalf("Connect(%q) error: %v", cfg.DBDsn, err)
	}
	defer database.Close()
}

func TestOAuthTokenRoundtrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := db.UpsertOAuthToken(ctx, database, "test-provider", "at1", "rt1", exp, "chat:read"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	access, refresh, gotExp, scope, err := db.GetOAuthToken(ctx, database, "test-provider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if access != "at1" || refresh != "rt1" || scope != "chat:read" {
		t.Errorf("got (%q,%q,%q)", access, refresh, scope)
	}
	if !gotExp.Equal(exp) {
		t.Errorf("expiry = %v, want %v", gotExp, exp)
	}

	// Upsert replaces the row
	if err := db.UpsertOAuthToken(ctx, database, "test-provider", "at2", "rt2", exp, ""); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	access, _, _, _, err = db.GetOAuthToken(ctx, database, "test-provider")
	if err != nil {
		t.Fatalf("get after upsert: %v", err)
	}
	if access != "at2" {
		t.Errorf("access = %q, want at2", access)
	}
}

func TestGetOAuthTokenMissingProvider(t *testing.T) {
	database := testutil.SetupTestDB(t)
	access, refresh, _, _, err := db.GetOAuthToken(context.Background(), database, "nope")
	if err != nil {
		t.Fatalf("missing provider should not error: %v", err)
	}
	if access != "" || refresh != "" {
		t.Errorf("expected zero values, got (%q,%q)", access, refresh)
	}
}
