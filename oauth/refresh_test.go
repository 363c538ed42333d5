package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/streamline/brain/testutil"
)

func TestRefreshOnceOutsideWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)

	futureExpiry := time.Now().Add(1 * time.Hour)
	_, err := db.Exec(`INSERT INTO oauth_tokens (provider, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT(provider) DO UPDATE SET access_token=EXCLUDED.access_token, refresh_token=EXCLUDED.refresh_token, expires_at=EXCLUDED.expires_at`,
		"test-far", "access123", "refresh456", futureExpiry, "scope1")
	if err != nil {
		t.Fatalf("failed to insert test token: %v", err)
	}

	called := false
	refreshOnce(context.Background(), db, "test-far", 30*time.Minute, func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		called = true
		return "new", "new", time.Now().Add(2 * time.Hour), "", nil
	})
	if called {
		t.Error("refresh should not run for a token expiring in 1h with a 30m window")
	}
}

func TestRefreshOnceWithinWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)

	soonExpiry := time.Now().Add(5 * time.Minute)
	_, err := db.Exec(`INSERT INTO oauth_tokens (provider, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT(provider) DO UPDATE SET access_token=EXCLUDED.access_token, refresh_token=EXCLUDED.refresh_token, expires_at=EXCLUDED.expires_at`,
		"test-soon", "old-access", "old-refresh", soonExpiry, "scope1")
	if err != nil {
		t.Fatalf("failed to insert test token: %v", err)
	}

	newExpiry := time.Now().Add(2 * time.Hour)
	refreshOnce(context.Background(), db, "test-soon", 15*time.Minute, func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		if refreshToken != "old-refresh" {
			t.Errorf("refresh called with token %q, want old-refresh", refreshToken)
		}
		return "new-access", "new-refresh", newExpiry, "scope1", nil
	})

	var access, refresh string
	if err := db.QueryRow(`SELECT access_token, refresh_token FROM oauth_tokens WHERE provider='test-soon'`).Scan(&access, &refresh); err != nil {
		t.Fatalf("failed to read back token: %v", err)
	}
	if access != "new-access" || refresh != "new-refresh" {
		t.Errorf("token not rotated: access=%q refresh=%q", access, refresh)
	}
}

func TestRefreshOncePreservesRefreshTokenWhenOmitted(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := db.Exec(`INSERT INTO oauth_tokens (provider, access_token, refresh_token, expires_at, scope, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT(provider) DO UPDATE SET access_token=EXCLUDED.access_token, refresh_token=EXCLUDED.refresh_token, expires_at=EXCLUDED.expires_at`,
		"test-keep", "a", "keep-me", time.Now().Add(1*time.Minute), "")
	if err != nil {
		t.Fatalf("failed to insert test token: %v", err)
	}

	refreshOnce(context.Background(), db, "test-keep", 15*time.Minute, func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
		// Providers may omit the refresh token on rotation.
		return "b", "", time.Now().Add(1 * time.Hour), "", nil
	})

	var refresh string
	if err := db.QueryRow(`SELECT refresh_token FROM oauth_tokens WHERE provider='test-keep'`).Scan(&refresh); err != nil {
		t.Fatalf("failed to read back token: %v", err)
	}
	if refresh != "keep-me" {
		t.Errorf("refresh token = %q, want keep-me preserved", refresh)
	}
}

func TestJitteredBounds(t *testing.T) {
	interval := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := jittered(interval)
		if d < interval/2 || d > interval+interval/5 {
			t.Fatalf("jittered(%v) = %v out of bounds", interval, d)
		}
	}
}
