// Package oauth provides generic token refresh scheduling for providers whose
// tokens are persisted in the oauth_tokens table. It performs jittered checks
// and refreshes when expiry falls within a configured window.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

// RefreshFunc performs provider-specific refresh and returns (access, refresh, expiry, scope).
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// StartRefresher launches a goroutine that periodically checks an oauth token row and refreshes it.
// provider: key in oauth_tokens table.
// interval: how often to wake up and check.
// window: refresh when remaining lifetime <= window.
func StartRefresher(ctx context.Context, db *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	go func() {
		// Randomize initial delay to spread load across instances.
		//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
		initial := time.Duration(rand.Int63n(int64(interval / 2)))
		if !sleepCtx(ctx, initial) {
			return
		}
		for {
			if !sleepCtx(ctx, jittered(interval)) {
				return
			}
			refreshOnce(ctx, db, provider, window, fn)
		}
	}()
}

// jittered returns interval +/- 20%, never below half the interval.
func jittered(interval time.Duration) time.Duration {
	r := int64(interval / 5)
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter
	d := interval + time.Duration(rand.Int63n(r*2)-r)
	if d < interval/2 {
		d = interval / 2
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func refreshOnce(ctx context.Context, db *sql.DB, provider string, window time.Duration, fn RefreshFunc) {
	row := db.QueryRowContext(ctx, `SELECT access_token, refresh_token, expires_at, scope FROM oauth_tokens WHERE provider=$1 LIMIT 1`, provider)
	var at, rt, scope string
	var exp time.Time
	if err := row.Scan(&at, &rt, &exp, &scope); err != nil {
		return
	}
	if rt == "" || time.Until(exp) > window {
		return
	}
	_ = at
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	newAT, newRT, newExp, newScope, err := fn(ctx2, rt)
	cancel()
	if err != nil {
		slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	if newRT == "" {
		newRT = rt
	}
	if newScope == "" {
		newScope = scope
	}
	_, err = db.ExecContext(ctx, `UPDATE oauth_tokens SET access_token=$1, refresh_token=$2, expires_at=$3, scope=$4, updated_at=NOW() WHERE provider=$5`,
		newAT, newRT, newExp, strings.TrimSpace(newScope), provider)
	if err != nil {
		slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
		return
	}
	slog.Info("token refreshed", slog.String("provider", provider))
}
