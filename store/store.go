// Package store persists and reads ChatEvents, the one durable entity of the relay.
// Rows are immutable once written; created_at is assigned by the database so recency
// ordering follows the store's clock, not the writers'.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Platform tags for ChatEvent. PlatformStreamline marks messages originated by
// this system's own broadcast action.
const (
	PlatformTwitch     = "twitch"
	PlatformYouTube    = "youtube"
	PlatformStreamline = "streamline"
)

// ChatEvent is one observed chat message from any source.
type ChatEvent struct {
	Username     string    `json:"username"`
	MessageText  string    `json:"message_text"`
	Platform     string    `json:"platform"`
	IsSubscriber bool      `json:"is_subscriber"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store wraps CRUD against the chat_messages table.
type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

// Insert appends one event. The database assigns created_at and the row id.
func (s *Store) Insert(ctx context.Context, ev ChatEvent) error {
	if ev.Platform == "" {
		return fmt.Errorf("chat event platform empty")
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO chat_messages (username, message_text, platform, is_subscriber) VALUES ($1, $2, $3, $4)`,
		ev.Username, ev.MessageText, ev.Platform, ev.IsSubscriber)
	if err != nil {
		return fmt.Errorf("insert chat event: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]ChatEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT username, message_text, platform, is_subscriber, created_at
		 FROM chat_messages ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent chat events: %w", err)
	}
	defer rows.Close()
	var out []ChatEvent
	for rows.Next() {
		var ev ChatEvent
		if err := rows.Scan(&ev.Username, &ev.MessageText, &ev.Platform, &ev.IsSubscriber, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
