package server

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/streamline/brain/broadcast"
	"github.com/streamline/brain/config"
	"github.com/streamline/brain/store"
	"github.com/streamline/brain/supervise"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// Summarizer produces a chat summary; it degrades internally and never errors.
type Summarizer interface {
	Summarize(ctx context.Context) string
}

// Broadcaster fans a message out to every platform sender.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) []broadcast.Result
}

// EventStore persists chat events.
type EventStore interface {
	Insert(ctx context.Context, ev store.ChatEvent) error
}

// LiveDiagnostics reports on the authorized account's active broadcasts.
type LiveDiagnostics interface {
	ActiveBroadcastCount(ctx context.Context) (int, error)
}

// Deps holds everything the HTTP surface needs. Nil optional fields (Live,
// Summarizer) degrade the matching endpoints instead of panicking.
type Deps struct {
	Cfg         *config.Config
	DB          *sql.DB
	Events      EventStore
	Summarizer  Summarizer
	Broadcaster Broadcaster
	Live        LiveDiagnostics
	Listeners   *supervise.Status
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	cfg         *config.Config
	db          *sql.DB
	events      EventStore
	summarizer  Summarizer
	broadcaster Broadcaster
	live        LiveDiagnostics
	listeners   *supervise.Status

	stateStore map[string]time.Time
	stateMu    sync.RWMutex
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		cfg:         d.Cfg,
		db:          d.DB,
		events:      d.Events,
		summarizer:  d.Summarizer,
		broadcaster: d.Broadcaster,
		live:        d.Live,
		listeners:   d.Listeners,
		stateStore:  make(map[string]time.Time),
	}
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	// Clean expired states periodically to prevent unbounded growth
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	if len(h.stateStore) >= maxOAuthStates {
		// Refusing to add makes the OAuth flow fail rather than exhaust memory
		return
	}

	h.stateStore[state] = expiry
}

// consumeOAuthState validates and removes a state value, returning whether it
// was present and unexpired.
func (h *Handlers) consumeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return !time.Now().After(exp)
}
