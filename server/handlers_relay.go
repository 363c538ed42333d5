package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/streamline/brain/store"
	"github.com/streamline/brain/telemetry"
)

const statusOnline = "StreamLine Brain is Online 🧠"

// HandleRoot is the liveness probe.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": statusOnline})
}

// HandleHealth reports component readiness: listener goroutines, the database,
// and the summarizer. Always 200; consumers inspect the fields.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{
		"twitch_listener":  h.listeners.Running("twitch"),
		"youtube_listener": h.listeners.Running("youtube"),
	}

	pctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.db == nil {
		resp["supabase"] = "error: no database"
	} else if err := h.db.PingContext(pctx); err != nil {
		resp["supabase"] = "error: " + err.Error()
	} else {
		resp["supabase"] = "connected"
	}

	if h.summarizer != nil {
		resp["gemini"] = "connected"
	} else {
		resp["gemini"] = "not configured"
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSummarize serves an on-demand chat summary. The summarizer degrades
// internally so this endpoint always answers 200 with a summary string.
func (h *Handlers) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if telemetry.SummaryRequests != nil {
		telemetry.SummaryRequests.Inc()
	}
	if h.summarizer == nil {
		writeJSON(w, http.StatusOK, map[string]string{"summary": "AI Brain Freeze: summarizer not configured"})
		return
	}
	summary := h.summarizer.Summarize(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type broadcastRequest struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

// HandleBroadcast accepts an operator message, persists it so it appears in
// the feed, and fans it out to the platforms on a detached goroutine. Platform
// send outcomes are logged and counted but never change the response; only a
// persist failure is an error.
func (h *Handlers) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	// Fan out independently of the request lifecycle so a slow platform
	// cannot delay the operator's app.
	if h.broadcaster != nil {
		bctx := telemetry.WithCorrelation(context.WithoutCancel(r.Context()), telemetry.GetCorrelation(r.Context()))
		go h.broadcaster.Broadcast(bctx, req.Message)
	}

	ev := store.ChatEvent{
		Username:     req.Username,
		MessageText:  req.Message,
		Platform:     store.PlatformStreamline,
		IsSubscriber: true, // the operator is always a sub
	}
	ictx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := h.events.Insert(ictx, ev); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("broadcast persist failed", "err", err)
		http.Error(w, "failed to persist broadcast", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "message": req.Message})
}

// HandleTestYouTube checks YouTube API connectivity and reports the number of
// active broadcasts for the authorized account.
func (h *Handlers) HandleTestYouTube(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.live == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "error": "youtube not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	n, err := h.live.ActiveBroadcastCount(ctx)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "active_streams": n})
}
