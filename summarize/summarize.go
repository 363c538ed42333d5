// Package summarize turns recent chat history into a short natural-language
// summary via Gemini. The workflow never surfaces an error to its caller: an
// empty store yields a fixed quiet-chat message and any failure degrades to a
// placeholder string carrying the error text.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/streamline/brain/store"
	"github.com/streamline/brain/telemetry"
)

// RecentLimit is the summarization window: the most recent N events.
const RecentLimit = 50

// QuietMessage is returned when there is nothing to summarize.
const QuietMessage = "Chat has been quiet. Nothing to report!"

const brainFreezePrefix = "AI Brain Freeze: "

// RecentSource reads recent chat history, newest first.
type RecentSource interface {
	Recent(ctx context.Context, limit int) ([]store.ChatEvent, error)
}

// Generator is a single blocking call to a text-generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service coordinates the fetch/render/generate workflow.
type Service struct {
	Events  RecentSource
	Gen     Generator
	Timeout time.Duration // bound on the whole workflow; 0 means 20s
}

// Summarize fetches up to RecentLimit events and asks the generator for a summary.
// It always returns a human-readable string, never an error.
func (s *Service) Summarize(ctx context.Context) string {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "summarize", "summarize.recent-chat")
	defer span.End()

	events, err := s.Events.Recent(ctx, RecentLimit)
	if err != nil {
		telemetry.RecordError(span, err)
		return s.freeze(err)
	}
	if len(events) == 0 {
		return QuietMessage
	}

	prompt := BuildPrompt(RenderChatLog(events))
	var out string
	var genErr error
	telemetry.TimeFunc(telemetry.SummaryDuration, func() {
		out, genErr = s.Gen.Generate(ctx, prompt)
	})
	if genErr != nil {
		telemetry.RecordError(span, genErr)
		return s.freeze(genErr)
	}
	return out
}

func (s *Service) freeze(err error) string {
	if telemetry.SummaryFailures != nil {
		telemetry.SummaryFailures.Inc()
	}
	slog.Warn("summary degraded", slog.Any("err", err))
	return brainFreezePrefix + err.Error()
}

// RenderChatLog renders events as "username: message" lines in chronological
// order. Input is newest first (the store contract), so it is read backwards.
func RenderChatLog(events []store.ChatEvent) string {
	lines := make([]string, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		lines = append(lines, events[i].Username+": "+events[i].MessageText)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt wraps a rendered chat log in the instructional template.
func BuildPrompt(chatLog string) string {
	return "You are a helpful assistant for a streamer. " +
		"Here is the chat log from the last few minutes. " +
		"Summarize what happened in 2-3 short, funny sentences. " +
		"Highlight if anyone subscribed or if there was drama.\n\n" +
		"CHAT LOG:\n" + chatLog
}

// GeminiClient implements Generator over the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGemini constructs a Gemini-backed generator for the given model.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Generate performs one completion call. No retry, no streaming.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
