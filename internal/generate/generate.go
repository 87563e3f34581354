// Package generate produces grounded answers from retrieved context.
//
// The generator builds a system instruction that confines the model to the
// supplied context, calls a hosted completion API, and maps every provider
// failure to a usable textual answer. A chat turn therefore always completes
// with a response, even when the provider is down or rate limited.
package generate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/retrieve"
)

// RefusalMessage is returned when no grounded answer can be given.
const RefusalMessage = "Information not found in the book"

// highDemandMessage is returned when the provider reports rate limiting.
const highDemandMessage = "I'm currently experiencing high demand. Please try again in a few moments. (API rate limit reached)"

// systemPromptHeader confines the model to the supplied context.
const systemPromptHeader = `You are an assistant that answers questions about the book.
Answer the user's question based ONLY on the information provided in the context below.
If the context does not contain relevant information to answer the question, respond with "Information not found in the book".
If the question is not related to the book, politely explain that you can only answer questions about the book.`

// Message is one turn of prior conversation passed to the model.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Request carries everything a completion backend needs for one call.
type Request struct {
	System      string
	History     []Message
	Query       string
	Temperature float32
}

// Completer is a hosted completion API. Implementations return the raw
// completion text or the provider's error untouched; failure policy lives
// in the Generator.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Generator produces grounded responses with a fixed failure policy.
type Generator struct {
	completer   Completer
	temperature float32
	limiter     *rate.Limiter
	logger      log.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRateLimiter throttles outbound completion calls.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(g *Generator) { g.limiter = limiter }
}

// New creates a Generator. Temperature is kept low for factual answers.
func New(completer Completer, temperature float32, logger log.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	g := &Generator{
		completer:   completer,
		temperature: temperature,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate answers a query using only the supplied context. It never returns
// an error; every failure degrades to a textual answer:
//
//  1. empty completion text: the refusal message
//  2. rate-limit or quota error: the high-demand message
//  3. other provider error with context available: the source titles with an
//     apology that full generation failed
//  4. other provider error without context: the refusal message
func (g *Generator) Generate(ctx context.Context, query string, items []retrieve.ContextItem, history []Message) string {
	req := Request{
		System:      buildSystemPrompt(items),
		History:     history,
		Query:       query,
		Temperature: g.temperature,
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.logger.Warn("rate limiter wait aborted", "error", err)
			return g.fallback(err, items)
		}
	}

	text, err := g.completer.Complete(ctx, req)
	if err != nil {
		g.logger.Warn("completion failed", "error", err)
		return g.fallback(err, items)
	}

	if strings.TrimSpace(text) == "" {
		return RefusalMessage
	}
	return text
}

func (g *Generator) fallback(err error, items []retrieve.ContextItem) string {
	if isRateLimit(err) {
		return highDemandMessage
	}

	if titles := sourceTitles(items, 3); len(titles) > 0 {
		return fmt.Sprintf(
			"I found relevant information in: %s. However, I couldn't generate a full response due to a temporary issue. Please try again.",
			strings.Join(titles, ", "))
	}

	return RefusalMessage
}

// buildSystemPrompt embeds all context content into the system instruction.
func buildSystemPrompt(items []retrieve.ContextItem) string {
	var parts []string
	for _, item := range items {
		if item.Content != "" {
			parts = append(parts, "Context: "+item.Content)
		}
	}

	var b strings.Builder
	b.WriteString(systemPromptHeader)
	b.WriteString("\n\nContext:\n")
	b.WriteString(strings.Join(parts, "\n\n"))
	return b.String()
}

// sourceTitles returns the non-empty titles of the first max context
// items. Only the top-ranked items are considered; a titled item further
// down the ranking does not count.
func sourceTitles(items []retrieve.ContextItem, max int) []string {
	if len(items) > max {
		items = items[:max]
	}
	var titles []string
	for _, item := range items {
		if item.Title != "" {
			titles = append(titles, item.Title)
		}
	}
	return titles
}
