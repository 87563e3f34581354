// Package retrieve finds the context passages a response should be grounded
// on. It embeds the query, searches the vector index, and shapes the hits
// into context items; in selected-text mode it bypasses search entirely and
// treats the user's selection as the only context.
package retrieve

import (
	"context"

	"github.com/libroai/libro/internal/embed"
	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/vector"
)

// Mode selects the retrieval strategy for a chat turn.
type Mode string

const (
	// ModeFullBook searches the whole indexed corpus.
	ModeFullBook Mode = "full_book"
	// ModeSelectedText grounds the answer only on a passage the user selected.
	ModeSelectedText Mode = "selected_text"
)

// Valid reports whether m is a known retrieval mode.
func (m Mode) Valid() bool {
	return m == ModeFullBook || m == ModeSelectedText
}

// SelectedTextDocID is the sentinel document identifier for context that
// came from the user's selection rather than the index.
const SelectedTextDocID = "selected_text"

// ContextItem is one passage of grounding context.
type ContextItem struct {
	DocumentID string
	ChunkID    string
	Title      string
	Content    string
	Score      float32
}

// DefaultLimit is the number of context items returned per query.
const DefaultLimit = 5

// Retriever turns a query into grounding context.
type Retriever struct {
	embedder embed.Client
	index    vector.Index
	limit    int
	logger   log.Logger
}

// New creates a Retriever. A non-positive limit falls back to DefaultLimit.
func New(embedder embed.Client, index vector.Index, limit int, logger log.Logger) *Retriever {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		limit:    limit,
		logger:   logger,
	}
}

// Retrieve returns grounding context for a query. It never fails: any
// embedding or search problem yields an empty result, and the generator
// decides how to answer without context.
//
// In selected-text mode the selection is returned as the single context item
// with a perfect score.
func (r *Retriever) Retrieve(ctx context.Context, query string, mode Mode, selectedText string) []ContextItem {
	if mode == ModeSelectedText {
		if selectedText == "" {
			return nil
		}
		return []ContextItem{{
			DocumentID: SelectedTextDocID,
			ChunkID:    SelectedTextDocID,
			Content:    selectedText,
			Score:      1.0,
		}}
	}

	result, err := r.embedder.Embed(ctx, query, embed.ModeQuery)
	if err != nil {
		r.logger.Warn("query embedding failed, retrieving nothing", "error", err)
		return nil
	}
	if result.Degraded {
		r.logger.Warn("query embedding degraded, retrieving nothing")
		return nil
	}

	hits, err := r.index.Search(ctx, result.Vector, r.limit)
	if err != nil {
		r.logger.Warn("vector search failed, retrieving nothing", "error", err)
		return nil
	}

	items := make([]ContextItem, 0, len(hits))
	for _, h := range hits {
		items = append(items, ContextItem{
			DocumentID: h.DocumentID,
			ChunkID:    h.ChunkID,
			Title:      h.Title,
			Content:    h.Content,
			Score:      h.Score,
		})
	}
	return items
}
