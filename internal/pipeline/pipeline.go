// Package pipeline runs a full retrieval-augmented chat turn: retrieve
// context, generate a grounded response, and shape the context into
// references for the caller.
//
// The pipeline completes every turn. Retrieval that yields nothing and
// generation that fails both degrade to textual answers inside their own
// layers, so there is no failure state to surface here.
package pipeline

import (
	"context"

	"github.com/libroai/libro/internal/generate"
	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/retrieve"
)

// snippetLimit caps reference snippets.
const snippetLimit = 200

// Reference points at the context behind a response. Snippets are truncated
// for transport; the full chunk stays in the document store.
type Reference struct {
	DocumentID      string  `json:"document_id"`
	ChunkID         string  `json:"chunk_id"`
	ContentSnippet  string  `json:"content_snippet"`
	SimilarityScore float32 `json:"similarity_score"`
}

// Retriever supplies grounding context for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, mode retrieve.Mode, selectedText string) []retrieve.ContextItem
}

// Generator produces a grounded answer from context and history.
type Generator interface {
	Generate(ctx context.Context, query string, items []retrieve.ContextItem, history []generate.Message) string
}

// Pipeline wires retrieval and generation into one turn.
type Pipeline struct {
	retriever Retriever
	generator Generator
	logger    log.Logger
}

// New creates a Pipeline.
func New(retriever Retriever, generator Generator, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		logger:    logger,
	}
}

// ProcessTurn runs one chat turn and returns the response text with the
// references that grounded it.
func (p *Pipeline) ProcessTurn(ctx context.Context, query string, mode retrieve.Mode, selectedText string, history []generate.Message) (string, []Reference) {
	items := p.retriever.Retrieve(ctx, query, mode, selectedText)
	p.logger.Debug("retrieved context", "mode", mode, "items", len(items))

	response := p.generator.Generate(ctx, query, items, history)

	references := make([]Reference, 0, len(items))
	for _, item := range items {
		references = append(references, Reference{
			DocumentID:      item.DocumentID,
			ChunkID:         item.ChunkID,
			ContentSnippet:  Snippet(item.Content),
			SimilarityScore: item.Score,
		})
	}
	return response, references
}

// Snippet returns the first 200 characters of content, with an ellipsis
// when truncated.
func Snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLimit {
		return content
	}
	return string(runes[:snippetLimit]) + "..."
}
