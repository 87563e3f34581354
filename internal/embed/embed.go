// Package embed turns text into fixed-dimension vectors for similarity search.
//
// Embedding failures degrade instead of propagating: a failed call yields a
// zero vector tagged Degraded, so callers can skip indexing or retrieval for
// that text while the rest of the pipeline keeps running.
package embed

import "context"

// Mode selects the embedding task type. Queries and documents are embedded
// asymmetrically so that short questions land near the long passages that
// answer them.
type Mode int

const (
	// ModeQuery embeds user queries.
	ModeQuery Mode = iota
	// ModeDocument embeds document chunks for indexing.
	ModeDocument
)

// TaskType returns the Gemini API task type for the mode.
func (m Mode) TaskType() string {
	if m == ModeDocument {
		return "RETRIEVAL_DOCUMENT"
	}
	return "RETRIEVAL_QUERY"
}

// Result is one embedding outcome. When Degraded is true the provider call
// failed and Vector is all zeros; such vectors must not be indexed or used
// for search.
type Result struct {
	Vector   []float32
	Degraded bool
}

// Client produces embeddings. Implementations return an error only for
// caller mistakes or context cancellation; provider failures come back as
// Degraded results.
type Client interface {
	Embed(ctx context.Context, text string, mode Mode) (Result, error)
	EmbedBatch(ctx context.Context, texts []string, mode Mode) ([]Result, error)
}

// ZeroVector returns an all-zero vector of the given dimension.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}
