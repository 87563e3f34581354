// Package vector provides similarity-search indexes over embedding vectors.
//
// Three backends implement the same Index interface: an external Qdrant
// collection, a pgvector table in PostgreSQL, and a process-local in-memory
// index. The Resilient wrapper composes a remote backend with the in-memory
// one so the rest of the system never sees an unavailable index.
package vector

import (
	"context"

	"github.com/google/uuid"
)

// Point is one indexed chunk.
type Point struct {
	// ID is the backend point identifier, deterministic per chunk
	// (see PointID), so re-upserting the same chunk overwrites in place.
	ID         string
	Vector     []float32
	DocumentID string
	ChunkID    string
	Title      string
	Content    string
}

// Hit is one search result, ordered by descending cosine similarity.
type Hit struct {
	ID         string
	DocumentID string
	ChunkID    string
	Title      string
	Content    string
	Score      float32
}

// Index stores points and answers nearest-neighbour queries.
type Index interface {
	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to limit hits ordered by descending similarity.
	Search(ctx context.Context, vec []float32, limit int) ([]Hit, error)

	// Delete removes points by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteByDocument removes every point belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// DeleteAll removes every point in the index.
	DeleteAll(ctx context.Context) error
}

// PointID derives a stable UUID for a chunk identifier. The same chunk ID
// always maps to the same point, which makes re-ingestion idempotent.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(chunkID)).String()
}
