// Package document manages ingested documents: persistence, chunking, and
// vector indexing.
//
// Ingestion is idempotent at the index level: chunk identifiers derive from
// the document ID and chunk order, and index point IDs derive from the chunk
// identifiers, so re-indexing a document overwrites its points in place.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source types for ingested documents.
const (
	SourceFullText      = "full-text"
	SourceUserSelection = "user-selection"
)

// Document statuses.
const (
	StatusIndexed = "indexed"
	StatusError   = "error"
)

// Sentinel errors checked with errors.Is().
var (
	// ErrDocumentNotFound indicates the requested document does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEmptyTitle indicates an ingestion request without a title.
	ErrEmptyTitle = errors.New("document title is empty")

	// ErrEmptyContent indicates an ingestion request without content.
	ErrEmptyContent = errors.New("document content is empty")

	// ErrInvalidSourceType indicates an unknown source type.
	ErrInvalidSourceType = errors.New("invalid source type")
)

// Document is one ingested text, immutable after creation.
type Document struct {
	ID         uuid.UUID
	Title      string
	Content    string
	SourceType string
	Status     string
	CreatedAt  time.Time
}

// Chunk is one stored piece of a document.
type Chunk struct {
	ID         string
	DocumentID uuid.UUID
	Order      int
	Content    string
}

// ChunkID builds the chunk identifier for a document and chunk order.
func ChunkID(documentID uuid.UUID, order int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, order)
}

// Querier defines the database operations the document layer depends on.
// *postgres.Queries implements this in production.
type Querier interface {
	InsertDocument(ctx context.Context, d Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error)
	InsertChunks(ctx context.Context, chunks []Chunk) error
}
