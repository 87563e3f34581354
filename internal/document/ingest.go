package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/libroai/libro/internal/chunk"
	"github.com/libroai/libro/internal/embed"
	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/vector"
)

// Ingestor stores documents and feeds their chunks into the vector index.
type Ingestor struct {
	querier   Querier
	embedder  embed.Client
	index     vector.Index
	chunkSize int
	logger    log.Logger
}

// NewIngestor creates an Ingestor. A non-positive chunkSize falls back to
// the default chunk target size.
func NewIngestor(querier Querier, embedder embed.Client, index vector.Index, chunkSize int, logger log.Logger) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = chunk.DefaultTargetSize
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Ingestor{
		querier:   querier,
		embedder:  embedder,
		index:     index,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Ingest stores a document, chunks it, embeds the chunks, and indexes them.
// Chunks whose embedding degraded are persisted but not indexed; they become
// searchable on a later re-index. The returned document carries its final
// status.
func (ing *Ingestor) Ingest(ctx context.Context, title, content, sourceType string) (*Document, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	switch sourceType {
	case "":
		sourceType = SourceFullText
	case SourceFullText, SourceUserSelection:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}

	doc := Document{
		ID:         uuid.New(),
		Title:      title,
		Content:    content,
		SourceType: sourceType,
		Status:     StatusError,
		CreatedAt:  time.Now().UTC(),
	}
	if err := ing.querier.InsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}

	if err := ing.indexDocument(ctx, &doc); err != nil {
		ing.logger.Error("indexing document failed", "id", doc.ID, "error", err)
		if uerr := ing.querier.UpdateDocumentStatus(ctx, doc.ID, StatusError); uerr != nil {
			ing.logger.Warn("failed to record error status", "id", doc.ID, "error", uerr)
		}
		doc.Status = StatusError
		return &doc, fmt.Errorf("indexing document: %w", err)
	}

	if err := ing.querier.UpdateDocumentStatus(ctx, doc.ID, StatusIndexed); err != nil {
		return nil, fmt.Errorf("recording document status: %w", err)
	}
	doc.Status = StatusIndexed
	return &doc, nil
}

// indexDocument chunks document content, persists the chunks, and upserts
// their vectors.
func (ing *Ingestor) indexDocument(ctx context.Context, doc *Document) error {
	pieces := chunk.Split(doc.Content, ing.chunkSize)
	if len(pieces) == 0 {
		return ErrEmptyContent
	}

	chunks := make([]Chunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{
			ID:         ChunkID(doc.ID, p.Order),
			DocumentID: doc.ID,
			Order:      p.Order,
			Content:    p.Text,
		}
		texts[i] = p.Text
	}

	if err := ing.querier.InsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("storing chunks: %w", err)
	}

	results, err := ing.embedder.EmbedBatch(ctx, texts, embed.ModeDocument)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	points := make([]vector.Point, 0, len(chunks))
	degraded := 0
	for i, res := range results {
		if res.Degraded {
			degraded++
			continue
		}
		points = append(points, vector.Point{
			ID:         vector.PointID(chunks[i].ID),
			Vector:     res.Vector,
			DocumentID: doc.ID.String(),
			ChunkID:    chunks[i].ID,
			Title:      doc.Title,
			Content:    chunks[i].Content,
		})
	}
	if degraded > 0 {
		ing.logger.Warn("skipping degraded chunk embeddings",
			"document_id", doc.ID,
			"skipped", degraded,
			"total", len(chunks))
	}

	if len(points) > 0 {
		if err := ing.index.Upsert(ctx, points); err != nil {
			return fmt.Errorf("indexing chunks: %w", err)
		}
	}

	ing.logger.Info("indexed document",
		"id", doc.ID,
		"title", doc.Title,
		"chunks", len(chunks),
		"indexed", len(points))
	return nil
}

// Get retrieves a document by ID, returning ErrDocumentNotFound when absent.
func (ing *Ingestor) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc, err := ing.querier.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrDocumentNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("getting document %s: %w", id, err)
	}
	return &doc, nil
}

// List returns all documents, newest first.
func (ing *Ingestor) List(ctx context.Context) ([]Document, error) {
	docs, err := ing.querier.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document, its chunks, and its index points. The index is
// cleaned first so a failed database delete can be retried without leaving
// orphaned vectors behind.
func (ing *Ingestor) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ing.index.DeleteByDocument(ctx, id.String()); err != nil {
		ing.logger.Warn("failed to remove vectors for document", "id", id, "error", err)
	}

	deleted, err := ing.querier.DeleteDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if !deleted {
		return ErrDocumentNotFound
	}
	ing.logger.Info("deleted document", "id", id)
	return nil
}
