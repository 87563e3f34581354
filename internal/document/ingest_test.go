package document

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libroai/libro/internal/embed"
	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/vector"
)

// hashEmbedder produces deterministic vectors from text, optionally
// degrading specific texts.
type hashEmbedder struct {
	degrade map[string]bool
}

func (h *hashEmbedder) Embed(ctx context.Context, text string, mode embed.Mode) (embed.Result, error) {
	results, err := h.EmbedBatch(ctx, []string{text}, mode)
	if err != nil {
		return embed.Result{}, err
	}
	return results[0], nil
}

func (h *hashEmbedder) EmbedBatch(_ context.Context, texts []string, _ embed.Mode) ([]embed.Result, error) {
	results := make([]embed.Result, len(texts))
	for i, text := range texts {
		if h.degrade[text] {
			results[i] = embed.Result{Vector: embed.ZeroVector(3), Degraded: true}
			continue
		}
		var sum float32
		for _, r := range text {
			sum += float32(r)
		}
		results[i] = embed.Result{Vector: []float32{sum, float32(len(text)), 1}}
	}
	return results, nil
}

// memQuerier is an in-memory document Querier.
type memQuerier struct {
	docs   map[uuid.UUID]Document
	chunks map[uuid.UUID][]Chunk
}

func newMemQuerier() *memQuerier {
	return &memQuerier{
		docs:   make(map[uuid.UUID]Document),
		chunks: make(map[uuid.UUID][]Chunk),
	}
}

func (m *memQuerier) InsertDocument(_ context.Context, d Document) error {
	m.docs[d.ID] = d
	return nil
}

func (m *memQuerier) GetDocument(_ context.Context, id uuid.UUID) (Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return Document{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memQuerier) ListDocuments(context.Context) ([]Document, error) {
	out := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *memQuerier) UpdateDocumentStatus(_ context.Context, id uuid.UUID, status string) error {
	d, ok := m.docs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	d.Status = status
	m.docs[id] = d
	return nil
}

func (m *memQuerier) DeleteDocument(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	delete(m.chunks, id)
	return true, nil
}

func (m *memQuerier) InsertChunks(_ context.Context, chunks []Chunk) error {
	for _, c := range chunks {
		m.chunks[c.DocumentID] = append(m.chunks[c.DocumentID], c)
	}
	return nil
}

func newTestIngestor(q Querier, e embed.Client, idx vector.Index) *Ingestor {
	return NewIngestor(q, e, idx, 100, log.NewNop())
}

func longContent(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		fmt.Fprintf(&b, "Sentence number %d talks about the plot. ", i)
	}
	return b.String()
}

func TestIngestIndexesDocument(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	idx := vector.NewMemory()
	ing := newTestIngestor(q, &hashEmbedder{}, idx)

	doc, err := ing.Ingest(ctx, "My Book", longContent(10), SourceFullText)
	require.NoError(t, err)

	assert.Equal(t, StatusIndexed, doc.Status)
	assert.Equal(t, StatusIndexed, q.docs[doc.ID].Status)

	chunks := q.chunks[doc.ID]
	require.NotEmpty(t, chunks)
	assert.Equal(t, ChunkID(doc.ID, 0), chunks[0].ID)
	assert.Equal(t, len(chunks), idx.Len())

	// Indexed points carry the document title for fallback messages.
	hits, err := idx.Search(ctx, []float32{1, 1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "My Book", hits[0].Title)
	assert.Equal(t, doc.ID.String(), hits[0].DocumentID)
}

func TestIngestIsIdempotentInIndex(t *testing.T) {
	ctx := context.Background()
	idx := vector.NewMemory()
	ing := newTestIngestor(newMemQuerier(), &hashEmbedder{}, idx)

	doc, err := ing.Ingest(ctx, "Book", longContent(5), "")
	require.NoError(t, err)
	before := idx.Len()

	// Re-upserting the same chunk IDs must overwrite, not duplicate.
	require.NoError(t, ing.indexDocument(ctx, doc))
	assert.Equal(t, before, idx.Len())
}

func TestIngestSkipsDegradedEmbeddings(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	idx := vector.NewMemory()

	content := longContent(10)
	// The embedder degrades whichever chunk starts with the first sentence.
	ing := NewIngestor(q, &selectiveEmbedder{degradePrefix: "Sentence number 0"}, idx, 100, log.NewNop())

	doc, err := ing.Ingest(ctx, "Book", content, "")
	require.NoError(t, err)

	assert.Equal(t, StatusIndexed, doc.Status)
	chunks := q.chunks[doc.ID]
	require.NotEmpty(t, chunks)
	// Chunks all persisted, but the degraded one is missing from the index.
	assert.Equal(t, len(chunks)-1, idx.Len())
}

// selectiveEmbedder degrades texts with a given prefix.
type selectiveEmbedder struct {
	degradePrefix string
}

func (s *selectiveEmbedder) Embed(ctx context.Context, text string, mode embed.Mode) (embed.Result, error) {
	results, _ := s.EmbedBatch(ctx, []string{text}, mode)
	return results[0], nil
}

func (s *selectiveEmbedder) EmbedBatch(_ context.Context, texts []string, _ embed.Mode) ([]embed.Result, error) {
	results := make([]embed.Result, len(texts))
	for i, text := range texts {
		if strings.HasPrefix(text, s.degradePrefix) {
			results[i] = embed.Result{Vector: embed.ZeroVector(3), Degraded: true}
		} else {
			results[i] = embed.Result{Vector: []float32{float32(len(text)), 1, 1}}
		}
	}
	return results, nil
}

func TestIngestValidation(t *testing.T) {
	ctx := context.Background()
	ing := newTestIngestor(newMemQuerier(), &hashEmbedder{}, vector.NewMemory())

	_, err := ing.Ingest(ctx, "", "content", "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = ing.Ingest(ctx, "title", "   ", "")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = ing.Ingest(ctx, "title", "content", "web-scrape")
	assert.ErrorIs(t, err, ErrInvalidSourceType)
}

func TestDeleteRemovesVectors(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	idx := vector.NewMemory()
	ing := newTestIngestor(q, &hashEmbedder{}, idx)

	doc, err := ing.Ingest(ctx, "Book", longContent(5), "")
	require.NoError(t, err)
	require.NotZero(t, idx.Len())

	require.NoError(t, ing.Delete(ctx, doc.ID))

	assert.Zero(t, idx.Len())
	assert.Empty(t, q.docs)

	assert.ErrorIs(t, ing.Delete(ctx, doc.ID), ErrDocumentNotFound)
}

func TestGetNotFound(t *testing.T) {
	ing := newTestIngestor(newMemQuerier(), &hashEmbedder{}, vector.NewMemory())

	_, err := ing.Get(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
