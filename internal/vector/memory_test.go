package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointIDDeterministic(t *testing.T) {
	a := PointID("doc-1_chunk_0")
	b := PointID("doc-1_chunk_0")
	c := PointID("doc-1_chunk_1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// Standard UUID string form.
	assert.Len(t, a, 36)
}

func TestMemoryUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	err := idx.Upsert(ctx, []Point{
		{ID: "p1", Vector: []float32{1, 0, 0}, DocumentID: "doc-1", ChunkID: "doc-1_chunk_0", Content: "alpha"},
		{ID: "p2", Vector: []float32{0, 1, 0}, DocumentID: "doc-1", ChunkID: "doc-1_chunk_1", Content: "beta"},
		{ID: "p3", Vector: []float32{0.9, 0.1, 0}, DocumentID: "doc-2", ChunkID: "doc-2_chunk_0", Content: "gamma"},
	})
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "p1", hits[0].ID)
	assert.Equal(t, "p3", hits[1].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "alpha", hits[0].Content)
	assert.Equal(t, "doc-1", hits[0].DocumentID)
}

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	p := Point{ID: "p1", Vector: []float32{1, 0}, DocumentID: "doc-1", ChunkID: "c0", Content: "v1"}
	require.NoError(t, idx.Upsert(ctx, []Point{p}))

	p.Content = "v2"
	require.NoError(t, idx.Upsert(ctx, []Point{p}))

	assert.Equal(t, 1, idx.Len())

	hits, err := idx.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v2", hits[0].Content)
}

func TestMemoryDeleteByID(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	require.NoError(t, idx.Upsert(ctx, []Point{
		{ID: "p1", Vector: []float32{1, 0}},
		{ID: "p2", Vector: []float32{0, 1}},
	}))

	require.NoError(t, idx.Delete(ctx, []string{"p1", "missing"}))
	assert.Equal(t, 1, idx.Len())

	require.NoError(t, idx.DeleteAll(ctx))
	assert.Zero(t, idx.Len())
}

func TestMemoryDeleteByDocument(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	require.NoError(t, idx.Upsert(ctx, []Point{
		{ID: "p1", Vector: []float32{1, 0}, DocumentID: "doc-1"},
		{ID: "p2", Vector: []float32{0, 1}, DocumentID: "doc-1"},
		{ID: "p3", Vector: []float32{1, 1}, DocumentID: "doc-2"},
	}))

	require.NoError(t, idx.DeleteByDocument(ctx, "doc-1"))

	assert.Equal(t, 1, idx.Len())
	hits, err := idx.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-2", hits[0].DocumentID)
}

func TestMemorySearchLimits(t *testing.T) {
	ctx := context.Background()
	idx := NewMemory()

	hits, err := idx.Search(ctx, []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// Zero vectors and mismatched lengths yield 0, not NaN.
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, cosine([]float32{1}, []float32{1, 1}))
	assert.Zero(t, cosine(nil, nil))
}
