package vector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// PgQuerier is the database interface required by the pgvector index.
// *pgxpool.Pool satisfies it.
type PgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Pgvector stores points in the chunk_vectors table using the pgvector
// extension. It keeps the index in the same database as the documents, so a
// deployment without Qdrant still gets persistent search.
type Pgvector struct {
	db PgQuerier
}

// NewPgvector creates a pgvector-backed index. The chunk_vectors table is
// created by migrations.
func NewPgvector(db PgQuerier) *Pgvector {
	return &Pgvector{db: db}
}

var _ Index = (*Pgvector)(nil)

func (p *Pgvector) Upsert(ctx context.Context, points []Point) error {
	for _, pt := range points {
		_, err := p.db.Exec(ctx, `
			INSERT INTO chunk_vectors (point_id, document_id, chunk_id, title, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (point_id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				chunk_id = EXCLUDED.chunk_id,
				title = EXCLUDED.title,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			pt.ID, pt.DocumentID, pt.ChunkID, pt.Title, pt.Content, pgvector.NewVector(pt.Vector))
		if err != nil {
			return fmt.Errorf("upserting point %s: %w", pt.ID, err)
		}
	}
	return nil
}

func (p *Pgvector) Search(ctx context.Context, vec []float32, limit int) ([]Hit, error) {
	if limit < 1 {
		return nil, nil
	}

	// <=> is cosine distance; similarity = 1 - distance.
	rows, err := p.db.Query(ctx, `
		SELECT point_id, document_id, chunk_id, title, content,
		       1 - (embedding <=> $1) AS score
		FROM chunk_vectors
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("searching chunk vectors: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var score float64
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.ChunkID, &h.Title, &h.Content, &score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}
		h.Score = float32(score)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hits: %w", err)
	}
	return hits, nil
}

func (p *Pgvector) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE point_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	return nil
}

func (p *Pgvector) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := p.db.Exec(ctx,
		`DELETE FROM chunk_vectors WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("deleting vectors for document %s: %w", documentID, err)
	}
	return nil
}

func (p *Pgvector) DeleteAll(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `DELETE FROM chunk_vectors`)
	if err != nil {
		return fmt.Errorf("clearing chunk vectors: %w", err)
	}
	return nil
}
