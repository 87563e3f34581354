package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/libroai/libro/internal/document"
)

func (q *Queries) InsertDocument(ctx context.Context, d document.Document) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO documents (id, title, content, source_type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.Title, d.Content, d.SourceType, d.Status, d.CreatedAt)
	return err
}

func (q *Queries) GetDocument(ctx context.Context, id uuid.UUID) (document.Document, error) {
	var d document.Document
	err := q.db.QueryRow(ctx, `
		SELECT id, title, content, source_type, status, created_at
		FROM documents
		WHERE id = $1`, id).
		Scan(&d.ID, &d.Title, &d.Content, &d.SourceType, &d.Status, &d.CreatedAt)
	return d, err
}

func (q *Queries) ListDocuments(ctx context.Context) ([]document.Document, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, title, content, source_type, status, created_at
		FROM documents
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		var d document.Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.SourceType, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (q *Queries) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := q.db.Exec(ctx, `
		UPDATE documents SET status = $2 WHERE id = $1`,
		id, status)
	return err
}

func (q *Queries) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) InsertChunks(ctx context.Context, chunks []document.Chunk) error {
	for _, c := range chunks {
		_, err := q.db.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, chunk_order, content)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content`,
			c.ID, c.DocumentID, c.Order, c.Content)
		if err != nil {
			return err
		}
	}
	return nil
}
