package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/libroai/libro/internal/session"
)

func (q *Queries) InsertSession(ctx context.Context, s session.Session) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO sessions (id, title, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Title, s.Metadata, s.CreatedAt, s.UpdatedAt)
	return err
}

func (q *Queries) GetSession(ctx context.Context, id uuid.UUID) (session.Session, error) {
	var s session.Session
	err := q.db.QueryRow(ctx, `
		SELECT id, title, metadata, created_at, updated_at
		FROM sessions
		WHERE id = $1`, id).
		Scan(&s.ID, &s.Title, &s.Metadata, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (q *Queries) ListSessions(ctx context.Context) ([]session.Session, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, title, metadata, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		var s session.Session
		if err := rows.Scan(&s.ID, &s.Title, &s.Metadata, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (q *Queries) UpdateSessionMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any, updatedAt time.Time) error {
	_, err := q.db.Exec(ctx, `
		UPDATE sessions
		SET metadata = $2, updated_at = $3
		WHERE id = $1`,
		id, metadata, updatedAt)
	return err
}

func (q *Queries) TouchSession(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	_, err := q.db.Exec(ctx, `
		UPDATE sessions SET updated_at = $2 WHERE id = $1`,
		id, updatedAt)
	return err
}

func (q *Queries) DeleteSession(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (q *Queries) InsertMessage(ctx context.Context, m session.Message) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO messages (id, session_id, sender, content, context_references, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SessionID, m.Sender, m.Content, []byte(m.ContextReferences), m.CreatedAt)
	return err
}

func (q *Queries) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]session.Message, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, session_id, sender, content, context_references, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []session.Message
	for rows.Next() {
		var m session.Message
		var refs []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Content, &refs, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.ContextReferences = refs
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
