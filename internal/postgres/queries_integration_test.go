//go:build integration

package postgres_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libroai/libro/internal/document"
	"github.com/libroai/libro/internal/postgres"
	"github.com/libroai/libro/internal/session"
	"github.com/libroai/libro/internal/testutil"
)

func TestSessionQueries(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := t.Context()
	q := postgres.New(tdb.Pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	sess := session.Session{
		ID:        uuid.New(),
		Title:     "Session test",
		Metadata:  map[string]any{"mode": "full_book"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, q.InsertSession(ctx, sess))

	got, err := q.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Title, got.Title)
	assert.Equal(t, "full_book", got.Metadata["mode"])

	// Metadata update and touch both move updated_at.
	later := now.Add(time.Minute)
	require.NoError(t, q.UpdateSessionMetadata(ctx, sess.ID, map[string]any{"mode": "selected_text", "selected_text": "passage"}, later))
	got, err = q.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "selected_text", got.Metadata["mode"])
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	msg := session.Message{
		ID:                uuid.Must(uuid.NewV7()),
		SessionID:         sess.ID,
		Sender:            session.SenderUser,
		Content:           "what happens next?",
		ContextReferences: json.RawMessage(`[]`),
		CreatedAt:         now,
	}
	require.NoError(t, q.InsertMessage(ctx, msg))

	// Same created_at as the first message: the time-ordered id breaks
	// the tie so listing keeps submission order.
	reply := session.Message{
		ID:                uuid.Must(uuid.NewV7()),
		SessionID:         sess.ID,
		Sender:            session.SenderAssistant,
		Content:           "the hero returns home",
		ContextReferences: json.RawMessage(`[]`),
		CreatedAt:         now,
	}
	require.NoError(t, q.InsertMessage(ctx, reply))

	messages, err := q.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, msg.Content, messages[0].Content)
	assert.Equal(t, reply.Content, messages[1].Content)
	assert.JSONEq(t, "[]", string(messages[0].ContextReferences))

	sessions, err := q.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	// Delete cascades to messages.
	deleted, err := q.DeleteSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = q.DeleteSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	messages, err = q.ListMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDocumentQueries(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := t.Context()
	q := postgres.New(tdb.Pool)

	doc := document.Document{
		ID:         uuid.New(),
		Title:      "Moby-Dick",
		Content:    "Call me Ishmael.",
		SourceType: document.SourceFullText,
		Status:     document.StatusError,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, q.InsertDocument(ctx, doc))

	chunks := []document.Chunk{
		{ID: document.ChunkID(doc.ID, 0), DocumentID: doc.ID, Order: 0, Content: "Call me Ishmael."},
	}
	require.NoError(t, q.InsertChunks(ctx, chunks))

	// Re-inserting the same chunk IDs updates rather than fails.
	require.NoError(t, q.InsertChunks(ctx, chunks))

	require.NoError(t, q.UpdateDocumentStatus(ctx, doc.ID, document.StatusIndexed))

	got, err := q.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusIndexed, got.Status)
	assert.Equal(t, doc.Content, got.Content)

	docs, err := q.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	deleted, err := q.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = q.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}
