package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/pipeline"
	"github.com/libroai/libro/internal/retrieve"
	"github.com/libroai/libro/internal/session"
)

func newChatMux(runner *fakeTurnRunner, store *fakeSessionStore) *http.ServeMux {
	mux := http.NewServeMux()
	NewChatHandler(runner, store, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func postChat(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestChatCreatesSessionWhenNoneGiven(t *testing.T) {
	runner := &fakeTurnRunner{response: "The answer.", references: []pipeline.Reference{
		{DocumentID: "doc-1", ChunkID: "doc-1_chunk_0", ContentSnippet: "snippet", SimilarityScore: 0.92},
	}}
	store := newFakeSessionStore()
	mux := newChatMux(runner, store)

	rec := postChat(t, mux, `{"message": "What happens in chapter one?"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "The answer.", resp.Response)
	require.Len(t, resp.ContextReferences, 1)
	assert.Equal(t, "doc-1", resp.ContextReferences[0].DocumentID)

	_, err := time.Parse(time.RFC3339, resp.Timestamp)
	assert.NoError(t, err)

	require.NotNil(t, store.lastCreated)
	assert.Equal(t, store.lastCreated.ID.String(), resp.SessionID)
	assert.Equal(t, "full_book", store.lastCreated.Metadata[session.MetaMode])

	assert.Equal(t, "What happens in chapter one?", runner.lastQuery)
	assert.Equal(t, retrieve.ModeFullBook, runner.lastMode)
}

func TestChatPersistsBothTurnMessages(t *testing.T) {
	runner := &fakeTurnRunner{response: "Grounded reply."}
	store := newFakeSessionStore()
	mux := newChatMux(runner, store)

	rec := postChat(t, mux, `{"message": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, store.lastCreated)
	messages := store.messages[store.lastCreated.ID]
	require.Len(t, messages, 2)
	assert.Equal(t, session.SenderUser, messages[0].Sender)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, session.SenderAssistant, messages[1].Sender)
	assert.Equal(t, "Grounded reply.", messages[1].Content)
}

func TestChatModeChangeUpdatesSessionMetadata(t *testing.T) {
	runner := &fakeTurnRunner{response: "ok"}
	store := newFakeSessionStore()
	sess, err := store.Create(t.Context(), "", nil)
	require.NoError(t, err)
	mux := newChatMux(runner, store)

	rec := postChat(t, mux, `{"session_id": "`+sess.ID.String()+`", "message": "explain this", "mode": "selected_text", "selected_text": "the passage"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, store.metadataUpdates)
	assert.Equal(t, "selected_text", sess.Metadata[session.MetaMode])
	assert.Equal(t, "the passage", sess.Metadata[session.MetaSelectedText])

	// Switching back clears the stored selection.
	rec = postChat(t, mux, `{"session_id": "`+sess.ID.String()+`", "message": "back to the whole book"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, store.metadataUpdates)
	assert.Equal(t, "full_book", sess.Metadata[session.MetaMode])
	assert.NotContains(t, sess.Metadata, session.MetaSelectedText)
}

func TestChatSameModeSkipsMetadataUpdate(t *testing.T) {
	runner := &fakeTurnRunner{response: "ok"}
	store := newFakeSessionStore()
	sess, err := store.Create(t.Context(), "", nil)
	require.NoError(t, err)
	mux := newChatMux(runner, store)

	rec := postChat(t, mux, `{"session_id": "`+sess.ID.String()+`", "message": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Zero(t, store.metadataUpdates)
}

func TestChatReusesExistingSessionAndPassesHistory(t *testing.T) {
	runner := &fakeTurnRunner{response: "Second answer."}
	store := newFakeSessionStore()
	sess, err := store.Create(t.Context(), "", nil)
	require.NoError(t, err)
	_, err = store.AddMessage(t.Context(), sess.ID, session.SenderUser, "first question", nil)
	require.NoError(t, err)
	_, err = store.AddMessage(t.Context(), sess.ID, session.SenderAssistant, "first answer", nil)
	require.NoError(t, err)

	mux := newChatMux(runner, store)
	rec := postChat(t, mux, `{"session_id": "`+sess.ID.String()+`", "message": "follow up"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, sess.ID.String(), resp.SessionID)

	require.Len(t, runner.lastHistory, 2)
	assert.Equal(t, session.SenderUser, runner.lastHistory[0].Role)
	assert.Equal(t, "first question", runner.lastHistory[0].Content)
	assert.Equal(t, session.SenderAssistant, runner.lastHistory[1].Role)
}

func TestChatUnknownSessionCreatesNewOne(t *testing.T) {
	runner := &fakeTurnRunner{response: "ok"}
	store := newFakeSessionStore()
	mux := newChatMux(runner, store)

	rec := postChat(t, mux, `{"session_id": "`+uuid.NewString()+`", "message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, store.lastCreated)
	assert.Equal(t, store.lastCreated.ID.String(), resp.SessionID)
}

func TestChatMalformedSessionIDCreatesNewOne(t *testing.T) {
	runner := &fakeTurnRunner{response: "ok"}
	store := newFakeSessionStore()
	mux := newChatMux(runner, store)

	rec := postChat(t, mux, `{"session_id": "not-a-uuid", "message": "hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, store.lastCreated)
}

func TestChatSelectedTextMode(t *testing.T) {
	runner := &fakeTurnRunner{response: "About the passage."}
	store := newFakeSessionStore()
	mux := newChatMux(runner, store)

	rec := postChat(t, mux, `{"message": "explain this", "mode": "selected_text", "selected_text": "Call me Ishmael."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, retrieve.ModeSelectedText, runner.lastMode)
	assert.Equal(t, "Call me Ishmael.", runner.lastText)

	require.NotNil(t, store.lastCreated)
	assert.Equal(t, "selected_text", store.lastCreated.Metadata[session.MetaMode])
	assert.Equal(t, "Call me Ishmael.", store.lastCreated.Metadata[session.MetaSelectedText])
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid JSON", body: `{`},
		{name: "missing message", body: `{}`},
		{name: "blank message", body: `{"message": "   "}`},
		{name: "message too long", body: `{"message": "` + strings.Repeat("a", MaxMessageLength+1) + `"}`},
		{name: "unknown mode", body: `{"message": "hi", "mode": "whole_library"}`},
		{name: "selected_text mode without selection", body: `{"message": "hi", "mode": "selected_text"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newChatMux(&fakeTurnRunner{}, newFakeSessionStore())
			rec := postChat(t, mux, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "invalid request", resp.Error)
		})
	}
}

func TestChatRespondsEvenWhenPersistenceFails(t *testing.T) {
	runner := &fakeTurnRunner{response: "still answered"}
	store := newFakeSessionStore()
	sess, err := store.Create(t.Context(), "", nil)
	require.NoError(t, err)
	store.failWrites = true

	mux := newChatMux(runner, store)
	rec := postChat(t, mux, `{"session_id": "`+sess.ID.String()+`", "message": "hi"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "still answered", resp.Response)
	assert.Empty(t, store.messages[sess.ID])
}

func TestHistoryReturnsMessagesInOrder(t *testing.T) {
	store := newFakeSessionStore()
	sess, err := store.Create(t.Context(), "", nil)
	require.NoError(t, err)
	_, err = store.AddMessage(t.Context(), sess.ID, session.SenderUser, "question", nil)
	require.NoError(t, err)
	_, err = store.AddMessage(t.Context(), sess.ID, session.SenderAssistant, "answer", nil)
	require.NoError(t, err)

	mux := newChatMux(&fakeTurnRunner{}, store)
	req := httptest.NewRequest(http.MethodGet, "/api/chat/"+sess.ID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SessionID string           `json:"session_id"`
		Messages  []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, sess.ID.String(), resp.SessionID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, session.SenderUser, resp.Messages[0].Sender)
	assert.Equal(t, "question", resp.Messages[0].Content)
	assert.Equal(t, json.RawMessage("[]"), resp.Messages[0].ContextReferences)
	assert.Equal(t, session.SenderAssistant, resp.Messages[1].Sender)
}

func TestHistoryUnknownSession(t *testing.T) {
	mux := newChatMux(&fakeTurnRunner{}, newFakeSessionStore())
	req := httptest.NewRequest(http.MethodGet, "/api/chat/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryInvalidSessionID(t *testing.T) {
	mux := newChatMux(&fakeTurnRunner{}, newFakeSessionStore())
	req := httptest.NewRequest(http.MethodGet, "/api/chat/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
