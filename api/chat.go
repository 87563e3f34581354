package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/libroai/libro/internal/generate"
	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/pipeline"
	"github.com/libroai/libro/internal/retrieve"
	"github.com/libroai/libro/internal/session"
)

// MaxMessageLength bounds chat message size.
const MaxMessageLength = 10000

// TurnRunner runs one retrieval-augmented chat turn.
// *pipeline.Pipeline satisfies it.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, query string, mode retrieve.Mode, selectedText string, history []generate.Message) (string, []pipeline.Reference)
}

// SessionStore is the session persistence the chat endpoints depend on.
// *session.Store satisfies it.
type SessionStore interface {
	Create(ctx context.Context, title string, metadata map[string]any) (*session.Session, error)
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	List(ctx context.Context) ([]session.Session, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMessage(ctx context.Context, sessionID uuid.UUID, sender, content string, contextRefs any) (*session.Message, error)
	Messages(ctx context.Context, sessionID uuid.UUID) ([]session.Message, error)
}

// ChatHandler handles chat endpoints.
type ChatHandler struct {
	pipe   TurnRunner
	store  SessionStore
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(pipe TurnRunner, store SessionStore, logger log.Logger) *ChatHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ChatHandler{pipe: pipe, store: store, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("GET /api/chat/{session_id}", h.handleHistory)
}

// ChatRequest is the request body for a chat turn.
type ChatRequest struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	Mode         string `json:"mode"`
	SelectedText string `json:"selected_text"`
}

// ChatResponse is the response for a chat turn.
type ChatResponse struct {
	SessionID         string               `json:"session_id"`
	Response          string               `json:"response"`
	ContextReferences []pipeline.Reference `json:"context_references"`
	Timestamp         string               `json:"timestamp"`
}

// handleChat runs one chat turn. Persistence is best-effort: a failed write
// is logged and the generated response still goes out.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "request body must be valid JSON")
		return
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid request", "message is required")
		return
	}
	if len(req.Message) > MaxMessageLength {
		writeError(w, http.StatusBadRequest, "invalid request", "message too long")
		return
	}

	mode := retrieve.Mode(req.Mode)
	if req.Mode == "" {
		mode = retrieve.ModeFullBook
	}
	if !mode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid request", "mode must be full_book or selected_text")
		return
	}
	if mode == retrieve.ModeSelectedText && strings.TrimSpace(req.SelectedText) == "" {
		writeError(w, http.StatusBadRequest, "invalid request", "selected_text is required in selected_text mode")
		return
	}

	ctx := r.Context()
	sess, err := h.resolveSession(ctx, req, mode)
	if err != nil {
		h.logger.Error("failed to resolve session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "failed to resolve session")
		return
	}

	history := h.loadHistory(ctx, sess.ID)

	response, references := h.pipe.ProcessTurn(ctx, req.Message, mode, req.SelectedText, history)

	if _, err := h.store.AddMessage(ctx, sess.ID, session.SenderUser, req.Message, nil); err != nil {
		h.logger.Warn("failed to persist user message", "session_id", sess.ID, "error", err)
	}
	if _, err := h.store.AddMessage(ctx, sess.ID, session.SenderAssistant, response, references); err != nil {
		h.logger.Warn("failed to persist assistant message", "session_id", sess.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID:         sess.ID.String(),
		Response:          response,
		ContextReferences: references,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	})
}

// resolveSession finds the session for a turn, creating a fresh one when the
// request names no session or an unknown one.
func (h *ChatHandler) resolveSession(ctx context.Context, req ChatRequest, mode retrieve.Mode) (*session.Session, error) {
	if req.SessionID != "" {
		if id, err := uuid.Parse(req.SessionID); err == nil {
			sess, err := h.store.Get(ctx, id)
			if err == nil {
				h.syncMode(ctx, sess, mode, req.SelectedText)
				return sess, nil
			}
			if !errors.Is(err, session.ErrSessionNotFound) {
				return nil, err
			}
		}
		h.logger.Debug("unknown session, creating a new one", "session_id", req.SessionID)
	}

	metadata := map[string]any{session.MetaMode: string(mode)}
	if mode == retrieve.ModeSelectedText {
		metadata[session.MetaSelectedText] = req.SelectedText
	}
	return h.store.Create(ctx, "", metadata)
}

// syncMode updates the session metadata when a turn arrives with a mode or
// selection that differs from the stored one. Best-effort: a failed update
// is logged and the turn proceeds with the requested mode regardless.
func (h *ChatHandler) syncMode(ctx context.Context, sess *session.Session, mode retrieve.Mode, selectedText string) {
	storedMode, _ := sess.Metadata[session.MetaMode].(string)
	storedText, _ := sess.Metadata[session.MetaSelectedText].(string)

	if storedMode == string(mode) && (mode != retrieve.ModeSelectedText || storedText == selectedText) {
		return
	}

	metadata := make(map[string]any, len(sess.Metadata))
	for k, v := range sess.Metadata {
		metadata[k] = v
	}
	metadata[session.MetaMode] = string(mode)
	if mode == retrieve.ModeSelectedText {
		metadata[session.MetaSelectedText] = selectedText
	} else {
		delete(metadata, session.MetaSelectedText)
	}

	if err := h.store.UpdateMetadata(ctx, sess.ID, metadata); err != nil {
		h.logger.Warn("failed to update session mode", "session_id", sess.ID, "error", err)
		return
	}
	sess.Metadata = metadata
}

// loadHistory returns prior turns as completion messages. History is an
// enrichment; a load failure degrades to an empty history.
func (h *ChatHandler) loadHistory(ctx context.Context, sessionID uuid.UUID) []generate.Message {
	messages, err := h.store.Messages(ctx, sessionID)
	if err != nil {
		h.logger.Warn("failed to load history", "session_id", sessionID, "error", err)
		return nil
	}

	history := make([]generate.Message, 0, len(messages))
	for _, m := range messages {
		history = append(history, generate.Message{Role: m.Sender, Content: m.Content})
	}
	return history
}

// HistoryMessage is one message in a conversation history response.
type HistoryMessage struct {
	Sender            string          `json:"sender"`
	Content           string          `json:"content"`
	ContextReferences json.RawMessage `json:"context_references"`
	Timestamp         string          `json:"timestamp"`
}

// handleHistory returns a session's conversation history.
func (h *ChatHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("session_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "session_id must be a UUID")
		return
	}

	ctx := r.Context()
	if _, err := h.store.Get(ctx, id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not found", "session not found")
			return
		}
		h.logger.Error("failed to get session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "failed to get session")
		return
	}

	messages, err := h.store.Messages(ctx, id)
	if err != nil {
		h.logger.Error("failed to load messages", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "failed to load messages")
		return
	}

	out := make([]HistoryMessage, 0, len(messages))
	for _, m := range messages {
		refs := m.ContextReferences
		if len(refs) == 0 {
			refs = json.RawMessage("[]")
		}
		out = append(out, HistoryMessage{
			Sender:            m.Sender,
			Content:           m.Content,
			ContextReferences: refs,
			Timestamp:         m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id.String(),
		"messages":   out,
	})
}
