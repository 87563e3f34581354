// Package session persists conversation sessions and their messages.
//
// A session carries a metadata document holding the retrieval mode and, in
// selected-text mode, the selected passage. Messages record both sides of
// the conversation along with the context references that grounded each
// assistant response.
package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message sender values.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Metadata keys.
const (
	MetaMode         = "mode"
	MetaSelectedText = "selected_text"
)

// DefaultMode is the retrieval mode for sessions created without one.
const DefaultMode = "full_book"

// Session is one conversation.
type Session struct {
	ID        uuid.UUID
	Title     string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Mode returns the session's retrieval mode, defaulting to DefaultMode.
func (s *Session) Mode() string {
	if m, ok := s.Metadata[MetaMode].(string); ok && m != "" {
		return m
	}
	return DefaultMode
}

// SelectedText returns the stored selection, or "" when none is set.
func (s *Session) SelectedText() string {
	t, _ := s.Metadata[MetaSelectedText].(string)
	return t
}

// Message is one turn of a conversation.
type Message struct {
	ID                uuid.UUID
	SessionID         uuid.UUID
	Sender            string
	Content           string
	ContextReferences json.RawMessage
	CreatedAt         time.Time
}
