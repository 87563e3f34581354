package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/libroai/libro/internal/log"
)

// Querier defines the database operations the Store depends on.
// Interfaces are defined by the consumer; *postgres.Queries implements this
// in production and tests supply a mock.
type Querier interface {
	InsertSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	UpdateSessionMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any, updatedAt time.Time) error
	TouchSession(ctx context.Context, id uuid.UUID, updatedAt time.Time) error
	DeleteSession(ctx context.Context, id uuid.UUID) (bool, error)

	InsertMessage(ctx context.Context, m Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
}

// Store manages session persistence.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	querier Querier
	logger  log.Logger
}

// NewStore creates a session store.
func NewStore(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{querier: querier, logger: logger}
}

// Create creates a new session. An empty title gets a generated one from the
// session ID; nil metadata defaults to full-book mode.
func (s *Store) Create(ctx context.Context, title string, metadata map[string]any) (*Session, error) {
	id := uuid.New()
	if title == "" {
		title = "Session " + id.String()[:8]
	}
	if metadata == nil {
		metadata = map[string]any{MetaMode: DefaultMode}
	}
	if _, ok := metadata[MetaMode]; !ok {
		metadata[MetaMode] = DefaultMode
	}

	now := time.Now().UTC()
	sess := Session{
		ID:        id,
		Title:     title,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.querier.InsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return &sess, nil
}

// Get retrieves a session by ID, returning ErrSessionNotFound when absent.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.querier.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns all sessions, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Session, error) {
	sessions, err := s.querier.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// UpdateMetadata replaces a session's metadata document.
func (s *Store) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any) error {
	if err := s.querier.UpdateSessionMetadata(ctx, id, metadata, time.Now().UTC()); err != nil {
		return fmt.Errorf("updating session %s metadata: %w", id, err)
	}
	return nil
}

// Delete removes a session and its messages. Deleting an absent session
// returns ErrSessionNotFound.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.querier.DeleteSession(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if !deleted {
		return ErrSessionNotFound
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// AddMessage appends a message to a session and bumps the session's
// updated_at. contextRefs may be nil; any other value is stored as JSON.
func (s *Store) AddMessage(ctx context.Context, sessionID uuid.UUID, sender, content string, contextRefs any) (*Message, error) {
	if sender != SenderUser && sender != SenderAssistant {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSender, sender)
	}

	refs := json.RawMessage("[]")
	if contextRefs != nil {
		data, err := json.Marshal(contextRefs)
		if err != nil {
			return nil, fmt.Errorf("marshaling context references: %w", err)
		}
		refs = data
	}

	// Time-ordered ids keep the two messages of one turn in submission
	// order even when their created_at timestamps collide.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating message id: %w", err)
	}

	msg := Message{
		ID:                id,
		SessionID:         sessionID,
		Sender:            sender,
		Content:           content,
		ContextReferences: refs,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.querier.InsertMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("adding message to session %s: %w", sessionID, err)
	}

	if err := s.querier.TouchSession(ctx, sessionID, msg.CreatedAt); err != nil {
		s.logger.Warn("failed to touch session", "id", sessionID, "error", err)
	}
	return &msg, nil
}

// Messages returns a session's messages in chronological order.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	messages, err := s.querier.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages for session %s: %w", sessionID, err)
	}
	return messages, nil
}
