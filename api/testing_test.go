package api

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/libroai/libro/internal/document"
	"github.com/libroai/libro/internal/generate"
	"github.com/libroai/libro/internal/pipeline"
	"github.com/libroai/libro/internal/retrieve"
	"github.com/libroai/libro/internal/session"
)

// fakeSessionStore is an in-memory SessionStore.
type fakeSessionStore struct {
	sessions        map[uuid.UUID]*session.Session
	messages        map[uuid.UUID][]session.Message
	failWrites      bool
	failReads       bool
	lastCreated     *session.Session
	metadataUpdates int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: make(map[uuid.UUID]*session.Session),
		messages: make(map[uuid.UUID][]session.Message),
	}
}

func (f *fakeSessionStore) Create(_ context.Context, title string, metadata map[string]any) (*session.Session, error) {
	if f.failWrites {
		return nil, errors.New("write failed")
	}
	id := uuid.New()
	if title == "" {
		title = "Session " + id.String()[:8]
	}
	if metadata == nil {
		metadata = map[string]any{session.MetaMode: session.DefaultMode}
	}
	now := time.Now().UTC()
	s := &session.Session{ID: id, Title: title, Metadata: metadata, CreatedAt: now, UpdatedAt: now}
	f.sessions[id] = s
	f.lastCreated = s
	return s, nil
}

func (f *fakeSessionStore) Get(_ context.Context, id uuid.UUID) (*session.Session, error) {
	if f.failReads {
		return nil, errors.New("read failed")
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) List(context.Context) ([]session.Session, error) {
	if f.failReads {
		return nil, errors.New("read failed")
	}
	out := make([]session.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionStore) UpdateMetadata(_ context.Context, id uuid.UUID, metadata map[string]any) error {
	if f.failWrites {
		return errors.New("write failed")
	}
	s, ok := f.sessions[id]
	if !ok {
		return session.ErrSessionNotFound
	}
	s.Metadata = metadata
	s.UpdatedAt = time.Now().UTC()
	f.metadataUpdates++
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.sessions[id]; !ok {
		return session.ErrSessionNotFound
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	return nil
}

func (f *fakeSessionStore) AddMessage(_ context.Context, sessionID uuid.UUID, sender, content string, _ any) (*session.Message, error) {
	if f.failWrites {
		return nil, errors.New("write failed")
	}
	m := session.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	f.messages[sessionID] = append(f.messages[sessionID], m)
	return &m, nil
}

func (f *fakeSessionStore) Messages(_ context.Context, sessionID uuid.UUID) ([]session.Message, error) {
	if f.failReads {
		return nil, errors.New("read failed")
	}
	return f.messages[sessionID], nil
}

// fakeTurnRunner records the last turn it was asked to run.
type fakeTurnRunner struct {
	response    string
	references  []pipeline.Reference
	lastQuery   string
	lastMode    retrieve.Mode
	lastText    string
	lastHistory []generate.Message
}

func (f *fakeTurnRunner) ProcessTurn(_ context.Context, query string, mode retrieve.Mode, selectedText string, history []generate.Message) (string, []pipeline.Reference) {
	f.lastQuery = query
	f.lastMode = mode
	f.lastText = selectedText
	f.lastHistory = history
	return f.response, f.references
}

// fakeDocumentService is an in-memory DocumentService.
type fakeDocumentService struct {
	docs      map[uuid.UUID]document.Document
	ingestErr error
}

func newFakeDocumentService() *fakeDocumentService {
	return &fakeDocumentService{docs: make(map[uuid.UUID]document.Document)}
}

func (f *fakeDocumentService) Ingest(_ context.Context, title, content, sourceType string) (*document.Document, error) {
	if title == "" {
		return nil, document.ErrEmptyTitle
	}
	if content == "" {
		return nil, document.ErrEmptyContent
	}
	if sourceType == "" {
		sourceType = document.SourceFullText
	}
	doc := document.Document{
		ID:         uuid.New(),
		Title:      title,
		Content:    content,
		SourceType: sourceType,
		Status:     document.StatusIndexed,
		CreatedAt:  time.Now().UTC(),
	}
	if f.ingestErr != nil {
		doc.Status = document.StatusError
		f.docs[doc.ID] = doc
		return &doc, f.ingestErr
	}
	f.docs[doc.ID] = doc
	return &doc, nil
}

func (f *fakeDocumentService) Get(_ context.Context, id uuid.UUID) (*document.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, document.ErrDocumentNotFound
	}
	return &doc, nil
}

func (f *fakeDocumentService) List(context.Context) ([]document.Document, error) {
	out := make([]document.Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDocumentService) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.docs[id]; !ok {
		return document.ErrDocumentNotFound
	}
	delete(f.docs, id)
	return nil
}
