package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/libroai/libro/internal/document"
	"github.com/libroai/libro/internal/log"
)

// MaxDocumentContentLength bounds ingested document size.
const MaxDocumentContentLength = 5 << 20 // 5 MiB

// DocumentService is the ingestion surface the document endpoints depend on.
// *document.Ingestor satisfies it.
type DocumentService interface {
	Ingest(ctx context.Context, title, content, sourceType string) (*document.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*document.Document, error)
	List(ctx context.Context) ([]document.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DocumentHandler handles document endpoints.
type DocumentHandler struct {
	service DocumentService
	logger  log.Logger
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(service DocumentService, logger log.Logger) *DocumentHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &DocumentHandler{service: service, logger: logger}
}

// RegisterRoutes registers document routes on the given mux.
func (h *DocumentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/documents", h.create)
	mux.HandleFunc("GET /api/documents", h.list)
	mux.HandleFunc("GET /api/documents/{id}", h.get)
	mux.HandleFunc("DELETE /api/documents/{id}", h.delete)
}

// IngestRequest is the request body for document ingestion.
type IngestRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
}

// IngestResponse is the response for document ingestion.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// create ingests a document. When the document row was created but indexing
// failed, the response still names the document with status "error" so the
// caller can retry or delete it.
func (h *DocumentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "request body must be valid JSON")
		return
	}
	if len(req.Content) > MaxDocumentContentLength {
		writeError(w, http.StatusBadRequest, "invalid request", "content too large")
		return
	}

	doc, err := h.service.Ingest(r.Context(), req.Title, req.Content, req.SourceType)
	if err != nil {
		switch {
		case errors.Is(err, document.ErrEmptyTitle),
			errors.Is(err, document.ErrEmptyContent),
			errors.Is(err, document.ErrInvalidSourceType):
			writeError(w, http.StatusBadRequest, "invalid request", err.Error())
			return
		case doc != nil:
			writeJSON(w, http.StatusCreated, IngestResponse{
				DocumentID: doc.ID.String(),
				Status:     doc.Status,
				Message:    "document stored but indexing failed",
			})
			return
		default:
			h.logger.Error("failed to ingest document", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error", "failed to ingest document")
			return
		}
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		DocumentID: doc.ID.String(),
		Status:     doc.Status,
		Message:    "document indexed",
	})
}

// DocumentSummary is one document in a listing, without its content.
type DocumentSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

func (h *DocumentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "failed to list documents")
		return
	}

	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentSummary{
			ID:         d.ID.String(),
			Title:      d.Title,
			SourceType: d.SourceType,
			Status:     d.Status,
			CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *DocumentHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "id must be a UUID")
		return
	}

	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "not found", "document not found")
			return
		}
		h.logger.Error("failed to get document", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          doc.ID.String(),
		"title":       doc.Title,
		"content":     doc.Content,
		"source_type": doc.SourceType,
		"status":      doc.Status,
		"created_at":  doc.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *DocumentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", "id must be a UUID")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			writeError(w, http.StatusNotFound, "not found", "document not found")
			return
		}
		h.logger.Error("failed to delete document", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
