package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// QdrantConfig configures a Qdrant REST client.
type QdrantConfig struct {
	URL        string // e.g. "http://localhost:6333" or a Qdrant Cloud URL
	APIKey     string // optional
	Collection string
	VectorSize int
	Timeout    time.Duration
}

// Qdrant talks to a Qdrant collection over its REST API.
type Qdrant struct {
	cfg    QdrantConfig
	client *http.Client
}

// NewQdrant creates a Qdrant client and ensures the collection exists with
// cosine distance. Connection problems surface here so callers can decide
// how to degrade.
func NewQdrant(ctx context.Context, cfg QdrantConfig) (*Qdrant, error) {
	if cfg.URL == "" || cfg.Collection == "" || cfg.VectorSize == 0 {
		return nil, errors.New("qdrant: URL, collection, and vector size are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	q := &Qdrant{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, fmt.Errorf("qdrant: ensuring collection %q: %w", cfg.Collection, err)
	}
	return q, nil
}

var _ Index = (*Qdrant)(nil)

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Result T            `json:"result"`
}

type qdrantStatus struct {
	State string `json:"status"`
	Error string `json:"error,omitempty"`
}

// Qdrant returns status as either the string "ok" or an object with an
// error field.
func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}

	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantScoredPoint struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]map[string]any, len(points))
	for i, p := range points {
		qpoints[i] = map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"document_id": p.DocumentID,
				"chunk_id":    p.ChunkID,
				"title":       p.Title,
				"content":     p.Content,
			},
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(q.cfg.Collection))

	var rsp qdrantEnvelope[json.RawMessage]
	if err := q.do(ctx, http.MethodPut, path, map[string]any{"points": qpoints}, &rsp); err != nil {
		return err
	}
	if !strings.EqualFold(rsp.Status.State, "ok") && rsp.Status.Error != "" {
		return errors.New(rsp.Status.Error)
	}
	return nil
}

func (q *Qdrant) Search(ctx context.Context, vec []float32, limit int) ([]Hit, error) {
	if limit < 1 {
		return nil, nil
	}

	req := map[string]any{
		"vector":       vec,
		"limit":        limit,
		"with_payload": true,
	}

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.cfg.Collection))

	var rsp qdrantEnvelope[[]qdrantScoredPoint]
	if err := q.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(rsp.Result))
	for _, p := range rsp.Result {
		hits = append(hits, Hit{
			ID:         p.ID,
			DocumentID: payloadString(p.Payload, "document_id"),
			ChunkID:    payloadString(p.Payload, "chunk_id"),
			Title:      payloadString(p.Payload, "title"),
			Content:    payloadString(p.Payload, "content"),
			Score:      float32(p.Score),
		})
	}
	return hits, nil
}

func (q *Qdrant) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return q.deletePoints(ctx, map[string]any{"points": ids})
}

func (q *Qdrant) DeleteByDocument(ctx context.Context, documentID string) error {
	return q.deletePoints(ctx, map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_id",
					"match": map[string]any{"value": documentID},
				},
			},
		},
	})
}

// DeleteAll clears the collection. An empty filter matches every point.
func (q *Qdrant) DeleteAll(ctx context.Context) error {
	return q.deletePoints(ctx, map[string]any{"filter": map[string]any{}})
}

func (q *Qdrant) deletePoints(ctx context.Context, req map[string]any) error {
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(q.cfg.Collection))

	var rsp qdrantEnvelope[json.RawMessage]
	if err := q.do(ctx, http.MethodPost, path, req, &rsp); err != nil {
		return err
	}
	if !strings.EqualFold(rsp.Status.State, "ok") && rsp.Status.Error != "" {
		return errors.New(rsp.Status.Error)
	}
	return nil
}

func (q *Qdrant) ensureCollection(ctx context.Context) error {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(q.cfg.Collection))

	var rsp qdrantEnvelope[json.RawMessage]
	err := q.do(ctx, http.MethodGet, path, nil, &rsp)
	if err == nil && strings.EqualFold(rsp.Status.State, "ok") {
		return nil
	}
	if err != nil && !strings.Contains(err.Error(), "404") {
		return err
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     q.cfg.VectorSize,
			"distance": "Cosine",
		},
	}
	var createRsp qdrantEnvelope[json.RawMessage]
	if err := q.do(ctx, http.MethodPut, path, req, &createRsp); err != nil {
		return err
	}
	if !strings.EqualFold(createRsp.Status.State, "ok") && createRsp.Status.Error != "" {
		return errors.New(createRsp.Status.Error)
	}
	return nil
}

func (q *Qdrant) do(ctx context.Context, method, path string, req, rsp any) error {
	var body io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, q.cfg.URL+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if q.cfg.APIKey != "" {
		request.Header.Set("api-key", q.cfg.APIKey)
		request.Header.Set("Authorization", "Bearer "+q.cfg.APIKey)
	}

	response, err := q.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("qdrant http %d: %s", response.StatusCode, string(payload))
	}

	if rsp != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, rsp); err != nil {
			return err
		}
	}
	return nil
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}
