package vector

import (
	"context"
	"sync"

	"github.com/libroai/libro/internal/log"
)

// DialFunc attempts to connect to a remote index.
type DialFunc func(ctx context.Context) (Index, error)

// Resilient wraps a remote index with lazy connection and an in-memory
// fallback. The remote is dialed on first use; if that dial fails, the
// in-memory fallback is chosen for the life of the process. The choice is
// made exactly once so data can never end up split across two backends.
// Failed searches return no hits instead of an error, so chat never fails
// because the vector index is down. Write errors are returned to the
// caller, which records the document as not indexed.
type Resilient struct {
	mu       sync.Mutex
	dial     DialFunc
	active   Index
	fallback *Memory
	logger   log.Logger
}

// NewResilient creates a resilient index. dial may be nil, in which case
// only the in-memory fallback is used.
func NewResilient(dial DialFunc, logger log.Logger) *Resilient {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Resilient{
		dial:     dial,
		fallback: NewMemory(),
		logger:   logger,
	}
}

var _ Index = (*Resilient)(nil)

// backend returns the backing index, dialing the remote on first use.
// The result of the first dial attempt is sticky: a failure pins the
// in-memory fallback, a success pins the remote.
func (r *Resilient) backend(ctx context.Context) Index {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return r.active
	}
	if r.dial == nil {
		r.active = r.fallback
		return r.active
	}

	remote, err := r.dial(ctx)
	if err != nil {
		r.logger.Warn("remote vector index unavailable, using in-memory fallback", "error", err)
		r.active = r.fallback
		return r.active
	}
	r.logger.Info("connected to remote vector index")
	r.active = remote
	return r.active
}

func (r *Resilient) Upsert(ctx context.Context, points []Point) error {
	return r.backend(ctx).Upsert(ctx, points)
}

// Search never returns an error: an unreachable or failing backend yields
// zero hits and the caller proceeds without context.
func (r *Resilient) Search(ctx context.Context, vec []float32, limit int) ([]Hit, error) {
	hits, err := r.backend(ctx).Search(ctx, vec, limit)
	if err != nil {
		r.logger.Warn("vector search failed, returning no hits", "error", err)
		return nil, nil
	}
	return hits, nil
}

func (r *Resilient) Delete(ctx context.Context, ids []string) error {
	return r.backend(ctx).Delete(ctx, ids)
}

func (r *Resilient) DeleteAll(ctx context.Context) error {
	return r.backend(ctx).DeleteAll(ctx)
}

func (r *Resilient) DeleteByDocument(ctx context.Context, documentID string) error {
	return r.backend(ctx).DeleteByDocument(ctx, documentID)
}
