// Package postgres implements the database interfaces consumed by the
// session and document packages, backed by pgx.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/libroai/libro/internal/document"
	"github.com/libroai/libro/internal/session"
)

// DB is the subset of pgxpool.Pool the queries need.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Queries provides typed access to the libro schema.
type Queries struct {
	db DB
}

// New creates a Queries instance over a pool or transaction.
func New(db DB) *Queries {
	return &Queries{db: db}
}

var (
	_ session.Querier  = (*Queries)(nil)
	_ document.Querier = (*Queries)(nil)
)
