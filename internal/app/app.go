// Package app provides application initialization and dependency wiring.
//
// Setup builds the full component graph from configuration: database pool,
// migrations, session store, embedder, vector index, retrieval, generation,
// pipeline, ingestor, and the HTTP server. Call Close to release resources.
package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/libroai/libro/api"
	"github.com/libroai/libro/internal/config"
	"github.com/libroai/libro/internal/document"
	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/pipeline"
	"github.com/libroai/libro/internal/session"
	"github.com/libroai/libro/internal/vector"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool   *pgxpool.Pool
	Sessions *session.Store
	Ingestor *document.Ingestor
	Pipeline *pipeline.Pipeline
	Index    vector.Index
	Server   *api.Server
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		slog.Info("database pool closed")
	}
	return nil
}

// Serve runs the HTTP server until the context is cancelled.
func (a *App) Serve(ctx context.Context) error {
	return a.Server.Run(ctx, a.Config.ServerAddr)
}
