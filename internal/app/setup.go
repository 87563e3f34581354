package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/libroai/libro/api"
	"github.com/libroai/libro/db"
	"github.com/libroai/libro/internal/config"
	"github.com/libroai/libro/internal/document"
	"github.com/libroai/libro/internal/embed"
	"github.com/libroai/libro/internal/generate"
	"github.com/libroai/libro/internal/log"
	"github.com/libroai/libro/internal/pipeline"
	"github.com/libroai/libro/internal/postgres"
	"github.com/libroai/libro/internal/retrieve"
	"github.com/libroai/libro/internal/session"
	"github.com/libroai/libro/internal/vector"

	pgdb "github.com/libroai/libro/internal/database"
)

// Setup creates and initializes the application.
// On error, everything already initialized is cleaned up.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				slog.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgdb.Connect(ctx, cfg.PostgresConnString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.DBPool = pool

	queries := postgres.New(pool)
	a.Sessions = session.NewStore(queries, logger)

	embedder, err := embed.NewGoogleAI(ctx, os.Getenv("GEMINI_API_KEY"), cfg.EmbedderModel, cfg.EmbedderDimension, logger)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	index, err := buildIndex(ctx, cfg, pool, logger)
	if err != nil {
		return nil, err
	}
	a.Index = index

	retriever := retrieve.New(embedder, index, cfg.RetrievalLimit, logger)

	completer, err := buildCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var genOpts []generate.Option
	if cfg.CompletionRPS > 0 {
		burst := cfg.CompletionBurst
		if burst < 1 {
			burst = 1
		}
		genOpts = append(genOpts, generate.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.CompletionRPS), burst)))
	}
	generator := generate.New(completer, cfg.Temperature, logger, genOpts...)

	a.Pipeline = pipeline.New(retriever, generator, logger)
	a.Ingestor = document.NewIngestor(queries, embedder, index, cfg.ChunkSize, logger)
	a.Server = api.NewServer(pool, a.Pipeline, a.Sessions, a.Ingestor, logger)

	logger.Info("application initialized",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"vector_backend", cfg.VectorBackend)
	return a, nil
}

// buildIndex selects the vector index backend. Qdrant is wrapped in a
// resilient layer so an unreachable instance does not take down chat.
func buildIndex(ctx context.Context, cfg *config.Config, pool vector.PgQuerier, logger log.Logger) (vector.Index, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		qcfg := vector.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			VectorSize: cfg.EmbedderDimension,
			Timeout:    time.Duration(cfg.QdrantTimeoutSec) * time.Second,
		}
		dial := func(ctx context.Context) (vector.Index, error) {
			q, err := vector.NewQdrant(ctx, qcfg)
			if err != nil {
				return nil, err
			}
			return q, nil
		}
		return vector.NewResilient(dial, logger), nil
	case config.VectorBackendPgvector:
		return vector.NewPgvector(pool), nil
	case config.VectorBackendMemory:
		return vector.NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidVectorBackend, cfg.VectorBackend)
	}
}

// buildCompleter selects the completion provider.
func buildCompleter(ctx context.Context, cfg *config.Config) (generate.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGoogleAI:
		c, err := generate.NewGoogleAI(ctx, os.Getenv("GEMINI_API_KEY"), cfg.ModelName)
		if err != nil {
			return nil, fmt.Errorf("creating googleai completer: %w", err)
		}
		return c, nil
	case config.ProviderGroq:
		c, err := generate.NewGroq(os.Getenv("GROQ_API_KEY"), cfg.ModelName)
		if err != nil {
			return nil, fmt.Errorf("creating groq completer: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Provider)
	}
}
