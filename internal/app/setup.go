// Package app wires the application together: configuration, database,
// embedder, model client, and the rag facade on top of them.
package app

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern/lectern/db"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/document"
	"github.com/lectern/lectern/internal/generate"
	"github.com/lectern/lectern/internal/knowledge"
	"github.com/lectern/lectern/internal/log"
	"github.com/lectern/lectern/internal/rag"
	"github.com/lectern/lectern/internal/session"
)

// App holds the wired application components.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Pool     *pgxpool.Pool
	Store    *knowledge.Store
	Sessions *session.Store
	System   *rag.System
}

// Setup builds the full application: it migrates the database, opens the
// connection pool, and constructs the knowledge store, generator, and
// facade. Callers must Close() the returned App.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	if err := db.Migrate(cfg.ConnURL()); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.ConnURL())
	if err != nil {
		return nil, fmt.Errorf("opening database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	embedder, err := knowledge.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedderModel)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := knowledge.NewStore(pool, embedder, cfg.MaxResults, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	generator, err := generate.New(&client.Messages, cfg.Model, int64(cfg.MaxTokens), cfg.MaxToolRounds, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	sessions := session.NewStore(cfg.MaxHistory)
	processor := document.New(
		document.WithChunkSize(cfg.ChunkSize),
		document.WithChunkOverlap(cfg.ChunkOverlap),
	)

	system, err := rag.New(store, sessions, generator, processor, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating rag system: %w", err)
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Store:    store,
		Sessions: sessions,
		System:   system,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
