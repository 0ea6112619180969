// Package app assembles a switchyard runtime from configuration: the
// embedder, the storage driver, the hybrid memory, the compiled workflow and
// its metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/switchyard/pkg/agent"
	"github.com/papercomputeco/switchyard/pkg/config"
	"github.com/papercomputeco/switchyard/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/switchyard/pkg/embeddings/utils"
	"github.com/papercomputeco/switchyard/pkg/graph"
	"github.com/papercomputeco/switchyard/pkg/logger"
	"github.com/papercomputeco/switchyard/pkg/memory"
	"github.com/papercomputeco/switchyard/pkg/metrics"
	storageutils "github.com/papercomputeco/switchyard/pkg/storage/utils"
)

// Options configures Open.
type Options struct {
	Config *config.Config

	// ConfigDir overrides .switchyard/ resolution for the default SQLite path.
	ConfigDir string

	Logger *slog.Logger

	// Responder defaults to agent.EchoResponder.
	Responder agent.Responder
}

// App is an opened runtime. Close releases the memory and its collaborators.
type App struct {
	Config   *config.Config
	Memory   *memory.Memory
	Workflow *graph.Runnable[*agent.State]
	Metrics  *metrics.Metrics

	logger *slog.Logger
}

// Open builds every collaborator described by opts.Config.
func Open(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app requires a config")
	}

	cfg := opts.Config
	log := logger.OrNop(opts.Logger)

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		CacheSize:    cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	sqlitePath := cfg.Storage.SQLitePath
	if cfg.Storage.Provider == storageutils.ProviderSQLite {
		sqlitePath, err = dotdir.NewManager().SQLitePath(sqlitePath, opts.ConfigDir)
		if err != nil {
			_ = embedder.Close()
			return nil, fmt.Errorf("resolving sqlite path: %w", err)
		}
	}

	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		ProviderType: cfg.Storage.Provider,
		SQLitePath:   sqlitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		Dimensions:   embedder.Dimensions(),
		Logger:       log,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("creating storage driver: %w", err)
	}

	m := metrics.New()

	mem, err := memory.Open(ctx, driver, embedder,
		memory.WithLogger(log),
		memory.WithObserver(m),
	)
	if err != nil {
		_ = driver.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("opening memory: %w", err)
	}

	workflow, err := agent.Build(agent.Config{
		Memory:    mem,
		Responder: opts.Responder,
		Router:    agent.NewRouter(cfg.Routing.FinanceKeywords, cfg.Routing.WeatherKeywords),
		RecallK:   cfg.Memory.RecallK,
		Logger:    log,
		GraphOptions: []graph.Option{
			graph.WithStepLimit(cfg.Graph.MaxSteps),
			graph.WithHooks(m.Hooks()),
		},
	})
	if err != nil {
		_ = mem.Close()
		return nil, fmt.Errorf("building workflow: %w", err)
	}

	log.Debug("switchyard opened",
		"storage", cfg.Storage.Provider,
		"embedding", cfg.Embedding.Provider,
		"dimensions", mem.Dimensions(),
	)

	return &App{
		Config:   cfg,
		Memory:   mem,
		Workflow: workflow,
		Metrics:  m,
		logger:   log,
	}, nil
}

// ServeMetrics exposes the metrics endpoint until ctx is done when
// metrics.listen is configured; otherwise it returns immediately.
func (a *App) ServeMetrics(ctx context.Context) error {
	if a.Config.Metrics.Listen == "" {
		return nil
	}
	return a.Metrics.Serve(ctx, a.Config.Metrics.Listen, a.logger)
}

// Close closes the memory, which closes the storage driver and the embedder.
func (a *App) Close() error {
	return a.Memory.Close()
}
