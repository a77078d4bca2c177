package bootstrap

import (
	"context"
	"fmt"

	"github.com/lexvault/import-engine/internal/config"
	"github.com/lexvault/import-engine/internal/core/ports"
	"github.com/lexvault/import-engine/internal/core/usecase"
	"github.com/lexvault/import-engine/internal/infrastructure/authz"
	"github.com/lexvault/import-engine/internal/infrastructure/clustering"
	"github.com/lexvault/import-engine/internal/infrastructure/export"
	"github.com/lexvault/import-engine/internal/infrastructure/extractor"
	"github.com/lexvault/import-engine/internal/infrastructure/queue/nats"
	"github.com/lexvault/import-engine/internal/infrastructure/repository/postgres"
	"github.com/lexvault/import-engine/internal/infrastructure/resilience"
	"github.com/lexvault/import-engine/internal/infrastructure/storage/localfs"
	"github.com/lexvault/import-engine/internal/infrastructure/templates"
)

// App wires every adapter behind the core ports. Both binaries start here;
// the API ignores the job processor and the worker ignores the HTTP-facing
// use cases.
type App struct {
	Config config.Config

	Queue      *nats.Queue
	Tokens     ports.TokenStore
	Categories ports.CategoryRepository

	Reassigner  *usecase.ReassignUseCase
	Validator   *usecase.ClusterValidationUseCase
	Runner      *usecase.ClusterRunUseCase
	Categorizer *usecase.CategorizeUseCase
	Exporter    *usecase.ExportUseCase
	Jobs        *usecase.JobUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	sessions := postgres.NewSessionRepository(db)
	batches := postgres.NewBatchRepository(db)
	documents := postgres.NewDocumentRepository(db)
	clusters := postgres.NewClusterRepository(db)
	categories := postgres.NewCategoryRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		Executor: resilience.NewExecutor(resilience.DefaultPolicy()),
	})
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	tokens, err := authz.NewRedisTokenStore(cfg.RedisURL)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init token store: %w", err)
	}

	reports, err := export.NewXLSXWriter(cfg.ReportPath)
	if err != nil {
		queue.Close()
		_ = tokens.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init report writer: %w", err)
	}

	engine := clustering.NewEngine()
	if cfg.ClusterEpsilon > 0 {
		engine.Epsilon = cfg.ClusterEpsilon
	}
	if cfg.ClusterMinPoints > 0 {
		engine.MinPoints = cfg.ClusterMinPoints
	}

	textExtractor := extractor.New(storage)

	return &App{
		Config:     cfg,
		Queue:      queue,
		Tokens:     tokens,
		Categories: categories,

		Reassigner:  usecase.NewReassignUseCase(sessions, batches),
		Validator:   usecase.NewClusterValidationUseCase(sessions, clusters, documents, queue),
		Runner:      usecase.NewClusterRunUseCase(sessions, documents, clusters, textExtractor, engine),
		Categorizer: usecase.NewCategorizeUseCase(sessions, batches, documents, categories),
		Exporter:    usecase.NewExportUseCase(sessions, queue),
		Jobs: usecase.NewJobUseCase(sessions, batches, documents, clusters, categories,
			templateRepo, templates.NewBuilder(), reports),

		closeFn: func() {
			queue.Close()
			_ = tokens.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
