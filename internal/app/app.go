package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/deckwise-ai/deckwise/internal/config"
	db "github.com/deckwise-ai/deckwise/internal/core/database"
	"github.com/deckwise-ai/deckwise/internal/core/ingestion_engine"
	"github.com/deckwise-ai/deckwise/internal/core/jobs"
	"github.com/deckwise-ai/deckwise/internal/core/llm"
	"github.com/deckwise-ai/deckwise/internal/core/objectstore"
	"github.com/deckwise-ai/deckwise/internal/core/vector"
	"github.com/deckwise-ai/deckwise/internal/services"
)

// App wires every component together and owns their lifecycles.
type App struct {
	Store  *db.Store
	Ingest *services.IngestService
	Server *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	store, err := db.NewStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("database initialized and ready")

	objClient, err := objectstore.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}

	vectors := vector.NewPGStore(store.DB())
	providers := llm.NewFactory(cfg)
	jobStore := jobs.NewMemoryStore()

	pipeline := ingestion_engine.NewPipeline(store, vectors, objClient, providers, ingestion_engine.Options{
		Bucket:       cfg.BucketName,
		UploadDir:    cfg.UploadDir,
		PreviewDir:   cfg.PreviewDir,
		PreviewWidth: cfg.PreviewWidth,
		Concurrency:  cfg.IngestionConcurrency,
	})

	ingestSvc, err := services.NewIngestService(pipeline, jobStore, cfg.JobPoolSize)
	if err != nil {
		return nil, err
	}

	userSvc := services.NewUserService(store)
	docSvc := services.NewDocumentService(store, objClient, vectors, cfg.BucketName, cfg.PreviewDir)
	pageSvc := services.NewPageService(store, providers, cfg.DefaultLLMProvider, cfg.DefaultLLMModel)
	qaSvc := services.NewQAService(store, vectors, providers, cfg.DefaultLLMProvider, cfg.DefaultLLMModel)
	searchSvc := services.NewSearchService(store)

	server := NewServer(cfg, userSvc, docSvc, pageSvc, qaSvc, searchSvc, ingestSvc, jobStore)

	return &App{
		Store:  store,
		Ingest: ingestSvc,
		Server: server,
	}, nil
}

func (a *App) Close() {
	if a.Ingest != nil {
		a.Ingest.Close()
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}
