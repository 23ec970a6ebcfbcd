package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/wisefood/wisefood-data-api/internal/data/db"
	"github.com/wisefood/wisefood-data-api/internal/modules/ingest"
	"github.com/wisefood/wisefood-data-api/internal/observability"
	"github.com/wisefood/wisefood-data-api/internal/platform/logger"
	"github.com/wisefood/wisefood-data-api/internal/platform/neo4jdb"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Cfg       Config
	IngestCfg ingest.Config
	Repos     Repos
	Services  Services
	Pipeline  *ingest.Pipeline

	neo          *neo4jdb.Client
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "wisefood-data-api",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	neo, err := neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init neo4j: %w", err)
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, reposet, neo)
	if err != nil {
		log.Sync()
		return nil, err
	}

	store, err := resolveVectorStore(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	ingestCfg := ingest.LoadConfig()

	pipeline, err := wirePipeline(theDB, log, ingestCfg, store, reposet, serviceset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		IngestCfg:    ingestCfg,
		Repos:        reposet,
		Services:     serviceset,
		Pipeline:     pipeline,
		neo:          neo,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Services.Embedding != nil {
		_ = a.Services.Embedding.Close()
	}
	if a.neo != nil {
		_ = a.neo.Close(ctx)
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
