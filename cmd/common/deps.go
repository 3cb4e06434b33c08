// Package common builds the dependencies shared by all subcommands.
package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/ai"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/config"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/crawler"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/database"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/extraction"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/fetcher"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/pdf"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/pipeline"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/reconcile"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/session"
)

// CfgFile is the --config flag value, set by the root command.
var CfgFile string

// Deps holds everything a subcommand needs.
type Deps struct {
	Config   *config.Config
	Logger   logger.Logger
	DB       *sqlx.DB
	Catalog  *database.CatalogRepository
	Runs     *database.RunRepository
	Engine   *reconcile.Engine
	Pipeline *pipeline.Pipeline
}

// NewDeps loads configuration, connects the database, applies the schema,
// and wires the full pipeline.
func NewDeps(ctx context.Context) (*Deps, error) {
	cfg, err := config.Load(CfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.Connect(database.Config(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if migrateErr := database.Migrate(ctx, db); migrateErr != nil {
		return nil, fmt.Errorf("migrate database: %w", migrateErr)
	}

	catalog := database.NewCatalogRepository(db)
	runs := database.NewRunRepository(db)

	aiClient := ai.New(ai.Config{
		APIKey:         cfg.AI.APIKey,
		Model:          cfg.AI.Model,
		MaxTokens:      cfg.AI.MaxTokens,
		RequestTimeout: cfg.Extraction.Timeout,
	}, log)

	pageFetcher := fetcher.New(fetcher.Config{
		UserAgent:      cfg.Crawler.UserAgent,
		RequestTimeout: cfg.Crawler.RequestTimeout,
		MaxBodyBytes:   cfg.Crawler.MaxBodyBytes,
		RateLimit:      cfg.Crawler.RateLimit,
	}, log)

	coordinator := crawler.New(pageFetcher, log, crawler.Config{
		MaxConcurrency: cfg.Crawler.MaxConcurrency,
	})

	pdfExtractor := pdf.New(pageFetcher, aiClient, log, cfg.Crawler.PdfTimeout)
	classifier := extraction.NewClassifier(aiClient, log)
	reviewer := extraction.NewReviewer(aiClient, log)
	engine := reconcile.New(catalog, log)
	tracker := session.NewTracker(runs, log)

	pipe := pipeline.New(coordinator, pdfExtractor, classifier, reviewer, engine, tracker, log)

	return &Deps{
		Config:   cfg,
		Logger:   log,
		DB:       db,
		Catalog:  catalog,
		Runs:     runs,
		Engine:   engine,
		Pipeline: pipe,
	}, nil
}

// Close releases the dependencies.
func (d *Deps) Close() {
	if d.DB != nil {
		_ = d.DB.Close()
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}
