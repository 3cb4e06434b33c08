package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
)

// runColumns lists the columns selected for scrape runs.
const runColumns = `id, seed_url, status, pages_found, pdfs_found, entities,
	created, updated, price_changes, error_count, last_error, started_at, completed_at`

// RunRepository persists scrape run bookkeeping.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a run repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert records a newly started run.
func (r *RunRepository) Insert(ctx context.Context, run *domain.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (id, seed_url, status, started_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, run.ID, run.SeedURL, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert scrape run: %w", err)
	}

	return nil
}

// UpdateCounts writes the run's current stage counters.
func (r *RunRepository) UpdateCounts(ctx context.Context, run *domain.ScrapeRun) error {
	query := `
		UPDATE scrape_runs
		SET pages_found = $1,
			pdfs_found = $2,
			entities = $3,
			created = $4,
			updated = $5,
			price_changes = $6,
			error_count = $7,
			last_error = $8
		WHERE id = $9
	`

	result, err := r.db.ExecContext(ctx, query,
		run.PagesFound, run.PdfsFound, run.Entities,
		run.Created, run.Updated, run.PriceChanges,
		run.ErrorCount, run.LastError, run.ID,
	)

	return execRequireRows(result, err, fmt.Errorf("scrape run not found: %s", run.ID))
}

// Complete marks a run finished with its final status.
func (r *RunRepository) Complete(ctx context.Context, id, status string, lastError *string) error {
	query := `
		UPDATE scrape_runs
		SET status = $1,
			last_error = COALESCE($2, last_error),
			completed_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, lastError, id)

	return execRequireRows(result, err, fmt.Errorf("scrape run not found: %s", id))
}

// Get returns one run by id, or (nil, nil) when absent.
func (r *RunRepository) Get(ctx context.Context, id string) (*domain.ScrapeRun, error) {
	query := `SELECT ` + runColumns + ` FROM scrape_runs WHERE id = $1`

	var run domain.ScrapeRun
	err := r.db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select scrape run: %w", err)
	}

	return &run, nil
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + `
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT $1`

	var runs []domain.ScrapeRun
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("list scrape runs: %w", err)
	}

	if runs == nil {
		runs = []domain.ScrapeRun{}
	}

	return runs, nil
}
