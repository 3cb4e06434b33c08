// Package session records crawl+extraction+reconciliation outcomes as
// auditable scrape runs.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// RunStore persists scrape runs. Satisfied by *database.RunRepository.
type RunStore interface {
	Insert(ctx context.Context, run *domain.ScrapeRun) error
	UpdateCounts(ctx context.Context, run *domain.ScrapeRun) error
	Complete(ctx context.Context, id, status string, lastError *string) error
}

// Tracker observes every pipeline stage boundary and keeps the durable run
// record current. Bookkeeping failures are logged, never propagated: audit
// trouble must not fail a pipeline that is otherwise working.
type Tracker struct {
	store RunStore
	log   logger.Logger

	mu   sync.Mutex
	runs map[string]*domain.ScrapeRun
}

// NewTracker creates a session tracker.
func NewTracker(store RunStore, log logger.Logger) *Tracker {
	return &Tracker{
		store: store,
		log:   log,
		runs:  make(map[string]*domain.ScrapeRun),
	}
}

// StartRun opens a new auditable run for the seed URL and returns its id.
func (t *Tracker) StartRun(ctx context.Context, seedURL string) string {
	run := &domain.ScrapeRun{
		ID:        uuid.NewString(),
		SeedURL:   seedURL,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}

	t.mu.Lock()
	t.runs[run.ID] = run
	t.mu.Unlock()

	if err := t.store.Insert(ctx, run); err != nil {
		t.log.Error("record run start failed",
			logger.String("run_id", run.ID),
			logger.Error(err),
		)
	}

	return run.ID
}

// RecordStage folds one stage result into the run's counters.
func (t *Tracker) RecordStage(ctx context.Context, runID string, result domain.StageResult) {
	t.mu.Lock()
	run, ok := t.runs[runID]
	if !ok {
		t.mu.Unlock()
		t.log.Error("record stage for unknown run", logger.String("run_id", runID))
		return
	}

	applyStage(run, result)
	snapshot := *run
	t.mu.Unlock()

	t.log.Info("stage completed",
		logger.String("run_id", runID),
		logger.String("stage", result.Stage),
		logger.Int("processed", result.Processed),
		logger.Int("failed", result.Failed),
		logger.Duration("duration", result.Duration),
	)

	if err := t.store.UpdateCounts(ctx, &snapshot); err != nil {
		t.log.Error("record stage result failed",
			logger.String("run_id", runID),
			logger.String("stage", result.Stage),
			logger.Error(err),
		)
	}
}

// CompleteRun closes the run with its final status.
func (t *Tracker) CompleteRun(ctx context.Context, runID string, success bool, runErr error) {
	status := domain.RunStatusCompleted

	var lastError *string
	if runErr != nil {
		msg := runErr.Error()
		lastError = &msg
	}
	if !success {
		status = domain.RunStatusFailed
	}

	t.mu.Lock()
	delete(t.runs, runID)
	t.mu.Unlock()

	if err := t.store.Complete(ctx, runID, status, lastError); err != nil {
		t.log.Error("record run completion failed",
			logger.String("run_id", runID),
			logger.Error(err),
		)
	}
}

// applyStage maps a stage result onto the run's counter columns.
func applyStage(run *domain.ScrapeRun, result domain.StageResult) {
	run.ErrorCount += result.Failed

	if result.Error != "" {
		msg := fmt.Sprintf("%s: %s", result.Stage, result.Error)
		run.LastError = &msg
	}

	switch result.Stage {
	case domain.StageCrawl:
		run.PagesFound = result.Processed
	case domain.StagePdf:
		run.PdfsFound = result.Processed
	case domain.StageExtraction, domain.StageFactCheck:
		run.Entities = result.Processed
	}
}

// ApplyReconcileCounts folds the reconciliation summary counters into the run.
func (t *Tracker) ApplyReconcileCounts(ctx context.Context, runID string, created, updated, priceChanges int) {
	t.mu.Lock()
	run, ok := t.runs[runID]
	if ok {
		run.Created = created
		run.Updated = updated
		run.PriceChanges = priceChanges
	}
	var snapshot domain.ScrapeRun
	if ok {
		snapshot = *run
	}
	t.mu.Unlock()

	if !ok {
		return
	}

	if err := t.store.UpdateCounts(ctx, &snapshot); err != nil {
		t.log.Error("record reconcile counts failed",
			logger.String("run_id", runID),
			logger.Error(err),
		)
	}
}
