package domain

import "time"

// Pipeline stage names recorded by the session tracker.
const (
	StageCrawl      = "crawl"
	StagePdf        = "pdf"
	StageExtraction = "extraction"
	StageFactCheck  = "fact_check"
	StageReconcile  = "reconcile"
)

// Run statuses for a scrape run.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StageResult is the bookkeeping record for one pipeline stage boundary.
type StageResult struct {
	Stage     string        `json:"stage"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// ScrapeRun is the auditable unit recording one crawl+extraction+reconcile
// pass over a seed URL.
type ScrapeRun struct {
	ID           string     `db:"id" json:"id"`
	SeedURL      string     `db:"seed_url" json:"seed_url"`
	Status       string     `db:"status" json:"status"`
	PagesFound   int        `db:"pages_found" json:"pages_found"`
	PdfsFound    int        `db:"pdfs_found" json:"pdfs_found"`
	Entities     int        `db:"entities" json:"entities"`
	Created      int        `db:"created" json:"created"`
	Updated      int        `db:"updated" json:"updated"`
	PriceChanges int        `db:"price_changes" json:"price_changes"`
	ErrorCount   int        `db:"error_count" json:"error_count"`
	LastError    *string    `db:"last_error" json:"last_error,omitempty"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
