// Package pipeline orchestrates one scrape run: crawl, PDF extraction,
// normalization, classification, fact check, and reconciliation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/extraction"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/normalizer"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/reconcile"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/session"
)

// Crawler runs the depth-bounded crawl. Satisfied by *crawler.Coordinator.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string, maxDepth int) (*domain.CrawlResult, error)
}

// PdfExtractor processes discovered PDF links. Satisfied by *pdf.Extractor.
type PdfExtractor interface {
	ExtractAll(ctx context.Context, links []domain.PdfLink) domain.PdfProcessingSummary
}

// Classifier extracts typed entities. Satisfied by *extraction.Classifier.
type Classifier interface {
	Classify(ctx context.Context, doc *domain.CanonicalDocument, hint domain.ContentCategory) (*extraction.Result, error)
}

// Verifier fact-checks extracted entities. Satisfied by *extraction.Reviewer.
type Verifier interface {
	Verify(ctx context.Context, doc *domain.CanonicalDocument, entities []domain.ExtractedEntity) []domain.ExtractedEntity
}

// Reconciler applies entities to the catalog. Satisfied by *reconcile.Engine.
type Reconciler interface {
	Reconcile(ctx context.Context, entities []domain.ExtractedEntity) *reconcile.Summary
}

// Options configure one pipeline run.
type Options struct {
	// MaxDepth bounds the crawl.
	MaxDepth int
	// Category short-circuits classification; CategoryAutoDetect classifies.
	Category domain.ContentCategory
	// SkipFlagged excludes flagged entities from reconciliation. Flagged
	// entities are always returned in the result either way.
	SkipFlagged bool
}

// Result is what every run returns, success or not: explicit success flag,
// per-stage output, and the error list. Nothing is thrown past this boundary.
type Result struct {
	RunID       string                       `json:"run_id"`
	SeedURL     string                       `json:"seed_url"`
	Success     bool                         `json:"success"`
	Crawl       *domain.CrawlResult          `json:"crawl,omitempty"`
	Pdf         *domain.PdfProcessingSummary `json:"pdf,omitempty"`
	ContentType domain.ContentCategory       `json:"content_type,omitempty"`
	Entities    []domain.ExtractedEntity     `json:"entities,omitempty"`
	Reconcile   *reconcile.Summary           `json:"reconcile,omitempty"`
	Errors      []string                     `json:"errors,omitempty"`
}

// Pipeline wires the stages of a scrape run. The session tracker observes
// every stage boundary.
type Pipeline struct {
	crawler    Crawler
	pdfs       PdfExtractor
	classifier Classifier
	verifier   Verifier
	reconciler Reconciler
	tracker    *session.Tracker
	log        logger.Logger
}

// New creates a pipeline.
func New(
	c Crawler,
	p PdfExtractor,
	cl Classifier,
	v Verifier,
	r Reconciler,
	tracker *session.Tracker,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		crawler:    c,
		pdfs:       p,
		classifier: cl,
		verifier:   v,
		reconciler: r,
		tracker:    tracker,
		log:        log,
	}
}

// Run executes the full pipeline for one seed URL. Stage-local failures are
// absorbed into the result's error list; a seed fetch failure or extraction
// outage ends the run early with the partial results gathered so far.
func (p *Pipeline) Run(ctx context.Context, seedURL string, opts Options) *Result {
	result := &Result{SeedURL: seedURL}
	result.RunID = p.tracker.StartRun(ctx, seedURL)

	defer func() {
		p.tracker.CompleteRun(ctx, result.RunID, result.Success, firstError(result.Errors))
	}()

	if !p.runCrawl(ctx, seedURL, opts.MaxDepth, result) {
		return result
	}

	p.runPdfExtraction(ctx, result)

	doc := normalizer.Merge(result.Crawl, result.Pdf)

	if !p.runExtraction(ctx, doc, opts.Category, result) {
		return result
	}

	p.runFactCheck(ctx, doc, result)
	p.runReconciliation(ctx, opts, result)

	result.Success = len(result.Errors) == 0 &&
		(result.Reconcile == nil || result.Reconcile.Success)

	return result
}

// runCrawl executes the crawl stage. Returns false when the run cannot
// continue (seed fetch failure).
func (p *Pipeline) runCrawl(ctx context.Context, seedURL string, maxDepth int, result *Result) bool {
	started := time.Now()

	crawlRes, err := p.crawler.Crawl(ctx, seedURL, maxDepth)
	result.Crawl = crawlRes

	stage := domain.StageResult{
		Stage:    domain.StageCrawl,
		Failed:   len(crawlRes.Errors),
		Duration: time.Since(started),
	}

	if crawlRes.PageInfo != nil {
		stage.Processed = 1 + len(crawlRes.LinkedContent)
	}

	if err != nil {
		stage.Error = err.Error()
		result.Errors = append(result.Errors, fmt.Sprintf("crawl: %v", err))
	}

	p.tracker.RecordStage(ctx, result.RunID, stage)

	return crawlRes.Success
}

// runPdfExtraction executes the PDF stage. Per-PDF failures never end the run.
func (p *Pipeline) runPdfExtraction(ctx context.Context, result *Result) {
	started := time.Now()

	summary := p.pdfs.ExtractAll(ctx, result.Crawl.PdfLinks)
	result.Pdf = &summary

	p.tracker.RecordStage(ctx, result.RunID, domain.StageResult{
		Stage:     domain.StagePdf,
		Processed: summary.TotalProcessed,
		Failed:    summary.TotalFound - summary.TotalProcessed,
		Duration:  time.Since(started),
	})
}

// runExtraction executes classification. Returns false when the capability
// failed and no entities can be produced.
func (p *Pipeline) runExtraction(
	ctx context.Context,
	doc *domain.CanonicalDocument,
	hint domain.ContentCategory,
	result *Result,
) bool {
	started := time.Now()

	extracted, err := p.classifier.Classify(ctx, doc, hint)

	stage := domain.StageResult{
		Stage:    domain.StageExtraction,
		Duration: time.Since(started),
	}

	if err != nil {
		stage.Failed = 1
		stage.Error = err.Error()
		p.tracker.RecordStage(ctx, result.RunID, stage)
		result.Errors = append(result.Errors, fmt.Sprintf("extraction: %v", err))

		return false
	}

	stage.Processed = len(extracted.Entities)
	p.tracker.RecordStage(ctx, result.RunID, stage)

	result.ContentType = extracted.ContentType
	result.Entities = extracted.Entities

	return true
}

// runFactCheck executes the verification stage. Inconclusive checks flag
// entities; they never fail the run.
func (p *Pipeline) runFactCheck(ctx context.Context, doc *domain.CanonicalDocument, result *Result) {
	started := time.Now()

	result.Entities = p.verifier.Verify(ctx, doc, result.Entities)

	flagged := 0
	for i := range result.Entities {
		if result.Entities[i].Verification == domain.VerificationFlagged {
			flagged++
		}
	}

	p.tracker.RecordStage(ctx, result.RunID, domain.StageResult{
		Stage:     domain.StageFactCheck,
		Processed: len(result.Entities),
		Failed:    flagged,
		Duration:  time.Since(started),
	})
}

// runReconciliation applies entities to the catalog and folds the summary
// counts into the run record.
func (p *Pipeline) runReconciliation(ctx context.Context, opts Options, result *Result) {
	started := time.Now()

	entities := result.Entities
	if opts.SkipFlagged {
		entities = make([]domain.ExtractedEntity, 0, len(result.Entities))
		for _, e := range result.Entities {
			if e.Verification != domain.VerificationFlagged {
				entities = append(entities, e)
			}
		}
	}

	summary := p.reconciler.Reconcile(ctx, entities)
	result.Reconcile = summary

	stage := domain.StageResult{
		Stage:     domain.StageReconcile,
		Processed: len(entities),
		Failed:    len(summary.Errors),
		Duration:  time.Since(started),
	}

	for _, entityErr := range summary.Errors {
		result.Errors = append(result.Errors, fmt.Sprintf("reconcile %s: %s", entityErr.Entity, entityErr.Error))
	}

	p.tracker.RecordStage(ctx, result.RunID, stage)
	p.tracker.ApplyReconcileCounts(ctx, result.RunID, summary.Created, summary.Updated, summary.PriceChanges)
}

// firstError converts the first collected error string back into an error
// for the run record, or nil when the run was clean.
func firstError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", errs[0])
}
