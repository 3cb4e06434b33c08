package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/extraction"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/reconcile"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/session"
)

type fakeCrawler struct {
	result *domain.CrawlResult
	err    error
}

func (f *fakeCrawler) Crawl(context.Context, string, int) (*domain.CrawlResult, error) {
	return f.result, f.err
}

type fakePdfExtractor struct {
	summary domain.PdfProcessingSummary
	got     []domain.PdfLink
}

func (f *fakePdfExtractor) ExtractAll(_ context.Context, links []domain.PdfLink) domain.PdfProcessingSummary {
	f.got = links
	return f.summary
}

type fakeClassifier struct {
	result  *extraction.Result
	err     error
	gotHint domain.ContentCategory
}

func (f *fakeClassifier) Classify(_ context.Context, _ *domain.CanonicalDocument, hint domain.ContentCategory) (*extraction.Result, error) {
	f.gotHint = hint
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeVerifier marks entities per the configured states, defaulting to verified.
type fakeVerifier struct {
	states map[string]domain.VerificationState
}

func (f *fakeVerifier) Verify(_ context.Context, _ *domain.CanonicalDocument, entities []domain.ExtractedEntity) []domain.ExtractedEntity {
	out := make([]domain.ExtractedEntity, len(entities))
	for i, e := range entities {
		e.Verification = domain.VerificationVerified
		if state, ok := f.states[e.Vehicle.Name]; ok {
			e.Verification = state
		}
		out[i] = e
	}
	return out
}

type fakeReconciler struct {
	summary *reconcile.Summary
	got     []domain.ExtractedEntity
}

func (f *fakeReconciler) Reconcile(_ context.Context, entities []domain.ExtractedEntity) *reconcile.Summary {
	f.got = entities
	if f.summary != nil {
		return f.summary
	}
	return &reconcile.Summary{Success: true, Created: len(entities)}
}

// nopRunStore satisfies session.RunStore without persistence.
type nopRunStore struct{}

func (nopRunStore) Insert(context.Context, *domain.ScrapeRun) error       { return nil }
func (nopRunStore) UpdateCounts(context.Context, *domain.ScrapeRun) error { return nil }
func (nopRunStore) Complete(context.Context, string, string, *string) error {
	return nil
}

func vehicleEntity(name string) domain.ExtractedEntity {
	return domain.ExtractedEntity{
		Category: domain.CategoryCars,
		Vehicle:  &domain.VehicleData{Brand: "Suzuki", Name: name},
	}
}

func happyCrawl() *domain.CrawlResult {
	return &domain.CrawlResult{
		Success: true,
		SeedURL: "https://example.se",
		PageInfo: &domain.PageRecord{
			URL:         "https://example.se",
			CleanedText: "Suzuki Vitara fran 459 900 kr",
		},
		PdfLinks: []domain.PdfLink{
			{PdfURL: "https://example.se/prislista.pdf", Pattern: domain.PdfPatternHref},
		},
	}
}

func newTestPipeline(
	c Crawler,
	p PdfExtractor,
	cl Classifier,
	v Verifier,
	r Reconciler,
) *Pipeline {
	tracker := session.NewTracker(nopRunStore{}, logger.NewNop())
	return New(c, p, cl, v, r, tracker, logger.NewNop())
}

func TestRun_HappyPath(t *testing.T) {
	pdfs := &fakePdfExtractor{summary: domain.PdfProcessingSummary{
		TotalFound:     1,
		TotalProcessed: 1,
		OverallStatus:  domain.PdfStatusSuccess,
		Results: []domain.PdfExtractionResult{
			{URL: "https://example.se/prislista.pdf", Success: true, Text: "Privatleasing 4 995 kr"},
		},
	}}
	classifier := &fakeClassifier{result: &extraction.Result{
		ContentType: domain.CategoryCars,
		Entities:    []domain.ExtractedEntity{vehicleEntity("Vitara")},
	}}
	reconciler := &fakeReconciler{}

	p := newTestPipeline(
		&fakeCrawler{result: happyCrawl()},
		pdfs,
		classifier,
		&fakeVerifier{},
		reconciler,
	)

	result := p.Run(context.Background(), "https://example.se", Options{
		MaxDepth: 1,
		Category: domain.CategoryAutoDetect,
	})

	assert.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)
	assert.Empty(t, result.Errors)
	assert.Equal(t, domain.CategoryCars, result.ContentType)

	// Discovered PDFs flowed into the PDF stage.
	require.Len(t, pdfs.got, 1)
	assert.Equal(t, "https://example.se/prislista.pdf", pdfs.got[0].PdfURL)

	// Verified entities reached reconciliation.
	require.Len(t, reconciler.got, 1)
	assert.Equal(t, domain.VerificationVerified, reconciler.got[0].Verification)
	require.NotNil(t, result.Reconcile)
	assert.Equal(t, 1, result.Reconcile.Created)
}

func TestRun_SeedFailureEndsRunEarly(t *testing.T) {
	pdfs := &fakePdfExtractor{}
	reconciler := &fakeReconciler{}

	p := newTestPipeline(
		&fakeCrawler{
			result: &domain.CrawlResult{Success: false, SeedURL: "https://example.se", Error: "http status 503"},
			err:    errors.New("fetch seed page: http status 503"),
		},
		pdfs,
		&fakeClassifier{},
		&fakeVerifier{},
		reconciler,
	)

	result := p.Run(context.Background(), "https://example.se", Options{MaxDepth: 1})

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "http status 503")

	// Downstream stages never ran.
	assert.Nil(t, result.Pdf)
	assert.Nil(t, result.Reconcile)
	assert.Nil(t, reconciler.got)
}

func TestRun_ExtractionOutageKeepsPartialResults(t *testing.T) {
	p := newTestPipeline(
		&fakeCrawler{result: happyCrawl()},
		&fakePdfExtractor{summary: domain.PdfProcessingSummary{TotalFound: 1, TotalProcessed: 1}},
		&fakeClassifier{err: errors.New("capability unavailable")},
		&fakeVerifier{},
		&fakeReconciler{},
	)

	result := p.Run(context.Background(), "https://example.se", Options{MaxDepth: 1})

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "capability unavailable")

	// Crawl and PDF output is kept even though the run failed.
	require.NotNil(t, result.Crawl)
	require.NotNil(t, result.Pdf)
	assert.Equal(t, 1, result.Pdf.TotalProcessed)
	assert.Nil(t, result.Reconcile)
}

func TestRun_SkipFlaggedExcludesFromReconciliation(t *testing.T) {
	classifier := &fakeClassifier{result: &extraction.Result{
		ContentType: domain.CategoryCars,
		Entities: []domain.ExtractedEntity{
			vehicleEntity("Vitara"),
			vehicleEntity("Swift"),
		},
	}}
	reconciler := &fakeReconciler{}

	p := newTestPipeline(
		&fakeCrawler{result: happyCrawl()},
		&fakePdfExtractor{},
		classifier,
		&fakeVerifier{states: map[string]domain.VerificationState{"Swift": domain.VerificationFlagged}},
		reconciler,
	)

	result := p.Run(context.Background(), "https://example.se", Options{
		MaxDepth:    1,
		SkipFlagged: true,
	})

	// The flagged entity is excluded from reconciliation but still reported.
	require.Len(t, reconciler.got, 1)
	assert.Equal(t, "Vitara", reconciler.got[0].Vehicle.Name)

	require.Len(t, result.Entities, 2)
	assert.Equal(t, domain.VerificationFlagged, result.Entities[1].Verification)
	assert.True(t, result.Success)
}

func TestRun_FlaggedEntitiesReconciledByDefault(t *testing.T) {
	classifier := &fakeClassifier{result: &extraction.Result{
		ContentType: domain.CategoryCars,
		Entities:    []domain.ExtractedEntity{vehicleEntity("Swift")},
	}}
	reconciler := &fakeReconciler{}

	p := newTestPipeline(
		&fakeCrawler{result: happyCrawl()},
		&fakePdfExtractor{},
		classifier,
		&fakeVerifier{states: map[string]domain.VerificationState{"Swift": domain.VerificationFlagged}},
		reconciler,
	)

	p.Run(context.Background(), "https://example.se", Options{MaxDepth: 1})

	require.Len(t, reconciler.got, 1)
	assert.Equal(t, domain.VerificationFlagged, reconciler.got[0].Verification)
}

func TestRun_ReconcileErrorsFailTheRun(t *testing.T) {
	classifier := &fakeClassifier{result: &extraction.Result{
		ContentType: domain.CategoryCars,
		Entities:    []domain.ExtractedEntity{vehicleEntity("Vitara")},
	}}
	reconciler := &fakeReconciler{summary: &reconcile.Summary{
		Success: false,
		Errors: []reconcile.EntityError{
			{Entity: "Suzuki Vitara", Error: "constraint violation"},
		},
	}}

	p := newTestPipeline(
		&fakeCrawler{result: happyCrawl()},
		&fakePdfExtractor{},
		classifier,
		&fakeVerifier{},
		reconciler,
	)

	result := p.Run(context.Background(), "https://example.se", Options{MaxDepth: 1})

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "constraint violation")
}

func TestRun_CategoryHintReachesClassifier(t *testing.T) {
	classifier := &fakeClassifier{result: &extraction.Result{
		ContentType: domain.CategoryTransport,
	}}

	p := newTestPipeline(
		&fakeCrawler{result: happyCrawl()},
		&fakePdfExtractor{},
		classifier,
		&fakeVerifier{},
		&fakeReconciler{},
	)

	p.Run(context.Background(), "https://example.se", Options{
		MaxDepth: 1,
		Category: domain.CategoryTransport,
	})

	assert.Equal(t, domain.CategoryTransport, classifier.gotHint)
}
