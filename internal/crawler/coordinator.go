// Package crawler implements the depth-bounded crawl coordinator.
package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/fetcher"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// PageFetcher fetches a single page. Satisfied by *fetcher.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetcher.Result, error)
}

// Config configures the coordinator.
type Config struct {
	// MaxConcurrency bounds the fan-out of linked-page fetches per depth level.
	MaxConcurrency int
}

// Coordinator walks the link graph breadth-first from a seed URL. It owns the
// visited set and the PDF dedup set exclusively: both are mutated only between
// depth levels, after all fetches in the level have resolved.
type Coordinator struct {
	fetcher        PageFetcher
	log            logger.Logger
	maxConcurrency int
}

// New creates a crawl coordinator.
func New(f PageFetcher, log logger.Logger, cfg Config) *Coordinator {
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	return &Coordinator{
		fetcher:        f,
		log:            log,
		maxConcurrency: concurrency,
	}
}

// fetchOutcome pairs a crawl target with its fetch result or failure.
type fetchOutcome struct {
	target domain.CrawlTarget
	depth  int
	result *fetcher.Result
	err    error
}

// Crawl fetches the seed page at depth 0 and expands same-host page links
// breadth-first up to maxDepth. A seed fetch failure aborts the crawl; a
// linked-page failure is recorded and skipped. Cancellation stops dispatching
// new fetches and returns the results accumulated so far.
func (c *Coordinator) Crawl(ctx context.Context, seedURL string, maxDepth int) (*domain.CrawlResult, error) {
	result := &domain.CrawlResult{SeedURL: seedURL}

	seed, err := url.Parse(seedURL)
	if err != nil {
		result.Error = fmt.Sprintf("invalid seed url: %v", err)
		return result, fmt.Errorf("parse seed url: %w", err)
	}

	visited := map[string]struct{}{normalizeURL(seedURL): {}}
	pdfSet := make(map[string]domain.PdfLink)

	seedRes, err := c.fetcher.Fetch(ctx, seedURL)
	if err != nil {
		result.Error = err.Error()
		return result, fmt.Errorf("fetch seed page: %w", err)
	}

	result.Success = true
	result.PageInfo = &seedRes.Page
	collectPdfLinks(pdfSet, seedURL, seedRes.Page.RawHTML)
	collectStructuredData(result, &seedRes.Page)

	frontier := c.nextFrontier(seed, visited, []fetchOutcome{{result: seedRes, depth: 0}}, maxDepth)

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		if ctx.Err() != nil {
			c.log.Warn("crawl cancelled, returning partial results",
				logger.String("seed_url", seedURL),
				logger.Int("depth", depth),
			)
			break
		}

		outcomes := c.fetchLevel(ctx, frontier, depth)

		for _, out := range outcomes {
			if out.err != nil {
				result.Errors = append(result.Errors, domain.CrawlError{
					URL:   out.target.URL,
					Depth: out.depth,
					Error: out.err.Error(),
				})
				continue
			}

			result.LinkedContent = append(result.LinkedContent, out.result.Page)
			collectPdfLinks(pdfSet, out.target.URL, out.result.Page.RawHTML)
			collectStructuredData(result, &out.result.Page)
		}

		frontier = c.nextFrontier(seed, visited, outcomes, maxDepth-depth)
	}

	for _, link := range pdfSet {
		result.PdfLinks = append(result.PdfLinks, link)
	}

	c.log.Info("crawl completed",
		logger.String("seed_url", seedURL),
		logger.Int("linked_pages", len(result.LinkedContent)),
		logger.Int("pdf_links", len(result.PdfLinks)),
		logger.Int("structured_blocks", len(result.StructuredData)),
		logger.Int("errors", len(result.Errors)),
	)

	return result, nil
}

// fetchLevel fetches all targets of one depth level concurrently, bounded by
// maxConcurrency, and blocks until every fetch has resolved.
func (c *Coordinator) fetchLevel(ctx context.Context, targets []domain.CrawlTarget, depth int) []fetchOutcome {
	sem := make(chan struct{}, c.maxConcurrency)
	outcomes := make([]fetchOutcome, len(targets))

	var wg sync.WaitGroup

	for i, target := range targets {
		if ctx.Err() != nil {
			outcomes[i] = fetchOutcome{target: target, depth: depth, err: ctx.Err()}
			continue
		}

		wg.Add(1)

		go func(idx int, t domain.CrawlTarget) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			res, fetchErr := c.fetcher.Fetch(ctx, t.URL)
			outcomes[idx] = fetchOutcome{target: t, depth: depth, result: res, err: fetchErr}
		}(i, target)
	}

	wg.Wait()

	return outcomes
}

// nextFrontier builds the next depth level from successful fetches: same-host
// page links not yet visited. Targets are marked visited at enqueue time so a
// URL discovered on two pages in the same level is fetched once. When
// depthBudget is 0 no links are enqueued.
func (c *Coordinator) nextFrontier(
	seed *url.URL,
	visited map[string]struct{},
	outcomes []fetchOutcome,
	depthBudget int,
) []domain.CrawlTarget {
	if depthBudget <= 0 {
		return nil
	}

	var frontier []domain.CrawlTarget

	for _, out := range outcomes {
		if out.err != nil || out.result == nil {
			continue
		}

		for _, link := range out.result.Links {
			if link.Kind != domain.LinkKindPage {
				continue
			}

			if !sameHost(seed, link.URL) {
				continue
			}

			key := normalizeURL(link.URL)
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}

			frontier = append(frontier, domain.CrawlTarget{
				URL:            link.URL,
				DepthRemaining: depthBudget - 1,
				Origin:         domain.OriginDiscovered,
			})
		}
	}

	return frontier
}

// collectStructuredData attributes a page's JSON-LD blocks to their source
// page and appends them to the crawl result.
func collectStructuredData(result *domain.CrawlResult, page *domain.PageRecord) {
	for _, payload := range page.StructuredData {
		result.StructuredData = append(result.StructuredData, domain.StructuredBlock{
			SourceURL: page.URL,
			JSON:      payload,
		})
	}
}

// sameHost reports whether rawURL points at the seed's host.
func sameHost(seed *url.URL, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	return strings.EqualFold(parsed.Host, seed.Host)
}

// normalizeURL produces the dedup key for a URL: lowercased scheme and host,
// no fragment, no trailing slash.
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	s := parsed.String()
	return strings.TrimSuffix(s, "/")
}
