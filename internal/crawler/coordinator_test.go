package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/fetcher"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// fakeFetcher serves canned pages keyed by URL and records every fetch.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]*fetcher.Result
	errs    map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Result, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawURL)
	f.mu.Unlock()

	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}

	res, ok := f.pages[rawURL]
	if !ok {
		return nil, errors.New("no canned page for " + rawURL)
	}

	return res, nil
}

func (f *fakeFetcher) fetchCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, u := range f.fetched {
		if u == rawURL {
			n++
		}
	}
	return n
}

func page(url string, links ...domain.Link) *fetcher.Result {
	return &fetcher.Result{
		Page:  domain.PageRecord{URL: url, Title: url},
		Links: links,
	}
}

func pageLink(url string) domain.Link {
	return domain.Link{URL: url, Kind: domain.LinkKindPage}
}

func TestCrawl_SeedOnlyAtDepthZero(t *testing.T) {
	seed := "https://example.se"
	f := &fakeFetcher{pages: map[string]*fetcher.Result{
		seed: page(seed, pageLink("https://example.se/bilar")),
	}}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 2})

	result, err := c.Crawl(context.Background(), seed, 0)

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.PageInfo)
	assert.Equal(t, seed, result.PageInfo.URL)
	assert.Empty(t, result.LinkedContent)
	assert.Len(t, f.fetched, 1)
}

func TestCrawl_DepthBoundIsRespected(t *testing.T) {
	seed := "https://example.se"
	f := &fakeFetcher{pages: map[string]*fetcher.Result{
		seed:                       page(seed, pageLink("https://example.se/a")),
		"https://example.se/a":     page("https://example.se/a", pageLink("https://example.se/a/b")),
		"https://example.se/a/b":   page("https://example.se/a/b", pageLink("https://example.se/a/b/c")),
		"https://example.se/a/b/c": page("https://example.se/a/b/c"),
	}}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 2})

	result, err := c.Crawl(context.Background(), seed, 2)

	require.NoError(t, err)
	assert.Len(t, result.LinkedContent, 2)
	assert.Equal(t, 0, f.fetchCount("https://example.se/a/b/c"))
}

func TestCrawl_VisitedURLFetchedOnce(t *testing.T) {
	seed := "https://example.se"

	// Both level-1 pages link the same target, plus a fragment/trailing-slash
	// variant of an already visited page.
	f := &fakeFetcher{pages: map[string]*fetcher.Result{
		seed: page(seed, pageLink("https://example.se/a"), pageLink("https://example.se/b")),
		"https://example.se/a": page("https://example.se/a",
			pageLink("https://example.se/shared"),
			pageLink("https://example.se/b/")),
		"https://example.se/b": page("https://example.se/b",
			pageLink("https://example.se/shared#section")),
		"https://example.se/shared": page("https://example.se/shared"),
	}}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 4})

	result, err := c.Crawl(context.Background(), seed, 3)

	require.NoError(t, err)
	assert.Len(t, result.LinkedContent, 3)
	assert.Equal(t, 1, f.fetchCount("https://example.se/shared"))
	assert.Equal(t, 0, f.fetchCount("https://example.se/b/"))
	assert.Equal(t, 0, f.fetchCount("https://example.se/shared#section"))
}

func TestCrawl_OffHostLinksAreSkipped(t *testing.T) {
	seed := "https://example.se"
	f := &fakeFetcher{pages: map[string]*fetcher.Result{
		seed: page(seed,
			pageLink("https://example.se/bilar"),
			pageLink("https://other.se/kampanj")),
		"https://example.se/bilar": page("https://example.se/bilar"),
	}}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 2})

	result, err := c.Crawl(context.Background(), seed, 1)

	require.NoError(t, err)
	assert.Len(t, result.LinkedContent, 1)
	assert.Equal(t, 0, f.fetchCount("https://other.se/kampanj"))
}

func TestCrawl_SeedFailureAborts(t *testing.T) {
	seed := "https://example.se"
	f := &fakeFetcher{
		pages: map[string]*fetcher.Result{},
		errs:  map[string]error{seed: errors.New("connection refused")},
	}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 2})

	result, err := c.Crawl(context.Background(), seed, 2)

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "connection refused")
	assert.Empty(t, result.LinkedContent)
}

func TestCrawl_LinkedPageFailureIsRecorded(t *testing.T) {
	seed := "https://example.se"
	f := &fakeFetcher{
		pages: map[string]*fetcher.Result{
			seed: page(seed,
				pageLink("https://example.se/ok"),
				pageLink("https://example.se/broken")),
			"https://example.se/ok": page("https://example.se/ok"),
		},
		errs: map[string]error{
			"https://example.se/broken": errors.New("http status 500"),
		},
	}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 2})

	result, err := c.Crawl(context.Background(), seed, 1)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.LinkedContent, 1)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "https://example.se/broken", result.Errors[0].URL)
	assert.Equal(t, 1, result.Errors[0].Depth)
	assert.Contains(t, result.Errors[0].Error, "http status 500")
}

func TestCrawl_CancellationReturnsPartialResults(t *testing.T) {
	seed := "https://example.se"
	f := &fakeFetcher{pages: map[string]*fetcher.Result{
		seed:                   page(seed, pageLink("https://example.se/a")),
		"https://example.se/a": page("https://example.se/a", pageLink("https://example.se/never")),
	}}

	ctx, cancel := context.WithCancel(context.Background())

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 1})

	// Cancel after the seed page: level 1 sees a cancelled context before it
	// dispatches and the crawl returns what it already has.
	cancel()

	result, err := c.Crawl(ctx, seed, 3)

	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.PageInfo)
	assert.Equal(t, 0, f.fetchCount("https://example.se/never"))
}

func TestCrawl_PdfLinksAggregatedAcrossLevels(t *testing.T) {
	seed := "https://example.se"
	f := &fakeFetcher{pages: map[string]*fetcher.Result{
		seed: {
			Page: domain.PageRecord{
				URL:     seed,
				RawHTML: `<html><body><a href="/prislista.pdf">Prislista</a><a href="/bilar">Bilar</a></body></html>`,
			},
			Links: []domain.Link{pageLink("https://example.se/bilar")},
		},
		"https://example.se/bilar": {
			Page: domain.PageRecord{
				URL:     "https://example.se/bilar",
				RawHTML: `<html><body><embed src="/broschyr.pdf"></body></html>`,
			},
		},
	}}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 2})

	result, err := c.Crawl(context.Background(), seed, 1)

	require.NoError(t, err)
	require.Len(t, result.PdfLinks, 2)

	urls := make(map[string]string, len(result.PdfLinks))
	for _, link := range result.PdfLinks {
		urls[link.PdfURL] = link.SourceURL
	}

	assert.Equal(t, seed, urls["https://example.se/prislista.pdf"])
	assert.Equal(t, "https://example.se/bilar", urls["https://example.se/broschyr.pdf"])
}

func TestCrawl_StructuredDataAttributedToSourcePage(t *testing.T) {
	seed := "https://example.se"

	seedRes := page(seed, pageLink("https://example.se/bilar"))
	seedRes.Page.StructuredData = []string{`{"@type":"AutoDealer","name":"Kronobergs Bil"}`}

	linked := page("https://example.se/bilar")
	linked.Page.StructuredData = []string{
		`{"@type":"Product","name":"Vitara"}`,
		`{"@type":"Product","name":"Swift"}`,
	}

	f := &fakeFetcher{pages: map[string]*fetcher.Result{
		seed:                       seedRes,
		"https://example.se/bilar": linked,
	}}

	c := New(f, logger.NewNop(), Config{MaxConcurrency: 2})

	result, err := c.Crawl(context.Background(), seed, 1)

	require.NoError(t, err)
	require.Len(t, result.StructuredData, 3)

	assert.Equal(t, seed, result.StructuredData[0].SourceURL)
	assert.Equal(t, `{"@type":"AutoDealer","name":"Kronobergs Bil"}`, result.StructuredData[0].JSON)
	assert.Equal(t, "https://example.se/bilar", result.StructuredData[1].SourceURL)
	assert.Equal(t, "https://example.se/bilar", result.StructuredData[2].SourceURL)
}
