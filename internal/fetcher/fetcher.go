// Package fetcher retrieves single pages and classifies their outbound links.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// DefaultMaxBodyBytes caps the size of fetched responses.
const DefaultMaxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Config configures the fetcher.
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// RateLimit is the maximum requests per second per host.
	RateLimit float64
}

// FetchError wraps a network or HTTP-status failure for a single URL.
// Fetch errors are isolated: callers skip the page and continue.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Result is the outcome of fetching one page.
type Result struct {
	Page  domain.PageRecord
	Links []domain.Link
}

// cachedResponse holds a previously fetched body together with the
// validators the server sent for it.
type cachedResponse struct {
	etag         string
	lastModified string
	body         []byte
}

// Fetcher fetches pages over HTTP with a per-host rate limit.
// It knows nothing about the crawl graph; the coordinator owns that.
type Fetcher struct {
	client       *http.Client
	log          logger.Logger
	userAgent    string
	maxBodyBytes int64
	rateLimit    float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	cache    map[string]*cachedResponse
}

// New creates a Fetcher.
func New(cfg Config, log logger.Logger) *Fetcher {
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return &Fetcher{
		client:       &http.Client{Timeout: cfg.RequestTimeout},
		log:          log,
		userAgent:    cfg.UserAgent,
		maxBodyBytes: maxBody,
		rateLimit:    cfg.RateLimit,
		limiters:     make(map[string]*rate.Limiter),
		cache:        make(map[string]*cachedResponse),
	}
}

// Fetch retrieves the page at rawURL, extracts its metadata and text, and
// classifies every outbound link found in the HTML.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.waitForHost(ctx, rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	body, statusCode, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	if statusCode != http.StatusOK {
		return nil, &FetchError{URL: rawURL, StatusCode: statusCode}
	}

	page, links, err := extractPage(rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("extract page %s: %w", rawURL, err)
	}

	f.log.Debug("page fetched",
		logger.String("url", rawURL),
		logger.Int("links", len(links)),
		logger.Int("content_length", page.ContentLength),
	)

	return &Result{Page: *page, Links: links}, nil
}

// FetchBytes downloads a raw resource (used for PDF documents). The response
// body is capped at the configured size limit.
func (f *Fetcher) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.waitForHost(ctx, rawURL); err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	body, statusCode, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	if statusCode != http.StatusOK {
		return nil, &FetchError{URL: rawURL, StatusCode: statusCode}
	}

	return body, nil
}

// waitForHost blocks until the per-host rate limiter permits a request.
func (f *Fetcher) waitForHost(ctx context.Context, rawURL string) error {
	if f.rateLimit <= 0 {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	f.mu.Lock()
	limiter, ok := f.limiters[parsed.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(f.rateLimit), 1)
		f.limiters[parsed.Host] = limiter
	}
	f.mu.Unlock()

	if waitErr := limiter.Wait(ctx); waitErr != nil {
		return fmt.Errorf("rate limit wait: %w", waitErr)
	}

	return nil
}

// get performs the HTTP GET and reads the size-capped body. Revisits send
// the validators remembered from the previous response; a 304 serves the
// cached body transparently.
func (f *Fetcher) get(ctx context.Context, rawURL string) (body []byte, statusCode int, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if reqErr != nil {
		return nil, 0, fmt.Errorf("create request: %w", reqErr)
	}

	req.Header.Set("User-Agent", f.userAgent)

	f.mu.Lock()
	cached := f.cache[rawURL]
	f.mu.Unlock()

	if cached != nil {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	resp, doErr := f.client.Do(req)
	if doErr != nil {
		return nil, 0, fmt.Errorf("http fetch: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		f.log.Debug("not modified, serving cached body", logger.String("url", rawURL))
		return cached.body, http.StatusOK, nil
	}

	limited := io.LimitReader(resp.Body, f.maxBodyBytes)

	body, readErr := io.ReadAll(limited)
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", readErr)
	}

	if resp.StatusCode == http.StatusOK {
		f.remember(rawURL, resp, body)
	}

	return body, resp.StatusCode, nil
}

// remember stores the body and validators for a successful response, so the
// next fetch of the same URL can be conditional.
func (f *Fetcher) remember(rawURL string, resp *http.Response, body []byte) {
	etag := resp.Header.Get("ETag")
	lastModified := resp.Header.Get("Last-Modified")
	if etag == "" && lastModified == "" {
		return
	}

	f.mu.Lock()
	f.cache[rawURL] = &cachedResponse{
		etag:         etag,
		lastModified: lastModified,
		body:         body,
	}
	f.mu.Unlock()
}

// assetExtensions are link suffixes treated as non-page resources.
var assetExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".ico",
	".css", ".js", ".woff", ".woff2", ".ttf",
	".zip", ".rar", ".mp4", ".webm", ".xml", ".json",
}

// ClassifyLink resolves href against base and classifies the target.
// Returns the absolute URL and its kind, or ok=false for unusable links
// (fragments, mailto, javascript, unparseable).
func ClassifyLink(base *url.URL, href string) (absolute string, kind domain.LinkKind, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:") {
		return "", "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", "", false
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", "", false
	}

	abs.Fragment = ""
	lowerPath := strings.ToLower(abs.Path)

	if strings.HasSuffix(lowerPath, ".pdf") {
		return abs.String(), domain.LinkKindPDF, true
	}

	for _, ext := range assetExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			return abs.String(), domain.LinkKindAsset, true
		}
	}

	return abs.String(), domain.LinkKindPage, true
}
