// Package domain defines the core types shared across the scraper pipeline.
package domain

import "time"

// Crawl origin values for a CrawlTarget.
const (
	OriginSeed       = "seed"
	OriginDiscovered = "discovered"
)

// LinkKind classifies an outbound link found on a fetched page.
type LinkKind string

const (
	// LinkKindPage is a link to another HTML page.
	LinkKindPage LinkKind = "page"
	// LinkKindPDF is a link to a PDF document.
	LinkKindPDF LinkKind = "pdf"
	// LinkKindAsset is a link to a non-page, non-PDF resource (images, scripts, archives).
	LinkKindAsset LinkKind = "asset"
)

// CrawlTarget is one frontier entry: a URL to fetch with its remaining depth
// budget. Targets are consumed exactly once and never mutated after dispatch.
type CrawlTarget struct {
	URL            string
	DepthRemaining int
	Origin         string
}

// Link is a classified outbound link discovered on a page.
type Link struct {
	URL  string
	Kind LinkKind
}

// PageRecord holds the result of fetching and cleaning a single HTML page.
type PageRecord struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	RawHTML        string    `json:"-"`
	CleanedText    string    `json:"cleaned_text"`
	ContentLength  int       `json:"content_length"`
	LinkCount      int       `json:"link_count"`
	StructuredData []string  `json:"structured_data,omitempty"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// StructuredBlock is one JSON-LD payload found on a fetched page, kept with
// the page it came from.
type StructuredBlock struct {
	SourceURL string `json:"source_url"`
	JSON      string `json:"json"`
}

// PdfLink records a PDF URL discovered during the crawl together with the
// page it was found on and the discovery pattern that matched it. The same
// PDF may be matched by several patterns; the coordinator deduplicates by
// normalized absolute URL.
type PdfLink struct {
	SourceURL string `json:"source_url"`
	PdfURL    string `json:"pdf_url"`
	Pattern   string `json:"pattern"`
}

// PDF discovery pattern names.
const (
	PdfPatternHref     = "href"
	PdfPatternDataHref = "data-href"
	PdfPatternEmbedSrc = "embed-src"
	PdfPatternBareURL  = "bare-url"
)

// CrawlError records a non-fatal failure for a single linked page.
type CrawlError struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
	Error string `json:"error"`
}

// CrawlResult aggregates everything a depth-bounded crawl produced.
// Success is false only when the seed page itself could not be fetched;
// linked-page failures are collected into Errors and do not fail the crawl.
type CrawlResult struct {
	Success        bool              `json:"success"`
	SeedURL        string            `json:"seed_url"`
	PageInfo       *PageRecord       `json:"page_info,omitempty"`
	LinkedContent  []PageRecord      `json:"linked_content"`
	PdfLinks       []PdfLink         `json:"pdf_links"`
	StructuredData []StructuredBlock `json:"structured_data"`
	Errors         []CrawlError      `json:"errors,omitempty"`
	Error          string            `json:"error,omitempty"`
}
