package fetcher

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
)

// nonContentSelectors lists elements stripped before extracting body text.
const nonContentSelectors = "script, style, nav, header, footer, noscript"

// extractPage parses the HTML and builds a PageRecord plus the classified
// outbound links found in anchor tags.
func extractPage(pageURL string, body []byte) (*domain.PageRecord, []domain.Link, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse page url: %w", err)
	}

	links := extractLinks(doc, base)

	// JSON-LD blocks must be read before extractBodyText strips script
	// elements from the document.
	structured := extractStructuredData(doc)
	cleaned := extractBodyText(doc)

	page := &domain.PageRecord{
		URL:            pageURL,
		Title:          extractTitle(doc),
		Description:    extractDescription(doc),
		RawHTML:        string(body),
		CleanedText:    cleaned,
		ContentLength:  len(cleaned),
		LinkCount:      len(links),
		StructuredData: structured,
		FetchedAt:      time.Now(),
	}

	return page, links, nil
}

// extractLinks collects deduplicated classified links from anchor hrefs.
func extractLinks(doc *goquery.Document, base *url.URL) []domain.Link {
	seen := make(map[string]struct{})
	var links []domain.Link

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")

		abs, kind, ok := ClassifyLink(base, href)
		if !ok {
			return
		}

		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}

		links = append(links, domain.Link{URL: abs, Kind: kind})
	})

	return links
}

// extractStructuredData collects the page's JSON-LD payloads. Blocks that do
// not parse as JSON are skipped.
func extractStructuredData(doc *goquery.Document) []string {
	var blocks []string

	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		payload := strings.TrimSpace(s.Text())
		if payload == "" || !json.Valid([]byte(payload)) {
			return
		}

		blocks = append(blocks, payload)
	})

	return blocks
}

// extractTitle prefers <title>, falling back to og:title.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}

	return ""
}

// extractDescription reads the meta description, falling back to og:description.
func extractDescription(doc *goquery.Document) string {
	if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		return strings.TrimSpace(desc)
	}

	if ogDesc, exists := doc.Find("meta[property='og:description']").Attr("content"); exists {
		return strings.TrimSpace(ogDesc)
	}

	return ""
}

// extractBodyText extracts readable text, preferring <main> then <body>
// with non-content elements stripped.
func extractBodyText(doc *goquery.Document) string {
	main := doc.Find("main").First()
	if main.Length() > 0 {
		main.Find(nonContentSelectors).Remove()
		return collapseWhitespace(main.Text())
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		body.Find(nonContentSelectors).Remove()
		return collapseWhitespace(body.Text())
	}

	return ""
}

// collapseWhitespace normalizes runs of whitespace to single spaces while
// keeping line breaks between blocks.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return strings.Join(out, "\n")
}
