package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
)

// barePdfURLPattern finds absolute PDF URLs appearing in raw text, inline
// JSON, or script fragments where no parseable attribute carries them.
var barePdfURLPattern = regexp.MustCompile(`(?i)https?://[^\s"'<>\\]+\.pdf`)

// collectPdfLinks runs every discovery pattern over the page HTML and merges
// the matches into pdfSet, keyed by normalized absolute URL. A PDF referenced
// by several patterns is recorded once, under the first pattern that saw it.
func collectPdfLinks(pdfSet map[string]domain.PdfLink, pageURL, rawHTML string) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}

	add := func(candidate, pattern string) {
		abs, ok := resolvePdfURL(base, candidate)
		if !ok {
			return
		}

		key := normalizeURL(abs)
		if _, seen := pdfSet[key]; seen {
			return
		}

		pdfSet[key] = domain.PdfLink{
			SourceURL: pageURL,
			PdfURL:    abs,
			Pattern:   pattern,
		}
	}

	if doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(rawHTML)); parseErr == nil {
		doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			add(href, domain.PdfPatternHref)
		})

		doc.Find("[data-href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("data-href")
			add(href, domain.PdfPatternDataHref)
		})

		doc.Find("embed[src], iframe[src]").Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			add(src, domain.PdfPatternEmbedSrc)
		})

		doc.Find("object[data]").Each(func(_ int, s *goquery.Selection) {
			data, _ := s.Attr("data")
			add(data, domain.PdfPatternEmbedSrc)
		})
	}

	// Fallback scan for bare URLs the attribute pass cannot see.
	for _, match := range barePdfURLPattern.FindAllString(rawHTML, -1) {
		add(match, domain.PdfPatternBareURL)
	}
}

// resolvePdfURL resolves candidate against base and accepts it only when the
// target path ends in .pdf (case-insensitive).
func resolvePdfURL(base *url.URL, candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}

	ref, err := url.Parse(candidate)
	if err != nil {
		return "", false
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}

	if !strings.HasSuffix(strings.ToLower(abs.Path), ".pdf") {
		return "", false
	}

	abs.Fragment = ""

	return abs.String(), true
}
