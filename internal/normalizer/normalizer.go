// Package normalizer merges crawl output into one canonical document.
package normalizer

import (
	"strings"
	"unicode/utf8"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
)

// maxLinkedExcerptLen caps how much of each linked page is carried into the
// canonical document; the primary page and PDFs are included in full.
const maxLinkedExcerptLen = 4000

// Merge builds the canonical document from the crawl result and the PDF
// extraction summary: page text, the crawl's JSON-LD blocks, and PDF text.
// Every section is tagged with its source URL so the fact-check pass can cite
// where a claim came from. Failed PDFs contribute no section.
func Merge(crawl *domain.CrawlResult, pdfs *domain.PdfProcessingSummary) *domain.CanonicalDocument {
	doc := &domain.CanonicalDocument{SeedURL: crawl.SeedURL}

	if crawl.PageInfo != nil && crawl.PageInfo.CleanedText != "" {
		doc.Sections = append(doc.Sections, domain.DocumentSection{
			Kind:      domain.SectionPrimary,
			SourceURL: crawl.PageInfo.URL,
			Title:     crawl.PageInfo.Title,
			Text:      crawl.PageInfo.CleanedText,
		})
	}

	for i := range crawl.LinkedContent {
		page := &crawl.LinkedContent[i]
		if page.CleanedText == "" {
			continue
		}

		doc.Sections = append(doc.Sections, domain.DocumentSection{
			Kind:      domain.SectionLinked,
			SourceURL: page.URL,
			Title:     page.Title,
			Text:      excerpt(page.CleanedText, maxLinkedExcerptLen),
		})
	}

	for _, block := range crawl.StructuredData {
		doc.Sections = append(doc.Sections, domain.DocumentSection{
			Kind:      domain.SectionStructured,
			SourceURL: block.SourceURL,
			Text:      block.JSON,
		})
	}

	if pdfs != nil {
		for _, res := range pdfs.Results {
			if !res.Success || res.Text == "" {
				continue
			}

			doc.Sections = append(doc.Sections, domain.DocumentSection{
				Kind:      domain.SectionPdf,
				SourceURL: res.URL,
				Text:      res.Text,
			})
		}
	}

	return doc
}

// Render flattens the canonical document into the prompt text handed to the
// extraction capability, with a source header per section.
func Render(doc *domain.CanonicalDocument) string {
	var b strings.Builder

	for i := range doc.Sections {
		s := &doc.Sections[i]

		b.WriteString("=== SOURCE: ")
		b.WriteString(s.SourceURL)
		b.WriteString(" (")
		b.WriteString(string(s.Kind))
		b.WriteString(") ===\n")

		if s.Title != "" {
			b.WriteString(s.Title)
			b.WriteString("\n")
		}

		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}

// excerpt truncates text to max runes at a word boundary. Cutting on runes
// keeps multi-byte characters intact when no boundary is found.
func excerpt(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	cut := string([]rune(text)[:max])
	if idx := strings.LastIndexAny(cut, " \n"); idx > 0 {
		cut = cut[:idx]
	}

	return cut
}
