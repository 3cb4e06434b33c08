// Package pdf downloads PDF documents and extracts their text content.
package pdf

import (
	"context"
	"time"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// pdfMimeType is passed to the document reader for every download.
const pdfMimeType = "application/pdf"

// BytesFetcher downloads a raw resource. Satisfied by *fetcher.Fetcher.
type BytesFetcher interface {
	FetchBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// DocumentReader converts document bytes into text. Implemented by the
// Anthropic adapter; faked in tests.
type DocumentReader interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Extractor processes batches of discovered PDF links. Failures are isolated
// per document: one failing PDF never fails the batch.
type Extractor struct {
	fetcher BytesFetcher
	reader  DocumentReader
	log     logger.Logger
	timeout time.Duration
}

// New creates a PDF extractor. timeout bounds the combined download and
// read time for a single document; zero means no per-document bound.
func New(f BytesFetcher, reader DocumentReader, log logger.Logger, timeout time.Duration) *Extractor {
	return &Extractor{
		fetcher: f,
		reader:  reader,
		log:     log,
		timeout: timeout,
	}
}

// ExtractAll downloads and reads every linked PDF sequentially, aggregating
// per-document outcomes into a summary. Overall status is success only when
// every attempted document succeeded, partial when some did, failed when at
// least one was attempted and none succeeded.
func (e *Extractor) ExtractAll(ctx context.Context, links []domain.PdfLink) domain.PdfProcessingSummary {
	summary := domain.PdfProcessingSummary{
		TotalFound:    len(links),
		OverallStatus: domain.PdfStatusSuccess,
	}

	if len(links) == 0 {
		return summary
	}

	for _, link := range links {
		res := e.extractOne(ctx, link)
		summary.Results = append(summary.Results, res)
		summary.TotalDuration += res.Duration

		if res.Success {
			summary.TotalProcessed++
		} else {
			e.log.Warn("pdf extraction failed",
				logger.String("url", link.PdfURL),
				logger.String("error", res.Error),
			)
		}
	}

	switch {
	case summary.TotalProcessed == len(links):
		summary.OverallStatus = domain.PdfStatusSuccess
	case summary.TotalProcessed > 0:
		summary.OverallStatus = domain.PdfStatusPartial
	default:
		summary.OverallStatus = domain.PdfStatusFailed
	}

	return summary
}

// extractOne downloads one PDF and passes it to the document reader.
func (e *Extractor) extractOne(ctx context.Context, link domain.PdfLink) domain.PdfExtractionResult {
	started := time.Now()

	result := domain.PdfExtractionResult{URL: link.PdfURL}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	data, err := e.fetcher.FetchBytes(ctx, link.PdfURL)
	if err != nil {
		result.Duration = time.Since(started)
		result.Error = err.Error()
		return result
	}

	text, err := e.reader.ExtractText(ctx, data, pdfMimeType)
	result.Duration = time.Since(started)

	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Text = text

	return result
}
