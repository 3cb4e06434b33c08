package domain

import "time"

// PdfStatus is the aggregate outcome of a PDF extraction batch.
type PdfStatus string

const (
	// PdfStatusSuccess means every attempted PDF was extracted.
	PdfStatusSuccess PdfStatus = "success"
	// PdfStatusPartial means some PDFs were extracted and some failed.
	PdfStatusPartial PdfStatus = "partial"
	// PdfStatusFailed means at least one PDF was attempted and none succeeded.
	PdfStatusFailed PdfStatus = "failed"
)

// PdfExtractionResult is the outcome of extracting text from one PDF.
type PdfExtractionResult struct {
	URL      string        `json:"url"`
	Success  bool          `json:"success"`
	Text     string        `json:"text,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// PdfProcessingSummary aggregates a batch of PDF extraction results.
type PdfProcessingSummary struct {
	TotalFound     int                   `json:"total_found"`
	TotalProcessed int                   `json:"total_processed"`
	OverallStatus  PdfStatus             `json:"overall_status"`
	Results        []PdfExtractionResult `json:"results"`
	TotalDuration  time.Duration         `json:"total_duration"`
}
