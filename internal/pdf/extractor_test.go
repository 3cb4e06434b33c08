package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

type fakeBytesFetcher struct {
	data map[string][]byte
	errs map[string]error
}

func (f *fakeBytesFetcher) FetchBytes(_ context.Context, rawURL string) ([]byte, error) {
	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	return f.data[rawURL], nil
}

type fakeReader struct {
	texts map[string]string
	errs  map[string]error
}

func (r *fakeReader) ExtractText(_ context.Context, data []byte, mimeType string) (string, error) {
	if mimeType != "application/pdf" {
		return "", errors.New("unexpected mime type " + mimeType)
	}

	key := string(data)
	if err, ok := r.errs[key]; ok {
		return "", err
	}
	return r.texts[key], nil
}

func pdfLinks(urls ...string) []domain.PdfLink {
	links := make([]domain.PdfLink, 0, len(urls))
	for _, u := range urls {
		links = append(links, domain.PdfLink{PdfURL: u, Pattern: domain.PdfPatternHref})
	}
	return links
}

func TestExtractAll_AllSucceed(t *testing.T) {
	fetcher := &fakeBytesFetcher{data: map[string][]byte{
		"https://example.se/a.pdf": []byte("doc-a"),
		"https://example.se/b.pdf": []byte("doc-b"),
	}}
	reader := &fakeReader{texts: map[string]string{
		"doc-a": "Prislista Vitara",
		"doc-b": "Prislista Swift",
	}}

	e := New(fetcher, reader, logger.NewNop(), 0)

	summary := e.ExtractAll(context.Background(), pdfLinks(
		"https://example.se/a.pdf",
		"https://example.se/b.pdf",
	))

	assert.Equal(t, domain.PdfStatusSuccess, summary.OverallStatus)
	assert.Equal(t, 2, summary.TotalFound)
	assert.Equal(t, 2, summary.TotalProcessed)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "Prislista Vitara", summary.Results[0].Text)
}

func TestExtractAll_OneFailureYieldsPartial(t *testing.T) {
	fetcher := &fakeBytesFetcher{
		data: map[string][]byte{
			"https://example.se/a.pdf": []byte("doc-a"),
			"https://example.se/c.pdf": []byte("doc-c"),
		},
		errs: map[string]error{
			"https://example.se/b.pdf": errors.New("http status 404"),
		},
	}
	reader := &fakeReader{texts: map[string]string{
		"doc-a": "text a",
		"doc-c": "text c",
	}}

	e := New(fetcher, reader, logger.NewNop(), 0)

	summary := e.ExtractAll(context.Background(), pdfLinks(
		"https://example.se/a.pdf",
		"https://example.se/b.pdf",
		"https://example.se/c.pdf",
	))

	assert.Equal(t, domain.PdfStatusPartial, summary.OverallStatus)
	assert.Equal(t, 3, summary.TotalFound)
	assert.Equal(t, 2, summary.TotalProcessed)

	// The failing document is reported in place, with the others unaffected.
	require.Len(t, summary.Results, 3)
	assert.True(t, summary.Results[0].Success)
	assert.False(t, summary.Results[1].Success)
	assert.Contains(t, summary.Results[1].Error, "http status 404")
	assert.True(t, summary.Results[2].Success)
}

func TestExtractAll_ReaderFailureCountsAsFailed(t *testing.T) {
	fetcher := &fakeBytesFetcher{data: map[string][]byte{
		"https://example.se/a.pdf": []byte("doc-a"),
	}}
	reader := &fakeReader{errs: map[string]error{
		"doc-a": errors.New("document could not be parsed"),
	}}

	e := New(fetcher, reader, logger.NewNop(), 0)

	summary := e.ExtractAll(context.Background(), pdfLinks("https://example.se/a.pdf"))

	assert.Equal(t, domain.PdfStatusFailed, summary.OverallStatus)
	assert.Equal(t, 0, summary.TotalProcessed)
	require.Len(t, summary.Results, 1)
	assert.Contains(t, summary.Results[0].Error, "could not be parsed")
}

func TestExtractAll_EmptyBatchIsSuccess(t *testing.T) {
	e := New(&fakeBytesFetcher{}, &fakeReader{}, logger.NewNop(), 0)

	summary := e.ExtractAll(context.Background(), nil)

	assert.Equal(t, domain.PdfStatusSuccess, summary.OverallStatus)
	assert.Equal(t, 0, summary.TotalFound)
	assert.Empty(t, summary.Results)
}
