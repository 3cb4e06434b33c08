package domain

import "strings"

// SectionKind identifies where a canonical document section came from.
type SectionKind string

const (
	// SectionPrimary is the seed page's own content.
	SectionPrimary SectionKind = "primary"
	// SectionLinked is an excerpt from a linked page.
	SectionLinked SectionKind = "linked"
	// SectionPdf is text extracted from a PDF document.
	SectionPdf SectionKind = "pdf"
	// SectionStructured is a JSON-LD block found on a fetched page.
	SectionStructured SectionKind = "structured"
)

// DocumentSection is one source-tagged slice of the canonical document.
// Provenance is preserved so the fact-check pass can cite the exact source
// of a claim.
type DocumentSection struct {
	Kind      SectionKind `json:"kind"`
	SourceURL string      `json:"source_url"`
	Title     string      `json:"title,omitempty"`
	Text      string      `json:"text"`
}

// CanonicalDocument is the single merged text representation fed to
// extraction: primary page content plus linked-page excerpts plus PDF text,
// each section tagged with its source URL.
type CanonicalDocument struct {
	SeedURL  string            `json:"seed_url"`
	Sections []DocumentSection `json:"sections"`
}

// SectionFor returns the first section whose text contains the given excerpt,
// or nil when no section does. Used to resolve a claim back to its source.
func (d *CanonicalDocument) SectionFor(excerpt string) *DocumentSection {
	if excerpt == "" {
		return nil
	}
	for i := range d.Sections {
		if containsFold(d.Sections[i].Text, excerpt) {
			return &d.Sections[i]
		}
	}
	return nil
}

// containsFold reports whether s contains substr, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
