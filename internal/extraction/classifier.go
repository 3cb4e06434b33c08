// Package extraction turns canonical documents into typed entities and
// cross-checks their factual claims.
package extraction

import (
	"context"
	"fmt"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/normalizer"
)

// Output is what the structured-extraction capability returns for a document.
type Output struct {
	Category domain.ContentCategory   `json:"category"`
	Entities []domain.ExtractedEntity `json:"entities"`
}

// StructuredExtractor is the AI capability that classifies content and
// extracts typed entities from it. Implemented by the Anthropic adapter.
type StructuredExtractor interface {
	Extract(ctx context.Context, canonicalText string, hint domain.ContentCategory) (*Output, error)
}

// ExtractionError reports a capability failure or malformed output for one
// document. It fails that document's entities, not sibling documents.
type ExtractionError struct {
	SourceURL string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction for %s: %v", e.SourceURL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Result is the classifier's output for one canonical document.
type Result struct {
	ContentType domain.ContentCategory
	Entities    []domain.ExtractedEntity
}

// Classifier resolves the content category and runs structured extraction.
type Classifier struct {
	extractor StructuredExtractor
	log       logger.Logger
}

// NewClassifier creates a classifier over the given extraction capability.
func NewClassifier(extractor StructuredExtractor, log logger.Logger) *Classifier {
	return &Classifier{extractor: extractor, log: log}
}

// Classify extracts typed entities from the canonical document. An explicit
// category hint short-circuits classification; CategoryAutoDetect asks the
// capability to classify the content itself. Unknown categories are rejected
// here rather than propagated downstream.
func (c *Classifier) Classify(
	ctx context.Context,
	doc *domain.CanonicalDocument,
	hint domain.ContentCategory,
) (*Result, error) {
	if hint != domain.CategoryAutoDetect && !domain.KnownCategory(hint) {
		return nil, &ExtractionError{
			SourceURL: doc.SeedURL,
			Err:       fmt.Errorf("unknown category hint %q", hint),
		}
	}

	text := normalizer.Render(doc)
	if text == "" {
		return nil, &ExtractionError{SourceURL: doc.SeedURL, Err: fmt.Errorf("empty canonical document")}
	}

	out, err := c.extractor.Extract(ctx, text, hint)
	if err != nil {
		return nil, &ExtractionError{SourceURL: doc.SeedURL, Err: err}
	}

	if !domain.KnownCategory(out.Category) {
		return nil, &ExtractionError{
			SourceURL: doc.SeedURL,
			Err:       fmt.Errorf("capability returned unknown category %q", out.Category),
		}
	}

	entities := make([]domain.ExtractedEntity, 0, len(out.Entities))

	for _, entity := range out.Entities {
		if err := validateEntity(&entity); err != nil {
			c.log.Warn("dropping malformed entity",
				logger.String("seed_url", doc.SeedURL),
				logger.Error(err),
			)
			continue
		}

		if entity.SourceURL == "" {
			entity.SourceURL = doc.SeedURL
		}
		entity.Verification = domain.VerificationUnverified

		entities = append(entities, entity)
	}

	c.log.Info("extraction completed",
		logger.String("seed_url", doc.SeedURL),
		logger.String("category", string(out.Category)),
		logger.Int("entities", len(entities)),
	)

	return &Result{ContentType: out.Category, Entities: entities}, nil
}

// validateEntity checks that the tagged union is well-formed: exactly the
// payload matching the category is present.
func validateEntity(e *domain.ExtractedEntity) error {
	switch e.Category {
	case domain.CategoryCampaign:
		if e.Campaign == nil {
			return fmt.Errorf("campaign entity without campaign payload")
		}
	case domain.CategoryCars, domain.CategoryTransport:
		if e.Vehicle == nil {
			return fmt.Errorf("%s entity without vehicle payload", e.Category)
		}
		if e.Vehicle.Brand == "" || e.Vehicle.Name == "" {
			return fmt.Errorf("vehicle entity missing brand or name")
		}
	default:
		return fmt.Errorf("unknown entity category %q", e.Category)
	}

	return nil
}
