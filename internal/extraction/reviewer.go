package extraction

import (
	"context"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// FactChecker corroborates one claim against its source context.
// Implemented by the Anthropic adapter; faked in tests.
type FactChecker interface {
	Verify(ctx context.Context, claim domain.Claim, sourceContext string) (bool, error)
}

// Reviewer cross-validates extracted claims against the canonical document.
type Reviewer struct {
	checker FactChecker
	log     logger.Logger
}

// NewReviewer creates a fact-check reviewer.
func NewReviewer(checker FactChecker, log logger.Logger) *Reviewer {
	return &Reviewer{checker: checker, log: log}
}

// Verify checks every claim of every entity. An entity whose claims are all
// corroborated becomes verified; any uncorroborated or inconclusive claim
// marks it flagged. Flagged entities are returned, never dropped — the
// caller decides whether to persist them. A checker error counts as
// inconclusive, not as a pipeline failure.
func (r *Reviewer) Verify(
	ctx context.Context,
	doc *domain.CanonicalDocument,
	entities []domain.ExtractedEntity,
) []domain.ExtractedEntity {
	out := make([]domain.ExtractedEntity, len(entities))

	for i, entity := range entities {
		out[i] = r.verifyEntity(ctx, doc, entity)
	}

	return out
}

// verifyEntity runs the fact check for one entity's claims.
func (r *Reviewer) verifyEntity(
	ctx context.Context,
	doc *domain.CanonicalDocument,
	entity domain.ExtractedEntity,
) domain.ExtractedEntity {
	entity.Verification = domain.VerificationVerified

	for i := range entity.Claims {
		claim := &entity.Claims[i]
		claim.Corroborated = false

		section := doc.SectionFor(claim.SourceExcerpt)
		if section == nil {
			// The cited excerpt does not exist in any source section.
			entity.Verification = domain.VerificationFlagged
			r.log.Warn("claim cites unknown source excerpt",
				logger.String("field", claim.Field),
				logger.String("value", claim.Value),
			)
			continue
		}

		corroborated, err := r.checker.Verify(ctx, *claim, section.Text)
		if err != nil {
			// Inconclusive: flag and move on.
			entity.Verification = domain.VerificationFlagged
			r.log.Warn("fact check inconclusive",
				logger.String("field", claim.Field),
				logger.Error(err),
			)
			continue
		}

		if !corroborated {
			entity.Verification = domain.VerificationFlagged
			r.log.Info("claim not corroborated",
				logger.String("field", claim.Field),
				logger.String("value", claim.Value),
				logger.String("source_url", section.SourceURL),
			)
			continue
		}

		claim.Corroborated = true
	}

	return entity
}
