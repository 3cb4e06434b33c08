package ai

import (
	"fmt"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
)

// verifyMaxTokens bounds fact-check responses; they are a small JSON object.
const verifyMaxTokens = 512

// documentTextPrompt asks for a faithful text rendition of a PDF, with
// pricing tables flattened to rows.
const documentTextPrompt = `Extract all text content from this document. ` +
	`Render pricing tables as one line per row with columns separated by " | ". ` +
	`Keep all numbers exactly as printed. Do not summarize or omit anything. ` +
	`Return only the extracted text.`

// extractionSystemPrompt frames the structured-extraction task.
const extractionSystemPrompt = `You extract structured commercial vehicle data ` +
	`from Swedish car dealer content. You respond with a single JSON object and ` +
	`nothing else. Prices are integers in SEK without separators. For every ` +
	`numeric or factual claim you include a claims entry citing the exact source ` +
	`excerpt the value came from.`

// extractionPrompt builds the user prompt for one canonical document.
func extractionPrompt(canonicalText string, hint domain.ContentCategory) string {
	categoryInstruction := fmt.Sprintf(
		"The content category is %q; use it as the category field.", hint)
	if hint == domain.CategoryAutoDetect {
		categoryInstruction = `Classify the content yourself as one of ` +
			`"campaign", "cars" or "transportbilar" and use that as the category field.`
	}

	return fmt.Sprintf(`%s

Extract entities from the content below. Respond with JSON of this shape:
{
  "category": "campaign" | "cars" | "transportbilar",
  "entities": [
    {
      "category": "...",
      "source_url": "the SOURCE url the entity came from",
      "campaign": {"title", "description", "valid_from", "valid_until", "models", "terms"},
      "vehicle": {
        "brand", "name", "model_year", "motor_specs", "dimensions", "cargo_specs",
        "variants": [
          {
            "name", "motor_type", "drivetrain", "transmission", "equipment",
            "prices": {"pris", "old_pris", "privatleasing", "foretagsleasing", "billan_per_man"}
          }
        ]
      },
      "claims": [{"field", "value", "source_excerpt"}]
    }
  ]
}
Include "campaign" only for campaign entities and "vehicle" only for cars or
transportbilar entities. Omit price fields that are not stated.

CONTENT:
%s`, categoryInstruction, canonicalText)
}

// verifyPrompt builds the fact-check prompt for one claim.
func verifyPrompt(claim domain.Claim, sourceContext string) string {
	return fmt.Sprintf(`Does the source text below support the following claim?

Claim: %s = %s
Cited excerpt: %s

Respond with JSON only: {"corroborated": true|false, "reason": "..."}

Source text:
%s`, claim.Field, claim.Value, claim.SourceExcerpt, sourceContext)
}
