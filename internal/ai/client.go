// Package ai adapts the Anthropic API to the pipeline's capability
// interfaces: document understanding, structured extraction, and fact check.
package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/domain"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/extraction"
	"github.com/alvinrabock/kronobergsbil-scraper-sub002/internal/logger"
)

// Config holds the Anthropic client configuration.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	// RequestTimeout bounds a single extraction or fact-check request;
	// zero means no bound beyond the caller's context.
	RequestTimeout time.Duration
}

// Client wraps the Anthropic API. It is constructed once and injected into
// the pipeline; tests substitute fakes for the capability interfaces instead
// of reaching the network.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
	timeout   time.Duration
	log       logger.Logger
}

// New creates an Anthropic-backed capability client.
func New(cfg Config, log logger.Logger) *Client {
	return &Client{
		api:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		timeout:   cfg.RequestTimeout,
		log:       log,
	}
}

// boundCtx applies the configured request timeout when one is set.
func (c *Client) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ExtractText reads a document (PDF) and returns its text content, including
// text reconstructed from tables. Implements pdf.DocumentReader.
func (c *Client) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType != "application/pdf" {
		return "", fmt.Errorf("unsupported mime type %q", mimeType)
	}

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
					Data: base64.StdEncoding.EncodeToString(data),
				}),
				anthropic.NewTextBlock(documentTextPrompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("document read request: %w", err)
	}

	text := concatText(msg)
	if text == "" {
		return "", fmt.Errorf("document read returned no text")
	}

	return text, nil
}

// Extract classifies the canonical text and extracts typed entities.
// Implements extraction.StructuredExtractor.
func (c *Client) Extract(
	ctx context.Context,
	canonicalText string,
	hint domain.ContentCategory,
) (*extraction.Output, error) {
	ctx, cancel := c.boundCtx(ctx)
	defer cancel()

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: extractionSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(extractionPrompt(canonicalText, hint)),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction request: %w", err)
	}

	raw := stripCodeFence(concatText(msg))

	var out extraction.Output
	if unmarshalErr := json.Unmarshal([]byte(raw), &out); unmarshalErr != nil {
		return nil, fmt.Errorf("parse extraction output: %w", unmarshalErr)
	}

	return &out, nil
}

// verifyResponse is the shape the fact-check prompt asks the model to return.
type verifyResponse struct {
	Corroborated bool   `json:"corroborated"`
	Reason       string `json:"reason,omitempty"`
}

// Verify corroborates one claim against its source context.
// Implements extraction.FactChecker.
func (c *Client) Verify(ctx context.Context, claim domain.Claim, sourceContext string) (bool, error) {
	ctx, cancel := c.boundCtx(ctx)
	defer cancel()

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: verifyMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(verifyPrompt(claim, sourceContext)),
			),
		},
	})
	if err != nil {
		return false, fmt.Errorf("fact check request: %w", err)
	}

	raw := stripCodeFence(concatText(msg))

	var resp verifyResponse
	if unmarshalErr := json.Unmarshal([]byte(raw), &resp); unmarshalErr != nil {
		return false, fmt.Errorf("parse fact check output: %w", unmarshalErr)
	}

	if !resp.Corroborated && resp.Reason != "" {
		c.log.Debug("claim rejected by fact check",
			logger.String("field", claim.Field),
			logger.String("reason", resp.Reason),
		)
	}

	return resp.Corroborated, nil
}

// concatText joins all text blocks of a response.
func concatText(msg *anthropic.Message) string {
	var b strings.Builder

	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return strings.TrimSpace(b.String())
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)

	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
