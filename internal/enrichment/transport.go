// Package enrichment implements the batch location-enrichment engine: a
// run-scoped cache populated by a single batched remote call, with a
// layered fallback chain for whatever the batch call could not cover.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"jobscrape/internal/errs"
)

// RawLocation is the provider's answer for one raw location string, before
// the "Unknown" sentinel is normalized to nil.
type RawLocation struct {
	City       string  `json:"city"`
	Country    string  `json:"country"`
	Region     string  `json:"region"`
	Confidence float64 `json:"confidence"`
}

// Transport is the remote side of the enrichment engine. ClaudeTransport is
// the production implementation; tests substitute a fake so the batch/
// fallback logic never depends on network access.
type Transport interface {
	// BatchLocations resolves every raw string in one call, sending the
	// full unique list at once. A raw string missing from the returned
	// map is a partial-batch miss, not an error.
	BatchLocations(ctx context.Context, raw []string) (map[string]RawLocation, error)

	// Location resolves a single raw string, used by the fallback
	// chain's per-record call.
	Location(ctx context.Context, raw string) (RawLocation, error)
}

// ClaudeTransport calls Anthropic's Claude API.
type ClaudeTransport struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     RetryPolicy
}

// NewClaudeTransport builds a transport bound to apiKey/model. Callers
// should only construct this when the engine is in the active state.
func NewClaudeTransport(apiKey, model string) *ClaudeTransport {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &ClaudeTransport{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 4096,
		retry:     NewDefaultRetryPolicy(),
	}
}

func (t *ClaudeTransport) BatchLocations(ctx context.Context, raw []string) (map[string]RawLocation, error) {
	if len(raw) == 0 {
		return map[string]RawLocation{}, nil
	}

	prompt := buildBatchPrompt(raw)
	text, err := t.call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed map[string]RawLocation
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding batch location response: %v", errs.ErrEnrichment, err)
	}
	return parsed, nil
}

func (t *ClaudeTransport) Location(ctx context.Context, raw string) (RawLocation, error) {
	prompt := buildBatchPrompt([]string{raw})
	text, err := t.call(ctx, prompt)
	if err != nil {
		return RawLocation{}, err
	}

	var parsed map[string]RawLocation
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		return RawLocation{}, fmt.Errorf("%w: decoding single location response: %v", errs.ErrEnrichment, err)
	}
	result, ok := parsed[raw]
	if !ok {
		return RawLocation{}, fmt.Errorf("%w: no entry for %q in single-lookup response", errs.ErrEnrichment, raw)
	}
	return result, nil
}

// call makes one Claude request, retrying any failure up to
// t.retry.MaxRetries times with the retry policy's linear backoff.
func (t *ClaudeTransport) call(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: t.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= t.retry.MaxRetries; attempt++ {
		resp, apiErr = t.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}
		if attempt == t.retry.MaxRetries {
			break
		}
		if err := t.retry.Sleep(ctx, attempt); err != nil {
			return "", err
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("%w: claude call failed after %d retries: %v", errs.ErrEnrichment, t.retry.MaxRetries, apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.ContentBlockTypeText {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from claude", errs.ErrEnrichment)
	}
	return text.String(), nil
}

// buildBatchPrompt asks for a strict JSON object keyed by the input
// string.
func buildBatchPrompt(raw []string) string {
	var b strings.Builder
	b.WriteString("Resolve each of the following free-text job location strings into a structured location. ")
	b.WriteString(`Respond with a single JSON object only, no prose, keyed by the exact input string, `)
	b.WriteString(`each value shaped {"city": string, "country": string, "region": string, "confidence": number between 0 and 1}. `)
	b.WriteString(`Use the literal string "Unknown" for any field you cannot determine.` + "\n\n")
	for _, r := range raw {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}

// extractJSONObject trims any leading/trailing prose a model adds despite
// being asked for JSON only, returning the outermost {...} span.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
