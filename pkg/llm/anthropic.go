package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 2048
)

const systemPrompt = `You are a senior consultant at Halyard Advisory writing an AI-readiness report for a prospective client.
Write in clear, practical business English. Use markdown with these sections:
# AI Readiness Report
## Summary
## Strengths
## Gaps
## Recommended next 90 days
## How Halyard can help
Use "-" bullets. Do not invent facts about the company beyond the answers given.`

// ErrEmptyDraft is returned when the model produces no text
var ErrEmptyDraft = errors.New("model returned an empty draft")

// AnthropicDrafter drafts reports with the Anthropic Messages API
type AnthropicDrafter struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicDrafter creates a drafter. Extra options are passed to the
// SDK client, e.g. option.WithBaseURL in tests.
func NewAnthropicDrafter(apiKey, model string, opts ...option.RequestOption) (*AnthropicDrafter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &AnthropicDrafter{client: &client, model: model}, nil
}

// DraftReadinessReport asks the model for a markdown report
func (d *AnthropicDrafter) DraftReadinessReport(ctx context.Context, brief Brief) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(brief.Prompt())),
		},
	}

	message, err := d.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	draft := strings.TrimSpace(sb.String())
	if draft == "" {
		return "", ErrEmptyDraft
	}
	return draft, nil
}
