package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBrief() Brief {
	return Brief{
		Name:           "Ada Lovelace",
		Company:        "Analytical Engines",
		Role:           "COO",
		Score:          42,
		Tier:           "developing",
		CategoryScores: map[string]int{"strategy": 60, "data": 20, "talent": 50, "process": 40, "governance": 40},
		FocusArea:      "data",
		Answers: []Answer{
			{Category: "data", Prompt: "Core business data is trusted.", Value: 1},
			{Category: "strategy", Prompt: "Leadership has a written view.", Value: 5},
		},
	}
}

func TestBrief_Prompt(t *testing.T) {
	p := sampleBrief().Prompt()
	assert.Contains(t, p, "Ada Lovelace, COO at Analytical Engines")
	assert.Contains(t, p, "42/100 (developing)")
	assert.Contains(t, p, "- [data] Core business data is trusted. => 1")
	assert.Less(t, strings.Index(p, "- data: 20"), strings.Index(p, "- strategy: 60"), "weakest category first")
}

func TestTemplateDrafter(t *testing.T) {
	out, err := NewTemplateDrafter().DraftReadinessReport(context.Background(), sampleBrief())
	require.NoError(t, err)

	assert.Contains(t, out, "# AI Readiness Report")
	assert.Contains(t, out, "Prepared for Ada Lovelace, Analytical Engines")
	assert.Contains(t, out, "**42/100**")
	assert.Contains(t, out, "**Data**")
	assert.Contains(t, out, "## Strengths\n\n- Leadership has a written view.")
	assert.Contains(t, out, "## Gaps\n\n- Core business data is trusted.")
}

func TestTemplateDrafter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTemplateDrafter().DraftReadinessReport(ctx, sampleBrief())
	assert.ErrorIs(t, err, context.Canceled)
}

func anthropicServer(t *testing.T, content []map[string]string) (*httptest.Server, *map[string]interface{}) {
	t.Helper()
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-sonnet-4-5",
			"content":       content,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]int{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestAnthropicDrafter(t *testing.T) {
	srv, captured := anthropicServer(t, []map[string]string{
		{"type": "text", "text": "# AI Readiness Report\n"},
		{"type": "text", "text": "## Summary\nSolid start."},
	})

	d, err := NewAnthropicDrafter("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	out, err := d.DraftReadinessReport(context.Background(), sampleBrief())
	require.NoError(t, err)
	assert.Equal(t, "# AI Readiness Report\n## Summary\nSolid start.", out)

	assert.Equal(t, DefaultModel, (*captured)["model"])
	assert.EqualValues(t, defaultMaxTokens, (*captured)["max_tokens"])
	assert.NotEmpty(t, (*captured)["system"])
}

func TestAnthropicDrafter_EmptyOutput(t *testing.T) {
	srv, _ := anthropicServer(t, []map[string]string{{"type": "text", "text": "  "}})

	d, err := NewAnthropicDrafter("test-key", "claude-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = d.DraftReadinessReport(context.Background(), sampleBrief())
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestNewAnthropicDrafter_RequiresKey(t *testing.T) {
	_, err := NewAnthropicDrafter("", "")
	assert.Error(t, err)
}
