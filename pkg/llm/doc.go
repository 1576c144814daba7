// Package llm drafts AI-readiness reports.
//
// AnthropicDrafter calls the Anthropic Messages API; TemplateDrafter is a
// deterministic fallback used when no API key is configured.
package llm
