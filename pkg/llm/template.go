package llm

import (
	"bytes"
	"context"
	"strings"
	"text/template"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}).Parse(`# AI Readiness Report

Prepared for {{.Name}}{{if .Company}}, {{.Company}}{{end}}

## Summary

Your overall readiness score is **{{.Score}}/100**, which places you in the *{{.Tier}}* tier. The area that will benefit most from attention is **{{title .FocusArea}}**.

## Category scores

{{range .Categories}}- {{title .Name}}: {{.Score}}/100
{{end}}
## Strengths

{{range .Strengths}}- {{.}}
{{else}}- No area scored highly yet; this is a good moment to set foundations.
{{end}}
## Gaps

{{range .Gaps}}- {{.}}
{{else}}- No significant gaps were reported.
{{end}}
## Recommended next 90 days

- Agree a single, measurable use case in {{.FocusArea}} and name an accountable owner.
- Review the data and process inputs that use case depends on.
- Set a simple policy for acceptable AI use before scaling pilots.

## How Halyard can help

Book a consultation to turn this report into a prioritised roadmap.
`))

// TemplateDrafter produces a deterministic report without calling a model
type TemplateDrafter struct{}

// NewTemplateDrafter creates a TemplateDrafter
func NewTemplateDrafter() *TemplateDrafter {
	return &TemplateDrafter{}
}

type categoryScore struct {
	Name  string
	Score int
}

// DraftReadinessReport renders the built-in report template
func (d *TemplateDrafter) DraftReadinessReport(ctx context.Context, brief Brief) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data := struct {
		Brief
		Categories []categoryScore
		Strengths  []string
		Gaps       []string
	}{Brief: brief}

	for _, c := range brief.sortedCategories() {
		data.Categories = append(data.Categories, categoryScore{Name: c, Score: brief.CategoryScores[c]})
	}
	for _, a := range brief.Answers {
		switch {
		case a.Value >= 4:
			data.Strengths = append(data.Strengths, a.Prompt)
		case a.Value <= 2:
			data.Gaps = append(data.Gaps, a.Prompt)
		}
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
