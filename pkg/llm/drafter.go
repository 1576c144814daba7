package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Drafter writes the narrative readiness report for a scored assessment
type Drafter interface {
	DraftReadinessReport(ctx context.Context, brief Brief) (string, error)
}

// Answer pairs a question prompt with the respondent's 1..5 rating
type Answer struct {
	Category string
	Prompt   string
	Value    int
}

// Brief is everything a drafter knows about a submission
type Brief struct {
	Name           string
	Company        string
	Role           string
	Score          int
	Tier           string
	CategoryScores map[string]int
	FocusArea      string
	Answers        []Answer
}

// sortedCategories returns the brief's categories, weakest first
func (b Brief) sortedCategories() []string {
	cats := make([]string, 0, len(b.CategoryScores))
	for c := range b.CategoryScores {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		si, sj := b.CategoryScores[cats[i]], b.CategoryScores[cats[j]]
		if si != sj {
			return si < sj
		}
		return cats[i] < cats[j]
	})
	return cats
}

// Prompt renders the brief as the user message sent to a model
func (b Brief) Prompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Respondent: %s", b.Name)
	if b.Role != "" {
		fmt.Fprintf(&sb, ", %s", b.Role)
	}
	if b.Company != "" {
		fmt.Fprintf(&sb, " at %s", b.Company)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Overall readiness score: %d/100 (%s)\n", b.Score, b.Tier)
	fmt.Fprintf(&sb, "Focus area: %s\n\nCategory scores:\n", b.FocusArea)
	for _, c := range b.sortedCategories() {
		fmt.Fprintf(&sb, "- %s: %d/100\n", c, b.CategoryScores[c])
	}
	sb.WriteString("\nAnswers (1 = strongly disagree, 5 = strongly agree):\n")
	for _, a := range b.Answers {
		fmt.Fprintf(&sb, "- [%s] %s => %d\n", a.Category, a.Prompt, a.Value)
	}
	return sb.String()
}
