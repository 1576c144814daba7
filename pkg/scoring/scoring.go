package scoring

import (
	"fmt"
	"math"
	"sort"
)

const (
	TierExploring  = "exploring"
	TierDeveloping = "developing"
	TierLeading    = "leading"
)

// Result is the outcome of scoring a complete set of answers
type Result struct {
	Score          int            `json:"score"`
	Tier           string         `json:"tier"`
	CategoryScores map[string]int `json:"category_scores"`
	FocusArea      string         `json:"focus_area"`
}

// ValidationError names the question whose answer is missing or invalid
type ValidationError struct {
	QuestionID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("answer %q: %s", e.QuestionID, e.Reason)
}

// Validate checks that every question is answered exactly once within range
// and that no unknown question ids are present.
func Validate(answers map[string]int) error {
	unknown := make([]string, 0)
	for id := range answers {
		if _, ok := QuestionByID(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{QuestionID: unknown[0], Reason: "unknown question"}
	}

	for _, q := range Questions {
		a, ok := answers[q.ID]
		if !ok {
			return &ValidationError{QuestionID: q.ID, Reason: "missing answer"}
		}
		if a < MinAnswer || a > MaxAnswer {
			return &ValidationError{QuestionID: q.ID, Reason: fmt.Sprintf("must be between %d and %d", MinAnswer, MaxAnswer)}
		}
	}
	return nil
}

// Score computes the weighted readiness score. Answers must already be valid.
//
// Each answer a contributes w*(a-1)/4 of its weight w, so an all-1 quiz
// scores 0 and an all-5 quiz scores 100.
func Score(answers map[string]int) Result {
	var earned, possible float64
	catEarned := make(map[string]float64, len(Categories))
	catPossible := make(map[string]float64, len(Categories))

	for _, q := range Questions {
		w := float64(q.Weight)
		e := w * float64(answers[q.ID]-MinAnswer) / float64(MaxAnswer-MinAnswer)
		earned += e
		possible += w
		catEarned[q.Category] += e
		catPossible[q.Category] += w
	}

	result := Result{
		Score:          percent(earned, possible),
		CategoryScores: make(map[string]int, len(Categories)),
	}
	result.Tier = TierFor(result.Score)

	lowest := math.MaxInt
	for _, c := range Categories {
		s := percent(catEarned[c], catPossible[c])
		result.CategoryScores[c] = s
		if s < lowest {
			lowest = s
			result.FocusArea = c
		}
	}
	return result
}

// TierFor maps an overall score to its tier
func TierFor(score int) string {
	switch {
	case score < 40:
		return TierExploring
	case score < 70:
		return TierDeveloping
	default:
		return TierLeading
	}
}

func percent(earned, possible float64) int {
	if possible == 0 {
		return 0
	}
	return int(math.Round(100 * earned / possible))
}
