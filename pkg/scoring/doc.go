// Package scoring implements the AI-readiness questionnaire and its
// weighted scoring formula.
//
// Every question carries a weight between 1 and 3 and is answered on a 1..5
// scale. The overall score and each category score are the weighted share of
// the maximum, rounded to a whole percentage. Scores map onto three tiers:
// exploring (below 40), developing (below 70) and leading.
package scoring
