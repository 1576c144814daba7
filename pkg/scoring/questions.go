package scoring

// Categories in reporting order. Ties for the weakest category resolve to
// the earlier entry.
var Categories = []string{"strategy", "data", "talent", "process", "governance"}

// Question is one item of the AI-readiness questionnaire
type Question struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Prompt   string `json:"prompt"`
	Weight   int    `json:"weight"`
}

const (
	MinAnswer = 1
	MaxAnswer = 5
)

// Questions is the fixed questionnaire
var Questions = []Question{
	{ID: "strategy_vision", Category: "strategy", Weight: 3,
		Prompt: "Leadership has a written view of where AI creates value for the business."},
	{ID: "strategy_budget", Category: "strategy", Weight: 2,
		Prompt: "AI initiatives have a dedicated budget and an accountable sponsor."},
	{ID: "data_quality", Category: "data", Weight: 3,
		Prompt: "Core business data is accurate, documented and trusted by its users."},
	{ID: "data_access", Category: "data", Weight: 2,
		Prompt: "Teams can get the data they need without manual extracts or long waits."},
	{ID: "talent_skills", Category: "talent", Weight: 2,
		Prompt: "Staff have the skills to evaluate and work alongside AI tools."},
	{ID: "talent_champions", Category: "talent", Weight: 1,
		Prompt: "There are internal champions who actively share AI practices."},
	{ID: "process_documented", Category: "process", Weight: 2,
		Prompt: "Key workflows are documented well enough to identify automation candidates."},
	{ID: "process_measurement", Category: "process", Weight: 1,
		Prompt: "Process performance is measured so improvements can be demonstrated."},
	{ID: "governance_policy", Category: "governance", Weight: 3,
		Prompt: "There is an agreed policy for acceptable AI use, privacy and risk."},
	{ID: "governance_review", Category: "governance", Weight: 1,
		Prompt: "AI outputs used in decisions are reviewed by a responsible person."},
}

// QuestionByID returns the question with the given id
func QuestionByID(id string) (Question, bool) {
	for _, q := range Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
