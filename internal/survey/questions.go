// Package survey defines the fixed progress questionnaire and the persisted
// per-project answer store with its pluggable backends.
package survey

// QuestionID identifies one of the six survey questions. The set is closed;
// the ids double as button routing tokens.
type QuestionID string

const (
	QuestionStage     QuestionID = "stage"
	QuestionCompleted QuestionID = "completed"
	QuestionPlanned   QuestionID = "planned"
	QuestionAchieved  QuestionID = "achieved"
	QuestionProblems  QuestionID = "problems"
	QuestionResult    QuestionID = "result"
)

// Questions lists the survey in presentation order.
var Questions = []QuestionID{
	QuestionStage,
	QuestionCompleted,
	QuestionPlanned,
	QuestionAchieved,
	QuestionProblems,
	QuestionResult,
}

var questionTexts = map[QuestionID]string{
	QuestionStage:     "What stage is the project at right now?",
	QuestionCompleted: "What has been done during this stage?",
	QuestionPlanned:   "What is planned for the next 1-2 weeks?",
	QuestionAchieved:  "Did you accomplish what was planned?",
	QuestionProblems:  "If not, what problems came up and how were they resolved?",
	QuestionResult:    "What was the outcome of this stage?",
}

// IsQuestionID reports whether token is a member of the closed question set.
func IsQuestionID(token string) bool {
	_, ok := questionTexts[QuestionID(token)]
	return ok
}

// QuestionText returns the display text for id. The second return is false
// for ids outside the known set; callers must treat that as a data-integrity
// condition rather than dropping the entry.
func QuestionText(id QuestionID) (string, bool) {
	text, ok := questionTexts[id]
	return text, ok
}
