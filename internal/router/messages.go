package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/projectpulse/pulsebot/internal/chat"
	"github.com/projectpulse/pulsebot/internal/survey"
	"github.com/projectpulse/pulsebot/pkg/models"
)

// Fixed operator-facing texts.
const (
	msgDenied          = "You do not have access to this bot."
	msgGreeting        = "Hi! I report project status from the issue tracker. Use the Projects button to list available projects."
	msgSelectProject   = "Select a project:"
	msgSelectQuestion  = "Select a question:"
	msgProjectNotFound = "Project not found. Please try again."
	msgProjectsFailed  = "Could not load the project list. Please try again later."
	msgGenericError    = "Something went wrong. Please try again."
	msgSaveFailed      = "Could not save your answer. Please send it again."
	msgAnswerSaved     = "Your answer has been saved."
	msgSelectFirst     = "Please select a project and a question first."
)

// Button labels.
const (
	labelProjects      = "Projects"
	labelViewInfo      = "View saved info"
	labelEditInfo      = "Edit info"
	labelBackToProject = "Back to project"
)

// errUnknownQuestion marks a stored record containing a question id with no
// known display text. Rendering fails closed so the condition is surfaced
// instead of the entry being dropped.
var errUnknownQuestion = errors.New("survey record contains unknown question id")

func renderSummary(s *models.ProjectSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project key:\n%s\n\n", s.Key)
	fmt.Fprintf(&b, "Project name:\n%s\n\n", s.Name)
	fmt.Fprintf(&b, "Project ID:\n%s\n\n", s.ID)
	fmt.Fprintf(&b, "Planned start date:\n%s\n\n", s.PlannedStart)
	fmt.Fprintf(&b, "Actual start date:\n%s\n\n", s.ActualStart)
	fmt.Fprintf(&b, "Planned end date:\n%s\n\n", s.PlannedEnd)
	fmt.Fprintf(&b, "Actual end date:\n%s\n\n", s.ActualEnd)
	fmt.Fprintf(&b, "Key milestones:\n%s\n\n", renderList(s.Milestones))
	fmt.Fprintf(&b, "Control points:\n%s", renderList(s.ControlPoints))
	return b.String()
}

func renderList(items []string) string {
	if len(items) == 0 {
		return models.NotAvailable
	}
	return strings.Join(items, "\n")
}

// renderRecord renders stored answers in questionnaire order, then any
// unknown ids trigger the data-integrity error.
func renderRecord(record models.SurveyRecord) (string, error) {
	var b strings.Builder
	b.WriteString("Current saved info:\n\n")

	seen := make(map[string]bool, len(record))
	for _, q := range survey.Questions {
		answer, ok := record[string(q)]
		if !ok {
			continue
		}
		seen[string(q)] = true
		text, _ := survey.QuestionText(q)
		fmt.Fprintf(&b, "%s\n- %s\n\n", text, answer)
	}

	var unknown []string
	for id := range record {
		if !seen[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return "", fmt.Errorf("%w: %s", errUnknownQuestion, strings.Join(unknown, ", "))
	}
	return b.String(), nil
}

func questionButtons() []chat.Button {
	buttons := make([]chat.Button, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		text, _ := survey.QuestionText(q)
		buttons = append(buttons, chat.Button{Label: text, Token: string(q)})
	}
	return buttons
}

func projectButtons(projects []models.Project) []chat.Button {
	buttons := make([]chat.Button, 0, len(projects))
	for _, p := range projects {
		buttons = append(buttons, chat.Button{Label: p.Name, Token: p.Key})
	}
	return buttons
}

func infoViewButtons(projectKey string) []chat.Button {
	return []chat.Button{
		{Label: labelEditInfo, Token: actionEditInfo},
		{Label: labelBackToProject, Token: projectKey},
	}
}
