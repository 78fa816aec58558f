package router

import (
	"regexp"

	"github.com/projectpulse/pulsebot/internal/survey"
)

// Button tokens are resolved through an explicit dispatch order instead of
// membership tests scattered across handlers: menu actions first, then the
// closed question set, then anything shaped like a tracker project key.
// The tracker has the final say on whether a key actually exists.

type tokenKind int

const (
	tokenInvalid tokenKind = iota
	tokenMenuAction
	tokenQuestion
	tokenProjectKey
)

// Menu action tokens.
const (
	actionProjects = "projects"
	actionViewInfo = "view_info"
	actionEditInfo = "edit_info"
)

var menuActions = map[string]struct{}{
	actionProjects: {},
	actionViewInfo: {},
	actionEditInfo: {},
}

// projectKeyPattern accepts tracker-style short keys. Tokens that fit no
// category are reported as unexpected rather than sent to the tracker.
var projectKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,31}$`)

type token struct {
	kind       tokenKind
	action     string
	question   survey.QuestionID
	projectKey string
}

func resolveToken(raw string) token {
	if _, ok := menuActions[raw]; ok {
		return token{kind: tokenMenuAction, action: raw}
	}
	if survey.IsQuestionID(raw) {
		return token{kind: tokenQuestion, question: survey.QuestionID(raw)}
	}
	if projectKeyPattern.MatchString(raw) {
		return token{kind: tokenProjectKey, projectKey: raw}
	}
	return token{kind: tokenInvalid}
}
