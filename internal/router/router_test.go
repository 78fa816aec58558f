package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectpulse/pulsebot/internal/access"
	"github.com/projectpulse/pulsebot/internal/chat"
	"github.com/projectpulse/pulsebot/internal/metrics"
	"github.com/projectpulse/pulsebot/internal/session"
	"github.com/projectpulse/pulsebot/internal/survey"
	"github.com/projectpulse/pulsebot/internal/tracker"
	"github.com/projectpulse/pulsebot/pkg/models"
)

const (
	operatorID = int64(771853550)
	strangerID = int64(999)
)

// fakeSender records every outbound message.
type fakeSender struct {
	mu   sync.Mutex
	sent []*chat.Outbound
}

func (f *fakeSender) Send(ctx context.Context, msg *chat.Outbound) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) last(t *testing.T) *chat.Outbound {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "expected at least one outbound message")
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

// fakeBackend implements Summarizer and ProjectLister over canned projects.
type fakeBackend struct {
	projects map[string]*models.ProjectSummary
}

func (f *fakeBackend) ListProjects(ctx context.Context) ([]models.Project, error) {
	out := make([]models.Project, 0, len(f.projects))
	for _, s := range f.projects {
		out = append(out, models.Project{Key: s.Key, Name: s.Name, ID: s.ID})
	}
	return out, nil
}

func (f *fakeBackend) Summarize(ctx context.Context, projectKey string) (*models.ProjectSummary, error) {
	s, ok := f.projects[projectKey]
	if !ok {
		return nil, tracker.ErrNotFound
	}
	return s, nil
}

type fixture struct {
	router   *Router
	sender   *fakeSender
	sessions *session.Manager
	store    survey.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

func newFixtureWithStore(t *testing.T, store survey.Store) *fixture {
	t.Helper()
	if store == nil {
		var err error
		store, err = survey.NewFileStore(t.TempDir())
		require.NoError(t, err)
	}

	backend := &fakeBackend{projects: map[string]*models.ProjectSummary{
		"ABC": {
			Key: "ABC", Name: "Alpha", ID: "10001",
			PlannedStart: "01-02-2024", ActualStart: "N/A",
			PlannedEnd: "N/A", ActualEnd: "N/A",
		},
	}}

	sender := &fakeSender{}
	sessions := session.NewManager(nil)
	r := New(access.NewGuard([]int64{operatorID}), sessions, backend, store, backend, sender, metrics.NewMetrics())
	return &fixture{router: r, sender: sender, sessions: sessions, store: store}
}

func command(id int64, cmd string) *chat.Event {
	return &chat.Event{ID: "ev", Type: chat.EventCommand, Identity: id, ChatID: id, Command: cmd}
}

func selection(id int64, token string) *chat.Event {
	return &chat.Event{ID: "ev", Type: chat.EventSelection, Identity: id, ChatID: id, MessageID: 42, Token: token, CallbackID: "cb"}
}

func text(id int64, body string) *chat.Event {
	return &chat.Event{ID: "ev", Type: chat.EventText, Identity: id, ChatID: id, Text: body}
}

func TestDeniedIdentityGetsFixedMessageEverywhere(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	events := []*chat.Event{
		command(strangerID, "/start"),
		command(strangerID, "/projects"),
		selection(strangerID, "projects"),
		selection(strangerID, "ABC"),
		selection(strangerID, "stage"),
		text(strangerID, "phase 2"),
	}
	for _, ev := range events {
		fx.router.HandleEvent(ctx, ev)
		assert.Equal(t, msgDenied, fx.sender.last(t).Text)
	}

	// No session slots were touched and nothing was persisted.
	sc := fx.sessions.Get(strangerID)
	assert.Empty(t, sc.ProjectKey)
	assert.Empty(t, sc.PendingQuestion)
	record, err := fx.store.Load(ctx, "ABC")
	require.NoError(t, err)
	assert.Empty(t, record)
}

func TestStartPresentsEntryMenu(t *testing.T) {
	fx := newFixture(t)

	fx.router.HandleEvent(context.Background(), command(operatorID, "/start"))

	msg := fx.sender.last(t)
	assert.Equal(t, msgGreeting, msg.Text)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, "projects", msg.Buttons[0].Token)
}

func TestProjectListRendersSelectableProjects(t *testing.T) {
	fx := newFixture(t)

	fx.router.HandleEvent(context.Background(), selection(operatorID, "projects"))

	msg := fx.sender.last(t)
	assert.Equal(t, msgSelectProject, msg.Text)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, "Alpha", msg.Buttons[0].Label)
	assert.Equal(t, "ABC", msg.Buttons[0].Token)
}

func TestSurveyScenarioEndToEnd(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.router.HandleEvent(ctx, command(operatorID, "/start"))
	fx.router.HandleEvent(ctx, selection(operatorID, "projects"))
	fx.router.HandleEvent(ctx, selection(operatorID, "ABC"))
	fx.router.HandleEvent(ctx, selection(operatorID, "edit_info"))
	fx.router.HandleEvent(ctx, selection(operatorID, "stage"))
	fx.router.HandleEvent(ctx, text(operatorID, "phase 2"))

	record, err := fx.store.Load(ctx, "ABC")
	require.NoError(t, err)
	assert.Equal(t, models.SurveyRecord{"stage": "phase 2"}, record)

	sc := fx.sessions.Get(operatorID)
	assert.Equal(t, "ABC", sc.ProjectKey, "project selection must survive the save")
	assert.Empty(t, sc.PendingQuestion, "save must clear the pending question")

	// The save confirms and then re-renders the info view with the answer.
	texts := fx.sender.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, msgAnswerSaved, texts[len(texts)-2])
	assert.Contains(t, texts[len(texts)-1], "phase 2")
}

func TestProjectViewShowsSummaryAndActions(t *testing.T) {
	fx := newFixture(t)

	fx.router.HandleEvent(context.Background(), selection(operatorID, "ABC"))

	msg := fx.sender.last(t)
	assert.Contains(t, msg.Text, "Project key:\nABC")
	assert.Contains(t, msg.Text, "Planned start date:\n01-02-2024")
	assert.Equal(t, 42, msg.ReplaceMessageID, "button responses edit the originating message")
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, "view_info", msg.Buttons[0].Token)
}

func TestMissingProjectLeavesStateUntouched(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.router.HandleEvent(ctx, selection(operatorID, "ABC"))
	fx.router.HandleEvent(ctx, selection(operatorID, "GONE"))

	msg := fx.sender.last(t)
	assert.Equal(t, msgProjectNotFound, msg.Text)
	require.Len(t, msg.Buttons, 1)
	assert.Equal(t, "projects", msg.Buttons[0].Token, "error view must offer the project list")

	sc := fx.sessions.Get(operatorID)
	assert.Equal(t, "ABC", sc.ProjectKey, "failed selection must not transition the session")

	record, err := fx.store.Load(ctx, "GONE")
	require.NoError(t, err)
	assert.Empty(t, record)
}

func TestUnexpectedTokenIsNonFatal(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.router.HandleEvent(ctx, selection(operatorID, "ABC"))
	fx.router.HandleEvent(ctx, selection(operatorID, "!!not a token!!"))

	assert.Equal(t, msgGenericError, fx.sender.last(t).Text)
	sc := fx.sessions.Get(operatorID)
	assert.Equal(t, "ABC", sc.ProjectKey)
}

func TestFreeTextWithoutSelectionIsIdleNoOp(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.router.HandleEvent(ctx, text(operatorID, "phase 2"))
	assert.Equal(t, msgSelectFirst, fx.sender.last(t).Text)

	record, err := fx.store.Load(ctx, "ABC")
	require.NoError(t, err)
	assert.Empty(t, record)
}

func TestQuestionSelectionRequiresProject(t *testing.T) {
	fx := newFixture(t)

	fx.router.HandleEvent(context.Background(), selection(operatorID, "stage"))
	assert.Equal(t, msgSelectFirst, fx.sender.last(t).Text)
	assert.Empty(t, fx.sessions.Get(operatorID).PendingQuestion)
}

func TestEditInfoPresentsAllSixQuestions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.router.HandleEvent(ctx, selection(operatorID, "ABC"))
	fx.router.HandleEvent(ctx, selection(operatorID, "edit_info"))

	msg := fx.sender.last(t)
	assert.Equal(t, msgSelectQuestion, msg.Text)
	require.Len(t, msg.Buttons, 6)
	assert.Equal(t, "stage", msg.Buttons[0].Token)
	assert.Equal(t, "result", msg.Buttons[5].Token)
}

// failingStore fails every save but loads normally.
type failingStore struct {
	survey.Store
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, projectKey string, q survey.QuestionID, answer string) error {
	return f.saveErr
}

func TestSaveFailureWarnsAndKeepsPendingQuestion(t *testing.T) {
	inner, err := survey.NewFileStore(t.TempDir())
	require.NoError(t, err)
	fx := newFixtureWithStore(t, &failingStore{Store: inner, saveErr: errors.New("disk full")})
	ctx := context.Background()

	fx.router.HandleEvent(ctx, selection(operatorID, "ABC"))
	fx.router.HandleEvent(ctx, selection(operatorID, "stage"))
	fx.router.HandleEvent(ctx, text(operatorID, "phase 2"))

	assert.Equal(t, msgSaveFailed, fx.sender.last(t).Text)
	sc := fx.sessions.Get(operatorID)
	assert.Equal(t, survey.QuestionStage, sc.PendingQuestion, "failed save must keep the question pending for retry")
}

func TestViewInfoFailsClosedOnUnknownStoredKey(t *testing.T) {
	store, err := survey.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "ABC", survey.QuestionID("mystery"), "???"))

	fx := newFixtureWithStore(t, store)
	ctx := context.Background()

	fx.router.HandleEvent(ctx, selection(operatorID, "ABC"))
	fx.router.HandleEvent(ctx, selection(operatorID, "view_info"))

	assert.Equal(t, msgGenericError, fx.sender.last(t).Text)
}

func TestViewInfoRendersStoredAnswers(t *testing.T) {
	store, err := survey.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "ABC", survey.QuestionStage, "phase 2"))

	fx := newFixtureWithStore(t, store)
	ctx := context.Background()

	fx.router.HandleEvent(ctx, selection(operatorID, "ABC"))
	fx.router.HandleEvent(ctx, selection(operatorID, "view_info"))

	msg := fx.sender.last(t)
	assert.Contains(t, msg.Text, "phase 2")
	require.Len(t, msg.Buttons, 2)
	assert.Equal(t, "edit_info", msg.Buttons[0].Token)
	assert.Equal(t, "ABC", msg.Buttons[1].Token, "back button re-selects the project")
}

// stalledSummarizer blocks in Summarize until its context is canceled and
// reports the error it observed.
type stalledSummarizer struct {
	entered chan struct{}
	seen    chan error
}

func (s *stalledSummarizer) Summarize(ctx context.Context, projectKey string) (*models.ProjectSummary, error) {
	close(s.entered)
	<-ctx.Done()
	s.seen <- ctx.Err()
	return nil, ctx.Err()
}

func (s *stalledSummarizer) ListProjects(ctx context.Context) ([]models.Project, error) {
	return nil, nil
}

func TestNewEventCancelsInflightSummarize(t *testing.T) {
	store, err := survey.NewFileStore(t.TempDir())
	require.NoError(t, err)
	backend := &stalledSummarizer{entered: make(chan struct{}), seen: make(chan error, 1)}
	sender := &fakeSender{}
	r := New(access.NewGuard([]int64{operatorID}), session.NewManager(nil), backend, store, backend, sender, metrics.NewMetrics())

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.HandleEvent(context.Background(), selection(operatorID, "ABC"))
	}()

	select {
	case <-backend.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("summarize was never entered")
	}

	// A fresh command from the same operator aborts the stalled summarize
	// and is handled only after the first handler has finished.
	r.HandleEvent(context.Background(), command(operatorID, "/start"))

	select {
	case err := <-backend.seen:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("stalled summarize was not canceled")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("first handler did not finish")
	}

	texts := sender.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, msgGenericError, texts[0], "aborted summarize reports the generic error")
	assert.Equal(t, msgGreeting, texts[1], "follow-up command is handled after the aborted one")
}
