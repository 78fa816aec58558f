// Package router implements the conversational state machine. It receives
// inbound chat events, checks the allow-list, consults per-operator session
// state, invokes the aggregator and the survey store, and emits outbound
// presentation requests. Every error is converted to an operator-visible
// message here; nothing below this layer talks to the transport.
package router

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/projectpulse/pulsebot/internal/access"
	"github.com/projectpulse/pulsebot/internal/chat"
	"github.com/projectpulse/pulsebot/internal/metrics"
	"github.com/projectpulse/pulsebot/internal/session"
	"github.com/projectpulse/pulsebot/internal/survey"
	"github.com/projectpulse/pulsebot/internal/tracker"
	"github.com/projectpulse/pulsebot/pkg/models"
)

// Summarizer is the aggregator boundary.
type Summarizer interface {
	Summarize(ctx context.Context, projectKey string) (*models.ProjectSummary, error)
}

// ProjectLister is the subset of the tracker the router uses directly.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
}

// Router drives the conversation.
type Router struct {
	guard      *access.Guard
	sessions   *session.Manager
	summarizer Summarizer
	store      survey.Store
	projects   ProjectLister
	sender     chat.Sender
	metrics    *metrics.Metrics

	mu       sync.Mutex
	locks    map[int64]*sync.Mutex
	inflight map[int64]*flight
	gen      uint64
}

type flight struct {
	cancel context.CancelFunc
	gen    uint64
}

// New wires a router.
func New(guard *access.Guard, sessions *session.Manager, summarizer Summarizer, store survey.Store, projects ProjectLister, sender chat.Sender, m *metrics.Metrics) *Router {
	return &Router{
		guard:      guard,
		sessions:   sessions,
		summarizer: summarizer,
		store:      store,
		projects:   projects,
		sender:     sender,
		metrics:    m,
		locks:      make(map[int64]*sync.Mutex),
		inflight:   make(map[int64]*flight),
	}
}

// begin serializes handling per identity and cancels any in-flight work for
// the same identity, so a fresh command aborts a stale summarize call
// instead of queueing behind it.
func (r *Router) begin(ctx context.Context, identity int64) (context.Context, func()) {
	r.mu.Lock()
	if f := r.inflight[identity]; f != nil {
		f.cancel()
	}
	lock, ok := r.locks[identity]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[identity] = lock
	}
	ctx, cancel := context.WithCancel(ctx)
	r.gen++
	f := &flight{cancel: cancel, gen: r.gen}
	r.inflight[identity] = f
	r.mu.Unlock()

	lock.Lock()
	return ctx, func() {
		lock.Unlock()
		r.mu.Lock()
		if cur := r.inflight[identity]; cur != nil && cur.gen == f.gen {
			delete(r.inflight, identity)
		}
		r.mu.Unlock()
		cancel()
	}
}

// HandleEvent processes one inbound event. Safe for concurrent use; events
// for the same identity are serialized, distinct identities proceed in
// parallel.
func (r *Router) HandleEvent(ctx context.Context, ev *chat.Event) {
	r.metrics.EventsTotal.WithLabelValues(string(ev.Type)).Inc()

	ctx, finish := r.begin(ctx, ev.Identity)
	defer finish()

	if !r.guard.Authorize(ev.Identity) {
		r.metrics.AccessDenials.Inc()
		r.reply(ctx, ev, msgDenied, nil)
		return
	}

	switch ev.Type {
	case chat.EventCommand:
		r.handleCommand(ctx, ev)
	case chat.EventSelection:
		r.handleSelection(ctx, ev)
	case chat.EventText:
		r.handleText(ctx, ev)
	default:
		log.Printf("router: ignoring event %s of unknown type %q", ev.ID, ev.Type)
	}
}

func (r *Router) handleCommand(ctx context.Context, ev *chat.Event) {
	switch ev.Command {
	case "/start":
		r.reply(ctx, ev, msgGreeting, []chat.Button{{Label: labelProjects, Token: actionProjects}})
	case "/projects":
		r.listProjects(ctx, ev)
	default:
		log.Printf("router: unknown command %q from %d", ev.Command, ev.Identity)
		r.reply(ctx, ev, msgGenericError, nil)
	}
}

func (r *Router) handleSelection(ctx context.Context, ev *chat.Event) {
	tok := resolveToken(ev.Token)
	switch tok.kind {
	case tokenMenuAction:
		r.handleMenuAction(ctx, ev, tok.action)
	case tokenQuestion:
		r.handleQuestionSelection(ctx, ev, tok.question)
	case tokenProjectKey:
		r.handleProjectSelection(ctx, ev, tok.projectKey)
	default:
		r.metrics.UnexpectedTokens.Inc()
		log.Printf("router: unexpected token %q from %d", ev.Token, ev.Identity)
		r.reply(ctx, ev, msgGenericError, nil)
	}
}

func (r *Router) handleMenuAction(ctx context.Context, ev *chat.Event, action string) {
	switch action {
	case actionProjects:
		r.listProjects(ctx, ev)
	case actionViewInfo:
		r.showInfoView(ctx, ev, true)
	case actionEditInfo:
		sc := r.sessions.Get(ev.Identity)
		if sc.ProjectKey == "" {
			r.reply(ctx, ev, msgSelectFirst, nil)
			return
		}
		r.edit(ctx, ev, msgSelectQuestion, questionButtons())
	}
}

func (r *Router) listProjects(ctx context.Context, ev *chat.Event) {
	projects, err := r.projects.ListProjects(ctx)
	if err != nil {
		log.Printf("router: failed to list projects for %d: %v", ev.Identity, err)
		r.reply(ctx, ev, msgProjectsFailed, nil)
		return
	}
	r.reply(ctx, ev, msgSelectProject, projectButtons(projects))
}

func (r *Router) handleProjectSelection(ctx context.Context, ev *chat.Event, projectKey string) {
	summary, err := r.summarizer.Summarize(ctx, projectKey)
	if errors.Is(err, tracker.ErrNotFound) {
		r.metrics.SummariesTotal.WithLabelValues("not_found").Inc()
		log.Printf("router: project %q not found for %d", projectKey, ev.Identity)
		// Revert to the project list affordance; the session keeps whatever
		// project was selected before.
		r.edit(ctx, ev, msgProjectNotFound, []chat.Button{{Label: labelProjects, Token: actionProjects}})
		return
	}
	if err != nil {
		r.metrics.SummariesTotal.WithLabelValues("error").Inc()
		log.Printf("router: failed to summarize %q for %d: %v", projectKey, ev.Identity, err)
		r.edit(ctx, ev, msgGenericError, nil)
		return
	}

	r.metrics.SummariesTotal.WithLabelValues("ok").Inc()
	r.sessions.Update(ev.Identity, func(c *session.Context) {
		c.ProjectKey = projectKey
		// Switching projects abandons any question that was awaiting an
		// answer for the previous one.
		c.PendingQuestion = ""
	})
	r.edit(ctx, ev, renderSummary(summary), []chat.Button{{Label: labelViewInfo, Token: actionViewInfo}})
}

func (r *Router) handleQuestionSelection(ctx context.Context, ev *chat.Event, q survey.QuestionID) {
	sc := r.sessions.Get(ev.Identity)
	if sc.ProjectKey == "" {
		r.reply(ctx, ev, msgSelectFirst, nil)
		return
	}

	r.sessions.Update(ev.Identity, func(c *session.Context) {
		c.PendingQuestion = q
	})
	text, _ := survey.QuestionText(q)
	r.edit(ctx, ev, "Please answer the question: "+text, nil)
}

func (r *Router) handleText(ctx context.Context, ev *chat.Event) {
	sc := r.sessions.Get(ev.Identity)
	if sc.ProjectKey == "" || sc.PendingQuestion == "" {
		r.reply(ctx, ev, msgSelectFirst, nil)
		return
	}

	if err := r.store.Save(ctx, sc.ProjectKey, sc.PendingQuestion, ev.Text); err != nil {
		log.Printf("router: failed to save answer for %s/%s: %v", sc.ProjectKey, sc.PendingQuestion, err)
		// Keep PendingQuestion set so resending the answer retries the save.
		r.reply(ctx, ev, msgSaveFailed, nil)
		return
	}

	r.metrics.AnswersSaved.Inc()
	r.sessions.Update(ev.Identity, func(c *session.Context) {
		c.PendingQuestion = ""
	})
	r.reply(ctx, ev, msgAnswerSaved, nil)
	r.showInfoView(ctx, ev, false)
}

// showInfoView loads and renders the stored answers for the session's
// project. edit selects in-place editing of the originating message.
func (r *Router) showInfoView(ctx context.Context, ev *chat.Event, edit bool) {
	sc := r.sessions.Get(ev.Identity)
	if sc.ProjectKey == "" {
		r.reply(ctx, ev, msgSelectFirst, nil)
		return
	}

	record, err := r.store.Load(ctx, sc.ProjectKey)
	if err != nil {
		log.Printf("router: failed to load survey record for %s: %v", sc.ProjectKey, err)
		r.reply(ctx, ev, msgGenericError, nil)
		return
	}

	text, err := renderRecord(record)
	if err != nil {
		log.Printf("router: data integrity problem in record %s: %v", sc.ProjectKey, err)
		r.reply(ctx, ev, msgGenericError, nil)
		return
	}

	if edit {
		r.edit(ctx, ev, text, infoViewButtons(sc.ProjectKey))
	} else {
		r.reply(ctx, ev, text, infoViewButtons(sc.ProjectKey))
	}
}

// reply sends a new message to the event's chat.
func (r *Router) reply(ctx context.Context, ev *chat.Event, text string, buttons []chat.Button) {
	r.deliver(ctx, &chat.Outbound{
		ID:         uuid.New().String(),
		ChatID:     ev.ChatID,
		Text:       text,
		Buttons:    buttons,
		CallbackID: ev.CallbackID,
	})
}

// edit replaces the message that carried the pressed button, falling back to
// a new message for events without one.
func (r *Router) edit(ctx context.Context, ev *chat.Event, text string, buttons []chat.Button) {
	r.deliver(ctx, &chat.Outbound{
		ID:               uuid.New().String(),
		ChatID:           ev.ChatID,
		ReplaceMessageID: ev.MessageID,
		Text:             text,
		Buttons:          buttons,
		CallbackID:       ev.CallbackID,
	})
}

func (r *Router) deliver(ctx context.Context, msg *chat.Outbound) {
	if err := r.sender.Send(ctx, msg); err != nil {
		log.Printf("router: failed to deliver message %s to chat %d: %v", msg.ID, msg.ChatID, err)
	}
}
