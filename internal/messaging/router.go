package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/MiringGroup/ADCNavigator/internal/flow"
	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// DefaultUnansweredMinLength is the minimum rune count of a free-text
// message forwarded to staff as unanswered.
const DefaultUnansweredMinLength = 10

// DialogEngine is implemented by flow.Engine.
type DialogEngine interface {
	Session(ctx context.Context, userID int64) (*models.Session, error)
	Start(ctx context.Context, identity models.UserIdentity, kind models.DialogKind) (flow.Result, error)
	Advance(ctx context.Context, ev models.Event) (flow.Result, error)
	Cancel(ctx context.Context, userID int64) (flow.Result, error)
	Discard(ctx context.Context, userID int64) error
}

// LeadChecker reports whether a user already completed a dialog.
type LeadChecker interface {
	LeadExists(ctx context.Context, userID int64) (bool, error)
}

// UnansweredNotifier forwards free text nobody could answer.
type UnansweredNotifier interface {
	NotifyUnanswered(ctx context.Context, ident models.UserIdentity, text string) error
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithUnansweredNotifier sets the notifier for unanswered free text.
func WithUnansweredNotifier(n UnansweredNotifier) RouterOption {
	return func(r *Router) {
		r.unanswered = n
	}
}

// WithUnansweredMinLength overrides DefaultUnansweredMinLength.
func WithUnansweredMinLength(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.minLength = n
		}
	}
}

// Router maps inbound events to engine transitions or stateless replies and
// sends the resulting emissions through the transport.
type Router struct {
	svc        Service
	engine     DialogEngine
	leads      LeadChecker
	unanswered UnansweredNotifier
	minLength  int
}

// NewRouter creates a Router.
func NewRouter(svc Service, engine DialogEngine, leads LeadChecker, opts ...RouterOption) *Router {
	r := &Router{svc: svc, engine: engine, leads: leads, minLength: DefaultUnansweredMinLength}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one event. The returned error joins emission send
// failures; routing problems are answered with an apology instead.
func (r *Router) Handle(ctx context.Context, ev models.Event) error {
	slog.Debug("Router.Handle: event", "userID", ev.UserID, "kind", ev.Kind, "payload_length", len(ev.Payload))
	if ev.Kind == models.EventButton {
		if err := r.svc.Acknowledge(ctx, ev.CallbackID); err != nil {
			slog.Warn("Router.Handle: acknowledge failed", "userID", ev.UserID, "error", err)
		}
	}

	emissions := r.route(ctx, ev)
	if len(emissions) == 0 {
		emissions = []models.Emission{{Text: brokenText}}
	}

	var errs []error
	for _, em := range emissions {
		if em.EditPrior && em.TargetMessageID == 0 {
			em.TargetMessageID = ev.MessageID
		}
		if err := r.svc.Send(ctx, ev.ChatID, em); err != nil {
			slog.Error("Router.Handle: send failed", "userID", ev.UserID, "chatID", ev.ChatID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Router) route(ctx context.Context, ev models.Event) []models.Emission {
	switch ev.Kind {
	case models.EventCommand:
		if ems, ok := r.command(ctx, ev); ok {
			return ems
		}
	case models.EventButton:
		if data, ok := strings.CutPrefix(ev.Payload, MenuPrefix); ok {
			return r.menu(ctx, ev, MenuPrefix+data)
		}
	}

	sess, err := r.engine.Session(ctx, ev.UserID)
	if err != nil {
		slog.Error("Router.route: session lookup failed", "userID", ev.UserID, "error", err)
		return []models.Emission{{Text: brokenText}}
	}
	if sess != nil {
		res, err := r.engine.Advance(ctx, ev)
		if err != nil {
			slog.Error("Router.route: advance failed", "userID", ev.UserID, "state", sess.State, "error", err)
			return []models.Emission{{Text: brokenText}}
		}
		return r.result(res)
	}

	switch ev.Kind {
	case models.EventText:
		return r.respond(ctx, ev)
	case models.EventAttachment:
		return []models.Emission{{Text: idleFileText}}
	case models.EventButton:
		menu := MenuEmission()
		menu.Text = staleButtonText + "\n\n" + menu.Text
		return []models.Emission{menu}
	default:
		return []models.Emission{{Text: fallbackText}}
	}
}

// command handles slash commands. ok is false for unknown commands, which
// then fall through like any other event.
func (r *Router) command(ctx context.Context, ev models.Event) ([]models.Emission, bool) {
	switch strings.ToLower(ev.Payload) {
	case "start":
		return r.welcome(ctx, ev), true
	case "survey":
		return r.start(ctx, ev, models.DialogWelcomeSurvey), true
	case "request":
		return r.start(ctx, ev, models.DialogRequestForm), true
	case "question":
		return r.start(ctx, ev, models.DialogTechQuestion), true
	case "cancel":
		return r.cancel(ctx, ev), true
	case "help":
		return []models.Emission{HelpEmission()}, true
	case "menu":
		return []models.Emission{MenuEmission()}, true
	}
	return nil, false
}

func (r *Router) menu(ctx context.Context, ev models.Event, data string) []models.Emission {
	switch data {
	case MenuSurvey:
		return r.welcome(ctx, ev)
	case MenuRequest:
		return r.start(ctx, ev, models.DialogRequestForm)
	case MenuQuestion:
		return r.start(ctx, ev, models.DialogTechQuestion)
	case MenuCancel:
		return r.cancel(ctx, ev)
	}
	em, ok := InfoEmission(data)
	if !ok {
		if data != MenuHome {
			slog.Debug("Router.menu: unknown menu data", "userID", ev.UserID, "data", data)
		}
		em = MenuEmission()
	}
	em.EditPrior = true
	return []models.Emission{em}
}

// welcome starts the survey for new users and shows the menu to returning ones.
func (r *Router) welcome(ctx context.Context, ev models.Event) []models.Emission {
	exists, err := r.leads.LeadExists(ctx, ev.UserID)
	if err != nil {
		slog.Error("Router.welcome: lead lookup failed, showing menu", "userID", ev.UserID, "error", err)
		exists = true
	}
	if exists {
		if err := r.engine.Discard(ctx, ev.UserID); err != nil {
			slog.Warn("Router.welcome: discard failed", "userID", ev.UserID, "error", err)
		}
		return []models.Emission{GreetingEmission(ev.Identity)}
	}
	res, err := r.engine.Start(ctx, ev.Identity, models.DialogWelcomeSurvey)
	if err != nil {
		slog.Error("Router.welcome: survey start failed", "userID", ev.UserID, "error", err)
		return []models.Emission{GreetingEmission(ev.Identity)}
	}
	return append([]models.Emission{IntroEmission(ev.Identity)}, res.Emissions...)
}

func (r *Router) start(ctx context.Context, ev models.Event, kind models.DialogKind) []models.Emission {
	res, err := r.engine.Start(ctx, ev.Identity, kind)
	if err != nil {
		slog.Error("Router.start: dialog start failed", "userID", ev.UserID, "kind", kind, "error", err)
		return []models.Emission{{Text: brokenText}}
	}
	return res.Emissions
}

func (r *Router) cancel(ctx context.Context, ev models.Event) []models.Emission {
	res, err := r.engine.Cancel(ctx, ev.UserID)
	if err != nil {
		slog.Error("Router.cancel: cancel failed", "userID", ev.UserID, "error", err)
		return []models.Emission{{Text: brokenText}}
	}
	return r.result(res)
}

// result appends the main menu once a dialog has ended.
func (r *Router) result(res flow.Result) []models.Emission {
	if res.Done() {
		return append(res.Emissions, MenuEmission())
	}
	return res.Emissions
}

// respond answers free text outside any dialog.
func (r *Router) respond(ctx context.Context, ev models.Event) []models.Emission {
	if name, reply, ok := MatchKeyword(ev.Payload); ok {
		slog.Debug("Router.respond: keyword matched", "userID", ev.UserID, "rule", name)
		return []models.Emission{{Text: reply, Markdown: true}}
	}
	text := strings.TrimSpace(ev.Payload)
	if r.unanswered != nil && utf8.RuneCountInString(text) >= r.minLength {
		if err := r.unanswered.NotifyUnanswered(ctx, ev.Identity, text); err != nil {
			slog.Warn("Router.respond: unanswered notification failed", "userID", ev.UserID, "error", err)
		}
	}
	return []models.Emission{{Text: fallbackText}}
}
