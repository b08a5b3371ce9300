package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/store"
	"github.com/looplab/fsm"
)

// Outcome tells the caller how an engine call left the dialog.
type Outcome string

const (
	OutcomeContinue  Outcome = "continue"
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeSkipped ends the welcome survey without a record.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIdle means there was no dialog to act on.
	OutcomeIdle Outcome = "idle"
)

// Result is the outcome of one engine call.
type Result struct {
	State     models.StateType
	Outcome   Outcome
	Emissions []models.Emission
	// Record is set when the dialog completed.
	Record *models.LeadRecord
}

// Done reports whether the dialog ended with this call.
func (r Result) Done() bool {
	return r.Outcome == OutcomeCompleted || r.Outcome == OutcomeCancelled || r.Outcome == OutcomeSkipped
}

// LeadNotifier receives completed records for staff delivery.
type LeadNotifier interface {
	NotifyLead(ctx context.Context, rec models.LeadRecord) error
}

// Hints shown when an answer cannot be used.
const (
	hintChooseButton  = "Пожалуйста, выберите один из вариантов ниже."
	hintEmptyAnswer   = "Ответ не должен быть пустым."
	hintNoAttachments = "На этом шаге файлы не нужны."
	hintFileLimit     = "Достигнут лимит файлов. Нажмите «Продолжить», чтобы перейти дальше."
	msgNoDialog       = "Сейчас нет активной заявки. Главное меню: /start"
	msgBroken         = "😔 Что-то пошло не так. Начните заново: /start"
)

// Engine drives dialog sessions through their state machines.
//
// Calls for the same user must be serialized by the caller; calls for
// different users may run concurrently.
type Engine struct {
	sessions store.SessionStore
	leads    store.LeadRepo
	notifier LeadNotifier
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithNotifier sets the staff notifier invoked on completion.
func WithNotifier(n LeadNotifier) EngineOption {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine over the given session store and lead repository.
func NewEngine(sessions store.SessionStore, leads store.LeadRepo, opts ...EngineOption) *Engine {
	e := &Engine{sessions: sessions, leads: leads, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns the active session of a user, or nil.
func (e *Engine) Session(ctx context.Context, userID int64) (*models.Session, error) {
	return e.sessions.Get(ctx, userID)
}

// Start begins a dialog of kind for the user, discarding any prior session.
func (e *Engine) Start(ctx context.Context, identity models.UserIdentity, kind models.DialogKind) (Result, error) {
	entry, ok := EntryState(kind)
	if !ok {
		return Result{}, fmt.Errorf("start %q: %w", kind, models.ErrUnknownDialog)
	}
	sess, err := e.sessions.Create(ctx, identity, kind, entry)
	if err != nil {
		slog.Error("Engine.Start: session create failed", "error", err, "userID", identity.ID, "kind", kind)
		return Result{}, fmt.Errorf("failed to create session: %w", err)
	}
	step, ok := StepAt(kind, entry)
	if !ok {
		return Result{}, fmt.Errorf("entry %s of %s: %w", entry, kind, models.ErrNoStep)
	}
	slog.Info("Engine.Start: dialog started", "userID", identity.ID, "kind", kind)
	return e.continueAt(sess, step, ""), nil
}

// Advance applies one inbound event to the user's active dialog.
func (e *Engine) Advance(ctx context.Context, ev models.Event) (Result, error) {
	sess, err := e.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return Result{}, models.ErrNoSession
	}
	step, ok := StepAt(sess.Kind, sess.State)
	if !ok {
		slog.Error("Engine.Advance: no step for session state, dropping session", "userID", ev.UserID, "kind", sess.Kind, "state", sess.State)
		e.clear(ctx, ev.UserID)
		return Result{State: models.StateCancelled, Outcome: OutcomeCancelled, Emissions: []models.Emission{{Text: msgBroken}}}, nil
	}

	switch {
	case step.Attachments:
		return e.advanceFiles(ctx, sess, step, ev)
	case ev.Kind == models.EventAttachment:
		return e.continueAt(sess, step, hintNoAttachments), nil
	case step.MultiSelect:
		return e.advanceMultiSelect(ctx, sess, step, ev)
	}

	choice, matched, handled := resolveChoice(step, ev)
	if !handled {
		return e.continueAt(sess, step, hintChooseButton), nil
	}
	if matched {
		if choice.Key != step.SkipKey {
			sess.Record(step.Field, choice.StoredValue())
		}
		return e.fire(ctx, sess, choice.FireEvent())
	}

	// Free text, including the lenient path at closed steps.
	answer := Transform(ev.Payload)
	if answer == "" {
		return e.continueAt(sess, step, hintEmptyAnswer), nil
	}
	if step.Closed() && !CanFire(sess.Kind, sess.State, EventNext) {
		return e.continueAt(sess, step, hintChooseButton), nil
	}
	sess.Record(step.Field, answer)
	return e.fire(ctx, sess, EventNext)
}

// resolveChoice maps a button or text event onto a step choice. handled is
// false when the event cannot be used at this step.
func resolveChoice(step StepSpec, ev models.Event) (choice Choice, matched, handled bool) {
	switch ev.Kind {
	case models.EventButton:
		key, ok := strings.CutPrefix(ev.Payload, ChoiceDataPrefix)
		if !ok {
			return Choice{}, false, false
		}
		c, ok := step.ChoiceByKey(key)
		return c, ok, ok
	case models.EventText:
		if c, ok := step.ChoiceByLabel(ev.Payload); ok {
			return c, true, true
		}
		return Choice{}, false, true
	default:
		return Choice{}, false, false
	}
}

func (e *Engine) advanceMultiSelect(ctx context.Context, sess *models.Session, step StepSpec, ev models.Event) (Result, error) {
	choice, matched, _ := resolveChoice(step, ev)
	if !matched {
		return e.continueAt(sess, step, hintChooseButton), nil
	}
	if choice.Key == step.DoneKey {
		return e.fire(ctx, sess, EventNext)
	}
	selected := sess.Toggle(step.Field, choice.StoredValue())
	if err := e.sessions.Save(ctx, sess); err != nil {
		return Result{}, fmt.Errorf("failed to save selection: %w", err)
	}
	slog.Debug("Engine.Advance: toggled choice", "userID", sess.UserID, "choice", choice.Key, "selected", selected)

	res := e.continueAt(sess, step, "")
	if ev.Kind == models.EventButton && ev.MessageID != 0 {
		res.Emissions[0].EditPrior = true
		res.Emissions[0].TargetMessageID = ev.MessageID
	}
	return res, nil
}

func (e *Engine) advanceFiles(ctx context.Context, sess *models.Session, step StepSpec, ev models.Event) (Result, error) {
	if ev.Kind != models.EventAttachment {
		// Any other input finishes the step and is not stored.
		return e.fire(ctx, sess, EventNext)
	}
	if n := len(sess.List(step.Field)); n >= models.MaxAttachmentsPerRequest {
		return e.continueAt(sess, step, hintFileLimit), nil
	}
	if err := e.sessions.Update(ctx, sess.UserID, step.Field, ev.Payload); err != nil {
		return Result{}, fmt.Errorf("failed to store attachment: %w", err)
	}
	sess.Record(step.Field, ev.Payload)
	n := len(sess.List(step.Field))
	slog.Debug("Engine.Advance: attachment stored", "userID", sess.UserID, "count", n)
	return Result{
		State:   sess.State,
		Outcome: OutcomeContinue,
		Emissions: []models.Emission{{
			Text:    fmt.Sprintf("📎 Файл получен (всего: %d). Отправьте ещё или нажмите «Продолжить».", n),
			Choices: choiceButtons(step.Choices, nil),
		}},
	}, nil
}

// fire runs event through the state machine and handles the new state.
func (e *Engine) fire(ctx context.Context, sess *models.Session, event string) (Result, error) {
	machine := newMachine(sess.Kind, sess.State, sess.UserID)
	if err := machine.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			slog.Warn("Engine.fire: illegal event", "userID", sess.UserID, "state", sess.State, "event", event, "error", err)
			step, _ := StepAt(sess.Kind, sess.State)
			return e.continueAt(sess, step, hintChooseButton), nil
		}
	}
	next := models.StateType(machine.Current())

	switch {
	case next == models.StateCompleted:
		return e.complete(ctx, sess), nil
	case event == EventSkip:
		e.clear(ctx, sess.UserID)
		slog.Info("Engine: dialog skipped", "userID", sess.UserID, "kind", sess.Kind)
		return Result{State: next, Outcome: OutcomeSkipped}, nil
	case next == models.StateCancelled:
		e.clear(ctx, sess.UserID)
		return Result{State: next, Outcome: OutcomeCancelled, Emissions: []models.Emission{{Text: cancelText(sess.Kind)}}}, nil
	}

	step, ok := StepAt(sess.Kind, next)
	if !ok {
		return Result{}, fmt.Errorf("state %s of %s: %w", next, sess.Kind, models.ErrNoStep)
	}
	sess.State = next
	if err := e.sessions.Save(ctx, sess); err != nil {
		slog.Error("Engine.fire: session save failed", "error", err, "userID", sess.UserID, "state", next)
		return Result{}, fmt.Errorf("failed to save session: %w", err)
	}
	return e.continueAt(sess, step, ""), nil
}

// complete clears the session, then persists and notifies. Failures after
// the clear are logged; the user still gets the confirmation.
func (e *Engine) complete(ctx context.Context, sess *models.Session) Result {
	e.clear(ctx, sess.UserID)

	rec := models.LeadFromSession(sess, e.now())
	if err := e.leads.UpsertLead(ctx, rec); err != nil {
		slog.Error("Engine.complete: lead upsert failed", "error", err, "userID", rec.UserID, "kind", rec.DialogKind)
	}
	if e.notifier != nil {
		if err := e.notifier.NotifyLead(ctx, rec); err != nil {
			slog.Error("Engine.complete: notify failed", "error", err, "userID", rec.UserID)
		}
	}
	slog.Info("Engine.complete: dialog completed", "userID", rec.UserID, "kind", rec.DialogKind)
	return Result{
		State:     models.StateCompleted,
		Outcome:   OutcomeCompleted,
		Emissions: []models.Emission{{Text: completionText(rec), Markdown: true}},
		Record:    &rec,
	}
}

// Cancel aborts the user's active dialog without writing a record.
func (e *Engine) Cancel(ctx context.Context, userID int64) (Result, error) {
	sess, err := e.sessions.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return Result{Outcome: OutcomeIdle, Emissions: []models.Emission{{Text: msgNoDialog}}}, nil
	}
	res, err := e.fire(ctx, sess, EventCancel)
	if err != nil || res.Outcome != OutcomeCancelled {
		// The session is unusable either way.
		e.clear(ctx, userID)
		return Result{State: models.StateCancelled, Outcome: OutcomeCancelled, Emissions: []models.Emission{{Text: cancelText(sess.Kind)}}}, nil
	}
	slog.Info("Engine.Cancel: dialog cancelled", "userID", userID, "kind", sess.Kind)
	return res, nil
}

// Discard drops the user's active session, if any, without a record or an emission.
func (e *Engine) Discard(ctx context.Context, userID int64) error {
	if err := e.sessions.Clear(ctx, userID); err != nil {
		return fmt.Errorf("failed to discard session: %w", err)
	}
	return nil
}

func (e *Engine) clear(ctx context.Context, userID int64) {
	if err := e.sessions.Clear(ctx, userID); err != nil {
		slog.Error("Engine: session clear failed", "error", err, "userID", userID)
	}
}

// continueAt renders the prompt of step, optionally prefixed by a hint.
func (e *Engine) continueAt(sess *models.Session, step StepSpec, hint string) Result {
	return Result{
		State:     sess.State,
		Outcome:   OutcomeContinue,
		Emissions: []models.Emission{Prompt(step, sess, hint)},
	}
}

// Prompt renders the emission for step given the session's current answers.
func Prompt(step StepSpec, sess *models.Session, hint string) models.Emission {
	var b strings.Builder
	if hint != "" {
		b.WriteString("⚠️ ")
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	b.WriteString(step.Prompt)

	var selected []string
	if step.MultiSelect && sess != nil {
		selected = sess.List(step.Field)
		if len(selected) > 0 {
			b.WriteString("\n\nВыбрано: ")
			b.WriteString(strings.Join(selected, ", "))
		}
	}
	return models.Emission{
		Text:     b.String(),
		Choices:  choiceButtons(step.Choices, selected),
		Columns:  step.Columns,
		Markdown: true,
	}
}

func choiceButtons(choices []Choice, selected []string) []models.Choice {
	if len(choices) == 0 {
		return nil
	}
	out := make([]models.Choice, 0, len(choices))
	for _, c := range choices {
		label := c.Label
		for _, s := range selected {
			if s == c.StoredValue() {
				label = "✔️ " + label
				break
			}
		}
		out = append(out, models.Choice{Label: label, Data: c.Data()})
	}
	return out
}

func cancelText(kind models.DialogKind) string {
	switch kind {
	case models.DialogRequestForm:
		return "❌ Заявка отменена.\n\nВы можете вернуться в главное меню: /start"
	case models.DialogTechQuestion:
		return "❌ Вопрос отменён.\n\nВы можете вернуться в главное меню: /start"
	default:
		return "❌ Опрос отменён.\n\nВы можете вернуться в главное меню: /start"
	}
}

func completionText(rec models.LeadRecord) string {
	switch {
	case rec.DialogKind == models.DialogRequestForm:
		return "✅ *Заявка отправлена!*\n\n" +
			"Наш специалист свяжется с вами в ближайшее время.\n\n" +
			"📞 Для срочной связи: 8-800-350-13-90\n" +
			"📧 Email: info@arxproektstroy.ru\n\n" +
			"Спасибо за обращение в ADC Group!"
	case rec.DialogKind == models.DialogTechQuestion:
		return "✅ *Вопрос отправлен!*\n\nИнженеры ADC Group ответят вам в ближайшее время."
	case rec.IsDetailed():
		return "✅ *Спасибо!*\n\nМы передали информацию о проекте специалисту, он свяжется с вами в ближайшее время."
	case rec.GiveawayParticipant != nil && *rec.GiveawayParticipant:
		return "🎁 *Вы участвуете в розыгрыше!*\n\nИтоги опубликуем в канале ADC Group. Спасибо за ответы!"
	default:
		return "🙏 *Спасибо за ответы!*\n\nБудем публиковать полезные материалы по выбранным темам в канале ADC Group."
	}
}
