// Package notify delivers staff notifications for completed dialogs and
// unanswered questions.
//
// Delivery is best-effort: failures are logged and never surface to the
// user-facing interaction that triggered them.
package notify

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/store"
	"golang.org/x/sync/errgroup"
)

// Defaults for the notifier.
const (
	DefaultDeliveryTimeout = 15 * time.Second
	DefaultRecentQuestions = 5
	// DefaultUnansweredMinLength suppresses alerts for trivial inputs.
	DefaultUnansweredMinLength = 10
)

// Opts holds configuration options for the Notifier.
type Opts struct {
	Managers        []Destination
	Admins          []Destination
	Unanswered      store.UnansweredRepo
	MinLength       int
	RecentQuestions int
	Timeout         time.Duration
	Now             func() time.Time
}

// Option defines a configuration option for the Notifier.
type Option func(*Opts)

// WithManagers sets the staff-manager destinations that receive leads.
func WithManagers(d ...Destination) Option {
	return func(o *Opts) { o.Managers = append(o.Managers, d...) }
}

// WithAdmins sets the staff-admin destinations that receive unanswered questions.
func WithAdmins(d ...Destination) Option {
	return func(o *Opts) { o.Admins = append(o.Admins, d...) }
}

// WithUnansweredLog appends every unanswered question to repo.
func WithUnansweredLog(repo store.UnansweredRepo) Option {
	return func(o *Opts) { o.Unanswered = repo }
}

// WithMinLength sets the minimum question length, in runes, worth an alert.
func WithMinLength(n int) Option {
	return func(o *Opts) { o.MinLength = n }
}

// WithDeliveryTimeout bounds each destination delivery.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Now = now }
}

// Notifier fans notifications out to staff destinations.
type Notifier struct {
	cfg Opts
}

// NewNotifier creates a notifier. Without destinations it is a silent no-op.
func NewNotifier(opts ...Option) *Notifier {
	cfg := Opts{
		MinLength:       DefaultUnansweredMinLength,
		RecentQuestions: DefaultRecentQuestions,
		Timeout:         DefaultDeliveryTimeout,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Notifier created", "managers", len(cfg.Managers), "admins", len(cfg.Admins), "unanswered_log", cfg.Unanswered != nil)
	return &Notifier{cfg: cfg}
}

// MinLength returns the configured minimum length for unanswered alerts.
func (n *Notifier) MinLength() int {
	return n.cfg.MinLength
}

// NotifyLead sends the lead summary to every manager destination.
func (n *Notifier) NotifyLead(ctx context.Context, rec models.LeadRecord) error {
	if len(n.cfg.Managers) == 0 {
		slog.Debug("Notifier.NotifyLead: no manager destinations", "userID", rec.UserID)
		return nil
	}
	n.deliver(ctx, n.cfg.Managers, RenderLead(rec))
	return nil
}

// NotifyUnanswered logs a question no responder could answer and alerts the
// admin destinations. Texts shorter than the minimum length are ignored.
func (n *Notifier) NotifyUnanswered(ctx context.Context, ident models.UserIdentity, text string) error {
	if utf8.RuneCountInString(text) < n.cfg.MinLength {
		return nil
	}
	now := n.cfg.Now()
	var recent []models.UnansweredQuestion
	if n.cfg.Unanswered != nil {
		q := models.UnansweredQuestion{UserID: ident.ID, Identity: ident, Text: text, AskedAt: now}
		if err := n.cfg.Unanswered.AddUnanswered(ctx, q); err != nil {
			slog.Error("Notifier.NotifyUnanswered: log append failed", "error", err, "userID", ident.ID)
		}
		var err error
		recent, err = n.cfg.Unanswered.ListUnanswered(ctx, n.cfg.RecentQuestions+1)
		if err != nil {
			slog.Warn("Notifier.NotifyUnanswered: recent questions unavailable", "error", err)
		}
	}
	if len(n.cfg.Admins) == 0 {
		return nil
	}
	n.deliver(ctx, n.cfg.Admins, RenderUnanswered(ident, text, now, recent))
	return nil
}

// deliver sends msg to all destinations in parallel and waits for them.
func (n *Notifier) deliver(ctx context.Context, dests []Destination, msg models.NotificationMessage) {
	var g errgroup.Group
	for _, d := range dests {
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
			defer cancel()
			if err := d.Deliver(dctx, msg); err != nil {
				slog.Error("Notifier: delivery failed", "error", err, "destination", d.Name(), "class", msg.Class, "id", msg.ID)
				return nil
			}
			slog.Info("Notifier: delivered", "destination", d.Name(), "class", msg.Class, "id", msg.ID)
			return nil
		})
	}
	_ = g.Wait()
}
