package messaging

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/store"
)

// Handler processes one inbound event. Router implements Handler.
type Handler interface {
	Handle(ctx context.Context, ev models.Event) error
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDedup drops events whose update id was already recorded.
func WithDedup(repo store.DedupRepo) DispatcherOption {
	return func(d *Dispatcher) {
		d.dedup = repo
	}
}

// Dispatcher serializes events per user and runs different users in parallel.
// Each user with pending events has exactly one worker goroutine, which exits
// once that user's queue is empty.
type Dispatcher struct {
	handler Handler
	dedup   store.DedupRepo

	mu     sync.Mutex
	queues map[int64][]models.Event
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher delivering events to h.
func NewDispatcher(h Handler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{handler: h, queues: make(map[int64][]models.Event)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DedupKey is the dedup record id of an inbound Telegram update.
func DedupKey(ev models.Event) string {
	return "tg:" + strconv.FormatInt(ev.UpdateID, 10)
}

// Run dispatches events until the channel closes or ctx is done, then waits
// for queued work to finish.
func (d *Dispatcher) Run(ctx context.Context, events <-chan models.Event) {
	slog.Info("Dispatcher starting event processing")
	defer slog.Info("Dispatcher stopped event processing")
	defer d.Wait()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				slog.Debug("Dispatcher events channel closed")
				return
			}
			d.Dispatch(ctx, ev)
		case <-ctx.Done():
			slog.Debug("Dispatcher stopping due to context cancellation")
			return
		}
	}
}

// Dispatch queues ev behind any pending events of the same user.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.Event) {
	if d.dedup != nil && ev.UpdateID != 0 {
		fresh, err := d.dedup.RecordInbound(ctx, DedupKey(ev), strconv.FormatInt(ev.UserID, 10))
		if err != nil {
			slog.Warn("Dispatcher.Dispatch: dedup record failed, processing anyway", "updateID", ev.UpdateID, "error", err)
		} else if !fresh {
			slog.Debug("Dispatcher.Dispatch: duplicate update dropped", "updateID", ev.UpdateID, "userID", ev.UserID)
			return
		}
	}

	d.mu.Lock()
	pending, active := d.queues[ev.UserID]
	d.queues[ev.UserID] = append(pending, ev)
	if !active {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	if !active {
		// In-flight work finishes even when ctx is cancelled for shutdown.
		go d.drain(context.WithoutCancel(ctx), ev.UserID)
	}
}

func (d *Dispatcher) drain(ctx context.Context, userID int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		queue := d.queues[userID]
		if len(queue) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		ev := queue[0]
		d.queues[userID] = queue[1:]
		d.mu.Unlock()

		d.process(ctx, ev)
	}
}

func (d *Dispatcher) process(ctx context.Context, ev models.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Dispatcher.process: handler panicked", "userID", ev.UserID, "updateID", ev.UpdateID, "panic", r)
		}
	}()
	if err := d.handler.Handle(ctx, ev); err != nil {
		slog.Warn("Dispatcher.process: handler reported errors", "userID", ev.UserID, "updateID", ev.UpdateID, "error", err)
	}
	if d.dedup != nil && ev.UpdateID != 0 {
		if err := d.dedup.MarkProcessed(ctx, DedupKey(ev)); err != nil {
			slog.Warn("Dispatcher.process: mark processed failed", "updateID", ev.UpdateID, "error", err)
		}
	}
}

// Wait blocks until every queued event has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Active returns the number of users with a running worker.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}
