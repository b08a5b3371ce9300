package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/store"
)

type recordingHandler struct {
	mu      sync.Mutex
	seen    map[int64][]int64
	total   int
	delay   time.Duration
	onEvent func(models.Event)
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(map[int64][]int64)}
}

func (h *recordingHandler) Handle(ctx context.Context, ev models.Event) error {
	if h.onEvent != nil {
		h.onEvent(ev)
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[ev.UserID] = append(h.seen[ev.UserID], ev.UpdateID)
	h.total++
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

func TestDispatcher_PreservesPerUserOrder(t *testing.T) {
	h := newRecordingHandler()
	h.delay = time.Millisecond
	d := NewDispatcher(h)
	ctx := context.Background()

	var update int64
	for i := 0; i < 20; i++ {
		for _, user := range []int64{1, 2, 3} {
			update++
			d.Dispatch(ctx, models.Event{UpdateID: update, UserID: user})
		}
	}
	d.Wait()

	if h.count() != 60 {
		t.Fatalf("expected 60 handled events, got %d", h.count())
	}
	for user, ids := range h.seen {
		for i := 1; i < len(ids); i++ {
			if ids[i] <= ids[i-1] {
				t.Fatalf("user %d: events out of order: %v", user, ids)
			}
		}
	}
	if d.Active() != 0 {
		t.Errorf("workers should exit when idle, %d still active", d.Active())
	}
}

func TestDispatcher_UsersRunInParallel(t *testing.T) {
	release := make(chan struct{})
	h := newRecordingHandler()
	h.onEvent = func(ev models.Event) {
		switch ev.UserID {
		case 1:
			select {
			case <-release:
			case <-time.After(2 * time.Second):
			}
		case 2:
			close(release)
		}
	}
	d := NewDispatcher(h)
	ctx := context.Background()

	start := time.Now()
	d.Dispatch(ctx, models.Event{UpdateID: 1, UserID: 1})
	d.Dispatch(ctx, models.Event{UpdateID: 2, UserID: 2})
	d.Wait()

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("user 1 blocked user 2 for %v", elapsed)
	}
}

func TestDispatcher_DropsDuplicates(t *testing.T) {
	h := newRecordingHandler()
	repo := store.NewInMemoryStore()
	d := NewDispatcher(h, WithDedup(repo))
	ctx := context.Background()

	ev := models.Event{UpdateID: 900, UserID: 5}
	d.Dispatch(ctx, ev)
	d.Wait()
	d.Dispatch(ctx, ev)
	d.Wait()

	if h.count() != 1 {
		t.Errorf("expected duplicate to be dropped, handled %d", h.count())
	}
	dup, err := repo.IsDuplicate(ctx, DedupKey(ev))
	if err != nil || !dup {
		t.Errorf("expected update to be recorded, got %v %v", dup, err)
	}
}

func TestDispatcher_RunDrainsUntilClosed(t *testing.T) {
	h := newRecordingHandler()
	d := NewDispatcher(h)
	events := make(chan models.Event, 10)
	for i := int64(1); i <= 5; i++ {
		events <- models.Event{UpdateID: i, UserID: i % 2}
	}
	close(events)

	done := make(chan struct{})
	go func() {
		d.Run(context.Background(), events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the channel closed")
	}
	if h.count() != 5 {
		t.Errorf("expected all events handled before Run returns, got %d", h.count())
	}
}

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	h := newRecordingHandler()
	h.onEvent = func(ev models.Event) {
		if ev.UpdateID == 1 {
			panic("boom")
		}
	}
	d := NewDispatcher(h)
	ctx := context.Background()
	d.Dispatch(ctx, models.Event{UpdateID: 1, UserID: 7})
	d.Dispatch(ctx, models.Event{UpdateID: 2, UserID: 7})
	d.Wait()

	if h.count() != 1 {
		t.Errorf("expected the second event to be handled after a panic, got %d", h.count())
	}
}
