package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// SessionStore holds the single active dialog session per user.
//
// Implementations are safe for concurrent use across users. Callers must
// serialize operations for the same user; the router does so through the
// dispatcher's per-user queues.
type SessionStore interface {
	// Create starts a session at the entry state, discarding any prior session for the user.
	Create(ctx context.Context, identity models.UserIdentity, kind models.DialogKind, entry models.StateType) (*models.Session, error)
	// Get returns a copy of the active session, or nil when no dialog is active.
	Get(ctx context.Context, userID int64) (*models.Session, error)
	// Update records one field value: list fields are appended to, others overwritten.
	Update(ctx context.Context, userID int64, field models.FieldName, value string) error
	// Save replaces the stored session with sess.
	Save(ctx context.Context, sess *models.Session) error
	// Clear removes the session. Clearing a missing session is not an error.
	Clear(ctx context.Context, userID int64) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*models.Session
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[int64]*models.Session),
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Create(ctx context.Context, identity models.UserIdentity, kind models.DialogKind, entry models.StateType) (*models.Session, error) {
	if identity.ID <= 0 {
		return nil, models.ErrInvalidUserID
	}
	sess := models.NewSession(identity, kind, entry, m.now())

	m.mu.Lock()
	_, replaced := m.sessions[identity.ID]
	m.sessions[identity.ID] = sess.Clone()
	m.mu.Unlock()

	slog.Debug("MemorySessionStore.Create", "userID", identity.ID, "kind", kind, "replaced", replaced)
	return sess, nil
}

func (m *MemorySessionStore) Get(ctx context.Context, userID int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID].Clone(), nil
}

func (m *MemorySessionStore) Update(ctx context.Context, userID int64, field models.FieldName, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return fmt.Errorf("update %s for user %d: %w", field, userID, models.ErrNoSession)
	}
	sess.Record(field, value)
	sess.UpdatedAt = m.now()
	return nil
}

func (m *MemorySessionStore) Save(ctx context.Context, sess *models.Session) error {
	if sess == nil || sess.UserID <= 0 {
		return models.ErrInvalidUserID
	}
	c := sess.Clone()
	c.UpdatedAt = m.now()

	m.mu.Lock()
	m.sessions[sess.UserID] = c
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Clear(ctx context.Context, userID int64) error {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
	slog.Debug("MemorySessionStore.Clear", "userID", userID)
	return nil
}

// Count returns the number of active sessions.
func (m *MemorySessionStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
