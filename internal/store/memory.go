package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// InMemoryStore is a simple in-memory durable store, used in tests and when
// persistence is explicitly disabled.
type InMemoryStore struct {
	mu         sync.RWMutex
	leads      map[int64]models.LeadRecord
	unanswered []models.UnansweredQuestion
	dedup      map[string]DedupRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		leads: make(map[int64]models.LeadRecord),
		dedup: make(map[string]DedupRecord),
	}
}

func copyLead(rec models.LeadRecord) models.LeadRecord {
	rec.Interests = slices.Clone(rec.Interests)
	rec.Files = slices.Clone(rec.Files)
	return rec
}

func (s *InMemoryStore) UpsertLead(ctx context.Context, rec models.LeadRecord) error {
	if rec.UserID <= 0 {
		return models.ErrInvalidUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.leads[rec.UserID]; ok && !prev.FirstContact.IsZero() && prev.FirstContact.Before(rec.FirstContact) {
		rec.FirstContact = prev.FirstContact
	}
	s.leads[rec.UserID] = copyLead(rec)
	return nil
}

func (s *InMemoryStore) LeadExists(ctx context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.leads[userID]
	return ok, nil
}

func (s *InMemoryStore) GetLead(ctx context.Context, userID int64) (*models.LeadRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.leads[userID]
	if !ok {
		return nil, nil
	}
	out := copyLead(rec)
	return &out, nil
}

func (s *InMemoryStore) ListLeads(ctx context.Context, limit int) ([]models.LeadRecord, error) {
	s.mu.RLock()
	out := make([]models.LeadRecord, 0, len(s.leads))
	for _, rec := range s.leads {
		out = append(out, copyLead(rec))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if n := normalizeLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *InMemoryStore) AddUnanswered(ctx context.Context, q models.UnansweredQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = int64(len(s.unanswered) + 1)
	s.unanswered = append(s.unanswered, q)
	return nil
}

func (s *InMemoryStore) ListUnanswered(ctx context.Context, limit int) ([]models.UnansweredQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := normalizeLimit(limit)
	out := make([]models.UnansweredQuestion, 0, min(n, len(s.unanswered)))
	for i := len(s.unanswered) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.unanswered[i])
	}
	return out, nil
}

func (s *InMemoryStore) IsDuplicate(ctx context.Context, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dedup[messageID]
	return ok, nil
}

func (s *InMemoryStore) RecordInbound(ctx context.Context, messageID, participantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dedup[messageID]; ok {
		return false, nil
	}
	s.dedup[messageID] = DedupRecord{MessageID: messageID, ParticipantID: participantID, ReceivedAt: time.Now()}
	return true, nil
}

func (s *InMemoryStore) MarkProcessed(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.dedup[messageID]
	if !ok {
		return nil
	}
	now := time.Now()
	rec.ProcessedAt = &now
	s.dedup[messageID] = rec
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
