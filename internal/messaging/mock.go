package messaging

import (
	"context"
	"sync"

	"github.com/MiringGroup/ADCNavigator/internal/models"
)

// SentEmission is one emission recorded by MockService.
type SentEmission struct {
	ChatID   int64
	Emission models.Emission
}

// SentAttachment is one attachment recorded by MockService.
type SentAttachment struct {
	ChatID  int64
	Ref     string
	Caption string
}

// MockService implements Service for tests.
type MockService struct {
	mu          sync.Mutex
	Sent        []SentEmission
	Attachments []SentAttachment
	Acks        []string
	SendErr     error
	events      chan models.Event
	stopOnce    sync.Once
}

// NewMockService creates a MockService with a buffered event channel.
func NewMockService() *MockService {
	return &MockService{events: make(chan models.Event, DefaultChannelBufferSize)}
}

func (m *MockService) Send(ctx context.Context, chatID int64, em models.Emission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent = append(m.Sent, SentEmission{ChatID: chatID, Emission: em})
	return nil
}

func (m *MockService) SendAttachment(ctx context.Context, chatID int64, ref, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Attachments = append(m.Attachments, SentAttachment{ChatID: chatID, Ref: ref, Caption: caption})
	return nil
}

func (m *MockService) Acknowledge(ctx context.Context, callbackID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acks = append(m.Acks, callbackID)
	return nil
}

func (m *MockService) Start(ctx context.Context) error {
	return nil
}

func (m *MockService) Stop() error {
	m.stopOnce.Do(func() {
		close(m.events)
	})
	return nil
}

func (m *MockService) Events() <-chan models.Event {
	return m.events
}

// Push delivers an inbound event.
func (m *MockService) Push(ev models.Event) {
	m.events <- ev
}

// Emissions returns a copy of the emissions sent so far.
func (m *MockService) Emissions() []models.Emission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Emission, len(m.Sent))
	for i, s := range m.Sent {
		out[i] = s.Emission
	}
	return out
}

// Last returns the most recently sent emission.
func (m *MockService) Last() (models.Emission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return models.Emission{}, false
	}
	return m.Sent[len(m.Sent)-1].Emission, true
}

// AckCount returns how many callbacks were acknowledged.
func (m *MockService) AckCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Acks)
}

// Reset forgets recorded sends.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = nil
	m.Attachments = nil
	m.Acks = nil
}
