package telegram

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MockBot implements Bot without network access. Updates pushed with Push
// are delivered to the channel returned by GetUpdatesChan.
type MockBot struct {
	mu        sync.Mutex
	Sent      []tgbotapi.Chattable
	Requests  []tgbotapi.Chattable
	Err       error
	nextID    int
	updates   chan tgbotapi.Update
	stopped   bool
	stopCalls int
}

// NewMockBot creates a mock with a buffered update channel.
func NewMockBot() *MockBot {
	return &MockBot{nextID: 100, updates: make(chan tgbotapi.Update, 64)}
}

func (m *MockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return tgbotapi.Message{}, m.Err
	}
	m.Sent = append(m.Sent, c)
	m.nextID++
	return tgbotapi.Message{MessageID: m.nextID}, nil
}

func (m *MockBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Requests = append(m.Requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *MockBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *MockBot) StopReceivingUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	if !m.stopped {
		m.stopped = true
		close(m.updates)
	}
}

// Push delivers an update to the polling channel.
func (m *MockBot) Push(u tgbotapi.Update) {
	m.updates <- u
}

// SentMessages returns the text messages sent so far.
func (m *MockBot) SentMessages() []tgbotapi.MessageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range m.Sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

// AllSent returns a copy of every Chattable passed to Send.
func (m *MockBot) AllSent() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.Sent...)
}

// AllRequests returns a copy of every Chattable passed to Request.
func (m *MockBot) AllRequests() []tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), m.Requests...)
}

// StopCalls returns how many times polling was stopped.
func (m *MockBot) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}
