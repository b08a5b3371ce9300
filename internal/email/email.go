// Package email sends staff notification emails through Resend.
package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/resendlabs/resend-go"
)

// DefaultFrom is used when no sender address is configured.
const DefaultFrom = "ADC Navigator <noreply@miringgroup.com>"

// Sender sends a plain text message as an email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ResendClient is the Sender backed by the Resend API.
type ResendClient struct {
	client *resend.Client
	from   string
}

// NewResendClient creates a client. An empty apiKey falls back to RESEND_API_KEY,
// an empty from to NOTIFY_EMAIL_FROM and then DefaultFrom.
func NewResendClient(apiKey, from string) (*ResendClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("RESEND_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required")
	}
	if from == "" {
		from = os.Getenv("NOTIFY_EMAIL_FROM")
	}
	if from == "" {
		from = DefaultFrom
	}
	slog.Debug("ResendClient created", "from", from)
	return &ResendClient{client: resend.NewClient(apiKey), from: from}, nil
}

// Send delivers body as a preformatted HTML email.
func (c *ResendClient) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    RenderHTML(body),
		Text:    body,
	}
	sent, err := c.client.Emails.Send(params)
	if err != nil {
		slog.Error("ResendClient.Send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}
	slog.Debug("ResendClient.Send succeeded", "to", to, "id", sent.Id)
	return nil
}

// RenderHTML wraps plain text in a minimal escaped HTML layout.
func RenderHTML(body string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:Arial,sans-serif;font-size:14px;line-height:1.5">`)
	for i, line := range strings.Split(body, "\n") {
		if i > 0 {
			b.WriteString("<br>")
		}
		b.WriteString(html.EscapeString(line))
	}
	b.WriteString("</div>")
	return b.String()
}

// MockSender records emails instead of sending them.
type MockSender struct {
	mu   sync.Mutex
	Sent []Message
	Err  error
}

// Message is one recorded email.
type Message struct {
	To      string
	Subject string
	Body    string
}

func (m *MockSender) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of the recorded emails.
func (m *MockSender) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.Sent...)
}
