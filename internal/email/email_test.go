package email

import (
	"context"
	"strings"
	"testing"
)

func TestRenderHTML_EscapesAndBreaksLines(t *testing.T) {
	got := RenderHTML("Заявка <new>\nКонтакт: a&b")
	if !strings.Contains(got, "Заявка &lt;new&gt;<br>Контакт: a&amp;b") {
		t.Errorf("unexpected html: %s", got)
	}
}

func TestNewResendClient_RequiresKey(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "")
	if _, err := NewResendClient("", ""); err == nil {
		t.Error("expected error without api key")
	}
	t.Setenv("NOTIFY_EMAIL_FROM", "")
	c, err := NewResendClient("re_test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.from != DefaultFrom {
		t.Errorf("expected default sender, got %q", c.from)
	}
}

func TestMockSender(t *testing.T) {
	m := &MockSender{}
	if err := m.Send(context.Background(), "staff@example.com", "Новая заявка", "body"); err != nil {
		t.Fatal(err)
	}
	if msgs := m.Messages(); len(msgs) != 1 || msgs[0].Subject != "Новая заявка" {
		t.Errorf("unexpected messages %+v", msgs)
	}
}
