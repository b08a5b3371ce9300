package twiliowhatsapp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "+79990000000", "Новая заявка")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := mock.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Body != "Новая заявка" || msgs[0].To != "+79990000000" {
		t.Errorf("unexpected message %+v", msgs[0])
	}
}

func TestMockClient_Error(t *testing.T) {
	mock := NewMockClient()
	mock.Err = errors.New("boom")
	if err := mock.SendMessage(context.Background(), "+1", "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(mock.Messages()) != 0 {
		t.Error("failed send must not be recorded")
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error without credentials")
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Error("expected error without sender number")
	}
	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFromWhats("+14155238886"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.fromWhats != "whatsapp:+14155238886" {
		t.Errorf("expected prefixed sender, got %q", c.fromWhats)
	}
}

func TestWhatsAppAddress(t *testing.T) {
	if got := WhatsAppAddress(" +7999 "); got != "whatsapp:+7999" {
		t.Errorf("got %q", got)
	}
	if got := WhatsAppAddress("whatsapp:+7999"); got != "whatsapp:+7999" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("ж", MaxBodyLength+10)
	got := Truncate(long)
	if utf8.RuneCountInString(got) != MaxBodyLength {
		t.Errorf("expected %d runes, got %d", MaxBodyLength, utf8.RuneCountInString(got))
	}
	if Truncate("short") != "short" {
		t.Error("short body must be unchanged")
	}
}
