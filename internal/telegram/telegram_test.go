package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func newMockClient(t *testing.T) (*Client, *MockBot) {
	t.Helper()
	bot := NewMockBot()
	c, err := NewClient(WithBot(bot))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, bot
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient(); !errors.Is(err, models.ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %v", err)
	}
}

func TestClient_SendText(t *testing.T) {
	c, bot := newMockClient(t)
	kb := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Да", "dlg:yes")))

	id, err := c.SendText(context.Background(), 42, "*Шаг 1*", true, &kb)
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if id == 0 {
		t.Error("expected message id")
	}
	msgs := bot.SentMessages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].ChatID != 42 || msgs[0].ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("unexpected message %+v", msgs[0])
	}
	if _, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Errorf("expected inline keyboard, got %T", msgs[0].ReplyMarkup)
	}
}

func TestClient_SendTextRejectsEmpty(t *testing.T) {
	c, _ := newMockClient(t)
	if _, err := c.SendText(context.Background(), 1, "", false, nil); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestClient_SendErrorIsWrapped(t *testing.T) {
	c, bot := newMockClient(t)
	bot.Err = errors.New("forbidden: bot was blocked by the user")
	_, err := c.SendText(context.Background(), 7, "hi", false, nil)
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestClient_EditAndAnswer(t *testing.T) {
	c, bot := newMockClient(t)
	ctx := context.Background()
	if err := c.EditText(ctx, 5, 99, "updated", false, nil); err != nil {
		t.Fatalf("EditText failed: %v", err)
	}
	if err := c.AnswerCallback(ctx, "cb-1"); err != nil {
		t.Fatalf("AnswerCallback failed: %v", err)
	}
	reqs := bot.AllRequests()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	edit, ok := reqs[0].(tgbotapi.EditMessageTextConfig)
	if !ok || edit.MessageID != 99 || edit.Text != "updated" {
		t.Errorf("unexpected edit %+v", reqs[0])
	}
	if cb, ok := reqs[1].(tgbotapi.CallbackConfig); !ok || cb.CallbackQueryID != "cb-1" {
		t.Errorf("unexpected callback %+v", reqs[1])
	}
}

func TestClient_SendFiles(t *testing.T) {
	c, bot := newMockClient(t)
	ctx := context.Background()
	if err := c.SendDocument(ctx, 1, "doc-id", "ТЗ"); err != nil {
		t.Fatal(err)
	}
	if err := c.SendPhoto(ctx, 1, "photo-id", ""); err != nil {
		t.Fatal(err)
	}
	sent := bot.AllSent()
	if _, ok := sent[0].(tgbotapi.DocumentConfig); !ok {
		t.Errorf("expected document, got %T", sent[0])
	}
	if _, ok := sent[1].(tgbotapi.PhotoConfig); !ok {
		t.Errorf("expected photo, got %T", sent[1])
	}
}

func TestClient_UpdatesStopOnContextCancel(t *testing.T) {
	c, bot := newMockClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Updates(ctx)
	bot.Push(tgbotapi.Update{UpdateID: 1})
	if u := <-ch; u.UpdateID != 1 {
		t.Fatalf("unexpected update %+v", u)
	}
	cancel()
	for range ch {
	}
	c.StopUpdates()
	if bot.StopCalls() != 1 {
		t.Errorf("expected polling stopped once, got %d", bot.StopCalls())
	}
}

func TestTruncate(t *testing.T) {
	got := Truncate(strings.Repeat("ы", MaxMessageLength+1))
	if utf8.RuneCountInString(got) != MaxMessageLength {
		t.Errorf("expected %d runes, got %d", MaxMessageLength, utf8.RuneCountInString(got))
	}
}
