package messaging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func newTestTelegramService(t *testing.T) (*TelegramService, *telegram.MockBot) {
	t.Helper()
	bot := telegram.NewMockBot()
	client, err := telegram.NewClient(telegram.WithBot(bot))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewTelegramService(client), bot
}

var tgUser = &tgbotapi.User{ID: 55, UserName: "olga", FirstName: "Ольга", LastName: "Петрова"}

func TestToEvent(t *testing.T) {
	chat := &tgbotapi.Chat{ID: 55}
	cases := []struct {
		name    string
		update  tgbotapi.Update
		kind    models.EventKind
		payload string
	}{
		{
			name: "command",
			update: tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
				MessageID: 3, From: tgUser, Chat: chat, Text: "/start",
				Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
			}},
			kind: models.EventCommand, payload: "start",
		},
		{
			name:   "text",
			update: tgbotapi.Update{UpdateID: 2, Message: &tgbotapi.Message{MessageID: 4, From: tgUser, Chat: chat, Text: "Здравствуйте"}},
			kind:   models.EventText, payload: "Здравствуйте",
		},
		{
			name: "document",
			update: tgbotapi.Update{UpdateID: 3, Message: &tgbotapi.Message{
				MessageID: 5, From: tgUser, Chat: chat, Document: &tgbotapi.Document{FileID: "doc-1"},
			}},
			kind: models.EventAttachment, payload: "document:doc-1",
		},
		{
			name: "largest photo",
			update: tgbotapi.Update{UpdateID: 4, Message: &tgbotapi.Message{
				MessageID: 6, From: tgUser, Chat: chat,
				Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
			}},
			kind: models.EventAttachment, payload: "photo:large",
		},
		{
			name: "callback",
			update: tgbotapi.Update{UpdateID: 5, CallbackQuery: &tgbotapi.CallbackQuery{
				ID: "q1", From: tgUser, Data: "dlg:yes",
				Message: &tgbotapi.Message{MessageID: 42, Chat: chat},
			}},
			kind: models.EventButton, payload: "dlg:yes",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := ToEvent(tc.update)
			if !ok {
				t.Fatal("expected update to convert")
			}
			if ev.Kind != tc.kind || ev.Payload != tc.payload {
				t.Errorf("got %s %q, want %s %q", ev.Kind, ev.Payload, tc.kind, tc.payload)
			}
			if ev.UserID != 55 || ev.ChatID != 55 || ev.Identity.DisplayName() != "Ольга Петрова" {
				t.Errorf("unexpected identity %+v", ev)
			}
			if ev.UpdateID != int64(tc.update.UpdateID) {
				t.Errorf("update id %d, want %d", ev.UpdateID, tc.update.UpdateID)
			}
		})
	}

	ev, _ := ToEvent(cases[4].update)
	if ev.MessageID != 42 || ev.CallbackID != "q1" {
		t.Errorf("callback should carry message and callback ids, got %+v", ev)
	}
}

func TestToEvent_Rejects(t *testing.T) {
	for name, u := range map[string]tgbotapi.Update{
		"empty":       {UpdateID: 1},
		"no sender":   {UpdateID: 2, Message: &tgbotapi.Message{Text: "hi"}},
		"sticker":     {UpdateID: 3, Message: &tgbotapi.Message{From: tgUser, Sticker: &tgbotapi.Sticker{FileID: "s"}}},
		"anon button": {UpdateID: 4, CallbackQuery: &tgbotapi.CallbackQuery{ID: "x", Data: "menu:home"}},
	} {
		if _, ok := ToEvent(u); ok {
			t.Errorf("%s: expected update to be rejected", name)
		}
	}
}

func TestKeyboard(t *testing.T) {
	if Keyboard(nil, 2) != nil {
		t.Error("expected nil keyboard without choices")
	}
	kb := Keyboard([]models.Choice{
		{Label: "a", Data: "dlg:a"},
		{Label: "b", Data: "dlg:b"},
		{Label: "c", Data: "dlg:c"},
		{Label: "d", Data: "dlg:d"},
		{Label: "site", URL: SiteURL},
	}, 2)
	rows := kb.InlineKeyboard
	if len(rows) != 3 || len(rows[0]) != 2 || len(rows[2]) != 1 {
		t.Fatalf("unexpected layout %v", rows)
	}
	if rows[0][1].CallbackData == nil || *rows[0][1].CallbackData != "dlg:b" {
		t.Errorf("unexpected callback data %v", rows[0][1].CallbackData)
	}
	if rows[2][0].URL == nil || *rows[2][0].URL != SiteURL {
		t.Errorf("expected URL button, got %+v", rows[2][0])
	}

	single := Keyboard([]models.Choice{{Label: "x", Data: "x"}, {Label: "y", Data: "y"}}, 0)
	if len(single.InlineKeyboard) != 2 {
		t.Errorf("zero columns should mean one button per row, got %d rows", len(single.InlineKeyboard))
	}
}

func TestTelegramService_SendAndEdit(t *testing.T) {
	svc, bot := newTestTelegramService(t)
	ctx := context.Background()

	if err := svc.Send(ctx, 55, MenuEmission()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := bot.SentMessages()
	if len(msgs) != 1 || msgs[0].ParseMode != tgbotapi.ModeMarkdown {
		t.Fatalf("expected one markdown message, got %+v", msgs)
	}
	if _, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); !ok {
		t.Errorf("expected an inline keyboard, got %T", msgs[0].ReplyMarkup)
	}

	em := MenuEmission()
	em.EditPrior = true
	em.TargetMessageID = 42
	if err := svc.Send(ctx, 55, em); err != nil {
		t.Fatalf("Send edit: %v", err)
	}
	reqs := bot.AllRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected one edit request, got %d", len(reqs))
	}
	edit, ok := reqs[0].(tgbotapi.EditMessageTextConfig)
	if !ok || edit.MessageID != 42 {
		t.Errorf("expected edit of message 42, got %+v", reqs[0])
	}
	if len(bot.SentMessages()) != 1 {
		t.Error("a successful edit must not send a new message")
	}
}

func TestTelegramService_SendAttachment(t *testing.T) {
	svc, bot := newTestTelegramService(t)
	ctx := context.Background()

	if err := svc.SendAttachment(ctx, 55, "photo:p1", "cap"); err != nil {
		t.Fatalf("photo: %v", err)
	}
	if err := svc.SendAttachment(ctx, 55, "document:d1", ""); err != nil {
		t.Fatalf("document: %v", err)
	}
	sent := bot.AllSent()
	if _, ok := sent[0].(tgbotapi.PhotoConfig); !ok {
		t.Errorf("expected photo, got %T", sent[0])
	}
	if _, ok := sent[1].(tgbotapi.DocumentConfig); !ok {
		t.Errorf("expected document, got %T", sent[1])
	}
	if err := svc.SendAttachment(ctx, 55, "video:v1", ""); err == nil {
		t.Error("expected error for unsupported kind")
	}
	if err := svc.SendAttachment(ctx, 55, "garbage", ""); err == nil {
		t.Error("expected error for invalid reference")
	}
}

func TestTelegramService_Acknowledge(t *testing.T) {
	svc, bot := newTestTelegramService(t)
	if err := svc.Acknowledge(context.Background(), ""); err != nil {
		t.Fatalf("empty id: %v", err)
	}
	if err := svc.Acknowledge(context.Background(), "q1"); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if n := len(bot.AllRequests()); n != 1 {
		t.Errorf("expected one callback answer, got %d", n)
	}
}

func TestTelegramService_StartStop(t *testing.T) {
	svc, bot := newTestTelegramService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	bot.Push(tgbotapi.Update{UpdateID: 9, Message: &tgbotapi.Message{From: tgUser, Chat: &tgbotapi.Chat{ID: 55}, Text: "привет"}})
	select {
	case ev := <-svc.Events():
		if ev.Kind != models.EventText || ev.Payload != "привет" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, ok := <-svc.Events(); ok {
		t.Error("events channel should be closed after Stop")
	}
}

func TestTelegramService_StopWithoutStart(t *testing.T) {
	svc, _ := newTestTelegramService(t)
	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, ok := <-svc.Events(); ok {
		t.Error("events channel should be closed")
	}
}

func TestMatchKeyword(t *testing.T) {
	if name, _, ok := MatchKeyword("как долго длится экспертиза"); !ok || name != "timeline" {
		t.Errorf("expected timeline, got %q %v", name, ok)
	}
	if _, _, ok := MatchKeyword("BIM модель"); ok {
		t.Error("expected no match")
	}
}

func TestInfoEmission(t *testing.T) {
	for _, data := range []string{MenuCompany, MenuServices, MenuObjects, MenuPortfolio} {
		em, ok := InfoEmission(data)
		if !ok || em.Text == "" || len(em.Choices) < 2 {
			t.Errorf("%s: unexpected emission %+v", data, em)
		}
	}
	if _, ok := InfoEmission(MenuHome); ok {
		t.Error("home is not an info section")
	}
}

func TestGreetingEscapesName(t *testing.T) {
	em := GreetingEmission(models.UserIdentity{ID: 1, FirstName: "*evil_"})
	if !strings.Contains(em.Text, "evil, добро пожаловать") {
		t.Errorf("markdown characters should be stripped, got %q", em.Text)
	}
	em = GreetingEmission(models.UserIdentity{ID: 1})
	if !strings.Contains(em.Text, "Здравствуйте, добро пожаловать") {
		t.Errorf("expected generic greeting, got %q", em.Text)
	}
}
