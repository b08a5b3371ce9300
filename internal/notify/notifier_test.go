package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/email"
	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/store"
	"github.com/MiringGroup/ADCNavigator/internal/twiliowhatsapp"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sentText struct {
	ChatID int64
	Text   string
}

type mockTelegram struct {
	mu    sync.Mutex
	texts []sentText
	files []string
	err   error
}

func (m *mockTelegram) SendText(ctx context.Context, chatID int64, text string, markdown bool, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.texts = append(m.texts, sentText{ChatID: chatID, Text: text})
	return len(m.texts), nil
}

func (m *mockTelegram) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, "document:"+fileID)
	return nil
}

func (m *mockTelegram) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, "photo:"+fileID)
	return nil
}

func requestLead() models.LeadRecord {
	return models.LeadRecord{
		UserID:        77,
		Username:      "ivanov",
		FullName:      "Иван Иванов",
		CompletedAt:   time.Date(2026, 1, 18, 9, 30, 0, 0, time.UTC),
		DialogKind:    models.DialogRequestForm,
		ObjectType:    "Склад",
		Area:          "До 1 000 м²",
		Region:        "Москва",
		Contact:       "+7 900 000-00-00",
		Files:         []string{"document:abc", "photo:def"},
		Completed:     true,
		ContactMethod: "💬 Telegram",
	}
}

func TestParseDestinations(t *testing.T) {
	clients := Clients{Telegram: &mockTelegram{}, WhatsApp: twiliowhatsapp.NewMockClient(), Email: &email.MockSender{}}
	dests, err := ParseDestinations(" 12345, -100200300 ,whatsapp:+79990000000, mailto:staff@example.com,, ", clients)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, d := range dests {
		names = append(names, d.Name())
	}
	want := "telegram:12345,telegram:-100200300,whatsapp:+79990000000,mailto:staff@example.com"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestParseDestinations_SkipsInvalidAndUnconfigured(t *testing.T) {
	dests, err := ParseDestinations("abc,whatsapp:+7999,mailto:nobody,42", Clients{Telegram: &mockTelegram{}, Email: &email.MockSender{}})
	if err == nil {
		t.Fatal("expected error describing skipped entries")
	}
	if len(dests) != 1 || dests[0].Name() != "telegram:42" {
		t.Errorf("expected only the telegram destination, got %v", dests)
	}
	if dests, err := ParseDestinations("", Clients{}); err != nil || len(dests) != 0 {
		t.Errorf("empty list must yield no destinations and no error, got %v %v", dests, err)
	}
}

func TestNotifier_NoDestinationsIsNoop(t *testing.T) {
	n := NewNotifier()
	if err := n.NotifyLead(context.Background(), requestLead()); err != nil {
		t.Errorf("expected silent no-op, got %v", err)
	}
	if err := n.NotifyUnanswered(context.Background(), models.UserIdentity{ID: 1}, "достаточно длинный вопрос"); err != nil {
		t.Errorf("expected silent no-op, got %v", err)
	}
}

func TestNotifier_NotifyLeadFansOut(t *testing.T) {
	tg := &mockTelegram{}
	wa := twiliowhatsapp.NewMockClient()
	mail := &email.MockSender{}
	dests, err := ParseDestinations("555,whatsapp:+79990000000,mailto:sales@example.com", Clients{Telegram: tg, WhatsApp: wa, Email: mail})
	if err != nil {
		t.Fatal(err)
	}
	n := NewNotifier(WithManagers(dests...))
	if err := n.NotifyLead(context.Background(), requestLead()); err != nil {
		t.Fatalf("NotifyLead failed: %v", err)
	}

	if len(tg.texts) != 1 || tg.texts[0].ChatID != 555 || !strings.Contains(tg.texts[0].Text, "НОВАЯ ЗАЯВКА") {
		t.Errorf("unexpected telegram messages %+v", tg.texts)
	}
	if strings.Join(tg.files, ",") != "document:abc,photo:def" {
		t.Errorf("expected attachments forwarded, got %v", tg.files)
	}
	if msgs := wa.Messages(); len(msgs) != 1 || !strings.Contains(msgs[0].Body, "Файлов: 2") {
		t.Errorf("unexpected whatsapp messages %+v", msgs)
	}
	if msgs := mail.Messages(); len(msgs) != 1 || !strings.HasPrefix(msgs[0].Subject, "Новая заявка") {
		t.Errorf("unexpected emails %+v", msgs)
	}
}

func TestNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	failing := &mockTelegram{err: errors.New("chat not found")}
	mail := &email.MockSender{}
	n := NewNotifier(WithManagers(NewTelegramDestination(failing, 1), NewEmailDestination(mail, "a@b.c")))
	if err := n.NotifyLead(context.Background(), requestLead()); err != nil {
		t.Errorf("delivery failure must not surface, got %v", err)
	}
	if len(mail.Messages()) != 1 {
		t.Error("a failing destination must not block the others")
	}
}

func TestNotifier_NotifyUnanswered(t *testing.T) {
	ctx := context.Background()
	tg := &mockTelegram{}
	log := store.NewInMemoryStore()
	n := NewNotifier(WithAdmins(NewTelegramDestination(tg, 9)), WithUnansweredLog(log), WithMinLength(10))
	ident := models.UserIdentity{ID: 3, Username: "petr"}

	if err := n.NotifyUnanswered(ctx, ident, "ок"); err != nil {
		t.Fatal(err)
	}
	if len(tg.texts) != 0 {
		t.Fatal("short text must not alert")
	}
	if err := n.NotifyUnanswered(ctx, ident, "Работаете ли вы в Казани?"); err != nil {
		t.Fatal(err)
	}
	if err := n.NotifyUnanswered(ctx, ident, "Есть ли у вас лицензия СРО?"); err != nil {
		t.Fatal(err)
	}

	logged, _ := log.ListUnanswered(ctx, 10)
	if len(logged) != 2 {
		t.Errorf("expected 2 logged questions, got %d", len(logged))
	}
	if len(tg.texts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(tg.texts))
	}
	last := tg.texts[1].Text
	if !strings.Contains(last, "лицензия СРО") || !strings.Contains(last, "Последние вопросы") || !strings.Contains(last, "Казани") {
		t.Errorf("expected alert with recent log, got %q", last)
	}
}

func TestRenderLead_Variants(t *testing.T) {
	req := RenderLead(requestLead())
	if req.Class != models.NotifyStaffManager || req.ID == "" || len(req.Attachments) != 2 {
		t.Errorf("unexpected request notification %+v", req)
	}
	if !strings.Contains(req.Body, "18.01.2026 12:30") || !strings.Contains(req.Body, "@ivanov") || !strings.Contains(req.Body, "📊 Стадия: -") {
		t.Errorf("unexpected request body %q", req.Body)
	}

	survey := RenderLead(models.LeadRecord{
		UserID:              5,
		DialogKind:          models.DialogWelcomeSurvey,
		HasProject:          models.BoolPtr(false),
		Interests:           []string{"BIM", "Экспертиза"},
		GiveawayParticipant: models.BoolPtr(true),
		Completed:           true,
	})
	if !strings.Contains(survey.Body, "BIM, Экспертиза") || !strings.Contains(survey.Body, "Розыгрыш: да") || strings.Contains(survey.Body, "Площадь") {
		t.Errorf("unexpected short survey body %q", survey.Body)
	}
	if !strings.Contains(survey.Body, "нет username") || len(survey.Attachments) != 0 {
		t.Errorf("unexpected survey notification %+v", survey)
	}

	project := RenderLead(models.LeadRecord{UserID: 6, DialogKind: models.DialogWelcomeSurvey, HasProject: models.BoolPtr(true), Region: "Казань"})
	if !strings.Contains(project.Body, "ЕСТЬ ПРОЕКТ") || !strings.Contains(project.Body, "Регион: Казань") {
		t.Errorf("unexpected project survey body %q", project.Body)
	}

	question := RenderLead(models.LeadRecord{UserID: 8, DialogKind: models.DialogTechQuestion, Question: "Нагрузка на плиту?"})
	if !strings.Contains(question.Body, "ВОПРОС ИНЖЕНЕРУ") || !strings.Contains(question.Body, "Нагрузка на плиту?") {
		t.Errorf("unexpected question body %q", question.Body)
	}
}
