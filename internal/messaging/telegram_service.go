package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramClient is the subset of telegram.Client used by TelegramService.
type TelegramClient interface {
	Updates(ctx context.Context) tgbotapi.UpdatesChannel
	StopUpdates()
	SendText(ctx context.Context, chatID int64, text string, markdown bool, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, markdown bool, keyboard *tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID string) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
}

// TelegramService implements Service over the Telegram Bot API.
type TelegramService struct {
	client    TelegramClient
	events    chan models.Event
	mu        sync.Mutex
	started   bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewTelegramService creates a TelegramService wrapping the given client.
func NewTelegramService(client TelegramClient) *TelegramService {
	return &TelegramService{
		client: client,
		events: make(chan models.Event, DefaultChannelBufferSize),
		done:   make(chan struct{}),
	}
}

// Start begins long polling and converting updates into events.
func (s *TelegramService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("telegram service already started")
	}
	s.started = true
	updates := s.client.Updates(ctx)
	go s.pump(updates)
	slog.Info("TelegramService started polling")
	return nil
}

func (s *TelegramService) pump(updates tgbotapi.UpdatesChannel) {
	defer close(s.done)
	defer s.closeEvents()
	for u := range updates {
		ev, ok := ToEvent(u)
		if !ok {
			slog.Debug("TelegramService ignoring update", "updateID", u.UpdateID)
			continue
		}
		select {
		case s.events <- ev:
		case <-time.After(DefaultChannelTimeout):
			slog.Warn("TelegramService event channel full, dropping event", "updateID", ev.UpdateID, "userID", ev.UserID)
		}
	}
	slog.Debug("TelegramService update stream closed")
}

func (s *TelegramService) closeEvents() {
	s.closeOnce.Do(func() {
		close(s.events)
	})
}

// Stop stops polling and waits for the event channel to close.
func (s *TelegramService) Stop() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	s.client.StopUpdates()
	if started {
		<-s.done
	} else {
		s.closeEvents()
	}
	slog.Info("TelegramService stopped and channels closed")
	return nil
}

// Events returns the inbound event channel.
func (s *TelegramService) Events() <-chan models.Event {
	return s.events
}

// Send renders em as a Telegram message, editing the target message when asked.
func (s *TelegramService) Send(ctx context.Context, chatID int64, em models.Emission) error {
	kb := Keyboard(em.Choices, em.Columns)
	if em.EditPrior && em.TargetMessageID != 0 {
		err := s.client.EditText(ctx, chatID, em.TargetMessageID, em.Text, em.Markdown, kb)
		if err == nil {
			return nil
		}
		slog.Debug("TelegramService edit failed, sending new message", "chatID", chatID, "messageID", em.TargetMessageID, "error", err)
	}
	_, err := s.client.SendText(ctx, chatID, em.Text, em.Markdown, kb)
	return err
}

// SendAttachment forwards a photo or document reference into chatID.
func (s *TelegramService) SendAttachment(ctx context.Context, chatID int64, ref, caption string) error {
	kind, fileID, ok := models.ParseAttachmentRef(ref)
	if !ok {
		return fmt.Errorf("invalid attachment reference %q", ref)
	}
	switch kind {
	case models.AttachmentPhoto:
		return s.client.SendPhoto(ctx, chatID, fileID, caption)
	case models.AttachmentDocument:
		return s.client.SendDocument(ctx, chatID, fileID, caption)
	default:
		return fmt.Errorf("unsupported attachment kind %q", kind)
	}
}

// Acknowledge answers a callback query. Empty ids are ignored.
func (s *TelegramService) Acknowledge(ctx context.Context, callbackID string) error {
	if callbackID == "" {
		return nil
	}
	return s.client.AnswerCallback(ctx, callbackID)
}

// Keyboard lays choices out as an inline keyboard with columns buttons per row.
// It returns nil when there are no choices.
func Keyboard(choices []models.Choice, columns int) *tgbotapi.InlineKeyboardMarkup {
	if len(choices) == 0 {
		return nil
	}
	if columns <= 0 {
		columns = 1
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range choices {
		var b tgbotapi.InlineKeyboardButton
		if c.URL != "" {
			b = tgbotapi.NewInlineKeyboardButtonURL(c.Label, c.URL)
		} else {
			b = tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data)
		}
		row = append(row, b)
		if len(row) == columns {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func identityOf(u *tgbotapi.User) models.UserIdentity {
	return models.UserIdentity{
		ID:        u.ID,
		Username:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// ToEvent converts a Telegram update into an inbound event. Updates without
// a sender or without usable content are rejected.
func ToEvent(u tgbotapi.Update) (models.Event, bool) {
	if q := u.CallbackQuery; q != nil {
		if q.From == nil {
			return models.Event{}, false
		}
		ev := models.Event{
			UpdateID:   int64(u.UpdateID),
			UserID:     q.From.ID,
			ChatID:     q.From.ID,
			CallbackID: q.ID,
			Identity:   identityOf(q.From),
			Kind:       models.EventButton,
			Payload:    q.Data,
		}
		if q.Message != nil {
			ev.MessageID = q.Message.MessageID
			if q.Message.Chat != nil {
				ev.ChatID = q.Message.Chat.ID
			}
		}
		return ev, true
	}

	m := u.Message
	if m == nil || m.From == nil {
		return models.Event{}, false
	}
	ev := models.Event{
		UpdateID:  int64(u.UpdateID),
		UserID:    m.From.ID,
		ChatID:    m.From.ID,
		MessageID: m.MessageID,
		Identity:  identityOf(m.From),
	}
	if m.Chat != nil {
		ev.ChatID = m.Chat.ID
	}
	switch {
	case m.IsCommand():
		ev.Kind = models.EventCommand
		ev.Payload = m.Command()
	case m.Document != nil:
		ev.Kind = models.EventAttachment
		ev.Payload = models.AttachmentRef(models.AttachmentDocument, m.Document.FileID)
	case len(m.Photo) > 0:
		// Telegram lists sizes in ascending order.
		ev.Kind = models.EventAttachment
		ev.Payload = models.AttachmentRef(models.AttachmentPhoto, m.Photo[len(m.Photo)-1].FileID)
	case m.Text != "":
		ev.Kind = models.EventText
		ev.Payload = m.Text
	default:
		return models.Event{}, false
	}
	return ev, true
}
