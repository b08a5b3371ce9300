package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MiringGroup/ADCNavigator/internal/email"
	"github.com/MiringGroup/ADCNavigator/internal/models"
	"github.com/MiringGroup/ADCNavigator/internal/twiliowhatsapp"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Destination prefixes accepted by ParseDestinations. A bare number is a Telegram chat id.
const (
	PrefixWhatsApp = "whatsapp:"
	PrefixMailto   = "mailto:"
)

// Destination is one staff channel.
type Destination interface {
	Name() string
	Deliver(ctx context.Context, msg models.NotificationMessage) error
}

// TelegramSender is the part of the Telegram client used for staff chats.
type TelegramSender interface {
	SendText(ctx context.Context, chatID int64, text string, markdown bool, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error)
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
}

// TelegramDestination posts to a staff chat and forwards attachments.
type TelegramDestination struct {
	client TelegramSender
	chatID int64
}

func NewTelegramDestination(client TelegramSender, chatID int64) *TelegramDestination {
	return &TelegramDestination{client: client, chatID: chatID}
}

func (d *TelegramDestination) Name() string {
	return "telegram:" + strconv.FormatInt(d.chatID, 10)
}

func (d *TelegramDestination) Deliver(ctx context.Context, msg models.NotificationMessage) error {
	if _, err := d.client.SendText(ctx, d.chatID, msg.Body, false, nil); err != nil {
		return err
	}
	var errs []error
	for i, ref := range msg.Attachments {
		kind, fileID, ok := models.ParseAttachmentRef(ref)
		if !ok {
			slog.Warn("TelegramDestination: malformed attachment ref", "ref", ref)
			continue
		}
		caption := fmt.Sprintf("📎 %d/%d", i+1, len(msg.Attachments))
		var err error
		if kind == models.AttachmentPhoto {
			err = d.client.SendPhoto(ctx, d.chatID, fileID, caption)
		} else {
			err = d.client.SendDocument(ctx, d.chatID, fileID, caption)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WhatsAppDestination sends through Twilio.
type WhatsAppDestination struct {
	sender twiliowhatsapp.Sender
	to     string
}

func NewWhatsAppDestination(sender twiliowhatsapp.Sender, to string) *WhatsAppDestination {
	return &WhatsAppDestination{sender: sender, to: to}
}

func (d *WhatsAppDestination) Name() string { return PrefixWhatsApp + d.to }

func (d *WhatsAppDestination) Deliver(ctx context.Context, msg models.NotificationMessage) error {
	return d.sender.SendMessage(ctx, d.to, withAttachmentNote(msg))
}

// EmailDestination sends through Resend.
type EmailDestination struct {
	sender email.Sender
	to     string
}

func NewEmailDestination(sender email.Sender, to string) *EmailDestination {
	return &EmailDestination{sender: sender, to: to}
}

func (d *EmailDestination) Name() string { return PrefixMailto + d.to }

func (d *EmailDestination) Deliver(ctx context.Context, msg models.NotificationMessage) error {
	return d.sender.Send(ctx, d.to, msg.Subject, withAttachmentNote(msg))
}

// withAttachmentNote mentions files that only Telegram destinations can receive.
func withAttachmentNote(msg models.NotificationMessage) string {
	if len(msg.Attachments) == 0 {
		return msg.Body
	}
	return fmt.Sprintf("%s\n\n📎 Файлов: %d (пересланы в Telegram-чат менеджера)", msg.Body, len(msg.Attachments))
}

// Clients are the delivery clients available for destinations. Nil clients
// disable their destination type.
type Clients struct {
	Telegram TelegramSender
	WhatsApp twiliowhatsapp.Sender
	Email    email.Sender
}

// ParseDestinations resolves a comma-separated list of destination
// identifiers. Entries that are malformed or whose client is missing are
// skipped and reported in the returned error; valid entries are always returned.
func ParseDestinations(list string, clients Clients) ([]Destination, error) {
	var out []Destination
	var errs []error
	for _, raw := range strings.Split(list, ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		switch {
		case strings.HasPrefix(id, PrefixWhatsApp):
			to := strings.TrimPrefix(id, PrefixWhatsApp)
			if to == "" {
				errs = append(errs, fmt.Errorf("destination %q: empty phone number", id))
				continue
			}
			if clients.WhatsApp == nil {
				errs = append(errs, fmt.Errorf("destination %q: twilio is not configured", id))
				continue
			}
			out = append(out, NewWhatsAppDestination(clients.WhatsApp, to))
		case strings.HasPrefix(id, PrefixMailto):
			to := strings.TrimPrefix(id, PrefixMailto)
			if !strings.Contains(to, "@") {
				errs = append(errs, fmt.Errorf("destination %q: invalid email address", id))
				continue
			}
			if clients.Email == nil {
				errs = append(errs, fmt.Errorf("destination %q: email is not configured", id))
				continue
			}
			out = append(out, NewEmailDestination(clients.Email, to))
		default:
			chatID, err := strconv.ParseInt(id, 10, 64)
			if err != nil || chatID == 0 {
				errs = append(errs, fmt.Errorf("destination %q: not a telegram chat id", id))
				continue
			}
			if clients.Telegram == nil {
				errs = append(errs, fmt.Errorf("destination %q: telegram is not configured", id))
				continue
			}
			out = append(out, NewTelegramDestination(clients.Telegram, chatID))
		}
	}
	return out, errors.Join(errs...)
}
