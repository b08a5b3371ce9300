// Package telegram wraps the Telegram Bot API client used by ADC Navigator.
//
// It provides long polling for updates and helpers for sending text,
// inline keyboards, edits, callback answers and forwarded files.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MiringGroup/ADCNavigator/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Constants for Telegram client configuration
const (
	// DefaultPollTimeout is the long polling timeout in seconds
	DefaultPollTimeout = 60
	// MaxMessageLength is the longest text Telegram accepts in one message
	MaxMessageLength = 4096
	// MaxCallbackDataLength is the longest inline button payload Telegram accepts
	MaxCallbackDataLength = 64
)

// Bot is the subset of *tgbotapi.BotAPI the client relies on.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Opts holds configuration options for the Telegram client.
type Opts struct {
	Token       string
	Debug       bool
	PollTimeout int
	Bot         Bot // injected bot, used instead of dialing the API
}

// Option defines a configuration option for the Telegram client.
type Option func(*Opts)

// WithToken sets the bot token issued by BotFather.
func WithToken(token string) Option {
	return func(o *Opts) {
		o.Token = token
	}
}

// WithDebug enables tgbotapi request logging.
func WithDebug(debug bool) Option {
	return func(o *Opts) {
		o.Debug = debug
	}
}

// WithPollTimeout sets the long polling timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *Opts) {
		o.PollTimeout = seconds
	}
}

// WithBot injects a Bot implementation, typically a MockBot in tests.
func WithBot(b Bot) Option {
	return func(o *Opts) {
		o.Bot = b
	}
}

// Client wraps the Telegram bot for modular use
type Client struct {
	bot         Bot
	username    string
	pollTimeout int
	stopOnce    sync.Once
}

// NewClient creates a new Telegram client, applying any provided options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Telegram NewClient options set", "Token_set", cfg.Token != "", "Debug", cfg.Debug, "Bot_injected", cfg.Bot != nil)

	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	c := &Client{bot: cfg.Bot, pollTimeout: cfg.PollTimeout}
	if c.bot != nil {
		return c, nil
	}
	if cfg.Token == "" {
		return nil, models.ErrEmptyToken
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		slog.Error("Failed to connect to Telegram Bot API", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = cfg.Debug
	c.bot = api
	c.username = api.Self.UserName
	slog.Info("Telegram bot authorized", "username", c.username)
	return c, nil
}

// Username returns the bot's username, if known.
func (c *Client) Username() string {
	return c.username
}

// Updates starts long polling and returns the update stream. The stream is
// closed after StopUpdates or once ctx is done.
func (c *Client) Updates(ctx context.Context) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	ch := c.bot.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		c.StopUpdates()
	}()
	return ch
}

// StopUpdates stops long polling. It is safe to call more than once.
func (c *Client) StopUpdates() {
	c.stopOnce.Do(func() {
		slog.Debug("Telegram polling stopped")
		c.bot.StopReceivingUpdates()
	})
}

// SendText sends text with an optional inline keyboard and returns the new message id.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, markdown bool, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("message text cannot be empty")
	}
	msg := tgbotapi.NewMessage(chatID, Truncate(text))
	msg.DisableWebPagePreview = true
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	sent, err := c.bot.Send(msg)
	if err != nil {
		slog.Error("Telegram SendText failed", "chatID", chatID, "error", err)
		return 0, fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	slog.Debug("Telegram message sent", "chatID", chatID, "messageID", sent.MessageID)
	return sent.MessageID, nil
}

// EditText replaces the text and keyboard of a previously sent message.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, markdown bool, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, Truncate(text))
	edit.DisableWebPagePreview = true
	if markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	edit.ReplyMarkup = keyboard
	if _, err := c.bot.Request(edit); err != nil {
		slog.Warn("Telegram EditText failed", "chatID", chatID, "messageID", messageID, "error", err)
		return fmt.Errorf("failed to edit message %d in %d: %w", messageID, chatID, err)
	}
	return nil
}

// AnswerCallback acknowledges an inline button press.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		slog.Warn("Telegram AnswerCallback failed", "callbackID", callbackID, "error", err)
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

// SendDocument forwards an already uploaded document by file id.
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	if _, err := c.bot.Send(doc); err != nil {
		slog.Error("Telegram SendDocument failed", "chatID", chatID, "error", err)
		return fmt.Errorf("failed to send document to %d: %w", chatID, err)
	}
	return nil
}

// SendPhoto forwards an already uploaded photo by file id.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	if _, err := c.bot.Send(photo); err != nil {
		slog.Error("Telegram SendPhoto failed", "chatID", chatID, "error", err)
		return fmt.Errorf("failed to send photo to %d: %w", chatID, err)
	}
	return nil
}

// Truncate cuts text to MaxMessageLength runes.
func Truncate(text string) string {
	r := []rune(text)
	if len(r) <= MaxMessageLength {
		return text
	}
	return string(r[:MaxMessageLength-1]) + "…"
}
