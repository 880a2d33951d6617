package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"regime-signal-bot/internal/logger"
)

// Notifier delivers one formatted message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts Markdown messages to a chat or channel.
type Telegram struct {
	bot       sender
	channelID string
}

func NewTelegram(token, channelID string) (*Telegram, error) {
	if token == "" || channelID == "" {
		return nil, errors.New("telegram token and channel id are required")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, channelID: channelID}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := t.message(text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// message addresses numeric ids as chats and @names as channels.
func (t *Telegram) message(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.channelID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	name := t.channelID
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return tgbotapi.NewMessageToChannel(name, text)
}

// Log writes messages to the structured log instead of sending them. Used in
// DRY_RUN mode.
type Log struct {
	mu   sync.Mutex
	sent []string
}

func NewLog() *Log { return &Log{} }

func (l *Log) Send(ctx context.Context, text string) error {
	l.mu.Lock()
	l.sent = append(l.sent, text)
	l.mu.Unlock()
	logger.Info(ctx, "Dry-run message", "text", text)
	return nil
}

// Sent returns a copy of every message passed to Send.
func (l *Log) Sent() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sent...)
}
