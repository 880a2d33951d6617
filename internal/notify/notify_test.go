package notify

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	got []tgbotapi.Chattable
	err error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.got = append(f.got, c)
	return tgbotapi.Message{}, f.err
}

func TestTelegramAddressing(t *testing.T) {
	tests := []struct {
		channel  string
		wantChat int64
		wantName string
	}{
		{"-1001234567890", -1001234567890, ""},
		{"@signals", 0, "@signals"},
		{"signals", 0, "@signals"},
	}
	for _, tt := range tests {
		fs := &fakeSender{}
		tg := &Telegram{bot: fs, channelID: tt.channel}
		if err := tg.Send(context.Background(), "*hi*"); err != nil {
			t.Fatalf("Send: %v", err)
		}
		msg, ok := fs.got[0].(tgbotapi.MessageConfig)
		if !ok {
			t.Fatalf("Expected MessageConfig, got %T", fs.got[0])
		}
		if msg.ChatID != tt.wantChat || msg.ChannelUsername != tt.wantName {
			t.Errorf("%s: expected chat=%d channel=%q, got chat=%d channel=%q", tt.channel, tt.wantChat, tt.wantName, msg.ChatID, msg.ChannelUsername)
		}
		if msg.ParseMode != tgbotapi.ModeMarkdown {
			t.Errorf("Expected Markdown parse mode, got %q", msg.ParseMode)
		}
	}
}

func TestTelegramErrors(t *testing.T) {
	fs := &fakeSender{err: errors.New("flood wait")}
	tg := &Telegram{bot: fs, channelID: "@signals"}
	if err := tg.Send(context.Background(), "x"); err == nil {
		t.Error("Expected send error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs.err = nil
	if err := tg.Send(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	if _, err := NewTelegram("", "@x"); err == nil {
		t.Error("Expected error without token")
	}
}

func TestLogNotifier(t *testing.T) {
	l := NewLog()
	l.Send(context.Background(), "one")
	l.Send(context.Background(), "two")
	if got := l.Sent(); len(got) != 2 || got[1] != "two" {
		t.Errorf("Unexpected sent messages %v", got)
	}
}
