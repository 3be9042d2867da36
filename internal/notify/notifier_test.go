package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	exchange "signal-gateway/pkg/exchanges/common"
)

type fakeBot struct {
	sent []tgbot.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbot.Chattable) (tgbot.Message, error) {
	if m, ok := c.(tgbot.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbot.Message{}, f.err
}

type blockingBot struct{ release chan struct{} }

func (b blockingBot) Send(tgbot.Chattable) (tgbot.Message, error) {
	<-b.release
	return tgbot.Message{}, nil
}

func TestTelegramSendHonorsDeadline(t *testing.T) {
	bot := blockingBot{release: make(chan struct{})}
	defer close(bot.release)
	n := &Telegram{bot: bot, chatID: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := n.Send(ctx, "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Send blocked for %v", elapsed)
	}
}

func TestTelegramSend(t *testing.T) {
	bot := &fakeBot{}
	n := &Telegram{bot: bot, chatID: 42}
	if err := n.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(bot.sent) != 1 || bot.sent[0].ChatID != 42 || bot.sent[0].Text != "hello" {
		t.Fatalf("sent = %+v", bot.sent)
	}

	bot.err = errors.New("boom")
	if err := n.Send(context.Background(), "x"); err == nil {
		t.Fatal("expected send error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Send(ctx, "late"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewTelegramRequiresConfig(t *testing.T) {
	if _, err := NewTelegram("", 1); err == nil {
		t.Fatal("expected error without token")
	}
	if _, err := NewTelegram("token", 0); err == nil {
		t.Fatal("expected error without chat id")
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := LogNotifier{Log: zap.New(core)}
	if err := n.Send(context.Background(), "disk on fire"); err != nil {
		t.Fatal(err)
	}
	if logs.FilterField(zap.String("message", "disk on fire")).Len() != 1 {
		t.Fatalf("alert not logged: %v", logs.All())
	}
}

func TestFormatFailure(t *testing.T) {
	code := int64(80001)
	msg := FormatFailure("ENTER_LONG", "BTCUSDT", exchange.OrderOutcome{
		AccountID:      "bingx_vst_demo",
		Mode:           "demo",
		HTTPStatus:     200,
		APICode:        &code,
		APIMessage:     "insufficient margin",
		Classification: exchange.ClassHardError,
	})
	for _, want := range []string{"ENTER_LONG BTCUSDT failed on bingx_vst_demo (demo)", "hardError", "code: 80001", "insufficient margin"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}
