// Package notify delivers operator alerts for failed dispatches.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	exchange "signal-gateway/pkg/exchanges/common"
)

type Notifier interface {
	Send(ctx context.Context, msg string) error
}

// sender is the part of *tgbot.BotAPI the notifier uses.
type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram posts alerts to one chat.
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram validates the token against the Bot API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram notifier needs a bot token and chat id")
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

// Send returns when the Bot API answers or ctx is done, whichever comes
// first. An abandoned call finishes in the background.
func (t *Telegram) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg))
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier writes alerts to the log when Telegram is not configured.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Send(_ context.Context, msg string) error {
	log := n.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Warn("alert", zap.String("message", msg))
	return nil
}

// FormatFailure renders one failed outcome as a short alert.
func FormatFailure(command, symbol string, out exchange.OrderOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s failed on %s", command, symbol, out.AccountID)
	if out.Mode != "" {
		fmt.Fprintf(&b, " (%s)", out.Mode)
	}
	fmt.Fprintf(&b, "\nclassification: %s", out.Classification)
	if out.HTTPStatus != 0 {
		fmt.Fprintf(&b, "\nhttp: %d", out.HTTPStatus)
	}
	if out.APICode != nil {
		fmt.Fprintf(&b, "\ncode: %d", *out.APICode)
	}
	if out.APIMessage != "" {
		fmt.Fprintf(&b, "\nmessage: %s", out.APIMessage)
	}
	return b.String()
}
