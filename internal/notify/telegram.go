package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/tutor_scheduler/internal/metrics"
	"github.com/go-telegram/bot"
)

// TelegramNotifier пишет в чат; Message.To содержит chat id
type TelegramNotifier struct {
	bot *bot.Bot
}

var _ Notifier = (*TelegramNotifier)(nil)

func NewTelegramNotifier(b *bot.Bot) *TelegramNotifier {
	return &TelegramNotifier{bot: b}
}

func (n *TelegramNotifier) Send(ctx context.Context, msg Message) (err error) {
	defer func() { metrics.NotificationResult("telegram", err) }()

	chatID, err := strconv.ParseInt(msg.To, 10, 64)
	if err != nil {
		return fmt.Errorf("send telegram message: bad chat id %q: %w", msg.To, err)
	}

	text := msg.Body
	if msg.Subject != "" {
		text = msg.Subject + "\n\n" + msg.Body
	}

	_, err = n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
