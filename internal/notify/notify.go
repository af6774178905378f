// Package notify delivers outbound messages as best-effort side effects.
// A failed delivery never aborts the business mutation that triggered it.
package notify

import (
	"context"
	"log"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// BestEffort sends and deliberately discards the delivery error after
// logging it.
func BestEffort(ctx context.Context, n Notifier, chatID int64, text string) {
	if err := n.Send(ctx, chatID, text); err != nil {
		log.Printf("Failed to notify %d: %v", chatID, err)
	}
}

// Telegram sends plain-text messages through the Bot API.
type Telegram struct {
	bot *telego.Bot
}

func NewTelegram(bot *telego.Bot) *Telegram {
	return &Telegram{bot: bot}
}

var _ Notifier = (*Telegram)(nil)

func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	_, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}
