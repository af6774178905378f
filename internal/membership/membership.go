// Package membership answers whether an account currently belongs to the
// configured channel.
package membership

import (
	"context"
	"log"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

type Status string

const (
	StatusMember        Status = "member"
	StatusAdministrator Status = "administrator"
	StatusOwner         Status = "owner"
	StatusNone          Status = "none"
	StatusUnknown       Status = "unknown"
)

// Subscribed reports whether the status counts as a channel subscription.
// Only none and unknown are treated as "not subscribed".
func (s Status) Subscribed() bool {
	switch s {
	case StatusMember, StatusAdministrator, StatusOwner:
		return true
	}
	return false
}

type Checker interface {
	Status(ctx context.Context, accountID int64) Status
}

// Telegram resolves membership through the Bot API. Any API failure maps to
// StatusUnknown rather than an error: the caller treats it as "not
// subscribed" without aborting the unit of work.
type Telegram struct {
	bot     *telego.Bot
	channel string
}

func NewTelegram(bot *telego.Bot, channel string) *Telegram {
	return &Telegram{bot: bot, channel: channel}
}

var _ Checker = (*Telegram)(nil)

func (t *Telegram) Status(ctx context.Context, accountID int64) Status {
	member, err := t.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.Username(t.channel),
		UserID: accountID,
	})
	if err != nil {
		log.Printf("Failed to check membership of %d in %s: %v", accountID, t.channel, err)
		return StatusUnknown
	}

	switch member.MemberStatus() {
	case telego.MemberStatusCreator:
		return StatusOwner
	case telego.MemberStatusAdministrator:
		return StatusAdministrator
	case telego.MemberStatusMember:
		return StatusMember
	default:
		return StatusNone
	}
}
