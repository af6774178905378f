package bot

import (
	"errors"
	"fmt"
	"log"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/kkamota/tvbot/internal/models"
	"github.com/kkamota/tvbot/internal/session"
	"github.com/kkamota/tvbot/internal/store"
	"github.com/kkamota/tvbot/internal/withdrawal"
)

func (b *Bot) handleAdminPanel(ctx *th.Context, update telego.Update) error {
	message := update.Message
	if message.Chat.Type != telego.ChatTypePrivate {
		return nil
	}
	if !b.Cfg.IsAdmin(message.From.ID) {
		b.reply(ctx, message.Chat.ID, "Доступ запрещен.")
		return nil
	}

	b.Sessions.Clear(message.From.ID)
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(message.Chat.ID), "Админ-панель").
		WithReplyMarkup(adminMenuKeyboard()))
	return nil
}

func (b *Bot) handleCallback(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	from := callback.From

	action, ok := ParseAction(callback.Data)
	if !ok {
		b.answerCallback(ctx, callback.ID, "Неизвестное действие", false)
		return nil
	}

	if action.Kind == ActionCheckSubscription {
		return b.handleCheckSubscriptionCallback(ctx, callback)
	}

	// Everything below is moderator-only. The denial is generic on purpose:
	// it leaks nothing about the target.
	if !b.Cfg.IsAdmin(from.ID) {
		b.answerCallback(ctx, callback.ID, "Доступ запрещен", true)
		return nil
	}

	switch action.Kind {
	case ActionAdminStats:
		stats, err := b.Admin.Stats(ctx.Context())
		if err != nil {
			log.Printf("Failed to load stats: %v", err)
			b.answerCallback(ctx, callback.ID, msgGenericError, true)
			return nil
		}
		b.reply(ctx, from.ID, fmt.Sprintf("Всего пользователей: %d\nОбщий баланс: %d ⭐", stats.Accounts, stats.TotalBalance))
		b.answerCallback(ctx, callback.ID, "", false)

	case ActionAdminWithdrawals:
		requests, err := b.Admin.ListPendingWithdrawals(ctx.Context())
		if err != nil {
			log.Printf("Failed to list pending withdrawals: %v", err)
			b.answerCallback(ctx, callback.ID, msgGenericError, true)
			return nil
		}
		if len(requests) == 0 {
			b.answerCallback(ctx, callback.ID, "Нет ожидающих заявок", true)
			return nil
		}
		for _, req := range requests {
			b.sendWithdrawalCard(ctx, from.ID, req)
		}
		b.answerCallback(ctx, callback.ID, "", false)

	case ActionAdminBroadcast:
		b.Sessions.Set(from.ID, session.Session{State: session.StateAwaitingBroadcast})
		b.reply(ctx, from.ID, "Введите текст рассылки:")
		b.answerCallback(ctx, callback.ID, "", false)

	case ActionWithdrawPaid, ActionWithdrawRejected:
		outcome := models.WithdrawalPaid
		if action.Kind == ActionWithdrawRejected {
			outcome = models.WithdrawalRejected
		}
		req, err := b.Admin.ResolveWithdrawal(ctx.Context(), action.RequestID, outcome)
		switch {
		case errors.Is(err, store.ErrNotFound):
			b.answerCallback(ctx, callback.ID, "Заявка не найдена", true)
		case errors.Is(err, withdrawal.ErrAlreadyResolved):
			b.answerCallback(ctx, callback.ID, "Заявка уже обработана", true)
		case err != nil:
			log.Printf("Failed to resolve withdrawal #%d: %v", action.RequestID, err)
			b.answerCallback(ctx, callback.ID, msgGenericError, true)
		default:
			b.reply(ctx, from.ID, fmt.Sprintf("Заявка #%d: статус обновлен (%s).", req.ID, req.Status))
			b.answerCallback(ctx, callback.ID, "Статус обновлен", false)
		}

	case ActionBlockUser, ActionUnblockUser:
		banned := action.Kind == ActionBlockUser
		changed, err := b.Admin.SetBanStatus(ctx.Context(), action.AccountID, banned)
		switch {
		case errors.Is(err, store.ErrNotFound):
			b.answerCallback(ctx, callback.ID, "Пользователь не найден", true)
		case err != nil:
			log.Printf("Failed to set ban status of %d: %v", action.AccountID, err)
			b.answerCallback(ctx, callback.ID, msgGenericError, true)
		case !changed:
			b.answerCallback(ctx, callback.ID, "Без изменений", false)
		default:
			b.answerCallback(ctx, callback.ID, "Готово", false)
		}

	case ActionSupportReply:
		b.Sessions.Set(from.ID, session.Session{State: session.StateAwaitingSupportReply, TargetID: action.AccountID})
		b.reply(ctx, from.ID, "Введите ответ для пользователя:")
		b.answerCallback(ctx, callback.ID, "", false)
	}

	return nil
}

func (b *Bot) handleCheckSubscriptionCallback(ctx *th.Context, callback *telego.CallbackQuery) error {
	from := callback.From

	acc, err := b.ensure(ctx.Context(), &from)
	if err != nil {
		log.Printf("Failed to ensure account %d: %v", from.ID, err)
		b.answerCallback(ctx, callback.ID, msgGenericError, true)
		return nil
	}
	if acc.IsBanned {
		b.answerCallback(ctx, callback.ID, msgBanned, true)
		return nil
	}

	res, err := b.Verifier.Reconcile(ctx.Context(), acc.TelegramID)
	if err != nil {
		log.Printf("Failed to reconcile subscription of %d: %v", from.ID, err)
		b.answerCallback(ctx, callback.ID, msgGenericError, true)
		return nil
	}

	if !res.Member {
		b.answerCallback(ctx, callback.ID, "Подпишитесь на канал, чтобы продолжить.", true)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(from.ID),
			"Пожалуйста, подпишитесь на канал, чтобы получать награды.",
		).WithReplyMarkup(subscribeKeyboard(b.Cfg.ChannelUsername)))
		return nil
	}

	b.reply(ctx, from.ID, b.subscriptionCheckText(res))
	b.answerCallback(ctx, callback.ID, "Готово!", false)
	return nil
}

func (b *Bot) sendWithdrawalCard(ctx *th.Context, adminID int64, req models.WithdrawalRequest) {
	label := fmt.Sprintf("ID %d", req.TelegramID)
	banned := false
	if acc, err := b.Store.Account(ctx.Context(), req.TelegramID); err == nil {
		label = userLabel(acc)
		banned = acc.IsBanned
	}

	card := fmt.Sprintf(
		"Заявка #%d\nПользователь: %s\nСумма: %d ⭐\nСоздана: %s",
		req.ID, label, req.Amount, req.CreatedAt.Format("02.01.2006 15:04"),
	)
	_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), card).
		WithReplyMarkup(withdrawalActionsKeyboard(req.ID, req.TelegramID, banned)))
	if err != nil {
		log.Printf("Failed to send withdrawal card #%d to admin %d: %v", req.ID, adminID, err)
	}
}

func (b *Bot) answerCallback(ctx *th.Context, callbackID, text string, alert bool) {
	params := tu.CallbackQuery(callbackID)
	params.Text = text
	params.ShowAlert = alert
	_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), params)
}
