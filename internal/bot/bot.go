package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/kkamota/tvbot/internal/admin"
	"github.com/kkamota/tvbot/internal/config"
	"github.com/kkamota/tvbot/internal/models"
	"github.com/kkamota/tvbot/internal/rewards"
	"github.com/kkamota/tvbot/internal/session"
	"github.com/kkamota/tvbot/internal/store"
	"github.com/kkamota/tvbot/internal/withdrawal"
)

const (
	msgGenericError = "❌ Что-то пошло не так. Попробуйте позже."
	msgBanned       = "🚫 Вы заблокированы."
)

type Bot struct {
	Instance *telego.Bot
	Store    store.Store
	Sessions *session.Manager
	Verifier *rewards.Verifier
	Ledger   *rewards.Ledger
	Workflow *withdrawal.Workflow
	Admin    *admin.Service
	Cfg      *config.Config

	username string
}

func New(instance *telego.Bot, st store.Store, sessions *session.Manager, verifier *rewards.Verifier, ledger *rewards.Ledger, workflow *withdrawal.Workflow, moderation *admin.Service, cfg *config.Config) *Bot {
	return &Bot{
		Instance: instance,
		Store:    st,
		Sessions: sessions,
		Verifier: verifier,
		Ledger:   ledger,
		Workflow: workflow,
		Admin:    moderation,
		Cfg:      cfg,
	}
}

func (b *Bot) Start() {
	if me, err := b.Instance.GetMe(context.Background()); err == nil {
		b.username = me.Username
	} else {
		log.Printf("Failed to get bot info: %v", err)
	}

	updates, _ := b.Instance.UpdatesViaLongPolling(context.Background(), nil)
	handler, _ := th.NewBotHandler(b.Instance, updates)

	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleAdminPanel, th.CommandEqual("admin"))
	handler.Handle(b.handleBalance, th.TextEqual(btnBalance))
	handler.Handle(b.handleDailyBonus, th.TextEqual(btnDaily))
	handler.Handle(b.handleReferralLink, th.TextEqual(btnReferral))
	handler.Handle(b.handleTopReferrers, th.TextEqual(btnTop))
	handler.Handle(b.handleWithdraw, th.TextEqual(btnWithdraw))
	handler.Handle(b.handleCheckSubscription, th.TextEqual(btnCheckSub))
	handler.Handle(b.handleSupport, th.TextEqual(btnSupport))
	// Free text is dispatched on the session step, so it must come after
	// every concrete text handler.
	handler.Handle(b.handleFreeText, th.AnyMessageWithText())
	handler.Handle(b.handleCallback, th.AnyCallbackQuery())

	handler.Start()
}

// handleStart registers the account (crediting the start bonus on first
// contact) and records the ref<id> deep-link referrer when present.
func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	from := message.From

	args := ""
	if parts := strings.SplitN(message.Text, " ", 2); len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	referredBy := parseReferralParam(args, from.ID)

	_, created, err := b.Store.EnsureAccount(ctx.Context(), from.ID, b.Cfg.StartBonus, referredBy, from.Username)
	if err != nil {
		log.Printf("Failed to ensure account %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}
	b.Sessions.Clear(from.ID)

	greeting := "С возвращением!"
	if created {
		greeting = fmt.Sprintf("Добро пожаловать! На ваш баланс начислено %d ⭐ за регистрацию.", b.Cfg.StartBonus)
	}
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(from.ID), greeting).
		WithReplyMarkup(mainMenuKeyboard()))

	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
		tu.ID(from.ID),
		"Поделитесь ботом с друзьями и зарабатывайте звезды!",
	).WithReplyMarkup(subscribeKeyboard(b.Cfg.ChannelUsername)))

	b.reply(ctx, from.ID, fmt.Sprintf("Ваша персональная ссылка: %s", b.referralLink(from.ID)))
	return nil
}

func (b *Bot) handleBalance(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	b.Sessions.Clear(from.ID)

	acc, ok := b.requireAccess(ctx, from)
	if !ok {
		return nil
	}
	b.reply(ctx, from.ID, fmt.Sprintf("На вашем балансе %d ⭐", acc.Balance))
	return nil
}

func (b *Bot) handleDailyBonus(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	b.Sessions.Clear(from.ID)

	acc, ok := b.requireAccess(ctx, from)
	if !ok {
		return nil
	}

	credited, wait, err := b.Ledger.ClaimDailyBonus(ctx.Context(), acc.TelegramID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, rewards.ErrBanned) {
			b.reply(ctx, from.ID, msgBanned)
			return nil
		}
		log.Printf("Failed to claim daily bonus for %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}

	if credited > 0 {
		b.reply(ctx, from.ID, fmt.Sprintf("Вы получили %d ⭐ ежедневного бонуса!", credited))
		return nil
	}

	seconds := int(wait.Seconds())
	b.reply(ctx, from.ID, fmt.Sprintf(
		"Следующий бонус будет доступен через %d ч %d мин.",
		seconds/3600, (seconds%3600)/60,
	))
	return nil
}

func (b *Bot) handleReferralLink(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	b.Sessions.Clear(from.ID)

	if _, ok := b.requireAccess(ctx, from); !ok {
		return nil
	}
	b.reply(ctx, from.ID, fmt.Sprintf("Поделитесь этой ссылкой: %s", b.referralLink(from.ID)))
	return nil
}

func (b *Bot) handleTopReferrers(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	b.Sessions.Clear(from.ID)

	if _, ok := b.requireAccess(ctx, from); !ok {
		return nil
	}

	top, err := b.Store.TopReferrers(ctx.Context(), 10)
	if err != nil {
		log.Printf("Failed to load top referrers: %v", err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}
	if len(top) == 0 {
		b.reply(ctx, from.ID, "Пока нет приглашений. Будьте первым!")
		return nil
	}

	lines := []string{"Топ приглашений:"}
	for i, row := range top {
		lines = append(lines, fmt.Sprintf("%d. %s — %d друзей", i+1, maskID(row.ReferredBy), row.Total))
	}
	b.reply(ctx, from.ID, strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) handleWithdraw(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	b.Sessions.Clear(from.ID)

	acc, ok := b.requireAccess(ctx, from)
	if !ok {
		return nil
	}

	referrals, err := b.Store.ListReferrals(ctx.Context(), acc.TelegramID)
	if err != nil {
		log.Printf("Failed to list referrals of %d: %v", from.ID, err)
	} else if len(referrals) == 0 {
		b.reply(ctx, from.ID, "Вы еще не пригласили друзей.")
	} else {
		lines := []string{"Ваши приглашенные друзья:"}
		for _, ref := range referrals {
			lines = append(lines, "• "+userLabel(&ref))
		}
		b.reply(ctx, from.ID, strings.Join(lines, "\n"))
	}

	if err := b.Workflow.Begin(ctx.Context(), acc.TelegramID); err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrBelowMinimum):
			b.reply(ctx, from.ID, fmt.Sprintf(
				"Минимальная сумма вывода %d ⭐. На вашем балансе %d ⭐.",
				b.Cfg.MinWithdrawal, acc.Balance,
			))
		case errors.Is(err, withdrawal.ErrBanned):
			b.reply(ctx, from.ID, msgBanned)
		default:
			log.Printf("Failed to begin withdrawal for %d: %v", from.ID, err)
			b.reply(ctx, from.ID, msgGenericError)
		}
		return nil
	}

	b.reply(ctx, from.ID, fmt.Sprintf("Введите сумму для вывода (не менее %d ⭐):", b.Cfg.MinWithdrawal))
	return nil
}

func (b *Bot) handleCheckSubscription(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	b.Sessions.Clear(from.ID)

	acc, err := b.ensure(ctx.Context(), from)
	if err != nil {
		log.Printf("Failed to ensure account %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}
	if acc.IsBanned {
		b.reply(ctx, from.ID, msgBanned)
		return nil
	}

	res, err := b.Verifier.Reconcile(ctx.Context(), acc.TelegramID)
	if err != nil {
		log.Printf("Failed to reconcile subscription of %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}
	b.reply(ctx, from.ID, b.subscriptionCheckText(res))
	if !res.Member {
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(from.ID),
			"Пожалуйста, подпишитесь на канал, чтобы получать награды.",
		).WithReplyMarkup(subscribeKeyboard(b.Cfg.ChannelUsername)))
	}
	return nil
}

func (b *Bot) handleSupport(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	b.Sessions.Clear(from.ID)

	acc, err := b.ensure(ctx.Context(), from)
	if err != nil {
		log.Printf("Failed to ensure account %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}
	if acc.IsBanned {
		b.reply(ctx, from.ID, msgBanned)
		return nil
	}

	b.Sessions.Set(from.ID, session.Session{State: session.StateAwaitingSupport})
	b.reply(ctx, from.ID, "Опишите вашу проблему одним сообщением:")
	return nil
}

// handleFreeText dispatches on the account's session step. Text without a
// pending step is ignored.
func (b *Bot) handleFreeText(ctx *th.Context, update telego.Update) error {
	from := update.Message.From
	text := update.Message.Text

	sess, ok := b.Sessions.Get(from.ID)
	if !ok {
		return nil
	}

	switch sess.State {
	case session.StateAwaitingWithdrawAmount:
		return b.handleWithdrawAmount(ctx, from, text)
	case session.StateAwaitingBroadcast:
		return b.handleBroadcastText(ctx, from, text)
	case session.StateAwaitingSupport:
		return b.handleSupportText(ctx, from, text)
	case session.StateAwaitingSupportReply:
		return b.handleSupportReplyText(ctx, from, sess.TargetID, text)
	}
	return nil
}

func (b *Bot) handleWithdrawAmount(ctx *th.Context, from *telego.User, text string) error {
	acc, ok := b.requireAccess(ctx, from)
	if !ok {
		// Lost access mid-flow: the stale step must not swallow later text.
		b.Sessions.Clear(from.ID)
		return nil
	}

	req, err := b.Workflow.SubmitAmount(ctx.Context(), acc.TelegramID, text)
	switch {
	case errors.Is(err, withdrawal.ErrBadAmount):
		b.reply(ctx, from.ID, "Введите целое число.")
	case errors.Is(err, withdrawal.ErrBelowMinimum):
		b.reply(ctx, from.ID, fmt.Sprintf("Минимальная сумма вывода %d ⭐. Попробуйте снова.", b.Cfg.MinWithdrawal))
	case errors.Is(err, withdrawal.ErrInsufficientFunds):
		b.reply(ctx, from.ID, "Недостаточно средств для вывода.")
	case errors.Is(err, withdrawal.ErrBanned):
		b.reply(ctx, from.ID, msgBanned)
	case err != nil:
		log.Printf("Failed to submit withdrawal for %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
	default:
		b.reply(ctx, from.ID, "Заявка на вывод создана. Администратор свяжется с вами в ближайшее время.")
		b.notifyAdminsAboutWithdrawal(ctx, acc, req)
	}
	return nil
}

func (b *Bot) handleBroadcastText(ctx *th.Context, from *telego.User, text string) error {
	b.Sessions.Clear(from.ID)
	if !b.Cfg.IsAdmin(from.ID) {
		return nil
	}

	delivered, total, err := b.Admin.Broadcast(ctx.Context(), text)
	if err != nil {
		log.Printf("Broadcast failed: %v", err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}
	b.reply(ctx, from.ID, fmt.Sprintf("Рассылка доставлена %d из %d пользователей.", delivered, total))
	return nil
}

func (b *Bot) handleSupportText(ctx *th.Context, from *telego.User, text string) error {
	b.Sessions.Clear(from.ID)

	acc, err := b.ensure(ctx.Context(), from)
	if err != nil {
		log.Printf("Failed to ensure account %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil
	}

	card := fmt.Sprintf("🆘 Обращение от %s:\n%s", userLabel(acc), text)
	for _, adminID := range b.Cfg.AdminIDs {
		_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), card).
			WithReplyMarkup(supportAdminKeyboard(acc.TelegramID, acc.IsBanned)))
		if err != nil {
			log.Printf("Failed to forward support message to admin %d: %v", adminID, err)
		}
	}
	b.reply(ctx, from.ID, "Сообщение отправлено. Мы ответим в ближайшее время.")
	return nil
}

func (b *Bot) handleSupportReplyText(ctx *th.Context, from *telego.User, targetID int64, text string) error {
	b.Sessions.Clear(from.ID)
	if !b.Cfg.IsAdmin(from.ID) {
		return nil
	}

	_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(targetID), "💬 Ответ поддержки:\n"+text))
	if err != nil {
		log.Printf("Failed to deliver support reply to %d: %v", targetID, err)
		b.reply(ctx, from.ID, "Не удалось доставить ответ.")
		return nil
	}
	b.reply(ctx, from.ID, "Ответ отправлен.")
	return nil
}

// requireAccess resolves the account, refuses banned ones and reconciles the
// channel subscription before any reward-sensitive action.
func (b *Bot) requireAccess(ctx *th.Context, from *telego.User) (*models.Account, bool) {
	acc, err := b.ensure(ctx.Context(), from)
	if err != nil {
		log.Printf("Failed to ensure account %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil, false
	}
	if acc.IsBanned {
		b.reply(ctx, from.ID, msgBanned)
		return nil, false
	}

	res, err := b.Verifier.Reconcile(ctx.Context(), acc.TelegramID)
	if err != nil {
		log.Printf("Failed to reconcile subscription of %d: %v", from.ID, err)
		b.reply(ctx, from.ID, msgGenericError)
		return nil, false
	}
	if !res.Member {
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(from.ID),
			"Бот доступен только после подписки на канал.",
		).WithReplyMarkup(subscribeKeyboard(b.Cfg.ChannelUsername)))
		return nil, false
	}
	if res.JustActivated {
		b.reply(ctx, from.ID, "Спасибо за подписку! Теперь бот доступен полностью.")
	}
	if res.StartBonus > 0 || res.ReferralPaid {
		// Activation credited something, re-read the balance.
		if fresh, err := b.Store.Account(ctx.Context(), acc.TelegramID); err == nil {
			acc = fresh
		}
	}
	return acc, true
}

func (b *Bot) ensure(ctx context.Context, from *telego.User) (*models.Account, error) {
	acc, _, err := b.Store.EnsureAccount(ctx, from.ID, b.Cfg.StartBonus, nil, from.Username)
	return acc, err
}

func (b *Bot) subscriptionCheckText(res rewards.Result) string {
	if !res.Member {
		return "Подпишитесь на канал, чтобы продолжить."
	}
	if !res.JustActivated {
		return "Подписка уже подтверждена."
	}
	text := "Спасибо за подписку! Награды активированы."
	if res.ReferralPaid {
		text += fmt.Sprintf(" Вашему другу начислено %d ⭐ за приглашение.", b.Cfg.ReferralBonus)
	}
	return text
}

func (b *Bot) notifyAdminsAboutWithdrawal(ctx *th.Context, acc *models.Account, req *models.WithdrawalRequest) {
	card := fmt.Sprintf("Заявка #%d\nПользователь: %s\nСумма: %d ⭐", req.ID, userLabel(acc), req.Amount)
	for _, adminID := range b.Cfg.AdminIDs {
		_, err := ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(adminID), card).
			WithReplyMarkup(withdrawalActionsKeyboard(req.ID, acc.TelegramID, acc.IsBanned)))
		if err != nil {
			log.Printf("Failed to notify admin %d about withdrawal #%d: %v", adminID, req.ID, err)
		}
	}
}

func (b *Bot) referralLink(accountID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref%d", b.username, accountID)
}

func (b *Bot) reply(ctx *th.Context, chatID int64, text string) {
	_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(chatID), text))
}

// parseReferralParam extracts the inviter id from a ref<id> deep-link
// parameter. Malformed suffixes and self-referrals yield nil.
func parseReferralParam(args string, selfID int64) *int64 {
	if !strings.HasPrefix(args, "ref") {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args, "ref"), 10, 64)
	if err != nil || id <= 0 || id == selfID {
		return nil
	}
	return &id
}

func userLabel(acc *models.Account) string {
	if acc.Username != "" {
		return fmt.Sprintf("@%s (ID %d)", acc.Username, acc.TelegramID)
	}
	return fmt.Sprintf("ID %d", acc.TelegramID)
}

func maskID(id int64) string {
	s := strconv.FormatInt(id, 10)
	if len(s) <= 4 {
		return s
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
