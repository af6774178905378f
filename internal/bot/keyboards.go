package bot

import (
	"fmt"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const (
	btnBalance  = "💰 Баланс"
	btnDaily    = "🎁 Ежедневный бонус"
	btnReferral = "👥 Реферальная ссылка"
	btnTop      = "🏆 Топ приглашений"
	btnWithdraw = "💳 Вывод средств"
	btnCheckSub = "✅ Проверить подписку"
	btnSupport  = "🆘 Поддержка"
)

func mainMenuKeyboard() *telego.ReplyKeyboardMarkup {
	kb := tu.Keyboard(
		tu.KeyboardRow(tu.KeyboardButton(btnBalance), tu.KeyboardButton(btnDaily)),
		tu.KeyboardRow(tu.KeyboardButton(btnReferral), tu.KeyboardButton(btnTop)),
		tu.KeyboardRow(tu.KeyboardButton(btnWithdraw), tu.KeyboardButton(btnCheckSub)),
		tu.KeyboardRow(tu.KeyboardButton(btnSupport)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func subscribeKeyboard(channel string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📢 Перейти в канал").WithURL("https://t.me/" + strings.TrimPrefix(channel, "@")),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Я подписался").WithCallbackData("check_subscription"),
		),
	)
}

func adminMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📊 Статистика").WithCallbackData("admin_stats")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📜 Запросы на вывод").WithCallbackData("admin_withdrawals")),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("📣 Рассылка").WithCallbackData("admin_broadcast")),
	)
}

func withdrawalActionsKeyboard(requestID uint, accountID int64, banned bool) *telego.InlineKeyboardMarkup {
	banButton := tu.InlineKeyboardButton("🚫 Заблокировать").
		WithCallbackData(fmt.Sprintf("block_user:%d:%d", accountID, requestID))
	if banned {
		banButton = tu.InlineKeyboardButton("🚫 Разблокировать").
			WithCallbackData(fmt.Sprintf("unblock_user:%d:%d", accountID, requestID))
	}
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("✅ Выплачено").WithCallbackData(fmt.Sprintf("withdraw_paid:%d", requestID)),
			tu.InlineKeyboardButton("❌ Отклонено").WithCallbackData(fmt.Sprintf("withdraw_rejected:%d", requestID)),
		),
		tu.InlineKeyboardRow(banButton),
	)
}

func supportAdminKeyboard(accountID int64, banned bool) *telego.InlineKeyboardMarkup {
	banButton := tu.InlineKeyboardButton("🚫 Заблокировать").
		WithCallbackData(fmt.Sprintf("block_user:%d", accountID))
	if banned {
		banButton = tu.InlineKeyboardButton("🚫 Разблокировать").
			WithCallbackData(fmt.Sprintf("unblock_user:%d", accountID))
	}
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💬 Ответить").WithCallbackData(fmt.Sprintf("support_reply:%d", accountID)),
		),
		tu.InlineKeyboardRow(banButton),
	)
}
