package telegram

import (
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/cardbox-bot/cardbox/cardbox/config"
)

func mainMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🎁 Открыть ящик").WithCallbackData(config.CallbackOpenBox),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🃏 Мои карточки").WithCallbackData(config.CallbackMyCards),
			tu.InlineKeyboardButton("🏆 Топ 10").WithCallbackData(config.CallbackTopPlayers),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💰 Баланс").WithCallbackData(config.CallbackShowBalance),
		),
	)
}

func backKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔙 Назад").WithCallbackData(config.CallbackMainMenu),
		),
	)
}

func inventoryKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💰 Продать все").WithCallbackData(config.CallbackSellAll),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔙 Назад").WithCallbackData(config.CallbackMainMenu),
		),
	)
}

func subscribeKeyboard(channelURL string) *telego.InlineKeyboardMarkup {
	var rows [][]telego.InlineKeyboardButton
	if channelURL != "" {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📢 Подписаться на канал").WithURL(channelURL),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("✅ Я подписался").WithCallbackData(config.CallbackCheckSubscription),
	))
	return tu.InlineKeyboard(rows...)
}
