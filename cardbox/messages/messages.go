// Package messages renders user-facing texts shared by every chat frontend.
package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
)

const Currency = "тенге"

var placeEmojis = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

func SubscribeRequired() string {
	return "👋 Привет! Для использования бота нужно подписаться на наш канал.\n" +
		"Подпишись и нажми кнопку ниже 👇"
}

func NotSubscribedYet() string {
	return "Вы ещё не подписались!"
}

func Unsubscribed() string {
	return "❌ Вы отписались от канала! Подпишитесь снова."
}

func MainMenu(name string, p *economy.Profile) string {
	return fmt.Sprintf("🎮 Добро пожаловать, %s!\n\n"+
		"💰 Баланс: %d %s\n"+
		"🃏 Карточек в коллекции: %d\n\n"+
		"Выберите действие:", name, p.Balance, Currency, p.Unsold)
}

func Balance(p *economy.Profile) string {
	text := fmt.Sprintf("💰 Ваш баланс: %d %s\n🃏 Карточек в коллекции: %d", p.Balance, Currency, p.Unsold)
	if !p.Cooldown.Allowed {
		text += "\n" + Cooldown(p.Cooldown.Remaining)
	}
	return text
}

// Cooldown renders the remaining wait as minutes and seconds, rounding up so
// a user never sees "0 мин 0 сек" while still blocked.
func Cooldown(remaining time.Duration) string {
	secs := int64((remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("⏳ Следующее открытие через: %d мин %d сек", secs/60, secs%60)
}

func DrawCaption(card economy.CardView) string {
	return fmt.Sprintf("🎉 Вы получили карточку!\n\n"+
		"🏷 Название: %s\n"+
		"⭐ Редкость: %s\n"+
		"💰 Цена продажи: %d %s\n\n"+
		"ID карточки: %d", card.Name, card.Label, card.Price, Currency, card.ID)
}

func NoAssets() string {
	return "❌ Ошибка: карточки не найдены!"
}

func Inventory(cards []economy.CardView) string {
	if len(cards) == 0 {
		return "📭 У вас пока нет карточек!"
	}

	var sb strings.Builder
	sb.WriteString("🃏 Ваши карточки:\n\n")
	for i, c := range cards {
		sb.WriteString(InventoryLine(i+1, c))
	}
	sb.WriteString("\nДля продажи карточки используйте команду: /sell <id>")
	return sb.String()
}

func InventoryLine(n int, c economy.CardView) string {
	return fmt.Sprintf("%d. %s\n   ⭐ Редкость: %s\n   💰 Цена: %d %s\n   🆔 ID: %d\n\n",
		n, c.Name, c.Label, c.Price, Currency, c.ID)
}

func SellUsage() string {
	return "Использование: /sell <id_карточки>"
}

func InvalidCardID() string {
	return "❌ Неверный ID карточки! Используйте число."
}

func CardNotFound() string {
	return "❌ Карточка не найдена или уже продана!"
}

func Sold(res *economy.SaleResult) string {
	return fmt.Sprintf("✅ Карточка продана за %d %s!\n"+
		"💰 Новый баланс: %d %s\n"+
		"🃏 Осталось карточек: %d", res.Price, Currency, res.Balance, Currency, res.Remaining)
}

func NothingToSell() string {
	return "У вас нет карточек для продажи!"
}

func SoldAll(res *economy.SellAllResult) string {
	return fmt.Sprintf("💰 Продано %d карточек за %d %s!\n💵 Новый баланс: %d %s",
		res.Sold, res.Total, Currency, res.Balance, Currency)
}

func Leaderboard(rows []economy.LeaderboardRow) string {
	if len(rows) == 0 {
		return "🏆 Топ игроков пока пуст!"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏆 Топ %d игроков:\n\n", len(rows))
	for _, row := range rows {
		place := fmt.Sprintf("%d.", row.Rank)
		if row.Rank-1 < len(placeEmojis) {
			place = placeEmojis[row.Rank-1]
		}
		fmt.Fprintf(&sb, "%s @%s\n   💰 Баланс: %d %s\n   🃏 Карточек: %d\n\n",
			place, row.DisplayHandle(), row.Balance, Currency, row.CardCount)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func Help(prices []rarity.Info, cooldown time.Duration) string {
	var sb strings.Builder
	sb.WriteString("🎮 *Помощь по боту*\n\n")
	sb.WriteString("📌 *Основные команды:*\n")
	sb.WriteString("/start - Начать работу с ботом\n")
	sb.WriteString("/cards - Показать ваши карточки\n")
	sb.WriteString("/sell <id> - Продать карточку по ID\n")
	sb.WriteString("/help - Показать это сообщение\n\n")
	sb.WriteString("📋 *Как работает бот:*\n")
	sb.WriteString("1️⃣ Подпишитесь на канал\n")
	fmt.Fprintf(&sb, "2️⃣ Раз в %s можно открыть ящик\n", humanDuration(cooldown))
	sb.WriteString("3️⃣ Получайте карточки разной редкости\n")
	sb.WriteString("4️⃣ Продавайте карточки или собирайте коллекцию\n")
	sb.WriteString("5️⃣ Соревнуйтесь с другими в топе\n\n")
	sb.WriteString("💰 *Цены карточек:*\n")
	for i, info := range prices {
		fmt.Fprintf(&sb, "%s: %d %s", info.Label, info.Price, Currency)
		if i < len(prices)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "час"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d ч", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%d мин", d/time.Minute)
	default:
		return d.String()
	}
}

// ForError maps an engine error to the text shown to the user.
func ForError(err error) string {
	switch economy.KindOf(err) {
	case economy.KindCooldown:
		remaining, _ := economy.RemainingCooldown(err)
		return Cooldown(remaining)
	case economy.KindNotFound:
		return CardNotFound()
	case economy.KindAccessDenied:
		return Unsubscribed()
	case economy.KindAssetUnavailable:
		return NoAssets()
	default:
		return "❌ Произошла ошибка, попробуйте позже."
	}
}
