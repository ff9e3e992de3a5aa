package messages

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
)

func TestCooldown(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{3300 * time.Second, "⏳ Следующее открытие через: 55 мин 0 сек"},
		{61*time.Second + 200*time.Millisecond, "⏳ Следующее открытие через: 1 мин 2 сек"},
		{300 * time.Millisecond, "⏳ Следующее открытие через: 0 мин 1 сек"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Cooldown(tt.remaining))
	}
}

func TestInventory(t *testing.T) {
	assert.Equal(t, "📭 У вас пока нет карточек!", Inventory(nil))

	text := Inventory([]economy.CardView{{ID: 5, Name: "cat", Label: "Обычный", Price: 10}})
	assert.Contains(t, text, "1. cat\n")
	assert.Contains(t, text, "🆔 ID: 5")
	assert.Contains(t, text, "/sell <id>")
}

func TestLeaderboard(t *testing.T) {
	assert.Equal(t, "🏆 Топ игроков пока пуст!", Leaderboard(nil))

	rows := make([]economy.LeaderboardRow, 11)
	for i := range rows {
		rows[i] = economy.LeaderboardRow{Rank: i + 1, UserID: int64(i + 100)}
	}
	rows[0].Handle = "ann"

	text := Leaderboard(rows)
	assert.Contains(t, text, "🥇 @ann")
	assert.Contains(t, text, "🥈 @User_101")
	assert.Contains(t, text, "11. @User_110")
}

func TestHelpListsPrices(t *testing.T) {
	text := Help(rarity.DefaultTable().All(), time.Hour)
	for _, info := range rarity.DefaultInfos() {
		assert.Contains(t, text, fmt.Sprintf("%s: %d тенге", info.Label, info.Price))
	}
	assert.Contains(t, text, "Раз в час")
}

func TestForError(t *testing.T) {
	assert.Equal(t, CardNotFound(), ForError(fmt.Errorf("card 3: %w", economy.ErrNotFound)))
	assert.Equal(t, Cooldown(time.Minute), ForError(&economy.CooldownError{Remaining: time.Minute}))
	assert.Equal(t, NoAssets(), ForError(economy.ErrAssetUnavailable))
	assert.Contains(t, ForError(&economy.StorageError{Op: "x", Err: fmt.Errorf("boom")}), "ошибка")
}
