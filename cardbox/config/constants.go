package config

import "time"

// Embed colors
const (
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00
)

// Rarity colors, indexed by tier key.
var RarityColors = map[string]int{
	"common":    0x808080,
	"rare":      0x0000FF,
	"legendary": 0xFFD700,
	"mythic":    0x800080,
	"secret":    0xFF1493,
}

const (
	CardsPerPage = 7

	CommandExecutionTimeout = 10 * time.Second
	SlowCommandThreshold    = 2 * time.Second
	PresenceTimeout         = 5 * time.Second
	ShutdownTimeout         = 10 * time.Second
	LongPollTimeout         = 10 // seconds, Telegram getUpdates
)

// Telegram callback data.
const (
	CallbackOpenBox           = "open_box"
	CallbackMyCards           = "my_cards"
	CallbackTopPlayers        = "top_players"
	CallbackShowBalance       = "show_balance"
	CallbackMainMenu          = "main_menu"
	CallbackSellAll           = "sell_all"
	CallbackCheckSubscription = "check_subscription"
)
