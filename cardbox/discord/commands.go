// Package discord serves the card bot as Discord slash commands.
package discord

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/cardbox-bot/cardbox/cardbox"
	"github.com/cardbox-bot/cardbox/cardbox/handlers"
)

var Commands = []discord.ApplicationCommandCreate{
	Draw,
	Cards,
	Sell,
	SellAll,
	Top,
	Balance,
	Help,
}

var (
	Draw = discord.SlashCommandCreate{
		Name:        "draw",
		Description: "Open a card box (once per cooldown)",
	}
	Cards = discord.SlashCommandCreate{
		Name:        "cards",
		Description: "View your unsold cards",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionString{
				Name:        "query",
				Description: "Fuzzy filter on card names",
				Required:    false,
			},
		},
	}
	Sell = discord.SlashCommandCreate{
		Name:        "sell",
		Description: "Sell one card by id",
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionInt{
				Name:        "card_id",
				Description: "Card id shown in /cards",
				Required:    true,
			},
		},
	}
	SellAll = discord.SlashCommandCreate{
		Name:        "sellall",
		Description: "Sell every unsold card",
	}
	Top = discord.SlashCommandCreate{
		Name:        "top",
		Description: "Show the richest players",
	}
	Balance = discord.SlashCommandCreate{
		Name:        "balance",
		Description: "Show your balance and cooldown",
	}
	Help = discord.SlashCommandCreate{
		Name:        "help",
		Description: "How the bot works and card prices",
	}
)

// Register routes every command to its handler.
func Register(h *handler.Mux, b *cardbox.Bot) {
	// Engine.Draw runs the access gate itself
	h.Command("/draw", handlers.WrapWithLogging("draw", DrawHandler(b)))
	h.Command("/cards", handlers.WrapWithLogging("cards", requireAccess(b, CardsHandler(b))))
	h.Command("/sell", handlers.WrapWithLogging("sell", requireAccess(b, SellHandler(b))))
	h.Command("/sellall", handlers.WrapWithLogging("sellall", requireAccess(b, SellAllHandler(b))))
	h.Command("/top", handlers.WrapWithLogging("top", requireAccess(b, TopHandler(b))))
	h.Command("/balance", handlers.WrapWithLogging("balance", requireAccess(b, BalanceHandler(b))))
	h.Command("/help", handlers.WrapWithLogging("help", HelpHandler(b)))
}
