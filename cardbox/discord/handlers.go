package discord

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"

	"github.com/cardbox-bot/cardbox/cardbox"
	"github.com/cardbox-bot/cardbox/cardbox/config"
	"github.com/cardbox-bot/cardbox/cardbox/messages"
	"github.com/cardbox-bot/cardbox/internal/domain/economy"
)

func userRef(e *handler.CommandEvent) economy.UserRef {
	return economy.UserRef{ID: int64(e.User().ID), Handle: e.User().Username}
}

func requireAccess(b *cardbox.Bot, next handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		if b.Engine.CheckAccess(ctx, int64(e.User().ID)) {
			return next(e)
		}
		return e.CreateMessage(discord.NewMessageCreateBuilder().
			SetEmbeds(accessEmbed(b.Cfg.Bot.ChannelURL)).
			SetEphemeral(true).
			Build())
	}
}

func DrawHandler(b *cardbox.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		res, err := b.Engine.Draw(ctx, userRef(e))
		if economy.KindOf(err) == economy.KindAccessDenied {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetEmbeds(accessEmbed(b.Cfg.Bot.ChannelURL)).
				SetEphemeral(true).
				Build())
		}
		if err != nil {
			return replyError(e, err)
		}

		embed := drawEmbed(res.Card)
		msg := discord.MessageCreate{Embeds: []discord.Embed{embed}}

		data, name, err := b.CardImage(ctx, res.Card)
		if err != nil {
			slog.Warn("Card image unavailable, sending embed only",
				slog.String("type", "sys"),
				slog.Int64("card_id", res.Card.ID),
				slog.Any("error", err))
			return e.CreateMessage(msg)
		}

		msg.Embeds[0].Image = &discord.EmbedResource{URL: "attachment://" + name}
		msg.Files = []*discord.File{{
			Name:   name,
			Reader: bytes.NewReader(data),
		}}
		return e.CreateMessage(msg)
	}
}

func CardsHandler(b *cardbox.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		query := strings.TrimSpace(e.SlashCommandInteractionData().String("query"))
		cards, err := b.Engine.Inventory(ctx, int64(e.User().ID), query)
		if err != nil {
			return replyError(e, err)
		}
		if len(cards) == 0 {
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{infoEmbed(messages.Inventory(nil))},
			})
		}

		totalPages := pageCount(len(cards))
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				embed.
					SetTitle("🃏 Ваши карточки").
					SetDescription(inventoryPage(cards, page, query)).
					SetColor(config.InfoColor).
					SetFooter(fmt.Sprintf("Страница %d/%d • Всего: %d", page+1, totalPages, len(cards)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func SellHandler(b *cardbox.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		cardID := int64(e.SlashCommandInteractionData().Int("card_id"))
		res, err := b.Engine.SellOne(ctx, int64(e.User().ID), cardID)
		if err != nil {
			return replyError(e, err)
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{successEmbed(messages.Sold(res))},
		})
	}
}

func SellAllHandler(b *cardbox.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		res, err := b.Engine.SellAll(ctx, int64(e.User().ID))
		if err != nil {
			text := messages.ForError(err)
			if res != nil && res.Sold > 0 {
				text = messages.SoldAll(res) + "\n\n" + text
			}
			return e.CreateMessage(discord.MessageCreate{
				Embeds: []discord.Embed{errorEmbed(text)},
			})
		}
		if res.Sold == 0 {
			return e.CreateMessage(discord.NewMessageCreateBuilder().
				SetEmbeds(infoEmbed(messages.NothingToSell())).
				SetEphemeral(true).
				Build())
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{successEmbed(messages.SoldAll(res))},
		})
	}
}

func TopHandler(b *cardbox.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		rows, err := b.Engine.Leaderboard(ctx, 0)
		if err != nil {
			return replyError(e, err)
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{infoEmbed(messages.Leaderboard(rows))},
		})
	}
}

func BalanceHandler(b *cardbox.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
		defer cancel()

		profile, err := b.Engine.Profile(ctx, userRef(e))
		if err != nil {
			return replyError(e, err)
		}
		return e.CreateMessage(discord.NewMessageCreateBuilder().
			SetEmbeds(infoEmbed(messages.Balance(profile))).
			SetEphemeral(true).
			Build())
	}
}

func HelpHandler(b *cardbox.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return e.CreateMessage(discord.NewMessageCreateBuilder().
			SetEmbeds(infoEmbed(helpText(b))).
			SetEphemeral(true).
			Build())
	}
}

// replyError shows the user-facing text for err. Only storage and
// unexpected failures are returned to the logging wrapper.
func replyError(e *handler.CommandEvent, err error) error {
	if replyErr := e.CreateMessage(discord.NewMessageCreateBuilder().
		SetEmbeds(errorEmbed(messages.ForError(err))).
		SetEphemeral(true).
		Build()); replyErr != nil {
		return replyErr
	}
	switch economy.KindOf(err) {
	case economy.KindStorage, economy.KindUnexpected:
		return err
	default:
		return nil
	}
}

func helpText(b *cardbox.Bot) string {
	text := messages.Help(b.Engine.Prices(), b.Engine.Cooldown())
	// Slash commands differ from the Telegram ones listed by Help.
	text = strings.NewReplacer(
		"/start - Начать работу с ботом\n", "/draw - Открыть ящик\n",
		"/sell <id>", "/sell card_id",
	).Replace(text)
	return text + "\n\n/sellall, /top, /balance"
}

func drawEmbed(card economy.CardView) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("🎁 " + card.Name).
		SetDescription(messages.DrawCaption(card)).
		SetColor(rarityColor(card)).
		Build()
}

func rarityColor(card economy.CardView) int {
	if c, ok := config.RarityColors[string(card.Rarity)]; ok {
		return c
	}
	return config.InfoColor
}

func pageCount(n int) int {
	return int(math.Max(1, math.Ceil(float64(n)/float64(config.CardsPerPage))))
}

func inventoryPage(cards []economy.CardView, page int, query string) string {
	start := page * config.CardsPerPage
	if start >= len(cards) {
		start = (pageCount(len(cards)) - 1) * config.CardsPerPage
	}
	end := min(start+config.CardsPerPage, len(cards))

	var sb strings.Builder
	if query != "" {
		fmt.Fprintf(&sb, "`🔍 %s`\n\n", query)
	}
	for i, c := range cards[start:end] {
		sb.WriteString(messages.InventoryLine(start+i+1, c))
	}
	sb.WriteString("Продать: /sell card_id")
	return sb.String()
}

func accessEmbed(channelURL string) discord.Embed {
	text := messages.SubscribeRequired()
	if channelURL != "" {
		text += "\n" + channelURL
	}
	return discord.NewEmbedBuilder().
		SetDescription(text).
		SetColor(config.WarningColor).
		Build()
}

func infoEmbed(text string) discord.Embed {
	return discord.NewEmbedBuilder().SetDescription(text).SetColor(config.InfoColor).Build()
}

func successEmbed(text string) discord.Embed {
	return discord.NewEmbedBuilder().SetDescription(text).SetColor(config.SuccessColor).Build()
}

func errorEmbed(text string) discord.Embed {
	return discord.NewEmbedBuilder().SetDescription(text).SetColor(config.ErrorColor).Build()
}
