package telegram

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/cardbox-bot/cardbox/cardbox/config"
	"github.com/cardbox-bot/cardbox/cardbox/handlers"
	"github.com/cardbox-bot/cardbox/cardbox/messages"
	"github.com/cardbox-bot/cardbox/internal/domain/economy"
)

const (
	platform = "telegram"

	// Telegram rejects longer texts.
	messageLimit = 4096
)

func userRef(u *telego.User) economy.UserRef {
	if u == nil {
		return economy.UserRef{}
	}
	return economy.UserRef{ID: u.ID, Handle: u.Username}
}

func displayName(u *telego.User) string {
	switch {
	case u == nil:
		return ""
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return "User_" + strconv.FormatInt(u.ID, 10)
	}
}

func (f *Frontend) onCommand(message telego.Message) error {
	cmd, _, args := tu.ParseCommand(message.Text)
	ref := userRef(message.From)
	chatID := message.Chat.ID

	return handlers.Run(context.Background(), platform, cmd, ref.ID, func(ctx context.Context) error {
		switch cmd {
		case "start":
			return f.start(ctx, chatID, message.From)
		case "help":
			return f.send(ctx, chatID, messages.Help(f.b.Engine.Prices(), f.b.Engine.Cooldown()), nil)
		case "draw", "open":
			// Engine.Draw runs the access gate itself
			return f.draw(ctx, chatID, ref, nil)
		}

		if !f.b.Engine.CheckAccess(ctx, ref.ID) {
			return f.send(ctx, chatID, messages.SubscribeRequired(), subscribeKeyboard(f.channelURL))
		}

		switch cmd {
		case "cards":
			return f.inventory(ctx, chatID, ref, strings.Join(args, " "))
		case "sell":
			return f.sell(ctx, chatID, ref, args)
		case "sellall":
			res, err := f.b.Engine.SellAll(ctx, ref.ID)
			return f.sellAllReply(ctx, chatID, res, err, func(text string) error {
				return f.send(ctx, chatID, text, nil)
			})
		case "top":
			return f.leaderboard(ctx, chatID, 0)
		case "balance":
			return f.balance(ctx, chatID, 0, ref)
		default:
			return nil
		}
	})
}

func (f *Frontend) onCallback(query telego.CallbackQuery) error {
	ref := userRef(&query.From)
	if query.Message == nil {
		// inline-mode buttons carry no chat to reply into
		return handlers.Run(context.Background(), platform, query.Data, ref.ID, func(ctx context.Context) error {
			return f.answer(ctx, query.ID, "", false)
		})
	}
	chatID := query.Message.GetChat().ID
	messageID := query.Message.GetMessageID()

	return handlers.Run(context.Background(), platform, query.Data, ref.ID, func(ctx context.Context) error {
		if query.Data == config.CallbackCheckSubscription {
			if !f.b.Engine.CheckAccess(ctx, ref.ID) {
				return f.answer(ctx, query.ID, messages.NotSubscribedYet(), true)
			}
			if err := f.answer(ctx, query.ID, "", false); err != nil {
				return err
			}
			return f.mainMenu(ctx, chatID, messageID, &query.From)
		}
		if query.Data == config.CallbackOpenBox {
			return f.draw(ctx, chatID, ref, &query)
		}

		if !f.b.Engine.CheckAccess(ctx, ref.ID) {
			return f.answer(ctx, query.ID, messages.Unsubscribed(), true)
		}

		switch query.Data {
		case config.CallbackMyCards:
			if err := f.answer(ctx, query.ID, "", false); err != nil {
				return err
			}
			return f.inventory(ctx, chatID, ref, "")
		case config.CallbackTopPlayers:
			if err := f.answer(ctx, query.ID, "", false); err != nil {
				return err
			}
			return f.leaderboard(ctx, chatID, messageID)
		case config.CallbackShowBalance:
			if err := f.answer(ctx, query.ID, "", false); err != nil {
				return err
			}
			return f.balance(ctx, chatID, messageID, ref)
		case config.CallbackMainMenu:
			if err := f.answer(ctx, query.ID, "", false); err != nil {
				return err
			}
			return f.mainMenu(ctx, chatID, messageID, &query.From)
		case config.CallbackSellAll:
			res, err := f.b.Engine.SellAll(ctx, ref.ID)
			if err == nil && res.Sold == 0 {
				return f.answer(ctx, query.ID, messages.NothingToSell(), true)
			}
			if ansErr := f.answer(ctx, query.ID, "", false); ansErr != nil {
				return ansErr
			}
			return f.sellAllReply(ctx, chatID, res, err, func(text string) error {
				return f.edit(ctx, chatID, messageID, text, backKeyboard())
			})
		default:
			return f.answer(ctx, query.ID, "", false)
		}
	})
}

func (f *Frontend) start(ctx context.Context, chatID int64, from *telego.User) error {
	ref := userRef(from)
	if err := f.b.Engine.Register(ctx, ref); err != nil {
		return f.fail(ctx, chatID, err)
	}
	if !f.b.Engine.CheckAccess(ctx, ref.ID) {
		return f.send(ctx, chatID, messages.SubscribeRequired(), subscribeKeyboard(f.channelURL))
	}
	return f.mainMenu(ctx, chatID, 0, from)
}

// mainMenu edits messageID in place, or sends a new message when it is zero.
func (f *Frontend) mainMenu(ctx context.Context, chatID int64, messageID int, from *telego.User) error {
	profile, err := f.b.Engine.Profile(ctx, userRef(from))
	if err != nil {
		return f.fail(ctx, chatID, err)
	}
	return f.reply(ctx, chatID, messageID, messages.MainMenu(displayName(from), profile), mainMenuKeyboard())
}

func (f *Frontend) draw(ctx context.Context, chatID int64, ref economy.UserRef, query *telego.CallbackQuery) error {
	res, err := f.b.Engine.Draw(ctx, ref)
	if err != nil {
		kind := economy.KindOf(err)
		if kind == economy.KindAccessDenied {
			if query != nil {
				return f.answer(ctx, query.ID, messages.Unsubscribed(), true)
			}
			return f.send(ctx, chatID, messages.SubscribeRequired(), subscribeKeyboard(f.channelURL))
		}
		// Cooldown is shown as a popup when the draw came from a button.
		if query != nil && kind == economy.KindCooldown {
			return f.answer(ctx, query.ID, messages.ForError(err), true)
		}
		if query != nil {
			if ansErr := f.answer(ctx, query.ID, "", false); ansErr != nil {
				return ansErr
			}
		}
		return f.fail(ctx, chatID, err)
	}
	if query != nil {
		if err := f.answer(ctx, query.ID, "", false); err != nil {
			return err
		}
	}

	caption := messages.DrawCaption(res.Card)
	data, name, err := f.b.CardImage(ctx, res.Card)
	if err != nil {
		// The card is already saved; fall back to the text alone.
		slog.Warn("Card image unavailable, sending caption only",
			slog.String("type", "sys"),
			slog.Int64("card_id", res.Card.ID),
			slog.Any("error", err))
		return f.send(ctx, chatID, caption, mainMenuKeyboard())
	}

	_, err = f.api.SendPhoto(ctx,
		tu.Photo(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(data), name))).
			WithCaption(caption).
			WithReplyMarkup(mainMenuKeyboard()))
	return err
}

func (f *Frontend) inventory(ctx context.Context, chatID int64, ref economy.UserRef, query string) error {
	cards, err := f.b.Engine.Inventory(ctx, ref.ID, query)
	if err != nil {
		return f.fail(ctx, chatID, err)
	}
	if len(cards) == 0 {
		return f.send(ctx, chatID, messages.Inventory(nil), backKeyboard())
	}

	chunks := splitMessage(messages.Inventory(cards), messageLimit)
	for i, chunk := range chunks {
		var markup *telego.InlineKeyboardMarkup
		if i == len(chunks)-1 {
			markup = inventoryKeyboard()
		}
		if err := f.send(ctx, chatID, chunk, markup); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frontend) sell(ctx context.Context, chatID int64, ref economy.UserRef, args []string) error {
	if len(args) == 0 {
		return f.send(ctx, chatID, messages.SellUsage(), nil)
	}
	cardID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return f.send(ctx, chatID, messages.InvalidCardID(), nil)
	}

	res, err := f.b.Engine.SellOne(ctx, ref.ID, cardID)
	if err != nil {
		return f.fail(ctx, chatID, err)
	}
	return f.send(ctx, chatID, messages.Sold(res), nil)
}

func (f *Frontend) sellAllReply(ctx context.Context, chatID int64, res *economy.SellAllResult, err error, reply func(string) error) error {
	if err != nil {
		// Cards sold before the failure stay sold; report them first.
		if res != nil && res.Sold > 0 {
			if sendErr := reply(messages.SoldAll(res)); sendErr != nil {
				return sendErr
			}
		}
		return f.fail(ctx, chatID, err)
	}
	if res.Sold == 0 {
		return reply(messages.NothingToSell())
	}
	return reply(messages.SoldAll(res))
}

func (f *Frontend) leaderboard(ctx context.Context, chatID int64, messageID int) error {
	rows, err := f.b.Engine.Leaderboard(ctx, 0)
	if err != nil {
		return f.fail(ctx, chatID, err)
	}
	return f.reply(ctx, chatID, messageID, messages.Leaderboard(rows), backKeyboard())
}

func (f *Frontend) balance(ctx context.Context, chatID int64, messageID int, ref economy.UserRef) error {
	profile, err := f.b.Engine.Profile(ctx, ref)
	if err != nil {
		return f.fail(ctx, chatID, err)
	}
	return f.reply(ctx, chatID, messageID, messages.Balance(profile), backKeyboard())
}

// fail tells the user what went wrong. Expected outcomes are not returned as
// handler errors.
func (f *Frontend) fail(ctx context.Context, chatID int64, cause error) error {
	if err := f.send(ctx, chatID, messages.ForError(cause), nil); err != nil {
		return err
	}
	switch economy.KindOf(cause) {
	case economy.KindStorage, economy.KindUnexpected:
		return cause
	default:
		return nil
	}
}

func (f *Frontend) reply(ctx context.Context, chatID int64, messageID int, text string, markup *telego.InlineKeyboardMarkup) error {
	if messageID == 0 {
		return f.send(ctx, chatID, text, markup)
	}
	return f.edit(ctx, chatID, messageID, text, markup)
}

func (f *Frontend) send(ctx context.Context, chatID int64, text string, markup *telego.InlineKeyboardMarkup) error {
	params := &telego.SendMessageParams{
		ChatID: tu.ID(chatID),
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	_, err := f.api.SendMessage(ctx, params)
	return err
}

func (f *Frontend) edit(ctx context.Context, chatID int64, messageID int, text string, markup *telego.InlineKeyboardMarkup) error {
	_, err := f.api.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:      tu.ID(chatID),
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup,
	})
	return err
}

func (f *Frontend) answer(ctx context.Context, queryID, text string, alert bool) error {
	return f.api.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
}

// splitMessage cuts text on line boundaries into pieces no longer than limit
// bytes. A single longer line is cut on a rune boundary.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len()+len(line) > limit && cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		for len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
