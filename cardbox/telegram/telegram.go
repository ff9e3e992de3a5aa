// Package telegram serves the card bot over the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"github.com/cardbox-bot/cardbox/cardbox"
	"github.com/cardbox-bot/cardbox/cardbox/config"
	"github.com/cardbox-bot/cardbox/cardbox/logger"
)

// api is the subset of *telego.Bot the frontend calls.
type api interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}

type Frontend struct {
	b          *cardbox.Bot
	api        api
	channelURL string

	tg *telego.Bot
	bh *th.BotHandler
}

func New(b *cardbox.Bot, tg *telego.Bot) *Frontend {
	return newFrontend(b, tg, tg)
}

func newFrontend(b *cardbox.Bot, client api, tg *telego.Bot) *Frontend {
	return &Frontend{
		b:          b,
		api:        client,
		channelURL: b.Cfg.Bot.ChannelURL,
		tg:         tg,
	}
}

// Start begins long polling and dispatching updates. It returns once the
// handler is running.
func (f *Frontend) Start(ctx context.Context) error {
	updates, err := f.tg.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: config.LongPollTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	bh, err := th.NewBotHandler(f.tg, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	bh.HandleMessage(func(_ *th.Context, message telego.Message) error {
		return f.onCommand(message)
	}, th.AnyCommand())

	bh.HandleCallbackQuery(func(_ *th.Context, query telego.CallbackQuery) error {
		return f.onCallback(query)
	}, th.AnyCallbackQueryWithMessage())

	f.bh = bh
	go bh.Start()

	logger.LogSystem("Telegram long polling started", "version", f.b.Version)
	return nil
}

// Stop stops dispatching. Cancelling the context passed to Start ends polling.
func (f *Frontend) Stop() {
	if f.bh != nil {
		f.bh.Stop()
	}
}
