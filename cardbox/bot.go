package cardbox

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"

	"github.com/cardbox-bot/cardbox/cardbox/config"
	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/gateways/assets"
	"github.com/cardbox-bot/cardbox/internal/gateways/database"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

// Bot holds what every chat frontend needs. Client and Paginator are only
// used by the Discord frontend.
type Bot struct {
	Cfg       Config
	Version   string
	Commit    string
	DB        *database.DB
	Engine    *economy.Engine
	Assets    assets.Store
	Client    bot.Client
	Paginator *paginator.Manager
}

// CardImage reads the image behind a drawn card and returns it with a file
// name suitable for upload.
func (b *Bot) CardImage(ctx context.Context, card economy.CardView) ([]byte, string, error) {
	data, err := b.Assets.Read(ctx, card.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read card image %s: %w", card.Path, err)
	}
	return data, path.Base(card.Path), nil
}

// SetupBot creates the Discord client.
func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("Cardbox is now ready",
		slog.String("type", "sys"),
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), config.PresenceTimeout)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithPlayingActivity("/draw"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.String("type", "error"), slog.Any("error", err))
	}
}
