package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/mymmrac/telego"

	"github.com/cardbox-bot/cardbox/cardbox"
	"github.com/cardbox-bot/cardbox/cardbox/config"
	"github.com/cardbox-bot/cardbox/cardbox/discord"
	"github.com/cardbox-bot/cardbox/cardbox/logger"
	"github.com/cardbox-bot/cardbox/cardbox/telegram"
	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
	"github.com/cardbox-bot/cardbox/internal/gateways/access"
	"github.com/cardbox-bot/cardbox/internal/gateways/assets"
	"github.com/cardbox-bot/cardbox/internal/gateways/database"
	"github.com/cardbox-bot/cardbox/internal/ops"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	logger.Setup(slog.LevelInfo)

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	envFile := flag.String("env-file", ".env", "optional file with secret overrides")
	flag.Parse()

	cfg, err := cardbox.LoadConfig(*path, *envFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("type", "error"), slog.Any("error", err))
		os.Exit(-1)
	}
	logger.Setup(cfg.Log.Level)
	logger.LogSystem("Starting cardbox",
		slog.String("version", version),
		slog.String("commit", commit),
		slog.String("platform", cfg.Bot.Platform))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	initCtx, initCancel := context.WithTimeout(ctx, time.Minute)
	dbStartTime := time.Now()
	db, err := database.New(initCtx, cfg.DB)
	if err != nil {
		logger.LogError("Database connection failed", err, slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err = db.InitializeSchema(initCtx); err != nil {
		logger.LogError("Failed to initialize database schema", err)
		os.Exit(-1)
	}
	logger.LogSystem("Database ready",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	table, err := cfg.RarityTable()
	if err != nil {
		logger.LogError("Invalid rarity table", err)
		os.Exit(-1)
	}

	assetStore, err := cardbox.OpenAssets(initCtx, cfg.Assets)
	initCancel()
	if err != nil {
		logger.LogError("Failed to open card assets", err)
		os.Exit(-1)
	}
	if cached, ok := assetStore.(*assets.CachedStore); ok && cfg.Assets.RefreshSchedule != "" {
		sched, err := cached.SchedulePurge(cfg.Assets.RefreshSchedule)
		if err != nil {
			logger.LogError("Failed to schedule asset refresh", err)
			os.Exit(-1)
		}
		defer sched.Stop()
	}

	b := cardbox.New(*cfg, version, commit)
	b.DB = db
	b.Assets = assetStore

	newEngine := func(gate economy.AccessGate) *economy.Engine {
		if cfg.Bot.SkipAccessCheck {
			gate = access.AllowAll{}
		}
		return economy.NewEngine(
			database.NewStore(db.BunDB()),
			gate,
			rarity.NewSampler(table, assetStore),
			table,
			economy.WithCooldown(cfg.Economy.Cooldown.Duration),
			economy.WithLeaderboardSize(cfg.Economy.LeaderboardSize),
			economy.WithLogger(slog.Default()),
		)
	}

	if cfg.Ops.Addr != "" {
		srv := ops.NewServer(cfg.Ops.Addr, ops.Router(map[string]ops.Pinger{"database": db}))
		srv.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.LogError("Ops server shutdown failed", err)
			}
		}()
	}

	switch cfg.Bot.Platform {
	case cardbox.PlatformTelegram:
		err = runTelegram(ctx, b, newEngine)
	case cardbox.PlatformDiscord:
		err = runDiscord(ctx, b, newEngine, *shouldSyncCommands)
	}
	if err != nil {
		logger.LogError("Bot stopped with error", err)
		os.Exit(-1)
	}
	logger.LogSystem("Shutting down")
}

func runTelegram(ctx context.Context, b *cardbox.Bot, newEngine func(economy.AccessGate) *economy.Engine) error {
	tg, err := telego.NewBot(b.Cfg.Bot.Token)
	if err != nil {
		return err
	}
	b.Engine = newEngine(access.NewTelegramGate(tg, b.Cfg.Bot.Channel))

	frontend := telegram.New(b, tg)
	if err = frontend.Start(ctx); err != nil {
		return err
	}
	logger.LogSystem("Bot is running. Press CTRL-C to exit.")

	<-ctx.Done()
	frontend.Stop()
	return nil
}

func runDiscord(ctx context.Context, b *cardbox.Bot, newEngine func(economy.AccessGate) *economy.Engine, syncCommands bool) error {
	h := handler.New()
	discord.Register(h, b)

	if err := b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer closeCancel()
		b.Client.Close(closeCtx)
	}()

	b.Engine = newEngine(access.NewDiscordGate(b.Client.Rest(), b.Cfg.Bot.GuildID, b.Cfg.Bot.RoleID))

	if syncCommands {
		logger.LogSystem("Syncing commands", slog.Any("guild_ids", b.Cfg.Bot.DevGuilds))
		if err := handler.SyncCommands(b.Client, discord.Commands, b.Cfg.Bot.DevGuilds); err != nil {
			logger.LogError("Failed to sync commands", err)
		}
	}

	if err := b.Client.OpenGateway(ctx); err != nil {
		return err
	}
	logger.LogSystem("Bot is running. Press CTRL-C to exit.")

	<-ctx.Done()
	return nil
}
