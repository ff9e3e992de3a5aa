package cardbox

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/cardbox-bot/cardbox/internal/domain/cooldown"
	"github.com/cardbox-bot/cardbox/internal/domain/economy"
	"github.com/cardbox-bot/cardbox/internal/domain/rarity"
	"github.com/cardbox-bot/cardbox/internal/gateways/assets"
	"github.com/cardbox-bot/cardbox/internal/gateways/database"
)

const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"

	BackendFS     = "fs"
	BackendSpaces = "spaces"
)

// Environment variables that override secrets from the config file.
const (
	EnvBotToken     = "CARDBOX_BOT_TOKEN"
	EnvDBPassword   = "CARDBOX_DB_PASSWORD"
	EnvSpacesKey    = "CARDBOX_SPACES_KEY"
	EnvSpacesSecret = "CARDBOX_SPACES_SECRET"
)

// LoadConfig decodes the TOML file at path, applies environment overrides and
// defaults, then validates the result. Missing env files are ignored.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := Config{}
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Bot     BotConfig         `toml:"bot"`
	DB      database.DBConfig `toml:"db"`
	Assets  AssetsConfig      `toml:"assets"`
	Economy EconomyConfig     `toml:"economy"`
	Ops     OpsConfig         `toml:"ops"`
}

type LogConfig struct {
	Level slog.Level `toml:"level"`
}

type BotConfig struct {
	Platform string `toml:"platform"`
	Token    string `toml:"token"`

	// Telegram: the channel users must join, as @username or numeric id.
	Channel    string `toml:"channel"`
	ChannelURL string `toml:"channel_url"`

	// Discord: membership in GuildID, optionally holding RoleID.
	GuildID   snowflake.ID   `toml:"guild_id"`
	RoleID    snowflake.ID   `toml:"role_id"`
	DevGuilds []snowflake.ID `toml:"dev_guilds"`

	SkipAccessCheck bool `toml:"skip_access_check"`
}

type AssetsConfig struct {
	Backend         string              `toml:"backend"`
	Root            string              `toml:"root"`
	Spaces          assets.SpacesConfig `toml:"spaces"`
	CacheSize       int                 `toml:"cache_size"`
	CacheTTL        Duration            `toml:"cache_ttl"`
	RefreshSchedule string              `toml:"refresh_schedule"`
}

type EconomyConfig struct {
	Cooldown        Duration       `toml:"cooldown"`
	LeaderboardSize int            `toml:"leaderboard_size"`
	Rarities        []RarityConfig `toml:"rarity"`
}

type RarityConfig struct {
	Tier   string  `toml:"tier"`
	Label  string  `toml:"label"`
	Folder string  `toml:"folder"`
	Price  int64   `toml:"price"`
	Weight float64 `toml:"weight"`
}

type OpsConfig struct {
	Addr string `toml:"addr"`
}

// Duration decodes TOML strings such as "1h" or "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		EnvBotToken:     &c.Bot.Token,
		EnvDBPassword:   &c.DB.Password,
		EnvSpacesKey:    &c.Assets.Spaces.Key,
		EnvSpacesSecret: &c.Assets.Spaces.Secret,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Bot.Platform == "" {
		c.Bot.Platform = PlatformTelegram
	}
	c.Bot.Platform = strings.ToLower(c.Bot.Platform)
	if c.Assets.Backend == "" {
		c.Assets.Backend = BackendFS
	}
	if c.Assets.Backend == BackendFS && c.Assets.Root == "" {
		c.Assets.Root = "cards"
	}
	if c.Assets.Backend == BackendSpaces && c.Assets.Spaces.Root == "" {
		c.Assets.Spaces.Root = c.Assets.Root
	}
	if c.Assets.CacheTTL.Duration <= 0 {
		c.Assets.CacheTTL.Duration = assets.DefaultCacheTTL
	}
	if c.Economy.Cooldown.Duration == 0 {
		c.Economy.Cooldown.Duration = cooldown.DefaultDuration
	}
	if c.Economy.LeaderboardSize <= 0 {
		c.Economy.LeaderboardSize = economy.DefaultLeaderboardSize
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Bot.Token == "" {
		errs = append(errs, fmt.Errorf("bot.token is required (or set %s)", EnvBotToken))
	}
	switch c.Bot.Platform {
	case PlatformTelegram:
		if c.Bot.Channel == "" && !c.Bot.SkipAccessCheck {
			errs = append(errs, errors.New("bot.channel is required for telegram"))
		}
	case PlatformDiscord:
		if c.Bot.GuildID == 0 && !c.Bot.SkipAccessCheck {
			errs = append(errs, errors.New("bot.guild_id is required for discord"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown bot.platform %q", c.Bot.Platform))
	}

	switch c.Assets.Backend {
	case BackendFS:
	case BackendSpaces:
		if c.Assets.Spaces.Bucket == "" {
			errs = append(errs, errors.New("assets.spaces.bucket is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown assets.backend %q", c.Assets.Backend))
	}

	if c.Economy.Cooldown.Duration < 0 {
		errs = append(errs, errors.New("economy.cooldown must not be negative"))
	}
	if _, err := c.RarityTable(); err != nil {
		errs = append(errs, err)
	}
	if c.DB.Host == "" || c.DB.Database == "" {
		errs = append(errs, errors.New("db.host and db.database are required"))
	}

	return errors.Join(errs...)
}

// RarityTable builds the tier table. An empty [[economy.rarity]] list keeps
// the stock table.
func (c *Config) RarityTable() (*rarity.Table, error) {
	if len(c.Economy.Rarities) == 0 {
		return rarity.DefaultTable(), nil
	}

	infos := make([]rarity.Info, 0, len(c.Economy.Rarities))
	for _, r := range c.Economy.Rarities {
		tier, err := rarity.ParseTier(r.Tier)
		if err != nil {
			return nil, fmt.Errorf("economy.rarity: %w", err)
		}
		infos = append(infos, rarity.Info{
			Tier:   tier,
			Label:  r.Label,
			Folder: r.Folder,
			Price:  r.Price,
			Weight: r.Weight,
		})
	}

	table, err := rarity.NewTable(infos)
	if err != nil {
		return nil, fmt.Errorf("economy.rarity: %w", err)
	}
	return table, nil
}
