package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so owner_ids and allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Bot        BotConfig        `json:"bot"`
	Channels   ChannelsConfig   `json:"channels"`
	Feeds      FeedsConfig      `json:"feeds"`
	Store      StoreConfig      `json:"store"`
	RateLimits RateLimitsConfig `json:"rate_limits"`
	Log        LogConfig        `json:"log"`
}

type BotConfig struct {
	Name          string              `json:"name" env:"GAMEWATCH_BOT_NAME"`
	DefaultPrefix string              `json:"default_prefix" env:"GAMEWATCH_BOT_DEFAULT_PREFIX"`
	// OwnerIDs lists bot owners as "platform:user_id" entries; a bare ID
	// grants ownership on every platform.
	OwnerIDs FlexibleStringSlice `json:"owner_ids" env:"GAMEWATCH_BOT_OWNER_IDS"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Slack    SlackConfig    `json:"slack"`
}

type TelegramConfig struct {
	Enabled   bool                `json:"enabled" env:"GAMEWATCH_CHANNELS_TELEGRAM_ENABLED"`
	Token     string              `json:"token" env:"GAMEWATCH_CHANNELS_TELEGRAM_TOKEN"`
	Proxy     string              `json:"proxy" env:"GAMEWATCH_CHANNELS_TELEGRAM_PROXY"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"GAMEWATCH_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

type DiscordConfig struct {
	Enabled   bool                `json:"enabled" env:"GAMEWATCH_CHANNELS_DISCORD_ENABLED"`
	Token     string              `json:"token" env:"GAMEWATCH_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"GAMEWATCH_CHANNELS_DISCORD_ALLOW_FROM"`
}

type SlackConfig struct {
	Enabled   bool                `json:"enabled" env:"GAMEWATCH_CHANNELS_SLACK_ENABLED"`
	BotToken  string              `json:"bot_token" env:"GAMEWATCH_CHANNELS_SLACK_BOT_TOKEN"`
	AppToken  string              `json:"app_token" env:"GAMEWATCH_CHANNELS_SLACK_APP_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"GAMEWATCH_CHANNELS_SLACK_ALLOW_FROM"`
}

type FeedSourceConfig struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // rss | subreddit
	URL       string `json:"url,omitempty"`
	Subreddit string `json:"subreddit,omitempty"`
	Game      string `json:"game"`
}

type FeedsConfig struct {
	Enabled bool `json:"enabled" env:"GAMEWATCH_FEEDS_ENABLED"`
	// Schedule is a cron expression; when empty, IntervalMinutes is used.
	Schedule        string             `json:"schedule,omitempty" env:"GAMEWATCH_FEEDS_SCHEDULE"`
	IntervalMinutes int                `json:"interval_minutes" env:"GAMEWATCH_FEEDS_INTERVAL_MINUTES"`
	Sources         []FeedSourceConfig `json:"sources,omitempty"`
	SeenPath        string             `json:"seen_path" env:"GAMEWATCH_FEEDS_SEEN_PATH"`
}

type StoreConfig struct {
	SubscribersPath string `json:"subscribers_path" env:"GAMEWATCH_STORE_SUBSCRIBERS_PATH"`
	CatalogPath     string `json:"catalog_path" env:"GAMEWATCH_STORE_CATALOG_PATH"`
}

type RateLimitsConfig struct {
	NotificationsPerMinute int `json:"notifications_per_minute" env:"GAMEWATCH_RATE_LIMITS_NOTIFICATIONS_PER_MINUTE"` // per chat, 0 = unlimited
}

type LogConfig struct {
	Level string `json:"level" env:"GAMEWATCH_LOG_LEVEL"`
	File  string `json:"file,omitempty" env:"GAMEWATCH_LOG_FILE"`
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:          "GameWatch",
			DefaultPrefix: "/",
		},
		Feeds: FeedsConfig{
			Enabled:         true,
			IntervalMinutes: 15,
			SeenPath:        "data/seen.json",
		},
		Store: StoreConfig{
			SubscribersPath: "data/subscribers.json",
			CatalogPath:     "data/games.json",
		},
		RateLimits: RateLimitsConfig{
			NotificationsPerMinute: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the JSON config file if present, then applies environment
// overrides on top. A missing file is not an error: the defaults plus
// environment are enough to run.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env-only config
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if cfg.Bot.DefaultPrefix == "" {
		cfg.Bot.DefaultPrefix = "/"
	}
	if cfg.Feeds.IntervalMinutes <= 0 {
		cfg.Feeds.IntervalMinutes = 15
	}

	return cfg, nil
}

// Save writes the config as indented JSON, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
