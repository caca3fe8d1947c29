package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DefaultFileName is the config file the bot looks for next to the binary.
const DefaultFileName = "legacybot.yaml"

type Config struct {
	DiscordToken string `mapstructure:"discord_token"`
	DatabaseURL  string `mapstructure:"database_url"`
	DataDir      string `mapstructure:"data_dir"`
	Debug        bool   `mapstructure:"debug"`

	// Users allowed to manage permissions and monitors regardless of the
	// permissions file.
	AdminIDs []string `mapstructure:"admin_ids"`

	// Channel receiving whitelist audit messages. Empty disables the log.
	WhitelistLogChannel string `mapstructure:"whitelist_log_channel"`

	Monitor    Monitor    `mapstructure:"monitor"`
	Characters Characters `mapstructure:"characters"`
}

type Monitor struct {
	// Base URL of the game server, used by the status monitor.
	ServerURL string `mapstructure:"server_url"`

	StatusInterval  time.Duration `mapstructure:"status_interval"`
	PlayersInterval time.Duration `mapstructure:"players_interval"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	PageCapacity    int           `mapstructure:"page_capacity"`
	MaxFailures     int           `mapstructure:"max_failures"`
}

type Characters struct {
	SourceURL       string        `mapstructure:"source_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Load reads the config file at path, applying defaults and LEGACYBOT_*
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LEGACYBOT")
	v.AutomaticEnv()

	v.SetDefault("data_dir", "data")
	v.SetDefault("monitor.status_interval", time.Minute)
	v.SetDefault("monitor.players_interval", 5*time.Second)
	v.SetDefault("monitor.fetch_timeout", 10*time.Second)
	v.SetDefault("monitor.page_capacity", 40)
	v.SetDefault("monitor.max_failures", 5)
	v.SetDefault("characters.refresh_interval", 7*24*time.Hour)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.DiscordToken == "" {
		return fmt.Errorf("discord_token is required")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	if cfg.Monitor.PageCapacity <= 0 {
		return fmt.Errorf("monitor.page_capacity must be positive")
	}
	if cfg.Monitor.MaxFailures <= 0 {
		return fmt.Errorf("monitor.max_failures must be positive")
	}
	if cfg.Monitor.StatusInterval <= 0 || cfg.Monitor.PlayersInterval <= 0 {
		return fmt.Errorf("monitor intervals must be positive")
	}
	return nil
}
