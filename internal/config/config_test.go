package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "discord_token: abc\ndatabase_url: postgres://bot@localhost/game\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", cfg.DiscordToken)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, time.Minute, cfg.Monitor.StatusInterval)
	assert.Equal(t, 5*time.Second, cfg.Monitor.PlayersInterval)
	assert.Equal(t, 10*time.Second, cfg.Monitor.FetchTimeout)
	assert.Equal(t, 40, cfg.Monitor.PageCapacity)
	assert.Equal(t, 5, cfg.Monitor.MaxFailures)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
discord_token: abc
database_url: postgres://bot@localhost/game
admin_ids: ["111", "222"]
whitelist_log_channel: "999"
monitor:
  status_interval: 30s
  players_interval: 10s
  page_capacity: 20
characters:
  source_url: https://mdt.example.com/public/characters
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"111", "222"}, cfg.AdminIDs)
	assert.Equal(t, "999", cfg.WhitelistLogChannel)
	assert.Equal(t, 30*time.Second, cfg.Monitor.StatusInterval)
	assert.Equal(t, 10*time.Second, cfg.Monitor.PlayersInterval)
	assert.Equal(t, 20, cfg.Monitor.PageCapacity)
	assert.Equal(t, "https://mdt.example.com/public/characters", cfg.Characters.SourceURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing token",
			mutate:  func(cfg *Config) { cfg.DiscordToken = "" },
			wantErr: "discord_token",
		},
		{
			name:    "missing database url",
			mutate:  func(cfg *Config) { cfg.DatabaseURL = "" },
			wantErr: "database_url",
		},
		{
			name:    "zero page capacity",
			mutate:  func(cfg *Config) { cfg.Monitor.PageCapacity = 0 },
			wantErr: "page_capacity",
		},
		{
			name:    "zero max failures",
			mutate:  func(cfg *Config) { cfg.Monitor.MaxFailures = 0 },
			wantErr: "max_failures",
		},
		{
			name:    "negative interval",
			mutate:  func(cfg *Config) { cfg.Monitor.StatusInterval = -time.Second },
			wantErr: "intervals",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				DiscordToken: "abc",
				DatabaseURL:  "postgres://bot@localhost/game",
				Monitor: Monitor{
					StatusInterval:  time.Minute,
					PlayersInterval: 5 * time.Second,
					PageCapacity:    40,
					MaxFailures:     5,
				},
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
