package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	t.Chdir(home)
	return home
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 150*time.Millisecond, cfg.Composer.SyncDebounce)
	require.Equal(t, 50*time.Millisecond, cfg.Composer.CommandDebounce)
	require.Equal(t, 10, cfg.Composer.MenuLimit)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	home := isolate(t)
	cfg, err := LoadDefault()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "share", "replydesk"), cfg.Global.DataDir)
	require.Equal(t, "http", cfg.AI.Transport)
	require.Equal(t, filepath.Join(cfg.Global.DataDir, "conversations.json"), cfg.ConversationsPath())
	require.Equal(t, filepath.Join(cfg.Global.DataDir, "replydesk.db"), cfg.DatabasePath())
}

func TestLoadFilePrecedence(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "replydesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
composer:
  sync_debounce: 300ms
  generate_fallback: "Thanks for reaching out!"
ai:
  transport: grpc
  grpc_addr: localhost:7443
  cache:
    backend: redis
    redis_addr: localhost:6379
    ttl: 1m
catalog:
  source: yaml
  path: ~/canned.yaml
speech:
  command: whisper-stream
  args: ["--model", "base"]
`), 0o644))

	t.Setenv("REPLYDESK_COMPOSER_MENU_LIMIT", "5")
	t.Setenv("REPLYDESK_AI_GRPC_ADDR", "assist:9000")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, 300*time.Millisecond, cfg.Composer.SyncDebounce)
	require.Equal(t, 50*time.Millisecond, cfg.Composer.CommandDebounce, "unset keys keep defaults")
	require.Equal(t, 5, cfg.Composer.MenuLimit, "env beats defaults")
	require.Equal(t, "assist:9000", cfg.AI.GRPCAddr, "env beats the file")
	require.Equal(t, "Thanks for reaching out!", cfg.Composer.GenerateFallback)
	require.Equal(t, "redis", cfg.AI.Cache.Backend)
	require.Equal(t, time.Minute, cfg.AI.Cache.TTL)
	require.Equal(t, filepath.Join(home, "canned.yaml"), cfg.Catalog.Path)
	require.Equal(t, []string{"--model", "base"}, cfg.Speech.Args)
}

func TestLoaderSetOverridesEverything(t *testing.T) {
	isolate(t)
	t.Setenv("REPLYDESK_TUI_THEME", "default")
	loader := NewLoader()
	loader.Set("tui.theme", "high-contrast")
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "high-contrast", cfg.TUI.Theme)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	isolate(t)
	_, err := LoadFromFile("/nonexistent/replydesk.yaml")
	require.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("REPLYDESK_AI_TRANSPORT", "carrier-pigeon")
	_, err := LoadDefault()
	require.ErrorContains(t, err, "ai.transport")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"zero debounce", func(c *Config) { c.Composer.SyncDebounce = 0 }, "composer.sync_debounce"},
		{"negative settle", func(c *Config) { c.Composer.SettleDelay = -time.Millisecond }, "composer.settle_delay"},
		{"menu limit", func(c *Config) { c.Composer.MenuLimit = 0 }, "composer.menu_limit"},
		{"cache backend", func(c *Config) { c.AI.Cache.Backend = "memcached" }, "ai.cache.backend"},
		{"redis addr", func(c *Config) { c.AI.Cache.Backend = "redis" }, "ai.cache.redis_addr"},
		{"catalog source", func(c *Config) { c.Catalog.Source = "ftp" }, "catalog.source"},
		{"catalog url", func(c *Config) { c.Catalog.Source = CatalogHTTP }, "catalog.url"},
		{"catalog driver", func(c *Config) { c.Catalog.Driver = "mysql" }, "catalog.driver"},
		{"postgres dsn", func(c *Config) { c.Catalog.Driver = "postgres" }, "catalog.dsn"},
		{"per page", func(c *Config) { c.Catalog.PerPage = 0 }, "catalog.per_page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestEnvVar(t *testing.T) {
	require.Equal(t, "REPLYDESK_AI_CACHE_TTL", EnvVar("ai.cache.ttl"))
}
