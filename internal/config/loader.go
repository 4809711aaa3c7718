package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REPLYDESK"

// Loader handles configuration loading with Viper.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v: viper.New(),
	}
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = path
}

// Load loads configuration with proper precedence:
// defaults < config file < env vars < CLI flags
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.setupViper(cfg)

	if err := l.loadConfigFile(); err != nil {
		// Config file is optional, only error if explicitly specified
		if l.configFile != "" {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// expandTilde expands ~ to the user's home directory.
func expandTilde(path string) string {
	if path == "" {
		return path
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandPaths expands ~ in all path-related config fields.
func expandPaths(cfg *Config) {
	cfg.Global.DataDir = expandTilde(cfg.Global.DataDir)
	cfg.Global.ConfigDir = expandTilde(cfg.Global.ConfigDir)
	cfg.Logging.File = expandTilde(cfg.Logging.File)
	cfg.Catalog.Path = expandTilde(cfg.Catalog.Path)
	cfg.Support.ConversationsFile = expandTilde(cfg.Support.ConversationsFile)
}

// setupViper configures Viper with defaults and environment bindings.
func (l *Loader) setupViper(cfg *Config) {
	v := l.v

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		v.AddConfigPath(filepath.Join(xdgConfig, "replydesk"))
	}
	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		v.AddConfigPath(filepath.Join(homeDir, ".config", "replydesk"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	l.setDefaults(cfg)

	// Nested keys only unmarshal from the environment when bound.
	bindEnvVars(v)

	v.AutomaticEnv()
}

// setDefaults sets all default values in Viper.
func (l *Loader) setDefaults(cfg *Config) {
	v := l.v

	// Global
	v.SetDefault("global.data_dir", cfg.Global.DataDir)
	v.SetDefault("global.config_dir", cfg.Global.ConfigDir)

	// Logging
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.enable_caller", cfg.Logging.EnableCaller)

	// Composer
	v.SetDefault("composer.sync_debounce", cfg.Composer.SyncDebounce)
	v.SetDefault("composer.command_debounce", cfg.Composer.CommandDebounce)
	v.SetDefault("composer.settle_delay", cfg.Composer.SettleDelay)
	v.SetDefault("composer.menu_limit", cfg.Composer.MenuLimit)
	v.SetDefault("composer.generate_fallback", cfg.Composer.GenerateFallback)

	// AI
	v.SetDefault("ai.transport", cfg.AI.Transport)
	v.SetDefault("ai.base_url", cfg.AI.BaseURL)
	v.SetDefault("ai.grpc_addr", cfg.AI.GRPCAddr)
	v.SetDefault("ai.api_key", cfg.AI.APIKey)
	v.SetDefault("ai.model", cfg.AI.Model)
	v.SetDefault("ai.request_timeout", cfg.AI.RequestTimeout)
	v.SetDefault("ai.cache.backend", cfg.AI.Cache.Backend)
	v.SetDefault("ai.cache.size", cfg.AI.Cache.Size)
	v.SetDefault("ai.cache.ttl", cfg.AI.Cache.TTL)
	v.SetDefault("ai.cache.redis_addr", cfg.AI.Cache.RedisAddr)

	// Catalog
	v.SetDefault("catalog.source", cfg.Catalog.Source)
	v.SetDefault("catalog.driver", cfg.Catalog.Driver)
	v.SetDefault("catalog.path", cfg.Catalog.Path)
	v.SetDefault("catalog.dsn", cfg.Catalog.DSN)
	v.SetDefault("catalog.url", cfg.Catalog.URL)
	v.SetDefault("catalog.per_page", cfg.Catalog.PerPage)

	// Speech
	v.SetDefault("speech.command", cfg.Speech.Command)
	v.SetDefault("speech.args", cfg.Speech.Args)

	// Support
	v.SetDefault("support.base_url", cfg.Support.BaseURL)
	v.SetDefault("support.token", cfg.Support.Token)
	v.SetDefault("support.conversations_file", cfg.Support.ConversationsFile)
	v.SetDefault("support.agent", cfg.Support.Agent)

	// Server
	v.SetDefault("server.listen", cfg.Server.Listen)

	// TUI
	v.SetDefault("tui.theme", cfg.TUI.Theme)
	v.SetDefault("tui.show_timestamps", cfg.TUI.ShowTimestamps)
}

// loadConfigFile attempts to load the configuration file.
func (l *Loader) loadConfigFile() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// ConfigFileUsed returns the config file that was loaded.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Get returns a Viper value by key.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// Set sets a Viper value by key. Set values override everything else.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// Viper returns the underlying Viper instance, e.g. for binding flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	loader := NewLoader()
	loader.SetConfigFile(path)
	return loader.Load()
}

// LoadDefault loads configuration with default search paths.
func LoadDefault() (*Config, error) {
	loader := NewLoader()
	return loader.Load()
}

// envKeys lists every key that supports an environment override.
var envKeys = []string{
	// Global
	"global.data_dir",
	"global.config_dir",
	// Logging
	"logging.level",
	"logging.format",
	"logging.file",
	"logging.enable_caller",
	// Composer
	"composer.sync_debounce",
	"composer.command_debounce",
	"composer.settle_delay",
	"composer.menu_limit",
	"composer.generate_fallback",
	// AI
	"ai.transport",
	"ai.base_url",
	"ai.grpc_addr",
	"ai.api_key",
	"ai.model",
	"ai.request_timeout",
	"ai.cache.backend",
	"ai.cache.size",
	"ai.cache.ttl",
	"ai.cache.redis_addr",
	// Catalog
	"catalog.source",
	"catalog.driver",
	"catalog.path",
	"catalog.dsn",
	"catalog.url",
	"catalog.per_page",
	// Speech
	"speech.command",
	"speech.args",
	// Support
	"support.base_url",
	"support.token",
	"support.conversations_file",
	"support.agent",
	// Server
	"server.listen",
	// TUI
	"tui.theme",
	"tui.show_timestamps",
}

// EnvVar returns the environment variable that overrides key:
// ai.cache.ttl -> REPLYDESK_AI_CACHE_TTL.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bindEnvVars binds REPLYDESK_* environment variables for config keys.
func bindEnvVars(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key, EnvVar(key))
	}
	// Conventional fallback for the genai transport.
	_ = v.BindEnv("ai.api_key", EnvVar("ai.api_key"), "GEMINI_API_KEY")
}
