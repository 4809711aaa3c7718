// Package config handles replydesk configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tOgg1/replydesk/internal/logging"
)

// Catalog sources.
const (
	CatalogHTTP = "http"
	CatalogSQL  = "sql"
	CatalogYAML = "yaml"
)

// Config is the root configuration structure for replydesk.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Composer timings and behaviour
	Composer ComposerConfig `yaml:"composer" mapstructure:"composer"`

	// AI reply-assist service
	AI AIConfig `yaml:"ai" mapstructure:"ai"`

	// Canned reply catalog
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`

	// Dictation
	Speech SpeechConfig `yaml:"speech" mapstructure:"speech"`

	// Support desk backend
	Support SupportConfig `yaml:"support" mapstructure:"support"`

	// Reply-assist server (replydesk serve)
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where replydesk stores its data (default: ~/.local/share/replydesk).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/replydesk).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. The TUI always logs to a file.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// ComposerConfig tunes the reply composer.
type ComposerConfig struct {
	SyncDebounce     time.Duration `yaml:"sync_debounce" mapstructure:"sync_debounce"`
	CommandDebounce  time.Duration `yaml:"command_debounce" mapstructure:"command_debounce"`
	SettleDelay      time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	MenuLimit        int           `yaml:"menu_limit" mapstructure:"menu_limit"`
	GenerateFallback string        `yaml:"generate_fallback" mapstructure:"generate_fallback"`
}

// AIConfig selects the reply-assist transport.
type AIConfig struct {
	// Transport is http, grpc or genai.
	Transport      string        `yaml:"transport" mapstructure:"transport"`
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	GRPCAddr       string        `yaml:"grpc_addr" mapstructure:"grpc_addr"`
	APIKey         string        `yaml:"api_key" mapstructure:"api_key"`
	Model          string        `yaml:"model" mapstructure:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	Cache          CacheConfig   `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig configures caching of AI results.
type CacheConfig struct {
	// Backend is none, memory or redis.
	Backend   string        `yaml:"backend" mapstructure:"backend"`
	Size      int           `yaml:"size" mapstructure:"size"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
}

// CatalogConfig locates canned replies.
type CatalogConfig struct {
	// Source is http, sql or yaml.
	Source string `yaml:"source" mapstructure:"source"`
	// Driver is sqlite or postgres when Source is sql.
	Driver  string `yaml:"driver" mapstructure:"driver"`
	Path    string `yaml:"path" mapstructure:"path"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	URL     string `yaml:"url" mapstructure:"url"`
	PerPage int    `yaml:"per_page" mapstructure:"per_page"`
}

// SpeechConfig names the external recognizer used for dictation.
type SpeechConfig struct {
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
}

// SupportConfig locates conversations. Without a base URL a local file
// store is used.
type SupportConfig struct {
	BaseURL           string `yaml:"base_url" mapstructure:"base_url"`
	Token             string `yaml:"token" mapstructure:"token"`
	ConversationsFile string `yaml:"conversations_file" mapstructure:"conversations_file"`
	Agent             string `yaml:"agent" mapstructure:"agent"`
}

// ServerConfig configures the gRPC reply-assist server.
type ServerConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows timestamps in the thread.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	agent := os.Getenv("USER")
	if agent == "" {
		agent = "agent"
	}

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "replydesk"),
			ConfigDir: filepath.Join(homeDir, ".config", "replydesk"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Composer: ComposerConfig{
			SyncDebounce:    150 * time.Millisecond,
			CommandDebounce: 50 * time.Millisecond,
			SettleDelay:     10 * time.Millisecond,
			MenuLimit:       10,
		},
		AI: AIConfig{
			Transport:      "http",
			RequestTimeout: 30 * time.Second,
			Model:          "gemini-2.5-flash",
			Cache: CacheConfig{
				Backend: "memory",
				Size:    256,
				TTL:     10 * time.Minute,
			},
		},
		Catalog: CatalogConfig{
			Source:  CatalogSQL,
			Driver:  "sqlite",
			PerPage: 100,
		},
		Support: SupportConfig{
			Agent: agent,
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:7443",
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"composer.sync_debounce", c.Composer.SyncDebounce},
		{"composer.command_debounce", c.Composer.CommandDebounce},
		{"composer.settle_delay", c.Composer.SettleDelay},
		{"ai.request_timeout", c.AI.RequestTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive", d.key)
		}
	}
	if c.Composer.MenuLimit < 1 {
		return fmt.Errorf("composer.menu_limit must be at least 1")
	}

	switch c.AI.Transport {
	case "http", "grpc", "genai":
	default:
		return fmt.Errorf("ai.transport must be one of http, grpc, genai")
	}
	switch c.AI.Cache.Backend {
	case "none", "memory":
	case "redis":
		if strings.TrimSpace(c.AI.Cache.RedisAddr) == "" {
			return fmt.Errorf("ai.cache.redis_addr is required for the redis cache")
		}
	default:
		return fmt.Errorf("ai.cache.backend must be one of none, memory, redis")
	}
	if c.AI.Cache.Backend != "none" && c.AI.Cache.TTL <= 0 {
		return fmt.Errorf("ai.cache.ttl must be positive")
	}

	switch c.Catalog.Source {
	case CatalogHTTP:
		if strings.TrimSpace(c.Catalog.URL) == "" {
			return fmt.Errorf("catalog.url is required for the http source")
		}
	case CatalogYAML:
		if strings.TrimSpace(c.Catalog.Path) == "" {
			return fmt.Errorf("catalog.path is required for the yaml source")
		}
	case CatalogSQL:
		switch c.Catalog.Driver {
		case "sqlite":
		case "postgres":
			if strings.TrimSpace(c.Catalog.DSN) == "" {
				return fmt.Errorf("catalog.dsn is required for postgres")
			}
		default:
			return fmt.Errorf("catalog.driver must be sqlite or postgres")
		}
	default:
		return fmt.Errorf("catalog.source must be one of http, sql, yaml")
	}
	if c.Catalog.PerPage < 1 {
		return fmt.Errorf("catalog.per_page must be at least 1")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the SQLite catalog path.
func (c *Config) DatabasePath() string {
	if c.Catalog.Path != "" && c.Catalog.Source == CatalogSQL {
		return c.Catalog.Path
	}
	return filepath.Join(c.Global.DataDir, "replydesk.db")
}

// ConversationsPath returns the local conversation store path.
func (c *Config) ConversationsPath() string {
	if c.Support.ConversationsFile != "" {
		return c.Support.ConversationsFile
	}
	return filepath.Join(c.Global.DataDir, "conversations.json")
}

// LogPath returns the log file path.
func (c *Config) LogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(c.Global.DataDir, "replydesk.log")
}
