package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/ai"
	"github.com/tOgg1/replydesk/internal/canned"
	"github.com/tOgg1/replydesk/internal/composer"
	"github.com/tOgg1/replydesk/internal/config"
	"github.com/tOgg1/replydesk/internal/db"
	"github.com/tOgg1/replydesk/internal/speech"
	"github.com/tOgg1/replydesk/internal/support"
)

func nopClose() error { return nil }

// openDatabase opens the SQL catalog database.
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if cfg.Catalog.Driver != db.DriverPostgres {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
	}
	database, err := db.Open(ctx, db.Config{
		Driver: cfg.Catalog.Driver,
		Path:   cfg.DatabasePath(),
		DSN:    cfg.Catalog.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// openCannedRepository opens the SQL catalog for management commands.
func openCannedRepository(ctx context.Context, cfg *config.Config) (*db.CannedRepository, func() error, error) {
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nopClose, err
	}
	repo, err := db.NewCannedRepository(ctx, database)
	if err != nil {
		_ = database.Close()
		return nil, nopClose, err
	}
	return repo, database.Close, nil
}

// openCatalogSource builds the configured canned-reply source.
func openCatalogSource(ctx context.Context, cfg *config.Config) (canned.Source, func() error, error) {
	switch cfg.Catalog.Source {
	case config.CatalogHTTP:
		src, err := canned.NewHTTPSource(cfg.Catalog.URL, cfg.Support.Token, &http.Client{Timeout: cfg.AI.RequestTimeout})
		if err != nil {
			return nil, nopClose, err
		}
		return src, nopClose, nil
	case config.CatalogYAML:
		return canned.NewFileSource(cfg.Catalog.Path), nopClose, nil
	default:
		return openCannedRepository(ctx, cfg)
	}
}

func aiOptions(cfg *config.Config) ai.Options {
	return ai.Options{
		Transport:      cfg.AI.Transport,
		BaseURL:        cfg.AI.BaseURL,
		GRPCAddr:       cfg.AI.GRPCAddr,
		APIKey:         cfg.AI.APIKey,
		Model:          cfg.AI.Model,
		RequestTimeout: cfg.AI.RequestTimeout,
		CacheBackend:   cfg.AI.Cache.Backend,
		CacheSize:      cfg.AI.Cache.Size,
		CacheTTL:       cfg.AI.Cache.TTL,
		RedisAddr:      cfg.AI.Cache.RedisAddr,
	}
}

// openAI builds the configured reply-assist service.
func openAI(ctx context.Context, cfg *config.Config) (ai.Service, func() error, error) {
	svc, closer, err := ai.Open(ctx, aiOptions(cfg))
	if err != nil {
		return nil, nopClose, fmt.Errorf("open ai service: %w", err)
	}
	return svc, closer, nil
}

// openSupport builds the support backend client. Without a base URL the
// local conversations file is used.
func openSupport(cfg *config.Config) (support.Client, func() error, error) {
	if cfg.Support.BaseURL != "" {
		client, err := support.NewHTTPClient(cfg.Support.BaseURL, cfg.Support.Token, &http.Client{Timeout: cfg.AI.RequestTimeout})
		if err != nil {
			return nil, nopClose, err
		}
		return client, nopClose, nil
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nopClose, err
	}
	store := support.NewFileStore(cfg.ConversationsPath(), cfg.Support.Agent)
	if err := store.Load(); err != nil {
		return nil, nopClose, fmt.Errorf("load conversations: %w", err)
	}
	return store, store.Close, nil
}

func openSpeech(cfg *config.Config) speech.Engine {
	if cfg.Speech.Command == "" {
		return speech.None{}
	}
	return speech.NewCommandEngine(cfg.Speech.Command, cfg.Speech.Args...)
}

func composerOptions(cfg *config.Config, src canned.Source, svc ai.Service) composer.Options {
	opts := composer.DefaultOptions()
	opts.SyncDebounce = cfg.Composer.SyncDebounce
	opts.CommandDebounce = cfg.Composer.CommandDebounce
	opts.SettleDelay = cfg.Composer.SettleDelay
	opts.MenuLimit = cfg.Composer.MenuLimit
	opts.GenerateFallback = cfg.Composer.GenerateFallback
	opts.RequestTimeout = cfg.AI.RequestTimeout
	opts.Catalog = src
	opts.CatalogPerPage = cfg.Catalog.PerPage
	opts.AI = svc
	opts.Speech = openSpeech(cfg)
	return opts
}

func contextStore(cfg *config.Config) *config.ContextStore {
	return config.NewContextStore(filepath.Join(cfg.Global.ConfigDir, "context.yaml"))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// readInput returns args joined by spaces, or stdin when there are none.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(text) == "" {
		return "", &PreflightError{
			Message:  "no input text",
			Hint:     "pass the text as arguments or pipe it on stdin",
			NextStep: "echo 'hola' | replydesk transform translate --lang en",
		}
	}
	return text, nil
}
