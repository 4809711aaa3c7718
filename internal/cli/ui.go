// Package cli provides TUI launch commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tOgg1/replydesk/internal/ai"
	"github.com/tOgg1/replydesk/internal/logging"
	"github.com/tOgg1/replydesk/internal/tui"
)

func init() {
	rootCmd.AddCommand(uiCmd)
}

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the replydesk TUI",
	Long:  "Launch the replydesk terminal user interface (TUI).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func runTUI(cmd *cobra.Command) error {
	if IsNonInteractive() {
		return &PreflightError{
			Message:  "TUI requires an interactive terminal",
			Hint:     "Run without --non-interactive and with a TTY, or use CLI subcommands",
			NextStep: "replydesk --help",
		}
	}

	ctx := commandContext(cmd)
	cfg := GetConfig()
	log := logging.Component("cli")

	client, closeSupport, err := openSupport(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeSupport() }()

	src, closeCatalog, err := openCatalogSource(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("canned replies unavailable")
		src = nil
	}
	defer func() { _ = closeCatalog() }()

	svc, closeAI, err := openAI(ctx, cfg)
	if err != nil {
		// The composer still works without AI; its controls report failures.
		log.Warn().Err(err).Msg("reply assist unavailable")
		svc = ai.Unavailable{}
	}
	defer func() { _ = closeAI() }()

	tuiConfig := tui.Config{
		Client:         client,
		Composer:       composerOptions(cfg, src, svc),
		Theme:          cfg.TUI.Theme,
		ShowTimestamps: cfg.TUI.ShowTimestamps,
		Context:        contextStore(cfg),
		RequestTimeout: cfg.AI.RequestTimeout,
	}
	log.Info().Str("config", configUsed).Str("ai", cfg.AI.Transport).Str("catalog", cfg.Catalog.Source).Msg("starting tui")
	return tui.Run(tuiConfig)
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
