// Package cli implements the replydesk command line.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/config"
	"github.com/tOgg1/replydesk/internal/logging"
)

var (
	cfgFile        string
	jsonOutput     bool
	nonInteractive bool
	logLevel       string
	logFormat      string
	themeName      string
	robotHelp      bool

	appConfig  *config.Config
	configUsed string
	logCloser  io.Closer
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "replydesk",
	Short: "Compose support replies from the terminal",
	Long: `replydesk is a terminal client for support agents: an inbox of
conversations and a rich-text reply composer with canned replies, AI
translate/revise/generate, smart-reply review and dictation.

Run without a subcommand to open the TUI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Assigned here: the hooks refer back to rootCmd.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if robotHelp {
			if jsonOutput {
				data, err := CommandSurfaceJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				printRobotHelp(cmd.OutOrStdout())
			}
			return errRobotHelpShown
		}
		if err := initConfig(); err != nil {
			return err
		}
		return initLogging(launchesTUI(cmd))
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		closeLogging()
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/replydesk/config.yaml)")
	flags.BoolVar(&jsonOutput, "json", false, "output as JSON")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never start interactive UI")
	flags.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&themeName, "theme", "", "TUI theme (default, high-contrast)")
	flags.BoolVar(&robotHelp, "robot-help", false, "print a compact command reference for scripts and agents")
}

// Execute runs the root command.
func Execute(v string) error {
	version = v
	rootCmd.Version = v
	if err := rootCmd.Execute(); err != nil && !errors.Is(err, errRobotHelpShown) {
		return err
	}
	return nil
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return appConfig
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// IsNonInteractive reports whether interactive UI is disabled.
func IsNonInteractive() bool {
	return nonInteractive || !hasTTY()
}

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// PreflightError explains why a command could not start and what to do.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}
	if e.NextStep != "" {
		b.WriteString("\n  try:  ")
		b.WriteString(e.NextStep)
	}
	return b.String()
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var preflight *PreflightError
	if errors.As(err, &preflight) {
		return 2
	}
	return 1
}

func initConfig() error {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}

	v := loader.Viper()
	flags := rootCmd.PersistentFlags()
	for key, flag := range map[string]string{
		"logging.level":  "log-level",
		"logging.format": "log-format",
		"tui.theme":      "theme",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	appConfig = cfg
	configUsed = loader.ConfigFileUsed()
	return nil
}

// initLogging configures the global logger. The TUI owns the terminal, so
// it logs to a file.
func initLogging(toFile bool) error {
	cfg := appConfig
	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       os.Stderr,
		EnableCaller: cfg.Logging.EnableCaller,
	}
	path := cfg.Logging.File
	if toFile {
		path = cfg.LogPath()
	}
	if path != "" {
		f, err := logging.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logCloser = f
		logCfg.Output = f
	}
	logging.Init(logCfg)
	return nil
}

func closeLogging() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func launchesTUI(cmd *cobra.Command) bool {
	return cmd == rootCmd || cmd == uiCmd
}

// WriteOutput writes v as indented JSON.
func WriteOutput(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
