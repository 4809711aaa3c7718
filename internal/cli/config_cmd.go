// Package cli provides configuration inspection commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tOgg1/replydesk/internal/config"
	"github.com/tOgg1/replydesk/internal/logging"
)

var (
	configShowSecrets bool
	configInitForce   bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)

	configShowCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "print tokens and API keys")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after defaults, the config file and REPLYDESK_* overrides are applied.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		node := configNode(reflect.ValueOf(*cfg), !configShowSecrets)
		if IsJSONOutput() {
			var v any
			if err := node.Decode(&v); err != nil {
				return err
			}
			return WriteOutput(cmd.OutOrStdout(), v)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print configuration and data paths",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		paths := map[string]string{
			"config":        configUsed,
			"context":       contextStore(cfg).Path(),
			"database":      cfg.DatabasePath(),
			"conversations": cfg.ConversationsPath(),
			"log":           cfg.LogPath(),
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), paths)
		}
		rows := make([][]string, 0, len(paths))
		for _, name := range []string{"config", "context", "database", "conversations", "log"} {
			value := paths[name]
			if value == "" {
				value = "(none)"
			}
			rows = append(rows, []string{name, value})
		}
		return writeTable(cmd.OutOrStdout(), nil, rows)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = filepath.Join(GetConfig().Global.ConfigDir, "config.yaml")
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return &PreflightError{
				Message:  fmt.Sprintf("%s already exists", path),
				NextStep: "replydesk config init --force",
			}
		}

		node := configNode(reflect.ValueOf(*config.DefaultConfig()), false)
		data, err := yaml.Marshal(node)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var durationType = reflect.TypeOf(time.Duration(0))

// configNode renders a config struct as YAML using its yaml tags.
// Durations print in their string form.
func configNode(v reflect.Value, redact bool) *yaml.Node {
	switch {
	case v.Type() == durationType:
		return scalar(time.Duration(v.Int()).String(), "!!str")
	case v.Kind() == reflect.Struct:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			name := strings.Split(field.Tag.Get("yaml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			value := configNode(v.Field(i), redact)
			if redact && field.Type.Kind() == reflect.String && logging.IsSensitiveField(name) && value.Value != "" {
				value = scalar(logging.RedactedValue, "!!str")
			}
			node.Content = append(node.Content, scalar(name, "!!str"), value)
		}
		return node
	case v.Kind() == reflect.Slice:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for i := 0; i < v.Len(); i++ {
			node.Content = append(node.Content, configNode(v.Index(i), redact))
		}
		return node
	case v.Kind() == reflect.Bool:
		return scalar(strconv.FormatBool(v.Bool()), "!!bool")
	case v.Kind() == reflect.Int || v.Kind() == reflect.Int64:
		return scalar(strconv.FormatInt(v.Int(), 10), "!!int")
	default:
		return scalar(v.String(), "!!str")
	}
}

func scalar(value, tag string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
