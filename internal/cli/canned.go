// Package cli provides canned-reply management commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/canned"
	"github.com/tOgg1/replydesk/internal/config"
)

var (
	cannedListAll    bool
	cannedListQuery  string
	cannedAddTitle   string
	cannedAddCut     string
	cannedAddBody    string
	cannedAddOff     bool
	cannedImportRepl bool
)

func init() {
	rootCmd.AddCommand(cannedCmd)
	cannedCmd.AddCommand(cannedListCmd, cannedAddCmd, cannedImportCmd, cannedExportCmd,
		cannedRemoveCmd, cannedEnableCmd, cannedDisableCmd)

	cannedListCmd.Flags().BoolVar(&cannedListAll, "all", false, "include inactive messages")
	cannedListCmd.Flags().StringVarP(&cannedListQuery, "query", "q", "", "only messages matching the query")

	cannedAddCmd.Flags().StringVar(&cannedAddTitle, "title", "", "message title (required)")
	cannedAddCmd.Flags().StringVar(&cannedAddCut, "shortcut", "", "slash shortcut, without the slash")
	cannedAddCmd.Flags().StringVar(&cannedAddBody, "body", "", "message body; - reads stdin")
	cannedAddCmd.Flags().BoolVar(&cannedAddOff, "inactive", false, "add the message disabled")

	cannedImportCmd.Flags().BoolVar(&cannedImportRepl, "replace", false, "remove existing messages first")
}

var cannedCmd = &cobra.Command{
	Use:   "canned",
	Short: "Manage canned replies",
	Long:  "Manage the canned replies offered by the composer's slash menu.",
}

var cannedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List canned replies",
	Long:  "List canned replies from the configured catalog source.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		cfg := GetConfig()

		src, closeSrc, err := openCatalogSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closeSrc() }()

		items, err := src.List(ctx, canned.ListOptions{IsActive: !cannedListAll, PerPage: cfg.Catalog.PerPage})
		if err != nil {
			return fmt.Errorf("failed to list canned replies: %w", err)
		}
		items = canned.NewCatalog(items).Filter(cannedListQuery, 0)

		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, items)
		}
		if len(items) == 0 {
			fmt.Fprintln(out, "No canned replies found.")
			return nil
		}
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			shortcut := ""
			if item.Shortcut != "" {
				shortcut = "/" + item.Shortcut
			}
			rows = append(rows, []string{item.ID, shortcut, item.Title, formatYesNo(item.Active), preview(item.Body, 48)})
		}
		return writeTable(out, []string{"ID", "SHORTCUT", "TITLE", "ACTIVE", "BODY"}, rows)
	},
}

var cannedAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a canned reply",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		body := cannedAddBody
		if body == "-" {
			text, err := readInput(cmd, nil)
			if err != nil {
				return err
			}
			body = text
		}
		msg := canned.Message{
			Title:    strings.TrimSpace(cannedAddTitle),
			Shortcut: strings.TrimPrefix(strings.TrimSpace(cannedAddCut), "/"),
			Body:     body,
			Active:   !cannedAddOff,
		}

		repo, closeRepo, err := openSQLCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = closeRepo() }()

		if err := repo.Create(ctx, &msg); err != nil {
			return fmt.Errorf("failed to add canned reply: %w", err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), msg)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", msg.ID, msg.Title)
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "canned_add", Shortcut: msg.Shortcut})
		return nil
	},
}

var cannedImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import canned replies from YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		items, err := canned.ParseYAML(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		repo, closeRepo, err := openSQLCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = closeRepo() }()

		n, err := repo.Import(ctx, items, cannedImportRepl)
		if err != nil {
			return fmt.Errorf("failed to import canned replies: %w", err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]int{"imported": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d canned replies.\n", n)
		return nil
	},
}

var cannedExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export canned replies as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		cfg := GetConfig()
		src, closeSrc, err := openCatalogSource(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = closeSrc() }()

		items, err := src.List(ctx, canned.ListOptions{})
		if err != nil {
			return fmt.Errorf("failed to list canned replies: %w", err)
		}
		data, err := canned.EncodeYAML(items)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var cannedRemoveCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"remove"},
	Short:   "Remove a canned reply",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		repo, closeRepo, err := openSQLCatalog(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = closeRepo() }()

		if err := repo.Delete(ctx, args[0]); err != nil {
			return notFoundHint(err, args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var cannedEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Offer a canned reply in the slash menu",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCannedActive(cmd, args[0], true)
	},
}

var cannedDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Hide a canned reply from the slash menu",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCannedActive(cmd, args[0], false)
	},
}

func setCannedActive(cmd *cobra.Command, id string, active bool) error {
	ctx := commandContext(cmd)
	repo, closeRepo, err := openSQLCatalog(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeRepo() }()

	if err := repo.SetActive(ctx, id, active); err != nil {
		return notFoundHint(err, id)
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", strings.ToUpper(state[:1])+state[1:], id)
	return nil
}

// openSQLCatalog opens the SQL catalog. Management commands only work on
// the SQL source; the REST and YAML sources are read-only here.
func openSQLCatalog(ctx context.Context) (cannedStore, func() error, error) {
	cfg := GetConfig()
	if cfg.Catalog.Source != config.CatalogSQL {
		return nil, nopClose, &PreflightError{
			Message:  fmt.Sprintf("catalog source %q is read-only", cfg.Catalog.Source),
			Hint:     "canned replies are managed in the SQL catalog",
			NextStep: "REPLYDESK_CATALOG_SOURCE=sql replydesk canned add ...",
		}
	}
	return openCannedRepository(ctx, cfg)
}

type cannedStore interface {
	Create(ctx context.Context, msg *canned.Message) error
	Import(ctx context.Context, msgs []canned.Message, replace bool) (int, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

func notFoundHint(err error, id string) error {
	if errors.Is(err, canned.ErrNotFound) {
		return &PreflightError{
			Message:  fmt.Sprintf("canned reply %q not found", id),
			NextStep: "replydesk canned list --all",
		}
	}
	return err
}

func preview(body string, width int) string {
	line := strings.Join(strings.Fields(body), " ")
	if len([]rune(line)) <= width {
		return line
	}
	return string([]rune(line)[:width-1]) + "…"
}
