// Package cli provides export commands for replydesk data.
package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/canned"
	"github.com/tOgg1/replydesk/internal/config"
	"github.com/tOgg1/replydesk/internal/support"
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportStatusCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export replydesk data",
	Long:  "Export replydesk state for automation or reporting.",
}

var exportStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Export full status",
	Long:  "Export full status as JSON: inbox counts, catalog size, backends and the saved context.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := buildExportStatus(commandContext(cmd), GetConfig())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, status)
		}

		writer := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
		fmt.Fprintf(writer, "Conversations:\t%d\n", status.Conversations)
		for _, s := range []string{support.StatusOpen, support.StatusPending, support.StatusResolved} {
			fmt.Fprintf(writer, "  %s:\t%d\n", s, status.ByStatus[s])
		}
		fmt.Fprintf(writer, "Canned replies:\t%d active / %d total\n", status.CannedActive, status.CannedTotal)
		if status.CatalogError != "" {
			fmt.Fprintf(writer, "Catalog error:\t%s\n", status.CatalogError)
		}
		fmt.Fprintf(writer, "AI transport:\t%s\n", status.AITransport)
		fmt.Fprintf(writer, "Context:\t%s\n", status.Context.String())
		if err := writer.Flush(); err != nil {
			return err
		}

		fmt.Fprintln(out, "Use --json for full export output.")
		return nil
	},
}

// ExportStatus is the payload returned by `replydesk export status`.
type ExportStatus struct {
	Conversations int             `json:"conversations"`
	ByStatus      map[string]int  `json:"by_status"`
	CannedTotal   int             `json:"canned_total"`
	CannedActive  int             `json:"canned_active"`
	CatalogSource string          `json:"catalog_source"`
	CatalogError  string          `json:"catalog_error,omitempty"`
	AITransport   string          `json:"ai_transport"`
	Context       *config.Context `json:"context"`
}

func buildExportStatus(ctx context.Context, cfg *config.Config) (*ExportStatus, error) {
	client, closeSupport, err := openSupport(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeSupport() }()

	convs, err := client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	status := &ExportStatus{
		Conversations: len(convs),
		ByStatus:      make(map[string]int, 3),
		CatalogSource: cfg.Catalog.Source,
		AITransport:   cfg.AI.Transport,
	}
	for _, c := range convs {
		status.ByStatus[c.Status]++
	}

	// A broken catalog is reported, not fatal.
	if src, closeSrc, err := openCatalogSource(ctx, cfg); err != nil {
		status.CatalogError = err.Error()
	} else {
		items, err := src.List(ctx, canned.ListOptions{PerPage: cfg.Catalog.PerPage})
		_ = closeSrc()
		if err != nil {
			status.CatalogError = err.Error()
		}
		status.CannedTotal = len(items)
		for _, item := range items {
			if item.Active {
				status.CannedActive++
			}
		}
	}

	cc, err := contextStore(cfg).Load()
	if err != nil {
		return nil, err
	}
	status.Context = cc
	return status, nil
}
