// Package cli provides conversation context commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/config"
	"github.com/tOgg1/replydesk/internal/support"
)

var (
	useShow   bool
	useClear  bool
	useFilter string
)

func init() {
	rootCmd.AddCommand(useCmd, contextCmd)

	useCmd.Flags().BoolVar(&useShow, "show", false, "show the current context")
	useCmd.Flags().BoolVar(&useClear, "clear", false, "clear the current context")
	useCmd.Flags().StringVar(&useFilter, "filter", "", "inbox status filter (open, pending, resolved)")
}

var useCmd = &cobra.Command{
	Use:   "use [conversation]",
	Short: "Set the current conversation",
	Long: `Set the conversation the TUI opens on start and that reply and
transform generate default to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := contextStore(GetConfig())
		if useClear {
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Context cleared.")
			return nil
		}

		ctx, err := store.Load()
		if err != nil {
			return err
		}
		if useShow || (len(args) == 0 && useFilter == "") {
			return printContext(cmd, ctx)
		}

		if useFilter != "" {
			if !support.ValidStatus(useFilter) {
				return fmt.Errorf("invalid filter %q: must be open, pending or resolved", useFilter)
			}
			ctx.SetFilter(useFilter)
		}
		if len(args) == 1 {
			client, closeSupport, err := openSupport(GetConfig())
			if err != nil {
				return err
			}
			defer func() { _ = closeSupport() }()

			conv, err := findConversation(commandContext(cmd), client, args[0])
			if err != nil {
				return err
			}
			ctx.SetConversation(conv.ID, conv.Subject)
		}
		if err := store.Save(ctx); err != nil {
			return err
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), ctx)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Context set: %s\n", ctx.String())
		PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "use", ConversationID: ctx.ConversationID})
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the current context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := contextStore(GetConfig()).Load()
		if err != nil {
			return err
		}
		return printContext(cmd, ctx)
	},
}

func printContext(cmd *cobra.Command, ctx *config.Context) error {
	if IsJSONOutput() {
		return WriteOutput(cmd.OutOrStdout(), ctx)
	}
	if ctx.IsEmpty() {
		fmt.Fprintln(cmd.OutOrStdout(), "No context set.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), ctx.String())
	return nil
}
