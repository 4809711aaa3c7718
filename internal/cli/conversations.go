// Package cli provides inbox commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/replydesk/internal/markup"
	"github.com/tOgg1/replydesk/internal/support"
)

var (
	convStatus   string
	replyConvID  string
	replyHTML    bool
	replyResolve bool
)

func init() {
	rootCmd.AddCommand(conversationsCmd, showCmd, replyCmd, statusCmd)

	conversationsCmd.Flags().StringVar(&convStatus, "status", "", "only conversations with this status")
	replyCmd.Flags().StringVarP(&replyConvID, "conversation", "c", "", "conversation id (default: current context)")
	replyCmd.Flags().BoolVar(&replyHTML, "html", false, "the reply is already markup")
	replyCmd.Flags().BoolVar(&replyResolve, "resolve", false, "mark the conversation resolved after sending")
}

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"inbox", "ls"},
	Short:   "List conversations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if convStatus != "" && !support.ValidStatus(convStatus) {
			return fmt.Errorf("invalid status %q: must be open, pending or resolved", convStatus)
		}
		client, closeSupport, err := openSupport(GetConfig())
		if err != nil {
			return err
		}
		defer func() { _ = closeSupport() }()

		convs, err := client.List(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}
		if convStatus != "" {
			filtered := convs[:0]
			for _, c := range convs {
				if c.Status == convStatus {
					filtered = append(filtered, c)
				}
			}
			convs = filtered
		}

		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, convs)
		}
		if len(convs) == 0 {
			fmt.Fprintln(out, "No conversations.")
			return nil
		}
		rows := make([][]string, 0, len(convs))
		for _, c := range convs {
			rows = append(rows, []string{c.ID, c.Status, c.Customer, c.Subject, preview(markup.PlainText(c.Preview()), 40)})
		}
		return writeTable(out, []string{"ID", "STATUS", "CUSTOMER", "SUBJECT", "LAST MESSAGE"}, rows)
	},
}

var showCmd = &cobra.Command{
	Use:   "show [conversation]",
	Short: "Print a conversation thread",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := conversationArg(args, "")
		if err != nil {
			return err
		}
		client, closeSupport, err := openSupport(GetConfig())
		if err != nil {
			return err
		}
		defer func() { _ = closeSupport() }()

		conv, err := findConversation(commandContext(cmd), client, id)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if IsJSONOutput() {
			return WriteOutput(out, conv)
		}
		fmt.Fprintf(out, "%s  [%s]  %s\n", conv.Subject, conv.Status, conv.Customer)
		for _, m := range conv.Messages {
			fmt.Fprintf(out, "\n%s  %s\n", m.Author, m.CreatedAt.Local().Format("2006-01-02 15:04"))
			for _, line := range strings.Split(markup.PlainText(m.Body), "\n") {
				fmt.Fprintf(out, "  %s\n", line)
			}
		}
		return nil
	},
}

var replyCmd = &cobra.Command{
	Use:   "reply [text...]",
	Short: "Send a reply",
	Long: `Send a reply to a conversation. The text is taken from the arguments,
or from stdin when none are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := conversationArg(nil, replyConvID)
		if err != nil {
			return err
		}
		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		body := markup.FromText(text).HTML()
		if replyHTML {
			body = markup.Parse(text).HTML()
		}

		client, closeSupport, err := openSupport(GetConfig())
		if err != nil {
			return err
		}
		defer func() { _ = closeSupport() }()

		ctx := commandContext(cmd)
		conv, err := findConversation(ctx, client, id)
		if err != nil {
			return err
		}
		id = conv.ID
		msg, err := client.SendReply(ctx, id, body)
		if err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
		if replyResolve {
			if err := client.SetStatus(ctx, id, support.StatusResolved); err != nil {
				return fmt.Errorf("reply sent but resolve failed: %w", err)
			}
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), msg)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent reply %s to %s\n", msg.ID, id)
		if !replyResolve {
			PrintNextSteps(cmd.OutOrStdout(), HintContext{Action: "reply", ConversationID: id})
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <conversation> <open|pending|resolved>",
	Short: "Change a conversation's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := args[1]
		if !support.ValidStatus(status) {
			return fmt.Errorf("invalid status %q: must be open, pending or resolved", status)
		}
		client, closeSupport, err := openSupport(GetConfig())
		if err != nil {
			return err
		}
		defer func() { _ = closeSupport() }()

		ctx := commandContext(cmd)
		conv, err := findConversation(ctx, client, args[0])
		if err != nil {
			return err
		}
		id := conv.ID
		if err := client.SetStatus(ctx, id, status); err != nil {
			return fmt.Errorf("failed to set status: %w", err)
		}
		if IsJSONOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]string{"id": id, "status": status})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %s %s\n", id, status)
		return nil
	},
}

// conversationArg picks the conversation from args, the flag value or the
// saved context, in that order.
func conversationArg(args []string, flagValue string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if flagValue != "" {
		return flagValue, nil
	}
	ctx, err := contextStore(GetConfig()).Load()
	if err != nil {
		return "", err
	}
	if !ctx.HasConversation() {
		return "", &PreflightError{
			Message:  "no conversation selected",
			Hint:     "pass a conversation id or set the context",
			NextStep: "replydesk use <conversation>",
		}
	}
	return ctx.ConversationID, nil
}
