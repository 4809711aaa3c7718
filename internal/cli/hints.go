// Package cli provides actionable next-step hints for CLI commands.
package cli

import (
	"fmt"
	"io"
)

// HintContext provides context for generating relevant next steps.
type HintContext struct {
	// Action is the command that was executed (e.g., "canned_add", "reply")
	Action string

	// ConversationID is the conversation involved (if any)
	ConversationID string

	// Shortcut is the canned-reply shortcut (if any)
	Shortcut string
}

// PrintNextSteps prints contextual next steps after a successful command.
// Does nothing if JSON output is enabled.
func PrintNextSteps(out io.Writer, ctx HintContext) {
	if IsJSONOutput() {
		return
	}

	hints := generateHints(ctx)
	if len(hints) == 0 {
		return
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	for _, hint := range hints {
		fmt.Fprintf(out, "  %s\n", hint)
	}
}

func generateHints(ctx HintContext) []string {
	switch ctx.Action {
	case "canned_add":
		return hintsForCannedAdd(ctx)
	case "use":
		return hintsForUse(ctx)
	case "reply":
		return hintsForReply(ctx)
	default:
		return nil
	}
}

func hintsForCannedAdd(ctx HintContext) []string {
	hints := make([]string, 0, 2)
	if ctx.Shortcut != "" {
		hints = append(hints, fmt.Sprintf("type /%s in the composer           # Insert it", ctx.Shortcut))
	}
	return append(hints, "replydesk canned list                # List canned replies")
}

func hintsForUse(ctx HintContext) []string {
	if ctx.ConversationID == "" {
		return nil
	}
	return []string{
		"replydesk                            # Open it in the TUI",
		"replydesk reply \"your reply\"         # Reply from the shell",
	}
}

func hintsForReply(ctx HintContext) []string {
	if ctx.ConversationID == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("replydesk status %s resolved   # Close it", ctx.ConversationID),
		"replydesk conversations              # Back to the inbox",
	}
}
