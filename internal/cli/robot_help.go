package cli

import (
	"errors"
	"fmt"
	"io"
)

var errRobotHelpShown = errors.New("robot help shown")

func printRobotHelp(w io.Writer) {
	if w == nil {
		return
	}

	// keep: concise; copy-pasteable commands; stable section names
	fmt.Fprint(w, `replydesk Robot Help

Purpose
- terminal client for support agents: inbox + rich-text reply composer
- every command below is scriptable; add --json for machine output

Inbox
- replydesk conversations --status open
- replydesk show <conversation>
- replydesk use <conversation>            (sets the default conversation)
- replydesk reply "text" [--resolve]      (stdin when no text is given)
- replydesk status <conversation> resolved
- replydesk watch --customer-only         (JSONL stream of inbox changes)

Reply assist
- replydesk transform translate --lang es "text"
- replydesk transform revise --format formal "text"
- replydesk transform generate [draft]
- replydesk transform smart-reply --tone friendly "text"
- replydesk transform formats | languages

Canned replies (slash menu)
- replydesk canned list [--all] [-q query]
- replydesk canned add --title T --shortcut s --body "..."
- replydesk canned import file.yaml [--replace] | export

Config
- replydesk config show | path | init
- env overrides: REPLYDESK_<SECTION>_<KEY>, e.g. REPLYDESK_AI_TRANSPORT=grpc
- replydesk serve                         (gRPC reply-assist server)

Exit codes
- 0 ok, 1 error, 2 preflight (missing input, config or selection)
`)
}
