package composer

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/replydesk/internal/ai"
)

// TransformKind names an AI operation on the buffer.
type TransformKind int

const (
	Translate TransformKind = iota
	Revise
	Generate
	SmartReply

	transformKinds
)

func (k TransformKind) String() string {
	switch k {
	case Translate:
		return "translate"
	case Revise:
		return "revise"
	case Generate:
		return "generate"
	case SmartReply:
		return "smart reply"
	}
	return "unknown"
}

// TransformParams carries the per-kind arguments of a request.
type TransformParams struct {
	Language        string
	FormatID        string
	Tone            string
	ConversationID  string
	UserLastMessage string
	Session         uint64
}

// TransformRequest is one in-flight AI call. ID is monotonic per kind and
// Epoch is the conversation mount it was issued under.
type TransformRequest struct {
	Kind   TransformKind
	Input  string
	Params TransformParams
	ID     uint64
	Epoch  uint64
}

type transformResultMsg struct {
	owner  uint64
	req    TransformRequest
	text   string
	review ai.Review
	err    error
}

// Pipeline runs AI transforms off the event loop. Each kind runs at most
// once at a time; kinds are independent of each other.
type Pipeline struct {
	owner   uint64
	svc     ai.Service
	timeout time.Duration

	running [transformKinds]bool
	issued  [transformKinds]uint64
}

func newPipeline(owner uint64, svc ai.Service, timeout time.Duration) *Pipeline {
	if svc == nil {
		svc = ai.Unavailable{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{owner: owner, svc: svc, timeout: timeout}
}

// Running reports whether a request of kind is in flight.
func (p *Pipeline) Running(kind TransformKind) bool {
	return p.running[kind]
}

// Busy reports whether any request is in flight.
func (p *Pipeline) Busy() bool {
	for _, r := range p.running {
		if r {
			return true
		}
	}
	return false
}

// Enabled reports whether kind may start given the buffer's emptiness.
// Generate needs no input.
func (p *Pipeline) Enabled(kind TransformKind, bufferEmpty bool) bool {
	if p.running[kind] {
		return false
	}
	return kind == Generate || !bufferEmpty
}

// Start issues a request. It is a no-op returning false when the kind is
// already running, or when input is required and blank.
func (p *Pipeline) Start(kind TransformKind, input string, params TransformParams, epoch uint64) (TransformRequest, tea.Cmd, bool) {
	if !p.Enabled(kind, strings.TrimSpace(input) == "") {
		return TransformRequest{}, nil, false
	}
	p.issued[kind]++
	p.running[kind] = true
	req := TransformRequest{Kind: kind, Input: input, Params: params, ID: p.issued[kind], Epoch: epoch}
	return req, p.run(req), true
}

// finish clears the running flag for msg's kind and reports whether the
// result is still relevant: the latest request of its kind, issued in the
// current epoch.
func (p *Pipeline) finish(msg transformResultMsg, epoch uint64) bool {
	if msg.req.ID != p.issued[msg.req.Kind] {
		return false
	}
	p.running[msg.req.Kind] = false
	return msg.req.Epoch == epoch
}

// reset forgets in-flight requests. Their results will be discarded.
func (p *Pipeline) reset() {
	for k := range p.running {
		p.running[k] = false
		p.issued[k]++
	}
}

func (p *Pipeline) run(req TransformRequest) tea.Cmd {
	svc, timeout, owner := p.svc, p.timeout, p.owner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		res := transformResultMsg{owner: owner, req: req}
		switch req.Kind {
		case Translate:
			res.text, res.err = svc.Translate(ctx, req.Input, req.Params.Language)
		case Revise:
			res.text, res.err = svc.Revise(ctx, req.Input, req.Params.FormatID)
		case Generate:
			res.text, res.err = svc.Generate(ctx, ai.GenerateRequest{
				ConversationID:  req.Params.ConversationID,
				UserLastMessage: req.Params.UserLastMessage,
				Draft:           req.Input,
			})
		case SmartReply:
			res.review, res.err = svc.SmartReply(ctx, ai.SmartReplyRequest{
				AgentMessage:    req.Input,
				UserLastMessage: req.Params.UserLastMessage,
				Tone:            req.Params.Tone,
				TargetLanguage:  req.Params.Language,
			})
		default:
			res.err = errors.New("unknown transform")
		}
		return res
	}
}

// startTransform kicks off a buffer-replacing transform. The buffer's plain
// text is the input.
func (m *Model) startTransform(kind TransformKind, params TransformParams) tea.Cmd {
	params.ConversationID = m.conv.ID
	params.UserLastMessage = m.conv.UserLastMessage
	req, cmd, ok := m.pipeline.Start(kind, m.buf.Text(), params, m.epoch)
	if !ok {
		return nil
	}
	log := m.log()
	log.Debug().Str("kind", kind.String()).Uint64("request", req.ID).Msg("transform started")
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) handleTransformResult(msg transformResultMsg) tea.Cmd {
	if !m.pipeline.finish(msg, m.epoch) {
		log := m.log()
		log.Debug().Str("kind", msg.req.Kind.String()).Uint64("request", msg.req.ID).Msg("stale transform result dropped")
		return nil
	}
	if msg.req.Kind == SmartReply {
		m.review.Resolve(msg.req.Params.Session, msg.review, msg.err)
		if msg.err != nil {
			m.logTransformError(msg)
		}
		return nil
	}

	text := msg.text
	if msg.req.Kind == Generate && (msg.err != nil || strings.TrimSpace(text) == "") {
		if msg.err != nil {
			m.logTransformError(msg)
		}
		if m.opts.GenerateFallback == "" {
			return nil
		}
		text = m.opts.GenerateFallback
	} else if msg.err != nil {
		m.logTransformError(msg)
		m.notice = noticeError(msg.req.Kind.String() + " failed")
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	m.userAction = true
	m.buf.ReplaceAllUndoable(text)
	m.userAction = false
	m.ensureCaretVisible()
	m.notice = noticeInfo(msg.req.Kind.String() + " applied · ctrl+z to undo")
	return m.sync.Input(m.buf.HTML(), m.buf.Len())
}

func (m *Model) logTransformError(msg transformResultMsg) {
	log := m.log()
	log.Warn().Err(msg.err).Str("kind", msg.req.Kind.String()).Uint64("request", msg.req.ID).Msg("transform failed")
}
