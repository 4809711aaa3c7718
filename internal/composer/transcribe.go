package composer

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/replydesk/internal/logging"
	"github.com/tOgg1/replydesk/internal/speech"
)

const transcriptBuffer = 64

// transcriptSink is the target recognition events are delivered to. The
// engine callback reads it through an atomic cell so it always posts into
// the composer's current mount.
type transcriptSink struct {
	owner uint64
	epoch uint64
	ch    chan transcriptMsg
}

type transcriptMsg struct {
	owner uint64
	epoch uint64
	ev    speech.Event
}

type transcriptStoppedMsg struct {
	owner uint64
	err   error
}

// Transcription dictates into the buffer through a speech engine.
type Transcription struct {
	engine    speech.Engine
	supported bool
	recording bool
	sessions  int

	owner   uint64
	events  chan transcriptMsg
	cell    atomic.Pointer[transcriptSink]
	handler speech.Handler
	dropped atomic.Int64
}

func newTranscription(owner uint64, engine speech.Engine) *Transcription {
	if engine == nil {
		engine = speech.None{}
	}
	t := &Transcription{
		engine: engine,
		owner:  owner,
		events: make(chan transcriptMsg, transcriptBuffer),
	}
	t.handler = t.deliver
	return t
}

// probe checks engine availability; done once per mount.
func (t *Transcription) probe() {
	t.supported = t.engine.Available()
}

// Supported reports whether dictation can be used at all.
func (t *Transcription) Supported() bool { return t.supported }

// Recording reports whether the engine is listening.
func (t *Transcription) Recording() bool { return t.recording }

// bind points the callback at the current mount.
func (t *Transcription) bind(epoch uint64) {
	if cur := t.cell.Load(); cur != nil && cur.epoch == epoch {
		return
	}
	t.cell.Store(&transcriptSink{owner: t.owner, epoch: epoch, ch: t.events})
}

func (t *Transcription) deliver(ev speech.Event) {
	sink := t.cell.Load()
	if sink == nil {
		return
	}
	select {
	case sink.ch <- transcriptMsg{owner: sink.owner, epoch: sink.epoch, ev: ev}:
	default:
		n := t.dropped.Add(1)
		log := logging.Component("composer")
		log.Warn().
			Bool("final", ev.Segment.Final).
			Int("chars", len([]rune(ev.Segment.Text))).
			Int64("dropped", n).
			Msg("speech event dropped, composer is not keeping up")
	}
}

// Dropped counts recognition events lost to a full queue.
func (t *Transcription) Dropped() int64 { return t.dropped.Load() }

func (t *Transcription) wait() tea.Cmd {
	ch := t.events
	return func() tea.Msg { return <-ch }
}

func (t *Transcription) start() (tea.Cmd, error) {
	if !t.supported || t.recording {
		return nil, nil
	}
	if err := t.engine.Start(context.Background(), t.handler); err != nil {
		return nil, err
	}
	t.recording = true
	t.sessions++
	if t.sessions > 1 {
		// A waiter from the previous session is still draining.
		return nil, nil
	}
	return t.wait(), nil
}

func (t *Transcription) stop() tea.Cmd {
	if !t.recording {
		return nil
	}
	t.recording = false
	engine, owner := t.engine, t.owner
	return func() tea.Msg {
		return transcriptStoppedMsg{owner: owner, err: engine.Stop()}
	}
}

// toggleDictation starts or stops recording.
func (m *Model) toggleDictation() tea.Cmd {
	if !m.transcript.Supported() {
		return nil
	}
	if m.transcript.Recording() {
		return m.transcript.stop()
	}
	m.transcript.bind(m.epoch)
	cmd, err := m.transcript.start()
	if err != nil {
		log := m.log()
		log.Warn().Err(err).Msg("speech recognition failed to start")
		m.notice = noticeError("dictation unavailable")
		return nil
	}
	return cmd
}

func (m *Model) handleTranscript(msg transcriptMsg) tea.Cmd {
	t := m.transcript
	ev := msg.ev
	if ev.Done {
		t.sessions = max(t.sessions-1, 0)
		if t.sessions == 0 {
			t.recording = false
			return nil
		}
		return t.wait()
	}
	if ev.Err != nil {
		t.recording = false
		log := m.log()
		log.Warn().Err(ev.Err).Msg("speech recognition stopped")
		return t.wait()
	}
	if !ev.Segment.Final || msg.epoch != m.epoch || !m.mounted {
		return t.wait()
	}

	m.userAction = true
	m.buf.AppendText(ev.Segment.Text)
	m.userAction = false
	m.ensureCaretVisible()
	return tea.Batch(m.sync.Input(m.buf.HTML(), m.buf.Len()), t.wait())
}
