package composer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/replydesk/internal/ai"
	"github.com/tOgg1/replydesk/internal/canned"
)

type staticSource []canned.Message

func (s staticSource) List(context.Context, canned.ListOptions) ([]canned.Message, error) {
	return s, nil
}

type failingSource struct{}

func (failingSource) List(context.Context, canned.ListOptions) ([]canned.Message, error) {
	return nil, errors.New("catalog down")
}

type fakeAI struct {
	translated string
	revised    string
	generated  string
	review     ai.Review
	formats    []ai.Format
	err        error

	lastLanguage string
	lastFormat   string
	lastGenerate ai.GenerateRequest
	lastReview   ai.SmartReplyRequest
	calls        int
}

func (f *fakeAI) Translate(_ context.Context, text, language string) (string, error) {
	f.calls++
	f.lastLanguage = language
	return f.translated, f.err
}

func (f *fakeAI) Revise(_ context.Context, text, formatID string) (string, error) {
	f.calls++
	f.lastFormat = formatID
	return f.revised, f.err
}

func (f *fakeAI) SmartReply(_ context.Context, req ai.SmartReplyRequest) (ai.Review, error) {
	f.calls++
	f.lastReview = req
	return f.review, f.err
}

func (f *fakeAI) Formats(context.Context) ([]ai.Format, error) {
	return f.formats, nil
}

func (f *fakeAI) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	f.calls++
	f.lastGenerate = req
	return f.generated, f.err
}

type hostRecorder struct {
	events  []string
	changes []string
	sent    []string
	fast    []string
}

func (h *hostRecorder) host() Host {
	return Host{
		OnChange: func(v string) {
			h.changes = append(h.changes, v)
			h.events = append(h.events, "change:"+v)
		},
		OnSend: func(v string) tea.Cmd {
			h.sent = append(h.sent, v)
			h.events = append(h.events, "send:"+v)
			return nil
		},
		OnFastReply: func(v string) tea.Cmd {
			h.fast = append(h.fast, v)
			h.events = append(h.events, "fast:"+v)
			return nil
		},
	}
}

type testSetup struct {
	svc     ai.Service
	items   []canned.Message
	opts    func(*Options)
	initial string
}

func newTestModel(t *testing.T, setup testSetup) (*Model, *hostRecorder) {
	t.Helper()
	h := &hostRecorder{}
	opts := DefaultOptions()
	if setup.svc != nil {
		opts.AI = setup.svc
	}
	opts.Catalog = staticSource(setup.items)
	if setup.opts != nil {
		setup.opts(&opts)
	}
	m := New(opts, h.host())
	m.SetSize(60, 6)
	feed(m, m.Mount(Conversation{ID: "c1", UserLastMessage: "hola, necesito ayuda"}, setup.initial))
	return m, h
}

// collect runs cmd and any batched commands, returning their messages.
// Commands that wait on channels must not be passed here.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// feed delivers the results of cmd that carry data, skipping timers and
// spinner frames. Follow-up commands are dropped.
func feed(m *Model, cmd tea.Cmd) {
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case transformResultMsg, resourcesMsg:
			m.Update(msg)
		}
	}
}

func runes(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func alt(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true}
}

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(runes(string(r)))
	}
}

func expireSync(m *Model) { m.Update(m.sync.timer.current()) }

func expireDetect(m *Model) { m.Update(m.detect.current()) }

func expireSettle(m *Model) { m.Update(m.settle.current()) }

func TestSyncDebounceEmitsOnlyLatestValue(t *testing.T) {
	m, h := newTestModel(t, testSetup{})

	m.Update(runes("a"))
	stale := m.sync.timer.current()
	typeText(m, "bc")
	require.True(t, m.Sync().IsUserEditing())
	require.Empty(t, h.changes)

	m.Update(stale)
	require.Empty(t, h.changes, "superseded tick must not emit")

	expireSync(m)
	require.Equal(t, []string{"abc"}, h.changes)
	require.False(t, m.Sync().IsUserEditing())
	require.False(t, m.Sync().Pending())

	expireSync(m)
	require.Len(t, h.changes, 1, "an expired tick fires once")
}

func TestSyncSnapshotTracksInput(t *testing.T) {
	m, _ := newTestModel(t, testSetup{})
	typeText(m, "héllo")
	require.Equal(t, 5, m.Sync().PlainLen())
	require.Equal(t, "héllo", m.Sync().Snapshot())
	require.Contains(t, m.View(), "5 chars")
}

func TestFlushIsIdempotent(t *testing.T) {
	m, h := newTestModel(t, testSetup{})
	typeText(m, "hola")
	tick := m.sync.timer.current()

	require.True(t, m.Flush())
	require.Equal(t, []string{"hola"}, h.changes)
	require.False(t, m.Sync().IsUserEditing())

	require.False(t, m.Flush(), "nothing new to emit")
	m.Update(tick)
	require.Equal(t, []string{"hola"}, h.changes, "the cancelled tick emits nothing")
}

func TestExternalValueIgnoredWhileEditing(t *testing.T) {
	m, h := newTestModel(t, testSetup{})

	typeText(m, "hi")
	require.False(t, m.SetExternalValue("from server"))
	require.Equal(t, "hi", m.Text())

	expireSync(m)
	require.Equal(t, []string{"hi"}, h.changes)
	require.False(t, m.SetExternalValue("hi"), "same content is not rewritten")
	require.True(t, m.SetExternalValue("<b>from</b> server"))
	require.Equal(t, "from server", m.Text())
	require.Equal(t, "<b>from</b> server", m.Value())
	require.Len(t, h.changes, 1, "inbound values are not echoed back")
}

func TestExternalValueIgnoredDuringFormatting(t *testing.T) {
	m, _ := newTestModel(t, testSetup{initial: "hello"})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlB})
	require.False(t, m.SetExternalValue("other"))

	expireSettle(m)
	require.True(t, m.SetExternalValue("other"))
}

func TestSendFlushesPendingValueFirst(t *testing.T) {
	m, h := newTestModel(t, testSetup{})
	typeText(m, "thanks")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, []string{"change:thanks", "send:thanks"}, h.events)
	require.False(t, m.Sync().IsUserEditing())

	expireSync(m)
	require.Len(t, h.changes, 1, "the cancelled tick emits nothing")
}

func TestSendWithNothingPendingDoesNotEmitChange(t *testing.T) {
	m, h := newTestModel(t, testSetup{initial: "ready"})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, []string{"send:ready"}, h.events)
}

func TestSendIgnoresBlankBuffer(t *testing.T) {
	m, h := newTestModel(t, testSetup{})
	typeText(m, "   ")
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Empty(t, h.sent)
}

func TestFastReply(t *testing.T) {
	m, h := newTestModel(t, testSetup{})
	typeText(m, "done")
	m.Update(alt('s'))
	require.Equal(t, []string{"change:done", "fast:done"}, h.events)
}

func TestUnmountDropsPendingValue(t *testing.T) {
	m, h := newTestModel(t, testSetup{})
	typeText(m, "draft")
	m.Unmount()
	expireSync(m)
	require.Empty(t, h.changes)
	require.False(t, m.Mounted())

	m.Update(runes("x"))
	require.Equal(t, "draft", m.Text(), "an unmounted composer ignores keys")
}

func TestSwitchConversationSeedsBuffer(t *testing.T) {
	m, _ := newTestModel(t, testSetup{initial: "first"})
	typeText(m, "!")
	feed(m, m.SwitchConversation(Conversation{ID: "c2"}, "second"))
	require.Equal(t, "second", m.Text())
	require.False(t, m.Sync().IsUserEditing())
	require.False(t, m.Buffer().CanUndo())
	require.Equal(t, 6, m.Buffer().Caret())
}

func TestMountLoadsCatalogAndFormats(t *testing.T) {
	svc := &fakeAI{formats: []ai.Format{{ID: "formal", Name: "Formal"}}}
	m, _ := newTestModel(t, testSetup{svc: svc, items: []canned.Message{{ID: "1", Title: "Refund", Body: "x", Active: true}}})
	require.Equal(t, 1, m.Catalog().Len())
	require.Equal(t, svc.formats, m.Formats())
}

func TestLoadResourcesKeepsPartialResults(t *testing.T) {
	svc := &fakeAI{formats: []ai.Format{{ID: "formal"}}}
	catalog, formats, err := LoadResources(context.Background(), failingSource{}, 10, svc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "catalog down")
	require.Zero(t, catalog.Len())
	require.Len(t, formats, 1)

	catalog, formats, err = LoadResources(context.Background(), nil, 10, ai.Unavailable{})
	require.ErrorIs(t, err, ai.ErrUnavailable)
	require.Zero(t, catalog.Len())
	require.Empty(t, formats)
}

func TestResourcesFromPreviousMountAreDropped(t *testing.T) {
	m, _ := newTestModel(t, testSetup{})
	stale := m.loadResources()
	feed(m, m.SwitchConversation(Conversation{ID: "c2"}, ""))

	msgs := collect(stale)
	require.Len(t, msgs, 1)
	res := msgs[0].(resourcesMsg)
	res.catalog = canned.NewCatalog([]canned.Message{{ID: "stale"}})
	m.Update(res)
	require.Zero(t, m.Catalog().Len())
}

func TestMessagesForOtherComposersAreIgnored(t *testing.T) {
	a, ha := newTestModel(t, testSetup{})
	b, _ := newTestModel(t, testSetup{})
	typeText(a, "one")
	typeText(b, "two")

	b.Update(a.sync.timer.current())
	require.Empty(t, ha.changes)
	require.True(t, b.Sync().IsUserEditing())
}

func TestUndoRedoPropagate(t *testing.T) {
	m, h := newTestModel(t, testSetup{})
	typeText(m, "abc")
	expireSync(m)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlZ})
	require.Equal(t, "", m.Text())
	expireSync(m)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "abc", m.Text())
	expireSync(m)
	require.Equal(t, []string{"abc", "", "abc"}, h.changes)
}

func TestEditingKeys(t *testing.T) {
	m, _ := newTestModel(t, testSetup{})
	typeText(m, "helo")
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m.Update(runes("l"))
	require.Equal(t, "hello", m.Text())

	m.Update(tea.KeyMsg{Type: tea.KeyEnd})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	typeText(m, "bye")
	require.Equal(t, "hello\nbye", m.Text())

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 3, m.Buffer().Caret())
	m.Update(tea.KeyMsg{Type: tea.KeyHome})
	m.Update(tea.KeyMsg{Type: tea.KeyDelete})
	require.Equal(t, "ello\nbye", m.Text())

	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	require.Equal(t, "ellobye", m.Text())

	m.Update(alt('x'))
	require.Equal(t, "ellobye", m.Text(), "unbound alt keys insert nothing")
}

func TestPasteInsertsWholeText(t *testing.T) {
	m, _ := newTestModel(t, testSetup{})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("line one\nline two"), Paste: true})
	require.Equal(t, "line one\nline two", m.Text())
}

func TestViewShowsPlaceholderWhenBlurredAndEmpty(t *testing.T) {
	m, _ := newTestModel(t, testSetup{})
	m.Blur()
	require.Contains(t, m.View(), "type / for canned replies")
}

func TestCaretStaysVisibleWhileTyping(t *testing.T) {
	m, _ := newTestModel(t, testSetup{})
	m.SetSize(20, 3)
	for i := range 6 {
		typeText(m, fmt.Sprintf("line %d", i))
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	require.Equal(t, 5, m.scroll, "last two rows are visible")
	require.Contains(t, m.View(), "line 5")
}
