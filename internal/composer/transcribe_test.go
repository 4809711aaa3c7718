package composer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/replydesk/internal/logging"
	"github.com/tOgg1/replydesk/internal/speech"
)

type fakeEngine struct {
	available bool
	startErr  error
	handler   speech.Handler
	started   int
	stopped   int
}

func (f *fakeEngine) Available() bool { return f.available }

func (f *fakeEngine) Start(_ context.Context, h speech.Handler) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.handler = h
	return nil
}

func (f *fakeEngine) Stop() error {
	f.stopped++
	return nil
}

func withEngine(e speech.Engine) func(*Options) {
	return func(o *Options) { o.Speech = e }
}

// next pulls one recognition message the way the runtime would.
func next(t *testing.T, cmd tea.Cmd) transcriptMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(transcriptMsg)
	require.True(t, ok)
	return msg
}

func TestDictationAppendsFinalSegments(t *testing.T) {
	eng := &fakeEngine{available: true}
	m, h := newTestModel(t, testSetup{initial: "Hi", opts: withEngine(eng)})
	require.True(t, m.Dictation().Supported())

	wait := m.Update(alt('m'))
	require.True(t, m.Dictation().Recording())
	require.Equal(t, 1, eng.started)

	eng.handler(speech.Event{Segment: speech.Segment{Text: "thanks for wait"}})
	wait = m.Update(next(t, wait))
	require.Equal(t, "Hi", m.Text(), "interim segments are not inserted")

	eng.handler(speech.Event{Segment: speech.Segment{Text: " thanks for waiting ", Final: true}})
	msg := next(t, wait)
	cmd := m.Update(msg)
	require.Equal(t, "Hi thanks for waiting", m.Text())
	require.Equal(t, m.Buffer().Len(), m.Buffer().Caret())
	require.NotNil(t, cmd)

	expireSync(m)
	require.Equal(t, []string{"Hi thanks for waiting"}, h.changes)
}

func TestDictationStopAndDone(t *testing.T) {
	eng := &fakeEngine{available: true}
	m, _ := newTestModel(t, testSetup{opts: withEngine(eng)})

	wait := m.Update(alt('m'))
	stop := m.Update(alt('m'))
	require.False(t, m.Dictation().Recording())
	msgs := collect(stop)
	require.Len(t, msgs, 1)
	require.NoError(t, msgs[0].(transcriptStoppedMsg).err)
	require.Equal(t, 1, eng.stopped)

	eng.handler(speech.Event{Done: true})
	require.Nil(t, m.Update(next(t, wait)), "the waiter ends with the session")
}

func TestDictationRestartBeforeDoneKeepsRecording(t *testing.T) {
	eng := &fakeEngine{available: true}
	m, _ := newTestModel(t, testSetup{opts: withEngine(eng)})
	wait := m.Update(alt('m'))
	old := eng.handler
	m.Update(alt('m'))
	require.Nil(t, m.Update(alt('m')), "the running waiter is reused")
	require.True(t, m.Dictation().Recording())

	old(speech.Event{Done: true})
	wait = m.Update(next(t, wait))
	require.True(t, m.Dictation().Recording(), "a late done from the first session does not stop the second")
	require.NotNil(t, wait)

	eng.handler(speech.Event{Segment: speech.Segment{Text: "hello", Final: true}})
	m.Update(next(t, wait))
	require.Equal(t, "hello", m.Text())
}

func TestDictationDropsSegmentsFromPreviousConversation(t *testing.T) {
	eng := &fakeEngine{available: true}
	m, _ := newTestModel(t, testSetup{opts: withEngine(eng)})
	wait := m.Update(alt('m'))

	eng.handler(speech.Event{Segment: speech.Segment{Text: "for the old ticket", Final: true}})
	feed(m, m.SwitchConversation(Conversation{ID: "c2"}, "fresh"))

	m.Update(next(t, wait))
	require.Equal(t, "fresh", m.Text())
}

func TestDictationErrorStopsRecording(t *testing.T) {
	eng := &fakeEngine{available: true}
	m, _ := newTestModel(t, testSetup{opts: withEngine(eng)})
	wait := m.Update(alt('m'))

	eng.handler(speech.Event{Err: errors.New("microphone unplugged")})
	m.Update(next(t, wait))
	require.False(t, m.Dictation().Recording())
}

func TestDictationUnsupported(t *testing.T) {
	m, _ := newTestModel(t, testSetup{})
	require.False(t, m.Dictation().Supported())
	require.Nil(t, m.Update(alt('m')))
	require.False(t, m.Dictation().Recording())

	eng := &fakeEngine{available: true, startErr: errors.New("no device")}
	m, _ = newTestModel(t, testSetup{opts: withEngine(eng)})
	require.Nil(t, m.Update(alt('m')))
	require.False(t, m.Dictation().Recording())
	require.Contains(t, m.View(), "dictation unavailable")
}

func TestDictationLogsDroppedEvents(t *testing.T) {
	var buf bytes.Buffer
	prev, prevLevel := logging.Logger, zerolog.GlobalLevel()
	logging.Init(logging.Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() {
		logging.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	tr := newTranscription(7, nil)
	tr.bind(1)
	for range transcriptBuffer {
		tr.deliver(speech.Event{Segment: speech.Segment{Text: "hola", Final: true}})
	}
	require.Zero(t, tr.Dropped())
	require.Empty(t, buf.String())

	tr.deliver(speech.Event{Segment: speech.Segment{Text: "adiós", Final: true}})
	require.Equal(t, int64(1), tr.Dropped())
	require.Contains(t, buf.String(), "speech event dropped")
	require.Contains(t, buf.String(), `"final":true`)
	require.Contains(t, buf.String(), `"chars":5`)
}
