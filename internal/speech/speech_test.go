package speech

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		in   string
		want Segment
		ok   bool
	}{
		{in: `{"text":"hello there","final":true}`, want: Segment{Text: "hello there", Final: true}, ok: true},
		{in: `{"text":"hel","is_final":false}`, want: Segment{Text: "hel"}, ok: true},
		{in: "partial: hel\r", want: Segment{Text: "hel"}, ok: true},
		{in: "FINAL: hello", want: Segment{Text: "hello", Final: true}, ok: true},
		{in: "plain words", want: Segment{Text: "plain words", Final: true}, ok: true},
		{in: "   ", ok: false},
		{in: "final:   ", ok: false},
		{in: `{"text":""}`, ok: false},
	}
	for _, tc := range cases {
		got, ok := ParseLine(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		if tc.ok {
			require.Equal(t, tc.want, got, tc.in)
		}
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
	done   chan struct{}
}

func newRecorder() *recorder { return &recorder{done: make(chan struct{})} }

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if ev.Done {
		close(r.done)
	}
}

func (r *recorder) wait(t *testing.T) []Event {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(5 * time.Second):
		t.Fatal("recognizer did not finish")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandEngineStreamsSegments(t *testing.T) {
	defer goleak.VerifyNone(t)
	requireShell(t)

	e := NewCommandEngine("sh", "-c", "echo 'partial: hel'; echo 'final: hello'; echo '{\"text\":\"world\",\"final\":true}'")
	require.True(t, e.Available())

	rec := newRecorder()
	require.NoError(t, e.Start(context.Background(), rec.handle))
	events := rec.wait(t)

	var finals []string
	for _, ev := range events {
		require.NoError(t, ev.Err)
		if ev.Segment.Final {
			finals = append(finals, ev.Segment.Text)
		}
	}
	require.Equal(t, []string{"hello", "world"}, finals)
	require.True(t, events[len(events)-1].Done)
	require.NoError(t, e.Stop())
}

func TestCommandEngineStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	requireShell(t)

	e := NewCommandEngine("sh", "-c", "echo 'final: ready'; exec sleep 30")
	rec := newRecorder()
	require.NoError(t, e.Start(context.Background(), rec.handle))
	require.ErrorIs(t, e.Start(context.Background(), rec.handle), ErrRunning)

	require.NoError(t, e.Stop())
	events := rec.wait(t)
	for _, ev := range events {
		require.NoError(t, ev.Err, "a requested stop is not an error")
	}
}

func TestCommandEngineReportsCrash(t *testing.T) {
	defer goleak.VerifyNone(t)
	requireShell(t)

	e := NewCommandEngine("sh", "-c", "exit 3")
	rec := newRecorder()
	require.NoError(t, e.Start(context.Background(), rec.handle))
	events := rec.wait(t)
	require.Len(t, events, 2)
	require.Error(t, events[0].Err)
	require.True(t, events[1].Done)
}

func TestUnavailableEngines(t *testing.T) {
	require.False(t, NewCommandEngine("").Available())
	require.False(t, NewCommandEngine("definitely-not-a-recognizer-binary").Available())
	err := NewCommandEngine("definitely-not-a-recognizer-binary").Start(context.Background(), func(Event) {})
	require.ErrorIs(t, err, ErrUnsupported)

	var none None
	require.False(t, none.Available())
	require.ErrorIs(t, none.Start(context.Background(), nil), ErrUnsupported)
	require.NoError(t, none.Stop())
}
