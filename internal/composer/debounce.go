package composer

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type timerKind int

const (
	timerSync timerKind = iota
	timerDetect
	timerSettle
)

// timerMsg is delivered when a debouncer's quiet period elapses. Only the
// message carrying the debouncer's current sequence number acts; anything
// older was cancelled by a later schedule.
type timerMsg struct {
	owner uint64
	kind  timerKind
	seq   uint64
}

// debouncer is a cancellable delayed task driven by tea.Tick.
type debouncer struct {
	owner uint64
	kind  timerKind
	delay time.Duration
	seq   uint64
	armed bool
}

func newDebouncer(owner uint64, kind timerKind, delay time.Duration) debouncer {
	return debouncer{owner: owner, kind: kind, delay: delay}
}

// schedule cancels any pending expiry and arms a new one.
func (d *debouncer) schedule() tea.Cmd {
	d.seq++
	d.armed = true
	msg := d.current()
	return tea.Tick(d.delay, func(time.Time) tea.Msg { return msg })
}

func (d *debouncer) current() timerMsg {
	return timerMsg{owner: d.owner, kind: d.kind, seq: d.seq}
}

// cancel drops the pending expiry, if any.
func (d *debouncer) cancel() {
	d.seq++
	d.armed = false
}

// expire reports whether msg is the live expiry for this debouncer and
// disarms it.
func (d *debouncer) expire(msg timerMsg) bool {
	if !d.armed || msg.owner != d.owner || msg.kind != d.kind || msg.seq != d.seq {
		return false
	}
	d.armed = false
	return true
}

func (d *debouncer) pending() bool { return d.armed }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
