package composer

import (
	tea "github.com/charmbracelet/bubbletea"
)

// SyncController mirrors the buffer into the host's external value. Input is
// propagated after a quiet period, and while the user is editing, inbound
// values are not allowed to overwrite the buffer.
type SyncController struct {
	timer   debouncer
	pending *string
	editing bool
	emit    func(string)

	// Captured synchronously on every input for control gating.
	snapshot string
	plainLen int
}

func newSyncController(timer debouncer, emit func(string)) *SyncController {
	return &SyncController{timer: timer, emit: emit}
}

// Input records the buffer state after a raw input event and (re)schedules
// propagation, cancelling any earlier pending propagation.
func (s *SyncController) Input(value string, plainLen int) tea.Cmd {
	s.snapshot = value
	s.plainLen = plainLen
	v := value
	s.pending = &v
	s.editing = true
	return s.timer.schedule()
}

// Expire handles a propagation tick. Stale ticks are ignored.
func (s *SyncController) Expire(msg timerMsg) bool {
	if !s.timer.expire(msg) {
		return false
	}
	s.emitPending()
	s.editing = false
	return true
}

// Flush synchronously emits the pending payload, if any, and cancels the
// timer. Flushing with nothing pending emits nothing.
func (s *SyncController) Flush() bool {
	s.timer.cancel()
	s.editing = false
	return s.emitPending()
}

// Propagate emits value immediately, superseding anything pending.
func (s *SyncController) Propagate(value string, plainLen int) {
	s.snapshot = value
	s.plainLen = plainLen
	s.timer.cancel()
	s.pending = nil
	s.editing = false
	if s.emit != nil {
		s.emit(value)
	}
}

// Reset drops pending state without emitting, and records value as the
// current snapshot.
func (s *SyncController) Reset(value string, plainLen int) {
	s.timer.cancel()
	s.pending = nil
	s.editing = false
	s.snapshot = value
	s.plainLen = plainLen
}

func (s *SyncController) emitPending() bool {
	if s.pending == nil {
		return false
	}
	v := *s.pending
	s.pending = nil
	if s.emit != nil {
		s.emit(v)
	}
	return true
}

// IsUserEditing reports whether the buffer is the source of truth.
func (s *SyncController) IsUserEditing() bool { return s.editing }

// Pending reports whether a propagation is scheduled.
func (s *SyncController) Pending() bool { return s.pending != nil }

// Snapshot is the serialized content captured at the last input.
func (s *SyncController) Snapshot() string { return s.snapshot }

// PlainLen is the plain-text length captured at the last input.
func (s *SyncController) PlainLen() int { return s.plainLen }
