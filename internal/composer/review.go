package composer

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/replydesk/internal/ai"
)

// ReviewState is the smart-reply modal's phase.
type ReviewState int

const (
	ReviewClosed ReviewState = iota
	ReviewLoading
	ReviewReady
	ReviewRegenerating
)

// Version selects one of the two review panels.
type Version int

const (
	VersionImproved Version = iota
	VersionOriginal
)

// ReviewSession is the smart-reply comparison modal. Each open bumps the
// session number so responses for an earlier modal are ignored.
type ReviewSession struct {
	state    ReviewState
	session  uint64
	original string
	review   *ai.Review
	selected Version
	tone     int
	language int
	failed   bool
}

// Active reports whether the modal is open.
func (r *ReviewSession) Active() bool { return r.state != ReviewClosed }

// State is the modal's phase.
func (r *ReviewSession) State() ReviewState { return r.state }

// Selected is the panel that Commit would send.
func (r *ReviewSession) Selected() Version { return r.selected }

// Review is the current AI review, if any.
func (r *ReviewSession) Review() (ai.Review, bool) {
	if r.review == nil {
		return ai.Review{}, false
	}
	return *r.review, true
}

// Tone is the tone override for the next regeneration.
func (r *ReviewSession) Tone() string { return ai.Tones[r.tone] }

// Language is the target-language override for the next regeneration.
func (r *ReviewSession) Language() string {
	if r.language < 0 || r.language >= len(ai.Languages) {
		return ""
	}
	return ai.Languages[r.language].Code
}

// Open starts a session for original and returns its number.
func (r *ReviewSession) Open(original string) uint64 {
	r.session++
	*r = ReviewSession{session: r.session, state: ReviewLoading, original: original, language: -1}
	return r.session
}

// BeginRegenerate moves a ready session into regeneration.
func (r *ReviewSession) BeginRegenerate() (uint64, bool) {
	if r.state != ReviewReady {
		return 0, false
	}
	r.state = ReviewRegenerating
	return r.session, true
}

// Resolve applies a response for session. Responses for other sessions are
// ignored. A failed call yields a review whose improved text is the
// original.
func (r *ReviewSession) Resolve(session uint64, review ai.Review, err error) bool {
	if session != r.session || (r.state != ReviewLoading && r.state != ReviewRegenerating) {
		return false
	}
	first := r.state == ReviewLoading
	r.failed = err != nil
	if err != nil {
		review = ai.FallbackReview(r.original)
	}
	if strings.TrimSpace(review.OriginalText) == "" {
		review.OriginalText = r.original
	}
	if strings.TrimSpace(review.ImprovedText) == "" {
		review.ImprovedText = review.OriginalText
	}
	r.review = &review
	r.selected = VersionImproved
	r.state = ReviewReady
	if first && review.DetectedUserLanguage != "" {
		r.language = languageIndex(review.DetectedUserLanguage)
	}
	return true
}

func languageIndex(code string) int {
	for i, l := range ai.Languages {
		if strings.EqualFold(l.Code, code) {
			return i
		}
	}
	return -1
}

// Failed reports whether the last call fell back to the original text.
func (r *ReviewSession) Failed() bool { return r.failed }

// Select picks a panel. Ignored unless the session is ready.
func (r *ReviewSession) Select(v Version) {
	if r.state == ReviewReady {
		r.selected = v
	}
}

// Toggle switches between the two panels.
func (r *ReviewSession) Toggle() {
	if r.selected == VersionImproved {
		r.Select(VersionOriginal)
	} else {
		r.Select(VersionImproved)
	}
}

// CycleTone steps through the tone overrides.
func (r *ReviewSession) CycleTone(delta int) {
	if r.state != ReviewReady {
		return
	}
	n := len(ai.Tones)
	r.tone = ((r.tone+delta)%n + n) % n
}

// CycleLanguage steps through the target languages, including "keep".
func (r *ReviewSession) CycleLanguage(delta int) {
	if r.state != ReviewReady {
		return
	}
	n := len(ai.Languages) + 1
	idx := ((r.language+1+delta)%n + n) % n
	r.language = idx - 1
}

// Chosen is the text of the selected panel.
func (r *ReviewSession) Chosen() string {
	if r.review == nil {
		return r.original
	}
	if r.selected == VersionOriginal {
		return r.review.OriginalText
	}
	return r.review.ImprovedText
}

// Commit closes the session and returns the chosen text.
func (r *ReviewSession) Commit() (string, bool) {
	if r.state != ReviewReady {
		return "", false
	}
	text := r.Chosen()
	r.Cancel()
	return text, true
}

// Cancel closes the session and drops the review.
func (r *ReviewSession) Cancel() {
	session := r.session
	*r = ReviewSession{session: session + 1}
}

// openReview flushes pending input and asks for a smart reply on the
// current text.
func (m *Model) openReview() tea.Cmd {
	if m.review.Active() || !m.pipeline.Enabled(SmartReply, m.buf.Empty()) {
		return nil
	}
	m.sync.Flush()
	m.closeMenu()
	original := m.buf.Text()
	session := m.review.Open(original)
	req, cmd, ok := m.pipeline.Start(SmartReply, original, TransformParams{
		Session:         session,
		ConversationID:  m.conv.ID,
		UserLastMessage: m.conv.UserLastMessage,
	}, m.epoch)
	if !ok {
		m.review.Cancel()
		return nil
	}
	log := m.log()
	log.Debug().Uint64("request", req.ID).Uint64("session", session).Msg("smart reply requested")
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m *Model) regenerateReview() tea.Cmd {
	if m.pipeline.Running(SmartReply) {
		return nil
	}
	session, ok := m.review.BeginRegenerate()
	if !ok {
		return nil
	}
	_, cmd, ok := m.pipeline.Start(SmartReply, m.review.original, TransformParams{
		Session:         session,
		Tone:            m.review.Tone(),
		Language:        m.review.Language(),
		ConversationID:  m.conv.ID,
		UserLastMessage: m.conv.UserLastMessage,
	}, m.epoch)
	if !ok {
		m.review.state = ReviewReady
		return nil
	}
	return tea.Batch(cmd, m.spinner.Tick)
}

// commitReview writes the chosen version into the buffer and sends exactly
// that text.
func (m *Model) commitReview() tea.Cmd {
	text, ok := m.review.Commit()
	if !ok {
		return nil
	}
	m.userAction = true
	m.buf.ReplaceAllUndoable(text)
	m.userAction = false
	m.sync.Propagate(m.buf.HTML(), m.buf.Len())
	m.ensureCaretVisible()
	if m.host.OnSend == nil {
		return nil
	}
	return m.host.OnSend(text)
}

func (m *Model) handleReviewKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.review.Cancel()
		return nil
	case "tab", "left", "right", "h", "l":
		m.review.Toggle()
	case "1":
		m.review.Select(VersionOriginal)
	case "2":
		m.review.Select(VersionImproved)
	case "t":
		m.review.CycleTone(1)
	case "T":
		m.review.CycleTone(-1)
	case "g":
		m.review.CycleLanguage(1)
	case "G":
		m.review.CycleLanguage(-1)
	case "r":
		return m.regenerateReview()
	case "enter", "ctrl+s":
		return m.commitReview()
	}
	return nil
}
