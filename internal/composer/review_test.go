package composer

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/replydesk/internal/ai"
)

func smartReview() ai.Review {
	return ai.Review{
		OriginalText:          "we fix it tomorow",
		ImprovedText:          "Lo arreglaremos mañana.",
		DetectedUserLanguage:  "es",
		DetectedAgentLanguage: "en",
		WasTranslated:         true,
		Improvements:          []string{"Fixed spelling", "Translated to Spanish"},
	}
}

func TestSmartReplyReviewCommitSendsImproved(t *testing.T) {
	svc := &fakeAI{review: smartReview()}
	m, h := newTestModel(t, testSetup{svc: svc})
	typeText(m, "we fix it tomorow")

	cmd := m.Update(alt('a'))
	require.Equal(t, ReviewLoading, m.Review().State())
	require.Len(t, h.changes, 1, "opening the review flushes pending input")
	ov, ok := m.Overlay(100)
	require.True(t, ok)
	require.True(t, ov.Modal)
	require.Contains(t, ov.Content, "Improving your reply")

	feed(m, cmd)
	require.Equal(t, "we fix it tomorow", svc.lastReview.AgentMessage)
	require.Equal(t, "hola, necesito ayuda", svc.lastReview.UserLastMessage)
	require.Equal(t, ReviewReady, m.Review().State())
	require.Equal(t, VersionImproved, m.Review().Selected())
	require.Equal(t, "es", m.Review().Language())

	ov, _ = m.Overlay(100)
	require.Contains(t, ov.Content, "Fixed spelling")
	require.Contains(t, ov.Content, "Spanish")

	typeText(m, "x")
	require.Equal(t, "we fix it tomorow", m.Text(), "keys go to the review while it is open")

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.Review().Active())
	require.Equal(t, []string{"Lo arreglaremos mañana."}, h.sent)
	require.Equal(t, "Lo arreglaremos mañana.", m.Text())
	require.Equal(t, "Lo arreglaremos mañana.", h.changes[len(h.changes)-1])

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlZ})
	require.Equal(t, "we fix it tomorow", m.Text())
}

func TestSmartReplyReviewCommitOriginal(t *testing.T) {
	svc := &fakeAI{review: smartReview()}
	m, h := newTestModel(t, testSetup{svc: svc, initial: "we fix it tomorow"})
	feed(m, m.Update(alt('a')))

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, VersionOriginal, m.Review().Selected())
	m.Update(runes("2"))
	require.Equal(t, VersionImproved, m.Review().Selected())
	m.Update(runes("1"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []string{"we fix it tomorow"}, h.sent)
}

func TestSmartReplyFailureFallsBackToOriginal(t *testing.T) {
	svc := &fakeAI{err: errors.New("model overloaded")}
	m, h := newTestModel(t, testSetup{svc: svc, initial: "hello there"})
	feed(m, m.Update(alt('a')))

	r := m.Review()
	require.Equal(t, ReviewReady, r.State())
	require.True(t, r.Failed())
	review, ok := r.Review()
	require.True(t, ok)
	require.Equal(t, "hello there", review.OriginalText)
	require.Equal(t, "hello there", review.ImprovedText)
	require.Empty(t, r.Language())

	ov, _ := m.Overlay(100)
	require.Contains(t, ov.Content, "Smart reply is unavailable")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.Equal(t, []string{"hello there"}, h.sent)
}

func TestSmartReplyCancelIgnoresLateResponse(t *testing.T) {
	svc := &fakeAI{review: smartReview()}
	m, h := newTestModel(t, testSetup{svc: svc, initial: "we fix it tomorow"})
	cmd := m.Update(alt('a'))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.Review().Active())

	feed(m, cmd)
	require.False(t, m.Review().Active())
	require.Equal(t, "we fix it tomorow", m.Text())
	require.Empty(t, h.sent)
	require.True(t, m.Enabled(SmartReply))
}

func TestSmartReplyStaleSessionAfterReopen(t *testing.T) {
	first := ai.Review{ImprovedText: "first"}
	svc := &fakeAI{review: first}
	m, _ := newTestModel(t, testSetup{svc: svc, initial: "text"})

	stale := m.Update(alt('a'))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Nil(t, m.Update(alt('a')), "reopening waits for the in-flight request")

	feed(m, stale)
	require.False(t, m.Review().Active())

	svc.review = ai.Review{ImprovedText: "second"}
	feed(m, m.Update(alt('a')))
	require.Equal(t, "second", m.Review().Chosen())
}

func TestSmartReplyRegenerateWithOverrides(t *testing.T) {
	svc := &fakeAI{review: smartReview()}
	m, _ := newTestModel(t, testSetup{svc: svc, initial: "we fix it tomorow"})
	feed(m, m.Update(alt('a')))

	m.Update(runes("t"))
	require.Equal(t, "professional", m.Review().Tone())
	m.Update(runes("g"))
	require.Equal(t, "fr", m.Review().Language())
	m.Update(tea.KeyMsg{Type: tea.KeyTab})

	svc.review = ai.Review{OriginalText: "we fix it tomorow", ImprovedText: "Nous le réparerons demain.", DetectedUserLanguage: "es"}
	cmd := m.Update(runes("r"))
	require.Equal(t, ReviewRegenerating, m.Review().State())
	require.Nil(t, m.Update(tea.KeyMsg{Type: tea.KeyEnter}), "commit waits for regeneration")

	feed(m, cmd)
	require.Equal(t, "professional", svc.lastReview.Tone)
	require.Equal(t, "fr", svc.lastReview.TargetLanguage)
	require.Equal(t, ReviewReady, m.Review().State())
	require.Equal(t, VersionImproved, m.Review().Selected())
	require.Equal(t, "fr", m.Review().Language(), "the override survives regeneration")
	require.Equal(t, "Nous le réparerons demain.", m.Review().Chosen())
}

func TestReviewSessionLanguageCycleIncludesKeep(t *testing.T) {
	var r ReviewSession
	session := r.Open("hi")
	require.True(t, r.Resolve(session, ai.Review{ImprovedText: "Hi!"}, nil))
	require.Empty(t, r.Language())

	r.CycleLanguage(-1)
	require.Equal(t, ai.Languages[len(ai.Languages)-1].Code, r.Language())
	r.CycleLanguage(1)
	require.Empty(t, r.Language())
	r.CycleLanguage(1)
	require.Equal(t, "en", r.Language())

	r.CycleTone(-1)
	require.Equal(t, "concise", r.Tone())

	text, ok := r.Commit()
	require.True(t, ok)
	require.Equal(t, "Hi!", text)
	require.False(t, r.Active())
	require.False(t, r.Resolve(session, ai.Review{}, nil))
}

func TestWordDiff(t *testing.T) {
	diffs := wordDiff("the cat sat down", "the dog sat down")
	var removed, added, original, improved string
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			removed += d.Text
			original += d.Text
		case diffmatchpatch.DiffInsert:
			added += d.Text
			improved += d.Text
		default:
			original += d.Text
			improved += d.Text
		}
	}
	require.Equal(t, "cat", removed)
	require.Equal(t, "dog", added)
	require.Equal(t, "the cat sat down", original)
	require.Equal(t, "the dog sat down", improved)
}

func TestTokenize(t *testing.T) {
	require.Equal(t, []string{"Hi", ",", "  ", "you", "!"}, tokenize("Hi,  you!"))
	require.Empty(t, tokenize(""))
}
