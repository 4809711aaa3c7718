package composer

import (
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/replydesk/internal/canned"
)

func cannedItems() []canned.Message {
	return []canned.Message{
		{ID: "refund", Title: "Refund issued", Shortcut: "refund", Body: "Your refund is on its way.", Active: true},
		{ID: "reset", Title: "Password reset", Shortcut: "reset", Body: "Use the reset link we sent.", Active: true},
		{ID: "thanks", Title: "Thanks", Shortcut: "ty", Body: "Thanks for your patience!", Active: true},
	}
}

func TestDetectSlash(t *testing.T) {
	cases := []struct {
		text  string
		caret int
		query string
		start int
		ok    bool
	}{
		{text: "/", caret: 1, query: "", start: 0, ok: true},
		{text: "/ref", caret: 4, query: "ref", start: 0, ok: true},
		{text: "hello /re", caret: 9, query: "re", start: 6, ok: true},
		{text: "hi\n/ty", caret: 6, query: "ty", start: 3, ok: true},
		{text: "/ref", caret: 2, query: "r", start: 0, ok: true},
		{text: "a/ref", caret: 5, ok: false},
		{text: "/ref x", caret: 6, ok: false},
		{text: "/re-f", caret: 5, ok: false},
		{text: "", caret: 0, ok: false},
	}
	for _, tc := range cases {
		got, ok := DetectSlash([]rune(tc.text), tc.caret)
		require.Equal(t, tc.ok, ok, "%q@%d", tc.text, tc.caret)
		if tc.ok {
			require.Equal(t, tc.query, got.Query, tc.text)
			require.Equal(t, tc.start, got.Start, tc.text)
			require.Equal(t, tc.caret, got.End, tc.text)
		}
	}
}

func TestLocateToken(t *testing.T) {
	cases := []struct {
		text       string
		token      string
		start, end int
		ok         bool
	}{
		{text: "/ref", token: "/ref", start: 0, end: 4, ok: true},
		{text: "  /ref ", token: "/ref", start: 0, end: 7, ok: true},
		{text: "see /ref and /ref", token: "/ref", start: 13, end: 17, ok: true},
		{text: "see /ref later", token: "/ref", start: 4, end: 8, ok: true},
		{text: "x/ref", token: "/ref", start: 1, end: 5, ok: true},
		{text: "nothing here", token: "/ref", ok: false},
	}
	for _, tc := range cases {
		start, end, ok := locateToken([]rune(tc.text), tc.token)
		require.Equal(t, tc.ok, ok, tc.text)
		if tc.ok {
			require.Equal(t, [2]int{tc.start, tc.end}, [2]int{start, end}, tc.text)
		}
	}
}

func TestTriggerRange(t *testing.T) {
	cases := []struct {
		name       string
		text       string
		match      SlashMatch
		start, end int
		ok         bool
	}{
		{name: "whole content", text: " /ty ", match: SlashMatch{Query: "ty", Start: 1, End: 4}, start: 0, end: 5, ok: true},
		{name: "leading token", text: "/ty later", match: SlashMatch{Query: "ty", Start: 0, End: 3}, start: 0, end: 3, ok: true},
		{name: "earlier occurrence", text: "see /ref and /ref", match: SlashMatch{Query: "ref", Start: 4, End: 8}, start: 4, end: 8, ok: true},
		{name: "caret mid word", text: "A /ty B /ty", match: SlashMatch{Query: "t", Start: 2, End: 4}, start: 2, end: 5, ok: true},
		{name: "stale range", text: "x /ref", match: SlashMatch{Query: "ref", Start: 0, End: 4}, start: 2, end: 6, ok: true},
		{name: "token gone", text: "Hi ", match: SlashMatch{Query: "ty", Start: 3, End: 6}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, ok := triggerRange([]rune(tc.text), tc.match)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, [2]int{tc.start, tc.end}, [2]int{start, end})
			}
		})
	}
}

func TestSlashMenuOpensAfterDetectDebounce(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "Hi /re")
	require.False(t, m.Menu().Active, "detection waits for the quiet period")

	expireDetect(m)
	state := m.Menu()
	require.True(t, state.Active)
	require.Equal(t, "re", state.Query)
	require.Equal(t, 0, state.SelectedIndex)
	ids := []string{}
	for _, item := range m.MenuItems() {
		ids = append(ids, item.ID)
	}
	require.Equal(t, []string{"refund", "reset"}, ids)
}

func TestSlashMenuShowsAtMostTenItems(t *testing.T) {
	items := make([]canned.Message, 0, 14)
	for i := range 14 {
		items = append(items, canned.Message{ID: fmt.Sprint(i), Title: fmt.Sprintf("Reply %d", i), Body: "body", Active: true})
	}
	m, _ := newTestModel(t, testSetup{items: items})
	typeText(m, "/")
	expireDetect(m)
	require.True(t, m.Menu().Active)
	require.Len(t, m.MenuItems(), 10)
	require.Equal(t, "0", m.MenuItems()[0].ID)
}

func TestSlashMenuClosesWhenTriggerEnds(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "/re")
	expireDetect(m)
	require.True(t, m.Menu().Active)

	typeText(m, " ")
	expireDetect(m)
	require.False(t, m.Menu().Active)
}

func TestSlashMenuClosesOnSelectionAndBlur(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "/re")
	expireDetect(m)
	m.Update(tea.KeyMsg{Type: tea.KeyShiftLeft})
	expireDetect(m)
	require.False(t, m.Menu().Active)

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	expireDetect(m)
	require.True(t, m.Menu().Active)
	m.Blur()
	require.False(t, m.Menu().Active)
}

func TestSlashMenuKeyboardNavigationWraps(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "/")
	expireDetect(m)
	require.Len(t, m.MenuItems(), 3)

	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 2, m.Menu().SelectedIndex)
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 0, m.Menu().SelectedIndex)
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.Menu().SelectedIndex)
	require.Equal(t, "/", m.Text(), "navigation keys do not edit")

	typeText(m, "ty")
	expireDetect(m)
	require.Equal(t, 0, m.Menu().SelectedIndex, "a new result set resets the highlight")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, m.Menu().Active)
}

func TestSlashMenuCommitReplacesWholeContent(t *testing.T) {
	m, h := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "/ty")
	expireDetect(m)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.False(t, m.Menu().Active)
	require.Equal(t, "Thanks for your patience!", m.Text())
	require.Equal(t, m.Buffer().Len(), m.Buffer().Caret())

	expireSync(m)
	require.Equal(t, []string{"Thanks for your patience!"}, h.changes)
}

func TestSlashMenuCommitReplacesTokenInText(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "Hello! /re")
	expireDetect(m)
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, "Hello! Use the reset link we sent.", m.Text())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlZ})
	require.Equal(t, "Hello! /re", m.Text(), "the swap is one undo step")
}

func TestSlashMenuCommitAppendsWhenTokenIsGone(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "Hi /ty")
	expireDetect(m)
	m.Buffer().ReplaceRange(3, 6, "")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "Hi Thanks for your patience!", m.Text())
}

func TestSlashMenuWithoutMatchesClosesOnEnter(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "/zzz")
	expireDetect(m)
	require.True(t, m.Menu().Active)
	require.Empty(t, m.MenuItems())

	ov, ok := m.Overlay(80)
	require.True(t, ok)
	require.Contains(t, ov.Content, `No canned replies match "zzz"`)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.Menu().Active)
	require.Equal(t, "/zzz", m.Text())
}

func TestSlashMenuAnchorFollowsCaret(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	m.SetOrigin(2, 10)
	typeText(m, "ab\n/")
	expireDetect(m)

	ov, ok := m.Overlay(80)
	require.True(t, ok)
	require.False(t, ov.Modal)
	require.Equal(t, Anchor{Top: 12, Left: 3}, ov.Anchor)
	require.Equal(t, ov.Anchor, m.Menu().Anchor)
}

func TestSlashMenuNotOpenedDuringReview(t *testing.T) {
	m, _ := newTestModel(t, testSetup{svc: &fakeAI{}, items: cannedItems()})
	typeText(m, "/re")
	m.Update(alt('a'))
	require.True(t, m.Review().Active())
	expireDetect(m)
	require.False(t, m.Menu().Active)
}

func TestSlashMenuCommitReplacesLeadingToken(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, " later")
	m.Update(tea.KeyMsg{Type: tea.KeyHome})
	typeText(m, "/ty")
	expireDetect(m)
	require.True(t, m.Menu().Active)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "Thanks for your patience! later", m.Text())
}

func TestSlashMenuCommitReplacesTokenAtCaret(t *testing.T) {
	m, _ := newTestModel(t, testSetup{items: cannedItems()})
	typeText(m, "A /ty B /ty")
	m.Buffer().SetSelection(4, 4)
	expireDetect(m)
	require.True(t, m.Menu().Active)
	require.Equal(t, "t", m.Menu().Query)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, "A Your refund is on its way. B /ty", m.Text())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlZ})
	require.Equal(t, "A /ty B /ty", m.Text())
}
