// Package composer is the agent-facing reply composer: a rich-text buffer
// kept in sync with the host's draft value, a slash menu of canned replies,
// formatting commands, AI transforms, smart-reply review and dictation.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/replydesk/internal/ai"
	"github.com/tOgg1/replydesk/internal/canned"
	"github.com/tOgg1/replydesk/internal/logging"
	"github.com/tOgg1/replydesk/internal/markup"
	"github.com/tOgg1/replydesk/internal/speech"
	"github.com/tOgg1/replydesk/internal/tui/styles"
)

// Default timings.
const (
	DefaultSyncDebounce    = 150 * time.Millisecond
	DefaultCommandDebounce = 50 * time.Millisecond
	DefaultSettleDelay     = 10 * time.Millisecond
	DefaultMenuLimit       = 10
)

// Host is the application around the composer.
type Host struct {
	// OnChange receives the debounced draft value.
	OnChange func(value string)
	// OnSend sends a reply. Smart-reply review passes the chosen text.
	OnSend func(text string) tea.Cmd
	// OnFastReply sends a reply and resolves the conversation.
	OnFastReply func(text string) tea.Cmd
}

// Conversation is what the composer replies to.
type Conversation struct {
	ID              string
	UserLastMessage string
}

// Options configures a composer.
type Options struct {
	SyncDebounce     time.Duration
	CommandDebounce  time.Duration
	SettleDelay      time.Duration
	MenuLimit        int
	GenerateFallback string
	RequestTimeout   time.Duration

	Catalog        canned.Source
	CatalogPerPage int
	AI             ai.Service
	Speech         speech.Engine

	Styles styles.ComposerStyles
	KeyMap KeyMap
}

// DefaultOptions returns options with the standard timings.
func DefaultOptions() Options {
	return Options{
		SyncDebounce:    DefaultSyncDebounce,
		CommandDebounce: DefaultCommandDebounce,
		SettleDelay:     DefaultSettleDelay,
		MenuLimit:       DefaultMenuLimit,
		RequestTimeout:  30 * time.Second,
		CatalogPerPage:  canned.DefaultPerPage,
		AI:              ai.Unavailable{},
		Speech:          speech.None{},
		Styles:          styles.NewComposerStyles(styles.DefaultTheme),
		KeyMap:          DefaultKeyMap(),
	}
}

type notice struct {
	text string
	err  bool
}

func noticeInfo(text string) notice  { return notice{text: text} }
func noticeError(text string) notice { return notice{text: text, err: true} }

type resourcesMsg struct {
	owner   uint64
	epoch   uint64
	catalog canned.Catalog
	formats []ai.Format
	err     error
}

var owners atomic.Uint64

// Model is one composer instance.
type Model struct {
	id     uint64
	opts   Options
	host   Host
	keys   KeyMap
	styles styles.ComposerStyles

	buf    *Buffer
	sync   *SyncController
	detect debouncer
	settle debouncer

	menu       slashMenu
	catalog    canned.Catalog
	formats    []ai.Format
	pipeline   *Pipeline
	review     ReviewSession
	transcript *Transcription
	link       linkDialog
	picker     picker
	spinner    spinner.Model

	conv       Conversation
	epoch      uint64
	mounted    bool
	userAction bool
	notice     notice

	width   int
	height  int
	originX int
	originY int
	scroll  int
}

// New creates an unmounted composer.
func New(opts Options, host Host) *Model {
	def := DefaultOptions()
	if opts.SyncDebounce <= 0 {
		opts.SyncDebounce = def.SyncDebounce
	}
	if opts.CommandDebounce <= 0 {
		opts.CommandDebounce = def.CommandDebounce
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = def.SettleDelay
	}
	if opts.MenuLimit <= 0 {
		opts.MenuLimit = def.MenuLimit
	}
	if opts.KeyMap.Send.Keys() == nil {
		opts.KeyMap = def.KeyMap
	}

	id := owners.Add(1)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Styles.Accent

	m := &Model{
		id:         id,
		opts:       opts,
		host:       host,
		keys:       opts.KeyMap,
		styles:     opts.Styles,
		buf:        NewBuffer(""),
		detect:     newDebouncer(id, timerDetect, opts.CommandDebounce),
		settle:     newDebouncer(id, timerSettle, opts.SettleDelay),
		menu:       slashMenu{limit: opts.MenuLimit},
		pipeline:   newPipeline(id, opts.AI, opts.RequestTimeout),
		transcript: newTranscription(id, opts.Speech),
		link:       newLinkDialog(),
		spinner:    sp,
		width:      60,
		height:     6,
	}
	m.sync = newSyncController(newDebouncer(id, timerSync, opts.SyncDebounce), func(v string) {
		if m.host.OnChange != nil {
			m.host.OnChange(v)
		}
	})
	return m
}

func (m *Model) log() zerolog.Logger {
	return logging.WithConversation(logging.Component("composer"), m.conv.ID)
}

// Init implements the view contract; loading happens in Mount.
func (m *Model) Init() tea.Cmd { return nil }

// Mount seeds the buffer from value and loads the canned catalog and the
// revision formats for conv.
func (m *Model) Mount(conv Conversation, value string) tea.Cmd {
	m.epoch++
	m.conv = conv
	m.buf = NewBuffer(value)
	m.buf.Focus()
	m.sync.Reset(m.buf.HTML(), m.buf.Len())
	m.detect.cancel()
	m.settle.cancel()
	m.menu.close()
	m.review.Cancel()
	m.link.close()
	m.picker.close()
	m.catalog = canned.Catalog{}
	m.formats = nil
	m.userAction = false
	m.notice = notice{}
	m.scroll = 0
	m.transcript.probe()
	m.transcript.bind(m.epoch)
	m.mounted = true
	m.ensureCaretVisible()

	log := m.log()
	log.Debug().Uint64("epoch", m.epoch).Bool("dictation", m.transcript.Supported()).Msg("composer mounted")
	return m.loadResources()
}

// Unmount discards the buffer and all derived state. A pending propagation
// is dropped, not flushed, and in-flight results are ignored.
func (m *Model) Unmount() tea.Cmd {
	if !m.mounted {
		return nil
	}
	m.sync.Reset(m.buf.HTML(), m.buf.Len())
	m.detect.cancel()
	m.settle.cancel()
	m.pipeline.reset()
	m.menu.close()
	m.review.Cancel()
	m.link.close()
	m.picker.close()
	m.userAction = false
	m.mounted = false
	m.epoch++
	return m.transcript.stop()
}

// SwitchConversation remounts the composer for another conversation.
func (m *Model) SwitchConversation(conv Conversation, value string) tea.Cmd {
	return tea.Batch(m.Unmount(), m.Mount(conv, value))
}

func (m *Model) loadResources() tea.Cmd {
	src, perPage, svc := m.opts.Catalog, m.opts.CatalogPerPage, m.pipeline.svc
	owner, epoch, timeout := m.id, m.epoch, m.pipeline.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		catalog, formats, err := LoadResources(ctx, src, perPage, svc)
		return resourcesMsg{owner: owner, epoch: epoch, catalog: catalog, formats: formats, err: err}
	}
}

// LoadResources fetches the canned catalog and the revision formats
// concurrently. Whatever loaded is returned alongside the first error.
func LoadResources(ctx context.Context, src canned.Source, perPage int, svc ai.Service) (canned.Catalog, []ai.Format, error) {
	var (
		catalog canned.Catalog
		formats []ai.Format
		g       errgroup.Group
	)
	g.Go(func() error {
		c, err := canned.Load(ctx, src, perPage)
		if err != nil {
			return fmt.Errorf("load canned catalog: %w", err)
		}
		catalog = c
		return nil
	})
	if svc != nil {
		g.Go(func() error {
			f, err := svc.Formats(ctx)
			if err != nil {
				return fmt.Errorf("load revision formats: %w", err)
			}
			formats = f
			return nil
		})
	}
	err := g.Wait()
	return catalog, formats, err
}

// SetExternalValue offers an inbound draft value. It is ignored while the
// user is editing or a user action is in progress; otherwise it overwrites
// the buffer when the content differs.
func (m *Model) SetExternalValue(value string) bool {
	if !m.mounted || m.sync.IsUserEditing() || m.userAction {
		return false
	}
	if markup.Parse(value).HTML() == m.buf.HTML() {
		return false
	}
	m.buf.Overwrite(value)
	m.sync.Reset(m.buf.HTML(), m.buf.Len())
	m.closeMenu()
	m.ensureCaretVisible()
	return true
}

// Flush propagates a pending draft value immediately.
func (m *Model) Flush() bool { return m.sync.Flush() }

// Value is the serialized buffer.
func (m *Model) Value() string { return m.buf.HTML() }

// Text is the buffer's plain text.
func (m *Model) Text() string { return m.buf.Text() }

// Buffer exposes the editing surface.
func (m *Model) Buffer() *Buffer { return m.buf }

// Sync exposes the sync controller.
func (m *Model) Sync() *SyncController { return m.sync }

// Menu is the slash menu state.
func (m *Model) Menu() SlashState { return m.menu.state }

// MenuItems are the filtered canned replies shown in the menu.
func (m *Model) MenuItems() []canned.Message { return m.menu.items }

// CloseMenu dismisses the slash menu, e.g. on a click outside it.
func (m *Model) CloseMenu() { m.closeMenu() }

// Review is the smart-reply session.
func (m *Model) Review() *ReviewSession { return &m.review }

// Pipeline is the transform pipeline.
func (m *Model) Pipeline() *Pipeline { return m.pipeline }

// Dictation is the speech session.
func (m *Model) Dictation() *Transcription { return m.transcript }

// Catalog is the loaded canned catalog.
func (m *Model) Catalog() canned.Catalog { return m.catalog }

// Formats are the loaded revision formats.
func (m *Model) Formats() []ai.Format { return m.formats }

// Mounted reports whether a conversation is mounted.
func (m *Model) Mounted() bool { return m.mounted }

// Focus gives the buffer focus.
func (m *Model) Focus() { m.buf.Focus() }

// Blur removes focus and closes the menu.
func (m *Model) Blur() {
	m.buf.Blur()
	m.closeMenu()
}

// Focused reports whether the buffer has focus.
func (m *Model) Focused() bool { return m.buf.Focused() }

// SetSize sets the composer's size in cells. One row is the status line.
func (m *Model) SetSize(width, height int) {
	m.width = max(width, 10)
	m.height = max(height, 2)
	m.ensureCaretVisible()
}

// SetOrigin records where the text area is drawn on screen, for placing
// the slash menu.
func (m *Model) SetOrigin(x, y int) {
	m.originX, m.originY = x, y
}

func (m *Model) textWidth() int  { return max(m.width-1, 1) }
func (m *Model) textHeight() int { return max(m.height-1, 1) }

func (m *Model) ensureCaretVisible() {
	text := m.buf.Document().Runes()
	rows := layoutRows(text, m.textWidth())
	row, _ := caretCell(text, rows, m.buf.Caret())
	h := m.textHeight()
	if row < m.scroll {
		m.scroll = row
	}
	if row >= m.scroll+h {
		m.scroll = row - h + 1
	}
	m.scroll = clampInt(m.scroll, 0, max(len(rows)-h, 0))
}

// Send flushes the draft and sends the buffer content.
func (m *Model) Send() tea.Cmd {
	if !m.mounted || m.buf.Empty() {
		return nil
	}
	m.sync.Flush()
	m.closeMenu()
	if m.host.OnSend == nil {
		return nil
	}
	return m.host.OnSend(m.buf.HTML())
}

// FastReply flushes the draft, sends it and resolves the conversation.
func (m *Model) FastReply() tea.Cmd {
	if !m.mounted || m.buf.Empty() {
		return nil
	}
	m.sync.Flush()
	m.closeMenu()
	if m.host.OnFastReply == nil {
		return nil
	}
	return m.host.OnFastReply(m.buf.HTML())
}

// Transform starts an AI transform directly. SmartReply opens the review.
func (m *Model) Transform(kind TransformKind, params TransformParams) tea.Cmd {
	if !m.mounted || m.review.Active() {
		return nil
	}
	if kind == SmartReply {
		return m.openReview()
	}
	return m.startTransform(kind, params)
}

// Enabled reports whether the control for kind is usable now.
func (m *Model) Enabled(kind TransformKind) bool {
	return m.mounted && m.pipeline.Enabled(kind, m.buf.Empty())
}

// Notify shows a status message in the composer's status row.
func (m *Model) Notify(text string, isErr bool) {
	m.notice = notice{text: text, err: isErr}
}

// Update handles a message and returns follow-up commands.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	m.transcript.bind(m.epoch)

	switch msg := msg.(type) {
	case timerMsg:
		if msg.owner != m.id {
			return nil
		}
		switch msg.kind {
		case timerSync:
			m.sync.Expire(msg)
		case timerDetect:
			if m.detect.expire(msg) {
				m.detectSlash()
			}
		case timerSettle:
			if m.settle.expire(msg) {
				return m.settleFormat()
			}
		}
		return nil
	case resourcesMsg:
		if msg.owner != m.id || msg.epoch != m.epoch {
			return nil
		}
		m.catalog = msg.catalog
		m.formats = msg.formats
		if msg.err != nil {
			log := m.log()
			if errors.Is(msg.err, ai.ErrUnavailable) {
				log.Debug().Err(msg.err).Msg("composer resources partially loaded")
			} else {
				log.Warn().Err(msg.err).Msg("composer resources partially loaded")
			}
		}
		return nil
	case transformResultMsg:
		if msg.owner != m.id {
			return nil
		}
		return m.handleTransformResult(msg)
	case transcriptMsg:
		if msg.owner != m.id {
			return nil
		}
		return m.handleTranscript(msg)
	case transcriptStoppedMsg:
		if msg.owner == m.id && msg.err != nil {
			log := m.log()
			log.Warn().Err(msg.err).Msg("speech recognition did not stop cleanly")
		}
		return nil
	case spinner.TickMsg:
		if !m.pipeline.Busy() {
			return nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if !m.mounted {
		return nil
	}
	if m.review.Active() {
		return m.handleReviewKey(msg)
	}
	if m.link.active {
		return m.handleLinkKey(msg)
	}
	if m.picker.active {
		return m.handlePickerKey(msg)
	}
	if m.menu.state.Active {
		if cmd, ok := m.handleMenuKey(msg); ok {
			return cmd
		}
	}
	m.notice = notice{}

	k := m.keys
	switch {
	case key.Matches(msg, k.Send):
		return m.Send()
	case key.Matches(msg, k.FastReply):
		return m.FastReply()
	case key.Matches(msg, k.Bold):
		return m.Format(FormatBold)
	case key.Matches(msg, k.Italic):
		return m.Format(FormatItalic)
	case key.Matches(msg, k.Underline):
		return m.Format(FormatUnderline)
	case key.Matches(msg, k.BulletList):
		return m.Format(FormatBulletList)
	case key.Matches(msg, k.NumberedList):
		return m.Format(FormatNumberedList)
	case key.Matches(msg, k.Link):
		return m.Format(FormatLink)
	case key.Matches(msg, k.Undo):
		return m.edit(func(b *Buffer) bool { return b.Undo() })
	case key.Matches(msg, k.Redo):
		return m.edit(func(b *Buffer) bool { return b.Redo() })
	case key.Matches(msg, k.SelectAll):
		m.buf.SelectAll()
		m.closeMenu()
		return nil
	case key.Matches(msg, k.Translate):
		return m.openPicker(Translate)
	case key.Matches(msg, k.Revise):
		return m.openPicker(Revise)
	case key.Matches(msg, k.Generate):
		return m.startTransform(Generate, TransformParams{})
	case key.Matches(msg, k.SmartReply):
		return m.openReview()
	case key.Matches(msg, k.Dictate):
		return m.toggleDictation()
	}
	return m.handleEditKey(msg)
}

func (m *Model) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	if !m.buf.Focused() {
		return nil
	}
	switch msg.String() {
	case "left", "right", "shift+left", "shift+right":
		delta := 1
		if strings.HasSuffix(msg.String(), "left") {
			delta = -1
		}
		m.buf.MoveCaret(delta, strings.HasPrefix(msg.String(), "shift+"))
		return m.caretMoved()
	case "home", "end", "shift+home", "shift+end", "ctrl+e":
		end := strings.HasSuffix(msg.String(), "end") || msg.String() == "ctrl+e"
		m.buf.CaretToLineEdge(end, strings.HasPrefix(msg.String(), "shift+"))
		return m.caretMoved()
	case "up", "down", "shift+up", "shift+down":
		delta := 1
		if strings.HasSuffix(msg.String(), "up") {
			delta = -1
		}
		m.moveVertical(delta, strings.HasPrefix(msg.String(), "shift+"))
		return m.caretMoved()
	case "backspace", "ctrl+h":
		return m.edit(func(b *Buffer) bool { return b.DeleteBackward() })
	case "delete", "ctrl+d":
		return m.edit(func(b *Buffer) bool { return b.DeleteForward() })
	case "enter", "alt+enter":
		return m.edit(func(b *Buffer) bool { b.InsertText("\n"); return true })
	case "esc":
		m.closeMenu()
		return nil
	}

	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		if msg.Alt && !msg.Paste {
			return nil
		}
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		return m.edit(func(b *Buffer) bool { b.InsertText(text); return text != "" })
	}
	return nil
}

// edit runs a buffer mutation triggered by raw input.
func (m *Model) edit(fn func(*Buffer) bool) tea.Cmd {
	if !fn(m.buf) {
		return nil
	}
	m.ensureCaretVisible()
	return tea.Batch(m.sync.Input(m.buf.HTML(), m.buf.Len()), m.detect.schedule())
}

func (m *Model) caretMoved() tea.Cmd {
	m.ensureCaretVisible()
	return m.detect.schedule()
}

func (m *Model) moveVertical(delta int, extend bool) {
	text := m.buf.Document().Runes()
	rows := layoutRows(text, m.textWidth())
	row, col := caretCell(text, rows, m.buf.Caret())
	target := row + delta
	var head int
	switch {
	case target < 0:
		head = 0
	case target >= len(rows):
		head = len(text)
	default:
		r := rows[target]
		head = r.start
		acc := 0
		for head < r.end {
			w := runewidth.RuneWidth(text[head])
			if acc+w > col {
				break
			}
			acc += w
			head++
		}
	}
	anchor := head
	if extend {
		anchor = m.buf.Selection().Anchor
	}
	m.buf.SetSelection(anchor, head)
}

func (m *Model) openPicker(kind TransformKind) tea.Cmd {
	if !m.pipeline.Enabled(kind, m.buf.Empty()) {
		return nil
	}
	m.closeMenu()
	switch kind {
	case Translate:
		m.picker.open(Translate, "Translate to", languageOptions())
	case Revise:
		if !m.picker.open(Revise, "Revise as", formatOptions(m.formats)) {
			m.notice = noticeError("no revision formats available")
		}
	}
	return nil
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "ctrl+p", "shift+tab":
		m.picker.move(-1)
	case "down", "ctrl+n", "tab":
		m.picker.move(1)
	case "esc":
		m.picker.close()
	case "enter":
		opt, ok := m.picker.current()
		kind := m.picker.kind
		m.picker.close()
		if !ok {
			return nil
		}
		params := TransformParams{}
		if kind == Translate {
			params.Language = opt.id
		} else {
			params.FormatID = opt.id
		}
		return m.startTransform(kind, params)
	}
	return nil
}

// Overlay is floating content drawn above the rest of the screen.
type Overlay struct {
	Content string
	Anchor  Anchor
	// Modal overlays are centered instead of anchored.
	Modal bool
}

// Overlay returns the composer's active floating layer, if any.
func (m *Model) Overlay(screenWidth int) (Overlay, bool) {
	switch {
	case !m.mounted:
		return Overlay{}, false
	case m.review.Active():
		return Overlay{Content: m.reviewView(screenWidth - 4), Modal: true}, true
	case m.link.active:
		return Overlay{Content: m.link.view(m.styles), Anchor: m.caretAnchor()}, true
	case m.picker.active:
		return Overlay{Content: m.picker.view(m.styles), Anchor: m.caretAnchor()}, true
	case m.menu.state.Active:
		return Overlay{Content: m.menu.view(m.styles), Anchor: m.menu.state.Anchor}, true
	}
	return Overlay{}, false
}

const placeholder = "Write a reply… type / for canned replies"

// View renders the text area and the status row.
func (m *Model) View() string {
	st := m.styles
	var area string
	if m.buf.Len() == 0 && !m.buf.Focused() {
		area = st.Muted.Render(placeholder) + strings.Repeat("\n", m.textHeight()-1)
	} else {
		rows := layoutRows(m.buf.Document().Runes(), m.textWidth())
		area = renderRows(m.buf.Document(), m.buf.Selection(), m.buf.Focused(), rows, m.scroll, m.textHeight(), m.textWidth(), st)
		if m.buf.Len() == 0 {
			lines := strings.SplitN(area, "\n", 2)
			lines[0] += st.Muted.Render(" " + placeholder)
			area = strings.Join(lines, "\n")
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, area, m.statusLine())
}

func (m *Model) statusLine() string {
	st := m.styles
	control := func(label string, enabled bool) string {
		if enabled {
			return st.Toolbar.Render(label)
		}
		return st.ToolbarOff.Render(label)
	}
	transform := func(kind TransformKind, label string) string {
		if m.pipeline.Running(kind) {
			return m.spinner.View() + st.Accent.Render(label)
		}
		return control(label, m.Enabled(kind))
	}

	pending := m.buf.PendingStyle()
	var marks string
	for _, s := range []struct {
		style markup.Style
		label string
	}{{markup.Bold, "B"}, {markup.Italic, "I"}, {markup.Underline, "U"}} {
		if pending.Has(s.style) {
			marks += st.Accent.Render(s.label)
		} else {
			marks += st.ToolbarOff.Render(s.label)
		}
	}
	parts := []string{
		marks,
		transform(Translate, "translate"),
		transform(Revise, "revise"),
		transform(Generate, "generate"),
		transform(SmartReply, "smart"),
	}
	mic := "mic"
	switch {
	case !m.transcript.Supported():
		parts = append(parts, control(mic, false))
	case m.transcript.Recording():
		parts = append(parts, st.Error.Render("● rec"))
	default:
		parts = append(parts, control(mic, true))
	}

	left := strings.Join(parts, " ")
	if m.notice.text != "" {
		if m.notice.err {
			left = st.Error.Render(m.notice.text)
		} else {
			left = st.Accent.Render(m.notice.text)
		}
	}
	right := st.Muted.Render(fmt.Sprintf("%d chars", m.sync.PlainLen()))
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}
