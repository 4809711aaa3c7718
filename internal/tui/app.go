// Package tui is the replydesk terminal client: an inbox of support
// conversations, the selected thread and the reply composer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/tOgg1/replydesk/internal/composer"
	"github.com/tOgg1/replydesk/internal/config"
	"github.com/tOgg1/replydesk/internal/logging"
	"github.com/tOgg1/replydesk/internal/markup"
	"github.com/tOgg1/replydesk/internal/support"
	"github.com/tOgg1/replydesk/internal/tui/styles"
)

const (
	defaultRefreshInterval = 30 * time.Second
	defaultRequestTimeout  = 15 * time.Second

	minComposerRows = 4
	maxComposerRows = 10
)

// Config configures the TUI.
type Config struct {
	Client   support.Client
	Composer composer.Options

	Theme          string
	ShowTimestamps bool

	// Context restores the last conversation and filter. Optional.
	Context *config.ContextStore

	RefreshInterval time.Duration
	RequestTimeout  time.Duration
}

type pane int

const (
	paneInbox pane = iota
	paneComposer
)

var statusFilters = []string{"", support.StatusOpen, support.StatusPending, support.StatusResolved}

type conversationsLoadedMsg struct {
	convs []support.Conversation
	err   error
}

type refreshTickMsg struct{}

type replySentMsg struct {
	conversationID string
	// value is the composer content that was sent.
	value     string
	message   support.Message
	resolve   bool
	err       error
	statusErr error
}

type statusChangedMsg struct {
	conversationID string
	status         string
	err            error
}

type toast struct {
	text string
	err  bool
}

// Model is the root bubbletea model.
type Model struct {
	cfg    Config
	client support.Client

	theme    styles.Theme
	messages styles.MessageStyles
	composer *composer.Model

	convs    []support.Conversation
	loaded   bool
	filter   string
	selected int
	current  string
	drafts   map[string]string

	ctxStore *config.ContextStore
	ctx      *config.Context

	focus        pane
	showHelp     bool
	toast        toast
	threadScroll int

	width  int
	height int
}

// NewModel builds the root model.
func NewModel(cfg Config) (*Model, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	theme := styles.Lookup(cfg.Theme)

	m := &Model{
		cfg:      cfg,
		client:   cfg.Client,
		theme:    theme,
		messages: styles.NewMessageStyles(theme, nil),
		drafts:   make(map[string]string),
		ctxStore: cfg.Context,
		ctx:      &config.Context{},
	}
	if m.ctxStore != nil {
		if loaded, err := m.ctxStore.Load(); err != nil {
			log := m.log()
			log.Warn().Err(err).Str("path", m.ctxStore.Path()).Msg("ignoring unreadable context")
		} else {
			m.ctx = loaded
		}
	}
	m.filter = m.ctx.Filter

	opts := cfg.Composer
	opts.Styles = styles.NewComposerStyles(theme)
	m.composer = composer.New(opts, composer.Host{
		OnChange:    m.saveDraft,
		OnSend:      m.sendReply,
		OnFastReply: m.fastReply,
	})
	return m, nil
}

// Run starts the TUI and blocks until it exits.
func Run(cfg Config) error {
	model, err := NewModel(cfg)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = program.Run()
	return err
}

func (c Config) normalize() (Config, error) {
	if c.Client == nil {
		return Config{}, errors.New("support client is required")
	}
	if c.RefreshInterval < 0 {
		c.RefreshInterval = 0
	} else if c.RefreshInterval == 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if strings.TrimSpace(c.Theme) == "" {
		c.Theme = "default"
	}
	if _, ok := styles.Themes[c.Theme]; !ok {
		return Config{}, fmt.Errorf("invalid theme %q", c.Theme)
	}
	return c, nil
}

func (m *Model) log() zerolog.Logger {
	return logging.Component("tui")
}

// Composer exposes the reply composer.
func (m *Model) Composer() *composer.Model { return m.composer }

// Current is the ID of the conversation the composer is mounted on.
func (m *Model) Current() string { return m.current }

// Draft returns the saved draft for a conversation.
func (m *Model) Draft(id string) string { return m.drafts[id] }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.composer.Init(), m.loadCmd(), m.tickCmd())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.layout()
		return m, nil
	case conversationsLoadedMsg:
		return m, m.applyLoaded(typed)
	case refreshTickMsg:
		return m, tea.Batch(m.loadCmd(), m.tickCmd())
	case replySentMsg:
		return m, m.applySent(typed)
	case statusChangedMsg:
		m.applyStatus(typed)
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	case tea.MouseMsg:
		m.handleMouse(typed)
		return m, nil
	}
	return m, m.composer.Update(msg)
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 0)
	body := m.renderBody(bodyHeight)
	screen := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)

	if m.showHelp {
		return placeCenter(screen, m.renderHelp(), m.width, m.height)
	}
	if m.focus == paneComposer {
		if layer, ok := m.composer.Overlay(m.width); ok {
			return placeOverlay(screen, layer, m.width, m.height)
		}
	}
	return strings.Join(splitLinesN(screen, m.height), "\n")
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return nil
	}
	m.toast = toast{}

	if m.focus == paneComposer {
		if _, ok := m.composer.Overlay(m.width); ok {
			return m.composer.Update(msg)
		}
		switch msg.String() {
		case "esc", "tab":
			m.focusInbox()
			return nil
		case "pgup":
			m.scrollThread(1)
			return nil
		case "pgdown":
			m.scrollThread(-1)
			return nil
		}
		return m.composer.Update(msg)
	}
	return m.handleInboxKey(msg)
}

func (m *Model) handleInboxKey(msg tea.KeyMsg) tea.Cmd {
	visible := m.visible()
	switch msg.String() {
	case "q":
		return m.quit()
	case "?":
		m.showHelp = true
	case "up", "k":
		if len(visible) > 0 {
			m.selected = (m.selected - 1 + len(visible)) % len(visible)
		}
	case "down", "j":
		if len(visible) > 0 {
			m.selected = (m.selected + 1) % len(visible)
		}
	case "enter", "tab":
		if m.selected < len(visible) {
			cmd := m.open(visible[m.selected])
			m.focusComposer()
			return cmd
		}
		if m.current != "" {
			m.focusComposer()
		}
	case "f":
		m.cycleFilter()
	case "s":
		if m.selected < len(visible) {
			return m.cycleStatus(visible[m.selected])
		}
	case "r":
		return m.loadCmd()
	case "pgup":
		m.scrollThread(1)
	case "pgdown":
		m.scrollThread(-1)
	}
	return nil
}

// handleMouse dismisses the slash menu on a press outside the composer and
// the menu itself.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Action != tea.MouseActionPress || m.focus != paneComposer || !m.composer.Menu().Active {
		return
	}
	if m.composerRect().contains(msg.X, msg.Y) {
		return
	}
	if layer, ok := m.composer.Overlay(m.width); ok && layerBounds(layer, m.width, m.height).contains(msg.X, msg.Y) {
		return
	}
	m.composer.CloseMenu()
}

func (m *Model) quit() tea.Cmd {
	m.composer.Flush()
	return tea.Sequence(m.composer.Unmount(), tea.Quit)
}

func (m *Model) focusInbox() {
	m.focus = paneInbox
	m.composer.Blur()
}

func (m *Model) focusComposer() {
	if m.current == "" {
		return
	}
	m.focus = paneComposer
	m.composer.Focus()
}

// open mounts the composer on conv with its saved draft. The draft of the
// previous conversation is flushed first.
func (m *Model) open(conv support.Conversation) tea.Cmd {
	if conv.ID == m.current && m.composer.Mounted() {
		return nil
	}
	m.composer.Flush()
	m.current = conv.ID
	m.threadScroll = 0
	m.rememberConversation(conv)

	target := composer.Conversation{
		ID:              conv.ID,
		UserLastMessage: markup.PlainText(conv.UserLastMessage()),
	}
	cmd := m.composer.SwitchConversation(target, m.drafts[conv.ID])
	m.layout()

	log := logging.WithConversation(m.log(), conv.ID)
	log.Debug().Int("draft_len", len(m.drafts[conv.ID])).Msg("conversation opened")
	return cmd
}

func (m *Model) saveDraft(value string) {
	if m.current == "" {
		return
	}
	if strings.TrimSpace(markup.PlainText(value)) == "" {
		delete(m.drafts, m.current)
		return
	}
	m.drafts[m.current] = value
}

func (m *Model) sendReply(body string) tea.Cmd { return m.deliver(body, false) }

func (m *Model) fastReply(body string) tea.Cmd { return m.deliver(body, true) }

func (m *Model) deliver(body string, resolve bool) tea.Cmd {
	id := m.current
	if id == "" {
		return nil
	}
	value := m.composer.Value()
	client, timeout := m.client, m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		out := replySentMsg{conversationID: id, value: value, resolve: resolve}
		out.message, out.err = client.SendReply(ctx, id, body)
		if out.err == nil && resolve {
			out.statusErr = client.SetStatus(ctx, id, support.StatusResolved)
		}
		return out
	}
}

// applySent records a delivered reply locally and refetches the list so
// backend-side status changes show up.
func (m *Model) applySent(msg replySentMsg) tea.Cmd {
	log := logging.WithConversation(m.log(), msg.conversationID)
	if msg.err != nil {
		log.Warn().Err(msg.err).Msg("send reply failed")
		m.toast = toast{text: "send failed: " + logging.Redact(msg.err.Error()), err: true}
		return nil
	}

	if i := m.indexOf(msg.conversationID); i >= 0 {
		conv := &m.convs[i]
		conv.Messages = append(conv.Messages, msg.message)
		if msg.resolve && msg.statusErr == nil {
			conv.Status = support.StatusResolved
		}
	}
	switch {
	case msg.conversationID != m.current:
		if m.drafts[msg.conversationID] == msg.value {
			delete(m.drafts, msg.conversationID)
		}
	case m.composer.Value() == msg.value:
		m.composer.SetExternalValue("")
		delete(m.drafts, msg.conversationID)
	}
	m.threadScroll = 0

	switch {
	case msg.statusErr != nil:
		log.Warn().Err(msg.statusErr).Msg("resolve after reply failed")
		m.toast = toast{text: "reply sent; resolve failed", err: true}
	case msg.resolve:
		log.Info().Str("message_id", msg.message.ID).Msg("reply sent, conversation resolved")
		m.toast = toast{text: "reply sent and resolved"}
	default:
		log.Info().Str("message_id", msg.message.ID).Msg("reply sent")
		m.toast = toast{text: "reply sent"}
	}
	return m.loadCmd()
}

func (m *Model) cycleStatus(conv support.Conversation) tea.Cmd {
	next := support.StatusOpen
	switch conv.Status {
	case support.StatusOpen:
		next = support.StatusPending
	case support.StatusPending:
		next = support.StatusResolved
	}
	client, timeout, id := m.client, m.cfg.RequestTimeout, conv.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return statusChangedMsg{conversationID: id, status: next, err: client.SetStatus(ctx, id, next)}
	}
}

func (m *Model) applyStatus(msg statusChangedMsg) {
	if msg.err != nil {
		log := logging.WithConversation(m.log(), msg.conversationID)
		log.Warn().Err(msg.err).Str("status", msg.status).Msg("status change failed")
		m.toast = toast{text: "status change failed", err: true}
		return
	}
	if i := m.indexOf(msg.conversationID); i >= 0 {
		m.convs[i].Status = msg.status
	}
	m.clampSelection()
	m.toast = toast{text: "marked " + msg.status}
}

func (m *Model) cycleFilter() {
	idx := 0
	for i, f := range statusFilters {
		if f == m.filter {
			idx = i
		}
	}
	m.filter = statusFilters[(idx+1)%len(statusFilters)]
	m.ctx.SetFilter(m.filter)
	m.saveContext()
	m.selected = 0
	for i, conv := range m.visible() {
		if conv.ID == m.current {
			m.selected = i
		}
	}
}

func (m *Model) rememberConversation(conv support.Conversation) {
	m.ctx.SetConversation(conv.ID, conv.Subject)
	m.saveContext()
}

func (m *Model) saveContext() {
	if m.ctxStore == nil {
		return
	}
	if err := m.ctxStore.Save(m.ctx); err != nil {
		log := m.log()
		log.Warn().Err(err).Msg("save context failed")
	}
}

func (m *Model) loadCmd() tea.Cmd {
	client, timeout := m.client, m.cfg.RequestTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		convs, err := client.List(ctx)
		return conversationsLoadedMsg{convs: convs, err: err}
	}
}

func (m *Model) tickCmd() tea.Cmd {
	if m.cfg.RefreshInterval <= 0 {
		return nil
	}
	return tea.Tick(m.cfg.RefreshInterval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

// applyLoaded replaces the conversation list and, on first load, opens the
// conversation from the saved context or the first visible one.
func (m *Model) applyLoaded(msg conversationsLoadedMsg) tea.Cmd {
	if msg.err != nil {
		log := m.log()
		log.Warn().Err(msg.err).Msg("load conversations failed")
		m.toast = toast{text: "could not load conversations", err: true}
		return nil
	}
	var selectedID string
	if visible := m.visible(); m.selected < len(visible) {
		selectedID = visible[m.selected].ID
	}
	m.convs = msg.convs
	first := !m.loaded
	m.loaded = true

	if first {
		if m.ctx.HasConversation() && m.indexOf(m.ctx.ConversationID) >= 0 {
			selectedID = m.ctx.ConversationID
		}
	}
	m.selected = 0
	for i, conv := range m.visible() {
		if conv.ID == selectedID {
			m.selected = i
		}
	}
	if !first || m.current != "" {
		return nil
	}
	visible := m.visible()
	if len(visible) == 0 {
		return nil
	}
	cmd := m.open(visible[m.selected])
	m.focusComposer()
	return cmd
}

func (m *Model) visible() []support.Conversation {
	if m.filter == "" {
		return m.convs
	}
	out := make([]support.Conversation, 0, len(m.convs))
	for _, conv := range m.convs {
		if conv.Status == m.filter {
			out = append(out, conv)
		}
	}
	return out
}

func (m *Model) clampSelection() {
	if n := len(m.visible()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

func (m *Model) indexOf(id string) int {
	for i, conv := range m.convs {
		if conv.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) currentConversation() (support.Conversation, bool) {
	if i := m.indexOf(m.current); i >= 0 {
		return m.convs[i], true
	}
	return support.Conversation{}, false
}

func (m *Model) scrollThread(delta int) {
	m.threadScroll = max(m.threadScroll+delta*max(m.threadHeight()-2, 1), 0)
}
