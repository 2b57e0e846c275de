package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/angela/pkg/chat"
	"github.com/go-go-golems/angela/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// states:
// - user input
// - editing a previous user message

type State string

const (
	StateUserInput State = "user_input"
	StateEditing   State = "editing"
)

const defaultWrapWidth = 80

// stateChangedMsg is produced whenever the store or the pending flag changed.
type stateChangedMsg struct{}

type workflowDoneMsg struct {
	err error
	// sent is set for send and edit-and-resend workflows
	sent bool
}

type Option func(*model)

func WithKeyMap(keyMap KeyMap) Option {
	return func(m *model) {
		m.keyMap = keyMap
	}
}

func WithStyle(style *Style) Option {
	return func(m *model) {
		m.style = style
	}
}

// WithMarkdownStyle selects the glamour style ("auto", "dark", "light", "notty", ...).
func WithMarkdownStyle(style string) Option {
	return func(m *model) {
		m.markdownStyle = style
	}
}

type model struct {
	ctx          context.Context
	orchestrator *orchestrator.Orchestrator
	changes      <-chan struct{}

	viewport viewport.Model
	textArea textarea.Model
	spinner  spinner.Model
	help     help.Model
	keyMap   KeyMap

	style         *Style
	markdownStyle string
	renderer      *glamour.TermRenderer

	width  int
	height int

	// copies taken on the last refresh
	session      *chat.Session
	sessionCount int
	activeModel  string
	pending      bool

	// a send was started and has not reported back yet
	sending bool

	state         State
	editIndex     int
	editSessionID string
	err           error
}

// NewModel builds the chat view on top of o. Every value received on changes triggers a
// refresh from the store; the channel is expected to coalesce notifications.
func NewModel(ctx context.Context, o *orchestrator.Orchestrator, changes <-chan struct{}, options ...Option) model {
	ret := model{
		ctx:           ctx,
		orchestrator:  o,
		changes:       changes,
		viewport:      viewport.New(0, 0),
		help:          help.New(),
		keyMap:        DefaultKeyMap,
		style:         DefaultStyles(),
		markdownStyle: "auto",
		state:         StateUserInput,
		editIndex:     -1,
	}
	for _, option := range options {
		option(&ret)
	}

	ret.spinner = spinner.New()
	ret.spinner.Spinner = spinner.Dot

	ret.textArea = textarea.New()
	ret.textArea.Placeholder = "Type a message..."
	ret.textArea.ShowLineNumbers = false
	ret.textArea.SetHeight(3)
	ret.textArea.SetValue(o.Input())
	ret.textArea.Focus()

	ret.renderer = newRenderer(ret.markdownStyle, defaultWrapWidth)
	ret.refresh()

	return ret
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	options := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		options = append(options, glamour.WithAutoStyle())
	} else {
		options = append(options, glamour.WithStylePath(style))
	}
	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		log.Warn().Err(err).Str("style", style).Msg("could not create markdown renderer")
		return nil
	}
	return renderer
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForChange(m.changes))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.err = nil

		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Send):
			if m.sending || m.pending || m.orchestrator.Pending() {
				return m, nil
			}
			return m, m.submit()

		case key.Matches(msg, m.keyMap.NewSession):
			m.cancelEdit()
			return m, m.run(func(ctx context.Context) error {
				m.orchestrator.NewSession(ctx)
				return nil
			})

		case key.Matches(msg, m.keyMap.NextSession):
			return m, m.cycleSession(1)

		case key.Matches(msg, m.keyMap.PrevSession):
			return m, m.cycleSession(-1)

		case key.Matches(msg, m.keyMap.DeleteSession):
			if m.session == nil {
				return m, nil
			}
			id := m.session.ID
			m.cancelEdit()
			return m, m.run(func(ctx context.Context) error {
				return m.orchestrator.DeleteSession(ctx, id)
			})

		case key.Matches(msg, m.keyMap.ResetSession):
			m.cancelEdit()
			return m, m.run(m.orchestrator.ResetActiveSession)

		case key.Matches(msg, m.keyMap.ClearAll):
			m.cancelEdit()
			return m, m.run(func(ctx context.Context) error {
				m.orchestrator.ClearAllSessions(ctx)
				return nil
			})

		case key.Matches(msg, m.keyMap.NextModel):
			m.cancelEdit()
			return m, m.run(func(ctx context.Context) error {
				_, err := m.orchestrator.NextModel(ctx)
				return err
			})

		case key.Matches(msg, m.keyMap.EditLast):
			m.startEdit()
			m.recomputeSize()
			return m, nil

		case key.Matches(msg, m.keyMap.CancelEdit):
			if m.state == StateEditing {
				m.cancelEdit()
				m.recomputeSize()
			}
			return m, nil

		case key.Matches(msg, m.keyMap.ScrollUp, m.keyMap.ScrollDown):
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()
			return m, nil

		default:
			m.textArea, cmd = m.textArea.Update(msg)
			if m.state == StateUserInput {
				m.orchestrator.SetInput(m.textArea.Value())
			}
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.renderer = newRenderer(m.markdownStyle, m.contentWidth())
		m.recomputeSize()

	case stateChangedMsg:
		cmds = append(cmds, m.refresh(), waitForChange(m.changes))

	case workflowDoneMsg:
		if msg.sent {
			m.sending = false
		}
		if msg.err != nil {
			m.err = msg.err
		}
		cmds = append(cmds, m.refresh())

	case spinner.TickMsg:
		if m.pending {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// run executes an orchestrator call off the update loop.
func (m model) run(f func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return workflowDoneMsg{err: f(ctx)}
	}
}

// runSend runs a workflow that asks for a completion. Enter is ignored until it reports back.
func (m *model) runSend(f func(ctx context.Context) error) tea.Cmd {
	m.sending = true
	ctx := m.ctx
	return func() tea.Msg {
		return workflowDoneMsg{err: f(ctx), sent: true}
	}
}

func (m *model) submit() tea.Cmd {
	value := m.textArea.Value()
	if strings.TrimSpace(value) == "" {
		return nil
	}

	if m.state == StateEditing {
		index := m.editIndex
		m.cancelEdit()
		m.recomputeSize()
		return m.runSend(func(ctx context.Context) error {
			_, err := m.orchestrator.EditAndResend(ctx, index, value)
			return err
		})
	}

	m.textArea.Reset()
	m.orchestrator.SetInput("")
	return m.runSend(func(ctx context.Context) error {
		m.orchestrator.Send(ctx, value)
		return nil
	})
}

func (m *model) cycleSession(step int) tea.Cmd {
	sessions := m.orchestrator.Store().Sessions()
	if len(sessions) < 2 {
		return nil
	}
	current := 0
	for i, session := range sessions {
		if m.session != nil && session.ID == m.session.ID {
			current = i
			break
		}
	}
	next := sessions[(current+step+len(sessions))%len(sessions)].ID
	m.cancelEdit()
	return m.run(func(ctx context.Context) error {
		return m.orchestrator.SelectSession(ctx, next)
	})
}

// startEdit loads the last user message of the active session into the input.
func (m *model) startEdit() {
	if m.session == nil {
		return
	}
	for i := len(m.session.Messages) - 1; i >= 0; i-- {
		message := m.session.Messages[i]
		if message.Role != chat.RoleUser {
			continue
		}
		m.state = StateEditing
		m.editIndex = i
		m.editSessionID = m.session.ID
		m.textArea.SetValue(message.Content)
		m.viewport.SetContent(m.messageView())
		return
	}
}

func (m *model) cancelEdit() {
	if m.state != StateEditing {
		return
	}
	m.state = StateUserInput
	m.editIndex = -1
	m.editSessionID = ""
	m.textArea.SetValue(m.orchestrator.Input())
	m.viewport.SetContent(m.messageView())
}

// refresh re-reads the store. It returns a spinner tick when a completion just started.
func (m *model) refresh() tea.Cmd {
	wasPending := m.pending

	store := m.orchestrator.Store()
	m.session, _ = store.ActiveSession()
	m.sessionCount = len(store.Sessions())
	m.activeModel = store.ActiveModel()
	m.pending = m.orchestrator.Pending()

	if m.state == StateEditing {
		if m.session == nil || m.session.ID != m.editSessionID || m.editIndex >= len(m.session.Messages) {
			m.cancelEdit()
		}
	}
	m.recomputeSize()

	if m.pending && !wasPending {
		return m.spinner.Tick
	}
	return nil
}

func (m *model) contentWidth() int {
	if m.width == 0 {
		return defaultWrapWidth
	}
	w, _ := m.style.AIMessage.GetFrameSize()
	if m.width-w <= 0 {
		return 1
	}
	return m.width - w
}

func (m *model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	statusHeight := lipgloss.Height(m.statusView())
	inputHeight := lipgloss.Height(m.textAreaView())
	helpHeight := lipgloss.Height(m.help.View(m.keyMap))

	newHeight := m.height - headerHeight - statusHeight - inputHeight - helpHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight + 1

	h, _ := m.style.Input.GetFrameSize()
	if m.width > h {
		m.textArea.SetWidth(m.width - h)
	}
	m.help.Width = m.width

	m.viewport.SetContent(m.messageView())
	m.viewport.GotoBottom()
}

func (m model) headerView() string {
	title := chat.DefaultTitle
	if m.session != nil {
		title = firstLine(m.session.Title)
	}
	return m.style.Title.Render(title) + m.style.Status.Render(fmt.Sprintf("  (%d chats)", m.sessionCount))
}

func (m model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return wrapWords(content, m.contentWidth())
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		log.Debug().Err(err).Msg("markdown rendering failed")
		return wrapWords(content, m.contentWidth())
	}
	return strings.Trim(out, "\n")
}

func (m model) messageView() string {
	if m.session == nil || len(m.session.Messages) == 0 {
		return m.style.Status.Render("No messages yet.")
	}

	blocks := make([]string, 0, len(m.session.Messages))
	for idx, message := range m.session.Messages {
		style := m.style.AIMessage
		if message.Role == chat.RoleUser {
			style = m.style.UserMessage
		}
		if m.state == StateEditing && idx == m.editIndex {
			style = m.style.EditedMessage
		}
		if m.width > 0 {
			style = style.Width(m.width - style.GetHorizontalBorderSize())
		}

		v := m.style.Title.Render(roleLabel(message.Role == chat.RoleUser)) + "\n" + m.renderMarkdown(message.Content)
		blocks = append(blocks, style.Render(v))
	}

	return strings.Join(blocks, "\n")
}

func (m model) statusView() string {
	label := m.activeModel
	if m.orchestrator.Registry() != nil {
		label = m.orchestrator.Registry().Label(m.activeModel)
	}
	v := "model: " + label
	if m.pending {
		v = m.spinner.View() + " waiting for reply  " + v
	}
	if m.state == StateEditing {
		v += fmt.Sprintf("  editing message %d (esc to cancel)", m.editIndex+1)
	}
	ret := m.style.Status.Render(v)

	if m.err != nil {
		ret += "\n" + m.style.Error.Render(wrapWords(m.err.Error(), m.contentWidth()))
	}
	return ret
}

func (m model) textAreaView() string {
	return m.style.Input.Render(m.textArea.View())
}

func (m model) View() string {
	return m.headerView() + "\n" +
		m.viewport.View() + "\n" +
		m.statusView() + "\n" +
		m.textAreaView() + "\n" +
		m.help.View(m.keyMap)
}

// Run starts the terminal UI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, o *orchestrator.Orchestrator, options ...Option) error {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	removeChangeListener := o.Store().AddListener(chat.ChangeListenerFunc(func(chat.Change) { notify() }))
	defer removeChangeListener()
	removePendingListener := o.AddPendingListener(orchestrator.PendingListenerFunc(func(bool) { notify() }))
	defer removePendingListener()

	o.EnsureActiveSession(ctx)

	p := tea.NewProgram(
		NewModel(ctx, o, changes, options...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "running chat ui")
	}
	return nil
}
