package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/puyokura/odysseychat/chat"
	"github.com/puyokura/odysseychat/model"
	"github.com/puyokura/odysseychat/persona"
)

const (
	serverDownMessage = "Server is not up. Please try again later."
	sidebarWidth      = 24
)

type screen int

const (
	screenLogin screen = iota
	screenChat
)

type modelState struct {
	network  *Network
	dir      persona.Directory
	log      *zap.Logger
	renderer *Renderer
	picker   *chat.MentionPicker
	typing   *chat.TypingNotifier

	screen    screen
	login     textinput.Model
	loginErr  string
	viewport  viewport.Model
	textInput textinput.Model
	spinner   spinner.Model

	state     chat.Snapshot
	facts     []model.Fact
	showFacts bool
	notice    string

	autoLogin string
	width     int
	height    int
	ready     bool
}

func initialModel(net *Network, cfg *Config, dir persona.Directory, log *zap.Logger) modelState {
	li := textinput.New()
	li.Placeholder = "Choose a username"
	li.Focus()
	li.CharLimit = 32
	li.Width = 32

	ti := textinput.New()
	ti.Placeholder = "Type a message... (@ to mention a persona)"
	ti.CharLimit = 2000
	ti.Width = 20

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = aiStyle

	return modelState{
		network:   net,
		dir:       dir,
		log:       log,
		renderer:  NewRenderer(dir, 80),
		picker:    chat.NewMentionPicker(persona.IDs(dir)),
		typing:    chat.NewTypingNotifier(net, cfg.TypingTimeoutDuration()),
		screen:    screenLogin,
		login:     li,
		textInput: ti,
		spinner:   sp,
		state:     net.State(),
		autoLogin: strings.TrimSpace(cfg.Username),
	}
}

func (m modelState) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.network.WaitForMessage, m.spinner.Tick}
	if m.autoLogin != "" {
		cmds = append(cmds, func() tea.Msg { return loginMsg{username: m.autoLogin} })
	}
	return tea.Batch(cmds...)
}

type loginMsg struct {
	username string
}

func (m modelState) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			m.log.Error("panic in update",
				zap.Any("panic", r),
				zap.ByteString("stack", buf[:n]))
		}
	}()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.typing.Stop()
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		return m.updateChat(msg)

	case loginMsg:
		return m.startChat(msg.username)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.chatWidth(), 1)
			m.ready = true
		}
		m.textInput.Width = msg.Width - 4
		m.renderer.SetWidth(m.chatWidth() - 2)
		m.layout()
		m.refresh()
		return m, nil

	case stateMsg:
		m.state = chat.Snapshot(msg)
		m.refresh()
		return m, m.network.WaitForMessage

	case connectionFailedMsg:
		m.log.Warn("connection failed", zap.String("username", m.state.Username))
		m.typing.Stop()
		m.toLogin(serverDownMessage)
		return m, tea.Batch(m.network.Logout(), m.network.WaitForMessage)

	case factsMsg:
		if msg.err != nil {
			m.notice = errorStyle.Render("Could not load facts: " + msg.err.Error())
			return m, nil
		}
		m.facts = msg.facts
		m.showFacts = true
		m.notice = ""
		m.layout()
		return m, nil

	case factDeletedMsg:
		if msg.err != nil {
			m.notice = errorStyle.Render("Could not delete fact: " + msg.err.Error())
			return m, nil
		}
		m.notice = dimStyle.Render("Deleted " + shortID(msg.id))
		return m, m.network.LoadFacts(m.state.Username)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if hasPending(m.state.Entries) {
			m.refresh()
		}
		return m, cmd

	case errMsg:
		m.log.Error("client error", zap.Error(msg))
		m.notice = errorStyle.Render(msg.Error())
		return m, nil
	}

	var cmd tea.Cmd
	if m.screen == screenLogin {
		m.login, cmd = m.login.Update(msg)
	} else {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return m, cmd
}

func (m modelState) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		name := strings.TrimSpace(m.login.Value())
		if name == "" {
			m.loginErr = "Please enter a username."
			return m, nil
		}
		return m.startChat(name)
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	return m, cmd
}

func (m modelState) startChat(name string) (tea.Model, tea.Cmd) {
	m.screen = screenChat
	m.loginErr = ""
	m.notice = ""
	m.login.Blur()
	m.textInput.Focus()
	m.layout()
	return m, m.network.Login(name)
}

func (m *modelState) toLogin(reason string) {
	m.screen = screenLogin
	m.loginErr = reason
	m.showFacts = false
	m.facts = nil
	m.textInput.SetValue("")
	m.textInput.Blur()
	m.picker.Update("")
	m.login.Focus()
}

func (m modelState) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.Visible() {
		switch msg.Type {
		case tea.KeyDown:
			m.picker.Down()
			return m, nil
		case tea.KeyUp:
			m.picker.Up()
			return m, nil
		case tea.KeyEnter, tea.KeyTab:
			if out, ok := m.picker.Commit(m.textInput.Value()); ok {
				m.textInput.SetValue(out)
				m.textInput.CursorEnd()
			}
			m.layout()
			return m, nil
		case tea.KeyEsc:
			m.picker.Dismiss()
			m.layout()
			return m, nil
		}
	}

	switch msg.Type {
	case tea.KeyEnter:
		content := strings.TrimSpace(m.textInput.Value())
		m.textInput.SetValue("")
		m.picker.Update("")
		m.typing.Blur()
		m.layout()
		if content == "" {
			return m, nil
		}
		return m.submit(content)
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	before := m.textInput.Value()
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	if after := m.textInput.Value(); after != before {
		m.picker.Update(after)
		m.typing.Keystroke(after)
		m.layout()
	}
	return m, cmd
}

// submit runs client commands locally and sends everything else.
func (m modelState) submit(content string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(content)
	switch fields[0] {
	case "/quit":
		m.typing.Stop()
		return m, tea.Quit

	case "/logout":
		m.typing.Stop()
		m.toLogin("")
		return m, m.network.Logout()

	case "/personas":
		var names []string
		for _, p := range m.dir.List() {
			names = append(names, fmt.Sprintf("%s %s", p.Avatar, p.ID))
		}
		m.notice = dimStyle.Render("Personas: " + strings.Join(names, ", "))
		return m, nil

	case "/persona":
		if len(fields) != 2 {
			m.notice = errorStyle.Render("Usage: /persona <id>")
			return m, nil
		}
		p, ok := m.dir.FindByID(fields[1])
		if !ok {
			m.notice = errorStyle.Render("Unknown persona: " + fields[1])
			return m, nil
		}
		m.notice = dimStyle.Render("Persona set to " + p.Name)
		return m, m.network.SetPersona(p.ID)

	case "/facts":
		if m.showFacts {
			m.showFacts = false
			m.layout()
			return m, nil
		}
		return m, m.network.LoadFacts(m.state.Username)

	case "/forget":
		if len(fields) != 2 {
			m.notice = errorStyle.Render("Usage: /forget <id>")
			return m, nil
		}
		return m, m.network.DeleteFact(m.resolveFactID(fields[1]))
	}

	m.notice = ""
	return m, m.network.SendMessage(content)
}

// resolveFactID expands the short id shown in the facts panel.
func (m modelState) resolveFactID(prefix string) string {
	for _, f := range m.facts {
		if strings.HasPrefix(f.ID, prefix) {
			return f.ID
		}
	}
	return prefix
}

func (m modelState) chatWidth() int {
	w := m.width - sidebarWidth
	if w < 20 {
		w = 20
	}
	return w
}

// layout sizes the viewport around the header, input and panels.
func (m *modelState) layout() {
	if !m.ready {
		return
	}
	chrome := 5
	if m.picker.Visible() {
		chrome += len(m.picker.Suggestions()) + 2
	}
	if m.showFacts {
		chrome += lipgloss.Height(FactsPanel(m.facts))
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.chatWidth()
	m.viewport.Height = h
}

func (m *modelState) refresh() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderer.Timeline(m.state.Entries, m.spinner.View()))
	if atBottom || len(m.state.Entries) > 0 && m.state.Entries[len(m.state.Entries)-1].Sender == model.SenderSelf {
		m.viewport.GotoBottom()
	}
}

func hasPending(entries []chat.Entry) bool {
	for _, e := range entries {
		if e.Pending {
			return true
		}
	}
	return false
}

func (m modelState) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	if m.screen == screenLogin {
		return m.loginView()
	}
	return m.chatView()
}

func (m modelState) loginView() string {
	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render("Odyssey Chat"))
	b.WriteString("\n\n  ")
	b.WriteString(m.login.View())
	b.WriteString("\n\n  ")
	if m.loginErr != "" {
		b.WriteString(errorStyle.Render(m.loginErr))
	} else {
		b.WriteString(dimStyle.Render("Press Enter to join, Ctrl+C to quit."))
	}
	return b.String()
}

func (m modelState) chatView() string {
	personaLabel := "no persona"
	if m.state.Persona != "" {
		personaLabel = persona.AvatarFor(m.dir, m.state.Persona) + " " + m.state.Persona
	}
	header := fmt.Sprintf("%s  %s  %s  %s",
		titleStyle.Render("Odyssey Chat"),
		dimStyle.Render(m.state.Username),
		dimStyle.Render(personaLabel),
		StatusBadge(m.state.Status))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewport.View(),
		UserList(m.state.Presence, m.state.Username, m.viewport.Height))

	parts := []string{header, body}
	if m.showFacts {
		parts = append(parts, FactsPanel(m.facts))
	}
	parts = append(parts, lipgloss.NewStyle().Foreground(borderColor).Render(strings.Repeat("─", m.width)))
	if m.picker.Visible() {
		parts = append(parts, Suggestions(m.dir, m.picker.Suggestions(), m.picker.Index()))
	}

	status := TypingLine(m.state.Typing, m.state.Username)
	if m.notice != "" {
		status = m.notice
	}
	parts = append(parts, status, m.textInput.View())
	return strings.Join(parts, "\n")
}
