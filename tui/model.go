// Package tui is the terminal chat interface over a single conversation
// session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/command"
	"github.com/tailored-agentic-units/converse/kernel"
	"github.com/tailored-agentic-units/converse/observability"
)

// Session is the session manager surface the chat UI drives.
// *kernel.Kernel implements it.
type Session interface {
	command.Session
	ExecuteTurnWith(ctx context.Context, text string, opts kernel.TurnOptions) (*kernel.TurnResult, error)
	Capabilities() map[capability.Name]capability.State
}

// Options configures the chat UI.
type Options struct {
	SourceLanguage string
	Speak          bool                    // speak replies from the start
	Style          string                  // glamour standard style; "auto" when empty
	Activity       *observability.Recorder // optional event feed for the footer
}

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNotice
	entryError
)

type entry struct {
	kind entryKind
	text string

	rendered string // cached; cleared on resize
}

type turnDoneMsg struct {
	result *kernel.TurnResult
	err    error
}

type commandDoneMsg struct {
	result command.Result
	err    error
}

// Model is the bubbletea model for the chat UI.
type Model struct {
	ctx      context.Context
	session  Session
	commands *command.Registry
	opts     Options

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	theme    theme

	entries []entry
	renders int
	busy    bool
	speak   bool
	status  string
	width   int
	height  int
}

// New creates the chat model. ctx bounds every turn and command it runs.
func New(ctx context.Context, s Session, opts Options) Model {
	if opts.SourceLanguage == "" {
		opts.SourceLanguage = "en"
	}
	if opts.Style == "" {
		opts.Style = "auto"
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Type a message, or help for commands"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 4

	m := Model{
		ctx:      ctx,
		session:  s,
		commands: command.Bind(s, opts.SourceLanguage),
		opts:     opts,
		input:    input,
		timeline: timeline,
		spinner:  sp,
		theme:    newTheme(),
		speak:    opts.Speak,
		status:   "ready",
	}
	m.renderer = newRenderer(opts.Style, 80)
	m.renderTimeline()
	return m
}

func newRenderer(style string, width int) *glamour.TermRenderer {
	styleOpt := glamour.WithStandardStyle(style)
	if style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	case turnDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.add(entryError, describeError(msg.err))
			m.status = "turn failed"
			break
		}
		m.add(entryAssistant, msg.result.DisplayText)
		m.status = "reply from " + msg.result.ModelUsed
		if msg.result.Translated {
			m.status += " · translated"
		}
		if msg.result.Spoken {
			m.status += " · spoken"
		}
	case commandDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.add(entryError, describeError(msg.err))
			m.status = "command failed"
			break
		}
		if msg.result.Content != "" {
			m.add(entryNotice, msg.result.Content)
		}
		if msg.result.Quit {
			return m, tea.Quit
		}
		m.status = "ready"
		if msg.result.Message != "" {
			cmds = append(cmds, m.send(msg.result.Message))
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+s":
			m.speak = !m.speak
			m.status = fmt.Sprintf("speak replies: %v", onOff(m.speak))
			return m, nil
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		case "enter":
			if m.busy {
				m.status = "still working on the last request"
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" {
				return m, nil
			}
			cmd := m.submit(text)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// submit classifies input and starts the matching turn or command.
func (m *Model) submit(text string) tea.Cmd {
	parsed := command.Parse(text)
	if parsed.IsMessage() {
		return m.send(parsed.Text)
	}

	m.busy = true
	m.status = parsed.Name + "..."
	ctx, registry := m.ctx, m.commands
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		result, err := registry.Execute(ctx, parsed)
		return commandDoneMsg{result: result, err: err}
	})
}

func (m *Model) send(text string) tea.Cmd {
	m.add(entryUser, text)
	m.busy = true
	m.status = "thinking..."

	ctx, s := m.ctx, m.session
	opts := kernel.TurnOptions{Speak: m.speak}
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		result, err := s.ExecuteTurnWith(ctx, text, opts)
		return turnDoneMsg{result: result, err: err}
	})
}

func (m *Model) add(kind entryKind, text string) {
	m.entries = append(m.entries, entry{kind: kind, text: text})
	m.renderTimeline()
	m.timeline.GotoBottom()
}

func (m *Model) resize() {
	width := max(40, m.width-4)
	m.input.Width = max(20, width-6)
	m.timeline.Width = width
	m.timeline.Height = max(3, m.height-lipgloss.Height(m.renderHeader())-lipgloss.Height(m.renderInput())-2)
	m.renderer = newRenderer(m.opts.Style, max(20, width-2))
	for i := range m.entries {
		m.entries[i].rendered = ""
	}
	m.renderTimeline()
}

func (m *Model) renderTimeline() {
	if len(m.entries) == 0 {
		m.timeline.SetContent(m.theme.muted.Render("No messages yet. Type help to see the commands."))
		return
	}

	var b strings.Builder
	for i := range m.entries {
		e := &m.entries[i]
		if e.rendered == "" {
			e.rendered = m.renderEntry(*e)
		}
		b.WriteString(e.rendered)
	}
	m.timeline.SetContent(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderEntry(e entry) string {
	m.renders++
	switch e.kind {
	case entryUser:
		return m.theme.user.Render("you") + "\n" + e.text + "\n\n"
	case entryAssistant:
		return m.theme.assistant.Render("assistant") + "\n" + m.markdown(e.text) + "\n"
	case entryNotice:
		return m.markdown(e.text) + "\n"
	default:
		return m.theme.failure.Render("error: ") + e.text + "\n\n"
	}
}

func (m *Model) markdown(text string) string {
	if m.renderer == nil {
		return text + "\n"
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.timeline.View(),
		m.renderInput(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	caps := m.session.Capabilities()
	badges := make([]string, 0, len(caps))
	for _, name := range capability.Names() {
		state := caps[name]
		badges = append(badges, m.theme.states[state].Render(fmt.Sprintf("%s:%s", name, state)))
	}

	cfg := m.session.Config()
	lang := m.opts.SourceLanguage
	if cfg.LanguageMode == kernel.LanguageTarget {
		lang = cfg.TargetLanguage
	}

	line := fmt.Sprintf("%s  %s  %s  %s",
		m.theme.title.Render("converse"),
		m.theme.muted.Render("model "+cfg.ActiveModel),
		m.theme.muted.Render("lang "+lang),
		strings.Join(badges, " "),
	)
	return m.theme.header.Render(line)
}

func (m Model) renderInput() string {
	return m.theme.input.Render(m.input.View())
}

func (m Model) renderFooter() string {
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}

	parts := []string{status, "speak " + onOff(m.speak), "ctrl+s voice out", "esc quit"}
	if m.opts.Activity != nil {
		if events := m.opts.Activity.Events(); len(events) > 0 {
			parts = append(parts, "last "+string(events[len(events)-1].Type))
		}
	}
	return m.theme.footer.Render(strings.Join(parts, " · "))
}

func describeError(err error) string {
	var unavailable *kernel.CapabilityUnavailableError
	if errors.As(err, &unavailable) {
		return fmt.Sprintf("%s is unavailable; check its credentials and run status.", unavailable.Capability)
	}
	return err.Error()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
