package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tailored-agentic-units/converse/completion/mock"
	"github.com/tailored-agentic-units/converse/kernel"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/speech"
	"github.com/tailored-agentic-units/converse/translation"
)

func newTestModel(t *testing.T, opts ...kernel.Option) (Model, *kernel.Kernel) {
	t.Helper()

	cfg := kernel.DefaultConfig()
	cfg.Translation.Provider = translation.ProviderNone
	cfg.Speech.Provider = speech.ProviderNone

	opts = append([]kernel.Option{kernel.WithObserver(observability.Discard)}, opts...)
	k, err := kernel.New(context.Background(), &cfg, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	m := New(context.Background(), k, Options{Style: "notty"})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model), k
}

// drive runs cmd and feeds every resulting message back into the model,
// skipping spinner ticks. It reports whether the program asked to quit.
func drive(t *testing.T, m Model, cmd tea.Cmd) (Model, bool) {
	t.Helper()
	if cmd == nil {
		return m, false
	}

	switch msg := cmd().(type) {
	case nil, spinner.TickMsg:
		return m, false
	case tea.QuitMsg:
		return m, true
	case tea.BatchMsg:
		quit := false
		for _, c := range msg {
			var q bool
			m, q = drive(t, m, c)
			quit = quit || q
		}
		return m, quit
	default:
		next, cmd := m.Update(msg)
		return drive(t, next.(Model), cmd)
	}
}

func enter(t *testing.T, m Model, text string) (Model, bool) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return drive(t, next.(Model), cmd)
}

func TestModel_SendMessage(t *testing.T) {
	m, k := newTestModel(t, kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))))

	m, quit := enter(t, m, "Hello")
	if quit {
		t.Fatal("unexpected quit")
	}

	if m.busy {
		t.Error("expected the turn to finish")
	}
	if len(m.entries) != 2 || m.entries[0].kind != entryUser || m.entries[1].kind != entryAssistant {
		t.Fatalf("got entries %+v", m.entries)
	}
	if m.entries[1].text != "Hi there" {
		t.Errorf("got reply %q, want Hi there", m.entries[1].text)
	}
	if got := len(k.History()); got != 3 {
		t.Errorf("got history length %d, want 3", got)
	}
	if m.input.Value() != "" {
		t.Errorf("got input %q, want it cleared", m.input.Value())
	}

	view := m.View()
	for _, want := range []string{"Hello", "Hi there", "completion:available"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}

func TestModel_TurnFailure(t *testing.T) {
	m, _ := newTestModel(t)

	m, _ = enter(t, m, "Hello")

	last := m.entries[len(m.entries)-1]
	if last.kind != entryError || !strings.Contains(last.text, "completion is unavailable") {
		t.Errorf("got last entry %+v, want the unavailable notice", last)
	}
	if m.status != "turn failed" {
		t.Errorf("got status %q", m.status)
	}
}

func TestModel_Commands(t *testing.T) {
	m, k := newTestModel(t, kernel.WithCompletion(mock.New()))

	m, _ = enter(t, m, "language")
	if k.Config().LanguageMode != kernel.LanguageTarget {
		t.Errorf("got mode %s, want target", k.Config().LanguageMode)
	}
	if m.entries[len(m.entries)-1].kind != entryNotice {
		t.Errorf("expected a notice after a command")
	}

	m, _ = enter(t, m, "help")
	if !strings.Contains(m.entries[len(m.entries)-1].text, "translate <text>") {
		t.Error("expected help output")
	}

	_, quit := enter(t, m, "quit")
	if !quit {
		t.Error("expected quit")
	}
}

func TestModel_VoiceFeedsTurn(t *testing.T) {
	client := mock.New(mock.WithReply("It is noon"))
	m, _ := newTestModel(t,
		kernel.WithCompletion(client),
		kernel.WithListener(listener("what time is it")),
	)

	m, _ = enter(t, m, "voice")

	if client.CallCount() != 1 {
		t.Fatalf("got %d completion calls, want 1", client.CallCount())
	}
	window := client.Calls()[0].Window
	if window[len(window)-1].Content != "what time is it" {
		t.Errorf("got user turn %q", window[len(window)-1].Content)
	}
	if m.entries[len(m.entries)-1].text != "It is noon" {
		t.Errorf("got last entry %+v", m.entries[len(m.entries)-1])
	}
}

func TestModel_ToggleSpeak(t *testing.T) {
	m, _ := newTestModel(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(Model)
	if !m.speak {
		t.Error("expected speak to be on")
	}
	if !strings.Contains(m.View(), "speak on") {
		t.Error("footer does not show speak on")
	}
}

func TestModel_IgnoresInputWhileBusy(t *testing.T) {
	m, _ := newTestModel(t, kernel.WithCompletion(mock.New()))
	m.busy = true
	m.input.SetValue("Hello")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	if cmd != nil {
		t.Error("expected no command while busy")
	}
	if len(m.entries) != 0 {
		t.Errorf("got %d entries, want 0", len(m.entries))
	}
	if m.input.Value() != "Hello" {
		t.Errorf("got input %q, want it kept for after the turn", m.input.Value())
	}
}

func TestModel_RendersEntriesOnce(t *testing.T) {
	m, _ := newTestModel(t, kernel.WithCompletion(mock.New(mock.WithReply("Hi there"))))
	m, _ = enter(t, m, "Hello")

	rendered := m.renders
	if rendered != 2 {
		t.Fatalf("got %d renders, want one per entry", rendered)
	}

	for range 10 {
		next, _ := m.Update(m.spinner.Tick())
		m = next.(Model)
	}
	if m.renders != rendered {
		t.Errorf("got %d renders after spinner ticks, want %d", m.renders, rendered)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	if m.renders != rendered+2 {
		t.Errorf("got %d renders after resize, want %d", m.renders, rendered+2)
	}
	if !strings.Contains(m.View(), "Hi there") {
		t.Error("view is missing the reply after resize")
	}
}

type listener string

func (l listener) Listen(ctx context.Context, timeout time.Duration) (string, bool) {
	return string(l), l != ""
}
