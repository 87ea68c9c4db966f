package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/core/protocol"
	"github.com/tailored-agentic-units/converse/kernel"
)

// Session is the part of the session manager the builtin commands drive.
// *kernel.Kernel implements it.
type Session interface {
	ClearHistory()
	History() []protocol.Message
	Config() kernel.SessionConfig
	SetLanguageMode(mode kernel.LanguageMode) error
	ToggleLanguageMode() kernel.LanguageMode
	ChooseModel(override string) (string, error)
	SetModel(name string) error
	Translate(ctx context.Context, text string) string
	Listen(ctx context.Context) (string, bool)
	Status() kernel.Status
}

// Bind returns a Registry with every builtin bound to s.
func Bind(s Session, sourceLanguage string) *Registry {
	r := NewRegistry()

	must := func(name string, h Handler) {
		if err := r.Register(name, h); err != nil {
			panic(err)
		}
	}

	must("clear", func(ctx context.Context, _ string) (Result, error) {
		s.ClearHistory()
		return Result{Content: "Conversation history cleared."}, nil
	})

	must("language", func(ctx context.Context, arg string) (Result, error) {
		var mode kernel.LanguageMode
		if arg == "" {
			mode = s.ToggleLanguageMode()
		} else {
			parsed, err := kernel.ParseLanguageMode(arg)
			if err != nil {
				return Result{}, err
			}
			if err := s.SetLanguageMode(parsed); err != nil {
				return Result{}, err
			}
			mode = parsed
		}

		lang := sourceLanguage
		if mode == kernel.LanguageTarget {
			lang = s.Config().TargetLanguage
		}
		return Result{Content: fmt.Sprintf("Replies are now shown in **%s** (`%s`).", mode, lang)}, nil
	})

	must("model", func(ctx context.Context, arg string) (Result, error) {
		if _, err := strconv.Atoi(arg); arg != "" && err != nil {
			if err := s.SetModel(arg); err != nil {
				return Result{}, err
			}
			return Result{Content: fmt.Sprintf("Model changed to `%s`.", arg)}, nil
		}

		model, err := s.ChooseModel(arg)
		if err != nil {
			return Result{}, err
		}
		return Result{Content: fmt.Sprintf("Model changed to `%s`.", model)}, nil
	})

	must("status", func(ctx context.Context, _ string) (Result, error) {
		return Result{Content: FormatStatus(s.Status())}, nil
	})

	must("history", func(ctx context.Context, _ string) (Result, error) {
		return Result{Content: FormatHistory(s.History())}, nil
	})

	must("translate", func(ctx context.Context, arg string) (Result, error) {
		if arg == "" {
			return Result{Content: "Usage: `translate <text>`"}, nil
		}
		translated := s.Translate(ctx, arg)
		target := s.Config().TargetLanguage
		return Result{Content: fmt.Sprintf("**%s:** %s\n\n**%s:** %s", sourceLanguage, arg, target, translated)}, nil
	})

	must("voice", func(ctx context.Context, _ string) (Result, error) {
		text, ok := s.Listen(ctx)
		if !ok {
			return Result{Content: "Voice input failed. Type your message instead."}, nil
		}
		return Result{Content: fmt.Sprintf("Heard: _%s_", text), Message: text}, nil
	})

	must("help", func(ctx context.Context, _ string) (Result, error) {
		return Result{Content: Help()}, nil
	})

	must("quit", func(ctx context.Context, _ string) (Result, error) {
		return Result{Content: "Goodbye.", Quit: true}, nil
	})

	return r
}

// FormatStatus renders a status snapshot as markdown.
func FormatStatus(st kernel.Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Session** `%s`\n\n", st.SessionID)
	b.WriteString("| Service | State |\n|---|---|\n")
	for _, name := range capability.Names() {
		fmt.Fprintf(&b, "| %s | %s |\n", name, st.Capabilities[name])
	}

	fmt.Fprintf(&b, "\n- Model: `%s`\n", st.ActiveModel)
	if len(st.AvailableModels) > 0 {
		models := make([]string, len(st.AvailableModels))
		for i, m := range st.AvailableModels {
			models[i] = fmt.Sprintf("%d. `%s`", i+1, m)
		}
		fmt.Fprintf(&b, "- Available: %s\n", strings.Join(models, ", "))
	}
	fmt.Fprintf(&b, "- Language: %s (target `%s`)\n", st.LanguageMode, st.TargetLanguage)
	fmt.Fprintf(&b, "- %s\n", st.Summary)
	if st.WindowTokens > 0 {
		fmt.Fprintf(&b, "- Next request: ~%d tokens\n", st.WindowTokens)
	}

	return b.String()
}

// FormatHistory renders the non-system turns as markdown.
func FormatHistory(history []protocol.Message) string {
	var b strings.Builder
	for _, m := range history {
		if m.Role == protocol.RoleSystem {
			continue
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", m.Role, m.Content)
	}
	if b.Len() == 0 {
		return "_No messages yet._"
	}
	return strings.TrimRight(b.String(), "\n")
}
