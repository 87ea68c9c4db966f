// Package command classifies user input as either a command or a message
// for the conversation, and dispatches commands to registered handlers.
package command

import (
	"strings"
	"unicode"
)

// Args describes what a command accepts after its name.
type Args int

const (
	NoArgs Args = iota
	OptionalArg
	TrailingText
)

// Spec describes one command.
type Spec struct {
	Name        string
	Aliases     []string
	Args        Args
	Usage       string
	Description string
}

// Builtins are the commands recognized by Parse, in help order.
var Builtins = []Spec{
	{Name: "clear", Usage: "clear", Description: "Clear conversation history"},
	{Name: "language", Args: OptionalArg, Usage: "language [source|target]", Description: "Switch the reply language"},
	{Name: "model", Args: OptionalArg, Usage: "model [n|name]", Description: "Choose a listed model by number, or set one by name"},
	{Name: "status", Usage: "status", Description: "Show session and service status"},
	{Name: "history", Usage: "history", Description: "Show the conversation so far"},
	{Name: "translate", Args: TrailingText, Usage: "translate <text>", Description: "Translate text into the target language"},
	{Name: "voice", Usage: "voice", Description: "Speak your next message"},
	{Name: "help", Usage: "help", Description: "Show this help"},
	{Name: "quit", Aliases: []string{"exit"}, Usage: "quit | exit", Description: "End the session"},
}

// Command is the result of parsing one line of input. Name is empty for a
// conversational message, whose trimmed text is in Text.
type Command struct {
	Name string
	Arg  string
	Text string
}

// IsMessage reports whether the input is a message rather than a command.
func (c Command) IsMessage() bool {
	return c.Name == ""
}

// Parse classifies input. The first word selects a command
// case-insensitively; a command that takes no arguments only matches when it
// is the whole input, so "clear the table" is a message.
func Parse(input string) Command {
	text := strings.TrimSpace(input)
	word, rest := text, ""
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		word, rest = text[:i], strings.TrimSpace(text[i:])
	}

	spec, ok := Lookup(word)
	if !ok {
		return Command{Text: text}
	}

	switch spec.Args {
	case NoArgs:
		if rest != "" {
			return Command{Text: text}
		}
	case OptionalArg:
		if strings.IndexFunc(rest, unicode.IsSpace) >= 0 {
			return Command{Text: text}
		}
	}

	return Command{Name: spec.Name, Arg: rest, Text: text}
}

// Lookup finds a builtin by name or alias, case-insensitively.
func Lookup(name string) (Spec, bool) {
	name = strings.ToLower(name)
	for _, s := range Builtins {
		if s.Name == name {
			return s, true
		}
		for _, a := range s.Aliases {
			if a == name {
				return s, true
			}
		}
	}
	return Spec{}, false
}

// Help renders the builtin commands as a markdown table.
func Help() string {
	var b strings.Builder
	b.WriteString("| Command | Description |\n|---|---|\n")
	for _, s := range Builtins {
		b.WriteString("| `" + s.Usage + "` | " + s.Description + " |\n")
	}
	b.WriteString("\nAnything else is sent as a message.\n")
	return b.String()
}
