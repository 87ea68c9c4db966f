package kernel

import (
	"fmt"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/core/tokens"
)

// Status is a point-in-time snapshot of the session.
type Status struct {
	SessionID       string
	State           TurnState
	ActiveModel     string
	LanguageMode    LanguageMode
	TargetLanguage  string
	Capabilities    map[capability.Name]capability.State
	AvailableModels []string
	HistoryLength   int // turns including the system turn
	Exchanges       int // completed user/assistant pairs
	Summary         string
	WindowTokens    int // estimated tokens in the next request window; 0 without a counter
}

// Status returns a snapshot of the session.
func (k *Kernel) Status() Status {
	cfg := k.Config()
	length := k.session.Len()
	exchanges := (length - 1) / 2

	st := Status{
		SessionID:       k.session.ID(),
		State:           k.State(),
		ActiveModel:     cfg.ActiveModel,
		LanguageMode:    cfg.LanguageMode,
		TargetLanguage:  cfg.TargetLanguage,
		Capabilities:    k.caps.Snapshot(),
		AvailableModels: k.AvailableModels(),
		HistoryLength:   length,
		Exchanges:       exchanges,
		Summary:         Summarize(length - 1),
	}

	if k.counter != nil {
		st.WindowTokens = tokens.CountMessages(k.counter, k.session.Window(k.historyWindow))
	}

	return st
}

// Summarize describes a history of n non-system turns.
func Summarize(n int) string {
	return fmt.Sprintf("Conversation has %d messages", max(n, 0))
}
