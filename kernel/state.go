package kernel

import (
	"fmt"
	"strings"
)

// TurnState is a position in the turn state machine:
//
//	Idle -> AwaitingCompletion -> AwaitingTranslation -> TurnComplete -> Idle
//	                           \-> TurnComplete -> Idle
//	                           \-> TurnFailed -> Idle
type TurnState int32

const (
	Idle TurnState = iota
	AwaitingCompletion
	AwaitingTranslation
	TurnComplete
	TurnFailed
)

func (s TurnState) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCompletion:
		return "awaiting-completion"
	case AwaitingTranslation:
		return "awaiting-translation"
	case TurnComplete:
		return "turn-complete"
	case TurnFailed:
		return "turn-failed"
	default:
		return "unknown"
	}
}

// LanguageMode selects which language replies are displayed in.
type LanguageMode string

const (
	LanguageSource LanguageMode = "source"
	LanguageTarget LanguageMode = "target"
)

// ParseLanguageMode accepts "source" or "target", case-insensitively.
func ParseLanguageMode(s string) (LanguageMode, error) {
	switch mode := LanguageMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case LanguageSource, LanguageTarget:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguageMode, s)
	}
}

// Toggle returns the other mode.
func (m LanguageMode) Toggle() LanguageMode {
	if m == LanguageTarget {
		return LanguageSource
	}
	return LanguageTarget
}
