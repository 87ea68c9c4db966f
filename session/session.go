// Package session manages conversation history for the kernel turn loop.
//
// A history always begins with a single system turn that is never evicted.
// The full history grows for the lifetime of the process; only the outbound
// request window sent to the completion service is bounded.
package session

import (
	"github.com/tailored-agentic-units/converse/core/protocol"
)

// Session holds an ordered sequence of conversation turns. Implementations
// must be safe for concurrent use, and readers must never observe a user
// turn without its paired assistant turn.
type Session interface {
	// ID returns the unique session identifier.
	ID() string
	// System returns the pinned system turn.
	System() protocol.Message
	// SetSystem replaces the pinned system turn content.
	SetSystem(content string)
	// Messages returns a defensive copy of the full history, system turn first.
	Messages() []protocol.Message
	// Window returns the system turn followed by at most the last n
	// non-system turns.
	Window(n int) []protocol.Message
	// AppendExchange appends a user turn and its assistant reply as one unit.
	AppendExchange(user, assistant protocol.Message)
	// Len returns the number of turns in the full history, including the system turn.
	Len() int
	// Reset clears the history back to the system turn.
	Reset()
}
