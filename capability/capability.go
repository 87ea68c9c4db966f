// Package capability tracks the availability of the optional external
// services a session depends on.
//
// Each capability is tri-state. Unavailable means the capability was never
// initialized (its startup probe failed or it is not configured). Available
// means the last probe or call succeeded. Degraded means it was initialized
// but the most recent call failed; degraded is advisory only and never blocks
// the next attempt.
package capability

import (
	"sync"
)

// Name identifies a capability.
type Name string

const (
	Completion  Name = "completion"
	Translation Name = "translation"
	SpeechIn    Name = "speech-in"
	SpeechOut   Name = "speech-out"
)

// Names returns every capability in display order.
func Names() []Name {
	return []Name{Completion, Translation, SpeechIn, SpeechOut}
}

// State is the availability of a capability.
type State int

const (
	Unavailable State = iota
	Available
	Degraded
)

func (s State) String() string {
	switch s {
	case Unavailable:
		return "unavailable"
	case Available:
		return "available"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Usable reports whether calls against a capability in this state should be
// attempted.
func (s State) Usable() bool {
	return s == Available || s == Degraded
}

// Set is a concurrency-safe map of capability states. Every capability starts
// Unavailable.
type Set struct {
	states map[Name]State
	mu     sync.RWMutex
}

// NewSet creates a Set with every capability Unavailable.
func NewSet() *Set {
	states := make(map[Name]State, len(Names()))
	for _, name := range Names() {
		states[name] = Unavailable
	}
	return &Set{states: states}
}

// Get returns the current state of name.
func (s *Set) Get(name Name) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[name]
}

// Set stores state for name and returns the previous state.
func (s *Set) Set(name Name, state State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.states[name]
	s.states[name] = state
	return prev
}

// MarkFailure records a failed runtime call. Usable capabilities become
// Degraded; an Unavailable capability stays Unavailable.
func (s *Set) MarkFailure(name Name) (prev, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.states[name]
	next = prev
	if prev.Usable() {
		next = Degraded
	}
	s.states[name] = next
	return prev, next
}

// MarkSuccess records a successful runtime call. Usable capabilities become
// Available; an Unavailable capability stays Unavailable.
func (s *Set) MarkSuccess(name Name) (prev, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev = s.states[name]
	next = prev
	if prev.Usable() {
		next = Available
	}
	s.states[name] = next
	return prev, next
}

// Snapshot returns a copy of every capability state.
func (s *Set) Snapshot() map[Name]State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make(map[Name]State, len(s.states))
	for k, v := range s.states {
		copied[k] = v
	}
	return copied
}
