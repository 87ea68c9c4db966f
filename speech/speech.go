// Package speech captures spoken input and speaks replies aloud.
//
// Speech is optional. A nil Listener or Speaker means the capability is
// absent, and both interfaces report failure through their boolean results
// rather than errors: a missing microphone is a steady state, not a fault.
package speech

import (
	"context"
	"time"
)

// Listener captures one utterance and returns its transcript.
type Listener interface {
	Listen(ctx context.Context, timeout time.Duration) (string, bool)
}

// Speaker speaks text aloud. lang is a language hint used to pick a voice.
type Speaker interface {
	Speak(ctx context.Context, text, lang string) bool
}

// Checker is implemented by Listeners and Speakers that can verify their
// credentials and audio devices without performing I/O against the service.
type Checker interface {
	Check(ctx context.Context) error
}
