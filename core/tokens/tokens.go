// Package tokens estimates how many tokens a conversation window costs.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tailored-agentic-units/converse/core/protocol"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// messageOverhead approximates the per-message framing tokens added by chat
// completion APIs.
const messageOverhead = 4

// Counter counts the tokens in a piece of text.
type Counter interface {
	Count(text string) int
}

// Heuristic estimates four characters per token.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	return (len(text) + 3) / 4
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken creates a Counter for the named encoding. The first call for
// an encoding may download its BPE ranks.
func NewTiktoken(encoding string) (Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &tiktokenCounter{enc: enc}, nil
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Lazy defers building a Counter until first use. If building fails the
// Heuristic is used from then on.
type Lazy struct {
	build func() (Counter, error)

	once    sync.Once
	counter Counter
	err     error
}

// NewLazy wraps build in a Lazy counter.
func NewLazy(build func() (Counter, error)) *Lazy {
	return &Lazy{build: build}
}

// LazyTiktoken is a Lazy counter over the named tiktoken encoding.
func LazyTiktoken(encoding string) *Lazy {
	return NewLazy(func() (Counter, error) { return NewTiktoken(encoding) })
}

func (l *Lazy) Count(text string) int {
	l.once.Do(func() {
		l.counter, l.err = l.build()
		if l.err != nil || l.counter == nil {
			l.counter = Heuristic{}
		}
	})
	return l.counter.Count(text)
}

// Err reports the build failure, if any, after the first Count.
func (l *Lazy) Err() error {
	return l.err
}

// CountMessages sums the token cost of a message window.
func CountMessages(c Counter, messages []protocol.Message) int {
	total := 0
	for _, m := range messages {
		total += messageOverhead + c.Count(string(m.Role)) + c.Count(m.Content)
	}
	return total
}
