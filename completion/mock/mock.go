// Package mock provides a scriptable completion.Provider for tests.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/converse/core/protocol"
)

// Call records one Complete invocation.
type Call struct {
	Window []protocol.Message
	Model  string
}

// Response is one scripted Complete outcome.
type Response struct {
	Reply string
	Err   error
}

// Client is a completion.Provider whose replies are scripted in advance.
// Once the script is exhausted the last response repeats.
type Client struct {
	responses []Response
	models    []string
	modelsErr error

	mu    sync.Mutex
	calls []Call
}

// Option configures a Client.
type Option func(*Client)

// WithReply appends a successful reply to the script.
func WithReply(reply string) Option {
	return func(c *Client) { c.responses = append(c.responses, Response{Reply: reply}) }
}

// WithError appends a failure to the script.
func WithError(err error) Option {
	return func(c *Client) { c.responses = append(c.responses, Response{Err: err}) }
}

// WithModels sets the ListModels result.
func WithModels(models ...string) Option {
	return func(c *Client) { c.models = models }
}

// WithModelsError makes ListModels fail.
func WithModelsError(err error) Option {
	return func(c *Client) { c.modelsErr = err }
}

// New creates a scripted Client.
func New(opts ...Option) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Complete(ctx context.Context, window []protocol.Message, model string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, Call{Window: slices.Clone(window), Model: model})

	if len(c.responses) == 0 {
		return "mock reply", nil
	}

	i := min(len(c.calls)-1, len(c.responses)-1)
	return c.responses[i].Reply, c.responses[i].Err
}

func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if c.modelsErr != nil {
		return nil, c.modelsErr
	}
	return slices.Clone(c.models), nil
}

// Calls returns a copy of every recorded Complete call.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// CallCount returns the number of Complete calls.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}
