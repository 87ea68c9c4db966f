package command

import (
	"context"
	"fmt"
	"sync"
)

// Handler executes one command. arg is the text following the command name.
type Handler func(ctx context.Context, arg string) (Result, error)

// Result is a command's output for the presentation layer.
type Result struct {
	Content string // markdown shown to the user
	Message string // when set, sent to the conversation as the user's message
	Quit    bool
}

// Registry maps builtin command names to handlers.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a builtin command.
// Returns ErrUnknownCommand for names Parse never produces and
// ErrAlreadyExists if a handler is already bound; use Replace to swap one.
func (r *Registry) Register(name string, h Handler) error {
	spec, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, spec.Name)
	}
	r.handlers[spec.Name] = h
	return nil
}

// Replace swaps the handler bound to a command.
// Returns ErrNotFound if no handler is bound.
func (r *Registry) Replace(name string, h Handler) error {
	spec, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[spec.Name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, spec.Name)
	}
	r.handlers[spec.Name] = h
	return nil
}

// Execute dispatches a parsed command to its handler.
// Handler errors are wrapped with the command name.
func (r *Registry) Execute(ctx context.Context, cmd Command) (Result, error) {
	if cmd.IsMessage() {
		return Result{}, ErrNotACommand
	}

	r.mu.RLock()
	h, exists := r.handlers[cmd.Name]
	r.mu.RUnlock()

	if !exists {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, cmd.Name)
	}

	result, err := h(ctx, cmd.Arg)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return result, nil
}
