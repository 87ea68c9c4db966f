package command

import "errors"

// Sentinel errors for command dispatch.
var (
	ErrNotFound       = errors.New("command has no handler")
	ErrAlreadyExists  = errors.New("command handler already registered")
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotACommand    = errors.New("input is a message, not a command")
)
