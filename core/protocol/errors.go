package protocol

import "errors"

// ErrUnknownRole is returned when a role string is not system, user or assistant.
var ErrUnknownRole = errors.New("unknown role")
