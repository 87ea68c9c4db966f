package speech

import "errors"

var (
	ErrMissingAPIKey   = errors.New("speech api key is required")
	ErrUnknownProvider = errors.New("unknown speech provider")
	ErrNoCommand       = errors.New("audio command is empty")
	ErrServiceError    = errors.New("speech service reported an error")
)
