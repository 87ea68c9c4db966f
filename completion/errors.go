package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a completion failure.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindRateLimited
	KindUnreachable
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate limited"
	case KindUnreachable:
		return "unreachable"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is a typed completion failure. It is fatal to the current turn but
// recoverable for the session.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

// Sentinels for errors.Is comparisons against a Kind.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrUnreachable  = &Error{Kind: KindUnreachable}
	ErrMalformed    = &Error{Kind: KindMalformed}
)

var (
	ErrMissingAPIKey   = errors.New("completion api key is required")
	ErrUnknownProvider = errors.New("unknown completion provider")
	ErrEmptyReply      = errors.New("completion returned no reply")
	ErrUnsupportedRole = errors.New("unsupported message role")
)

func (e *Error) Error() string {
	msg := "completion " + e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so callers can write
// errors.Is(err, completion.ErrRateLimited).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindForStatus maps an HTTP status code onto the failure taxonomy.
// Status codes outside the documented mapping are treated as malformed
// exchanges.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindUnreachable
	default:
		return KindMalformed
	}
}

// StatusError builds an *Error from an HTTP status.
func StatusError(status int, err error) *Error {
	return &Error{Kind: KindForStatus(status), StatusCode: status, Err: err}
}

// Classify converts transport-level failures into an *Error. Errors that are
// already *Error are returned unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindMalformed, Err: err}
	}

	// Timeouts, transport failures and anything unrecognised mean the
	// service could not be reached.
	return &Error{Kind: KindUnreachable, Err: err}
}
