package rpc

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/completion"
	"github.com/tailored-agentic-units/converse/kernel"
)

const (
	metaKind       = "Converse-Error"
	metaCapability = "Converse-Capability"

	kindCapabilityUnavailable = "capability-unavailable"
)

// wireErrors maps session errors onto connect codes and the kind carried in
// error metadata so clients can restore them.
var wireErrors = []struct {
	kind string
	err  error
	code connect.Code
}{
	{"input-empty", kernel.ErrInputEmpty, connect.CodeInvalidArgument},
	{"turn-in-progress", kernel.ErrTurnInProgress, connect.CodeAborted},
	{"model-required", kernel.ErrModelRequired, connect.CodeInvalidArgument},
	{"unknown-language-mode", kernel.ErrUnknownLanguageMode, connect.CodeInvalidArgument},
	{"unauthorized", completion.ErrUnauthorized, connect.CodeUnauthenticated},
	{"rate-limited", completion.ErrRateLimited, connect.CodeResourceExhausted},
	{"unreachable", completion.ErrUnreachable, connect.CodeUnavailable},
	{"malformed", completion.ErrMalformed, connect.CodeInternal},
}

// toConnect converts a session error into a *connect.Error.
func toConnect(err error) error {
	if err == nil {
		return nil
	}

	var unavailable *kernel.CapabilityUnavailableError
	if errors.As(err, &unavailable) {
		cerr := connect.NewError(connect.CodeFailedPrecondition, err)
		cerr.Meta().Set(metaKind, kindCapabilityUnavailable)
		cerr.Meta().Set(metaCapability, string(unavailable.Capability))
		return cerr
	}

	for _, w := range wireErrors {
		if errors.Is(err, w.err) {
			cerr := connect.NewError(w.code, err)
			cerr.Meta().Set(metaKind, w.kind)
			return cerr
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// remoteError is a *connect.Error that also matches the session error it
// was converted from.
type remoteError struct {
	sentinel error
	cerr     *connect.Error
}

func (e *remoteError) Error() string   { return e.cerr.Error() }
func (e *remoteError) Unwrap() []error { return []error{e.sentinel, e.cerr} }

// fromConnect restores the session error carried by a connect error, so
// callers can use errors.Is against kernel and completion sentinels.
func fromConnect(err error) error {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return err
	}

	kind := cerr.Meta().Get(metaKind)
	if kind == kindCapabilityUnavailable {
		name := capability.Name(cerr.Meta().Get(metaCapability))
		return &remoteError{sentinel: &kernel.CapabilityUnavailableError{Capability: name}, cerr: cerr}
	}

	for _, w := range wireErrors {
		if w.kind == kind {
			return &remoteError{sentinel: w.err, cerr: cerr}
		}
	}
	return err
}
