// Package completion is the leaf client for the hosted language-model
// completion service.
//
// Clients are stateless with respect to conversation content: the caller
// passes the complete outbound window on every call and the client never
// retains or mutates it.
package completion

import (
	"context"

	"github.com/tailored-agentic-units/converse/core/protocol"
)

// Client sends a bounded message window to a completion service and returns
// one reply. Failures are reported as *Error.
type Client interface {
	Complete(ctx context.Context, window []protocol.Message, model string) (string, error)
}

// ModelLister reports the model identifiers a completion service offers.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Provider is a completion service that can both complete and list models.
type Provider interface {
	Client
	ModelLister
}
