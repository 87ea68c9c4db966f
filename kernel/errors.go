package kernel

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/converse/capability"
)

var (
	// ErrInputEmpty is returned for blank input before any I/O.
	ErrInputEmpty = errors.New("input is empty")
	// ErrTurnInProgress is returned when a turn is requested while another
	// is still executing.
	ErrTurnInProgress = errors.New("a turn is already in progress")
	// ErrModelRequired is returned by SetModel for an empty name.
	ErrModelRequired = errors.New("model name is required")
	// ErrUnknownLanguageMode is returned for a mode other than source or target.
	ErrUnknownLanguageMode = errors.New("unknown language mode")
)

// CapabilityUnavailableError reports an operation that needs a capability
// which was never initialized.
type CapabilityUnavailableError struct {
	Capability capability.Name
}

func (e *CapabilityUnavailableError) Error() string {
	return fmt.Sprintf("capability unavailable: %s", e.Capability)
}

// Is matches any *CapabilityUnavailableError for the same capability.
func (e *CapabilityUnavailableError) Is(target error) bool {
	t, ok := target.(*CapabilityUnavailableError)
	return ok && t.Capability == e.Capability
}
