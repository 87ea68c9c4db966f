package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
)

var ErrUnknownObserver = errors.New("unknown observer")

// Names of the observers available before any registration. The "slog"
// entry is replaced by the CLI once its logger is configured.
const (
	ObserverDiscard = "discard"
	ObserverSlog    = "slog"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Observer{
		ObserverDiscard: Discard,
		ObserverSlog:    NewSlogObserver(slog.Default()),
	}
)

// GetObserver returns the observer registered under name, as referenced by
// the session config's observer field.
func GetObserver(name string) (Observer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if o, ok := registry[name]; ok {
		return o, nil
	}
	return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownObserver, name, slices.Sorted(maps.Keys(registry)))
}

// RegisterObserver binds name to observer, replacing any previous binding.
func RegisterObserver(name string, observer Observer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = observer
}
