package capability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotConfigured is reported for a probe that has no check function, i.e.
// the capability has no client configured.
var ErrNotConfigured = errors.New("not configured")

// DefaultProbeTimeout bounds each individual startup probe.
const DefaultProbeTimeout = 10 * time.Second

// Probe is a trial call against one capability.
type Probe struct {
	Name  Name
	Check func(ctx context.Context) error
}

// Result is the outcome of a single probe.
type Result struct {
	Name     Name
	State    State
	Err      error
	Duration time.Duration
}

// RunProbes runs every probe concurrently and records each outcome in set.
// A probe writes only its own capability entry. Probe failures are expected:
// a failing probe marks its capability Unavailable and never stops the other
// probes. RunProbes returns once every probe has finished or hit timeout;
// results are in the same order as probes.
func RunProbes(ctx context.Context, set *Set, timeout time.Duration, probes ...Probe) []Result {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	results := make([]Result, len(probes))

	var wg sync.WaitGroup
	wg.Add(len(probes))

	for i, p := range probes {
		go func() {
			defer wg.Done()
			results[i] = runProbe(ctx, timeout, p)
			set.Set(p.Name, results[i].State)
		}()
	}

	wg.Wait()
	return results
}

func runProbe(ctx context.Context, timeout time.Duration, p Probe) Result {
	result := Result{Name: p.Name, State: Unavailable}

	if p.Check == nil {
		result.Err = ErrNotConfigured
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("probe %s panicked: %v", p.Name, r)
			}
		}()
		done <- p.Check(probeCtx)
	}()

	// A check that ignores its context still cannot hold up startup.
	select {
	case err := <-done:
		result.Err = err
	case <-probeCtx.Done():
		result.Err = fmt.Errorf("probe %s: %w", p.Name, probeCtx.Err())
	}

	result.Duration = time.Since(start)
	if result.Err == nil {
		result.State = Available
	}
	return result
}
