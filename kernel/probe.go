package kernel

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/converse/capability"
	"github.com/tailored-agentic-units/converse/completion"
	"github.com/tailored-agentic-units/converse/observability"
	"github.com/tailored-agentic-units/converse/speech"
	"github.com/tailored-agentic-units/converse/translation"
)

// Probe checks every capability concurrently and records the outcomes. A
// failed probe marks only its own capability unavailable. The completion
// probe also refreshes the available model list and re-selects the active
// model from it.
func (k *Kernel) Probe(ctx context.Context) []capability.Result {
	ctx = observability.WithSessionID(ctx, k.session.ID())
	before := k.caps.Snapshot()
	start := time.Now()

	found := make(chan []string, 1)
	results := capability.RunProbes(ctx, k.caps, k.probeTimeout,
		capability.Probe{Name: capability.Completion, Check: k.completionCheck(found)},
		capability.Probe{Name: capability.Translation, Check: k.translationCheck()},
		capability.Probe{Name: capability.SpeechIn, Check: speechCheck(k.listener)},
		capability.Probe{Name: capability.SpeechOut, Check: speechCheck(k.speaker)},
	)

	for _, r := range results {
		if r.Name == capability.Completion && r.State == capability.Available {
			select {
			case models := <-found:
				k.useModels(models)
			default:
			}
		}
		k.capabilityChanged(ctx, r.Name, before[r.Name], r.State)
	}

	data := map[string]any{"duration_ms": time.Since(start).Milliseconds()}
	for _, r := range results {
		data[string(r.Name)] = r.State.String()
		if r.Err != nil {
			data[string(r.Name)+"_error"] = r.Err.Error()
		}
	}
	k.emit(ctx, EventProbeComplete, observability.LevelInfo, data)

	return results
}

// useModels records the probed model list and re-selects the active model
// from it.
func (k *Kernel) useModels(models []string) {
	k.mu.Lock()
	k.models = models
	active := k.config.ActiveModel
	k.mu.Unlock()

	if len(models) == 0 {
		return
	}
	if selected := SelectModel(models, active, ""); selected != active {
		_ = k.SetModel(selected)
	}
}

// completionCheck lists models and narrows them to the candidates. A client
// that cannot list models is trusted once configured.
func (k *Kernel) completionCheck(found chan<- []string) func(context.Context) error {
	if k.completion == nil {
		return nil
	}
	if k.lister == nil {
		return func(context.Context) error { return nil }
	}
	return func(ctx context.Context) error {
		models, err := completion.ProbeModels(ctx, k.lister, k.candidates)
		if err != nil {
			return err
		}
		found <- models
		return nil
	}
}

func (k *Kernel) translationCheck() func(context.Context) error {
	if k.translator == nil {
		return nil
	}
	lang := k.Config().TargetLanguage
	return func(ctx context.Context) error {
		return translation.Check(ctx, k.translator, lang)
	}
}

func speechCheck(client any) func(context.Context) error {
	if client == nil {
		return nil
	}
	if c, ok := client.(speech.Checker); ok {
		return c.Check
	}
	return func(context.Context) error { return nil }
}
