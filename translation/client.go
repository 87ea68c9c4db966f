// Package translation renders assistant replies in a target language.
//
// Translation is a total function: every failure mode (timeout, non-200
// status, undecodable body, missing field) yields the original text.
package translation

import "context"

// Outcome describes how a translation result was produced.
type Outcome int

const (
	// OutcomeTranslated means the service returned a different text.
	OutcomeTranslated Outcome = iota
	// OutcomeUnchanged means the service answered with the input text or the
	// input was blank.
	OutcomeUnchanged
	// OutcomeFallback means the service could not be used and the input was
	// returned as-is.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTranslated:
		return "translated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Client translates text. Translate never fails; on any error it returns text.
type Client interface {
	Translate(ctx context.Context, text, targetLang string) string
}

// Reporter is implemented by clients that can say whether a result came from
// the service or from the fallback path.
type Reporter interface {
	Client
	TranslateOutcome(ctx context.Context, text, targetLang string) (string, Outcome)
}

// Do translates with c and reports the outcome. Clients that do not
// implement Reporter are judged by whether the text changed.
func Do(ctx context.Context, c Client, text, targetLang string) (string, Outcome) {
	if r, ok := c.(Reporter); ok {
		return r.TranslateOutcome(ctx, text, targetLang)
	}

	out := c.Translate(ctx, text, targetLang)
	if out == text {
		return out, OutcomeUnchanged
	}
	return out, OutcomeTranslated
}

// Passthrough returns every input unchanged. It stands in when translation is
// disabled.
type Passthrough struct{}

func (Passthrough) Translate(ctx context.Context, text, targetLang string) string {
	return text
}

func (Passthrough) TranslateOutcome(ctx context.Context, text, targetLang string) (string, Outcome) {
	return text, OutcomeUnchanged
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, text, targetLang string) string

func (f Func) Translate(ctx context.Context, text, targetLang string) string {
	return f(ctx, text, targetLang)
}
