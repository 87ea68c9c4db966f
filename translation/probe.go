package translation

import (
	"context"
	"fmt"
)

// TrialText is translated by Check to verify the service.
const TrialText = "Hello, how are you?"

// Check performs a trial translation and reports an error when the client
// falls back. An unchanged result counts as success.
func Check(ctx context.Context, c Client, targetLang string) error {
	if _, outcome := Do(ctx, c, TrialText, targetLang); outcome == OutcomeFallback {
		return fmt.Errorf("trial translation to %s: %w", targetLang, ErrNoTranslation)
	}
	return nil
}
