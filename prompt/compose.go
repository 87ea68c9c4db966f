package prompt

import (
	"context"
	"fmt"
	"strings"
)

// Compose returns base followed by every fragment in store, separated by
// blank lines. Empty fragments are skipped. A nil store yields base.
func Compose(ctx context.Context, store Store, base string) (string, error) {
	if store == nil {
		return base, nil
	}

	keys, err := store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("compose list: %w", err)
	}
	if len(keys) == 0 {
		return base, nil
	}

	fragments, err := store.Load(ctx, keys...)
	if err != nil {
		return "", fmt.Errorf("compose load: %w", err)
	}

	parts := make([]string, 0, len(fragments)+1)
	if b := strings.TrimSpace(base); b != "" {
		parts = append(parts, b)
	}
	for _, f := range fragments {
		if text := strings.TrimSpace(string(f.Content)); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}
