package kernel

import (
	"slices"
	"strconv"
	"strings"
)

// SelectModel picks the active model. A 1-based numeric override that
// indexes available wins; otherwise preferred if it is available; otherwise
// the first available model. An empty list yields preferred.
func SelectModel(available []string, preferred, override string) string {
	if len(available) == 0 {
		return preferred
	}

	if n, err := strconv.Atoi(strings.TrimSpace(override)); err == nil && n >= 1 && n <= len(available) {
		return available[n-1]
	}

	if slices.Contains(available, preferred) {
		return preferred
	}
	return available[0]
}
