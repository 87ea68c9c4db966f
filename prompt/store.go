// Package prompt composes the system turn from a base prompt and optional
// fragments kept on disk. Fragments are read once at startup; the store is
// read-only.
package prompt

import "context"

// Fragment is one piece of system prompt text. Keys are /-separated paths
// relative to the store root.
type Fragment struct {
	Key     string
	Content []byte
}

// Store reads fragments from external storage. Implementations do not cache.
type Store interface {
	// List returns every fragment key in lexical order.
	List(ctx context.Context) ([]string, error)
	// Load retrieves the named fragments.
	Load(ctx context.Context, keys ...string) ([]Fragment, error)
}
