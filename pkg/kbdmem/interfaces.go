package kbdmem

import (
	"context"
	"time"
)

// WindowResolver reports the identity of the window currently holding input
// focus. Identity is derived from the application class, so it stays stable
// across title changes and window re-creation.
type WindowResolver interface {
	ResolveFocused(ctx context.Context) (string, error)
}

// LayoutAdapter reads and sets the active keyboard layout by group index.
// Switching to the already-active index succeeds as a no-op.
type LayoutAdapter interface {
	Current(ctx context.Context) (int, error)
	Switch(ctx context.Context, idx int) error
}

// Mapping ties a window identity to the layout index captured for it.
type Mapping struct {
	Layout  int       `json:"layout"`
	Updated time.Time `json:"updated"`
}

// LayoutStore persists window identity to layout mappings. Put is
// write-through: implementations persist before returning, so killing the
// process never loses a captured mapping.
type LayoutStore interface {
	Get(window string) (Mapping, bool, error)
	Put(window string, layout int) error
	Close() error
}
