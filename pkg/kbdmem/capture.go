package kbdmem

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Capture records the currently focused window together with the currently
// active layout. One-shot counterpart of the watcher: errors are returned to
// the caller instead of being retried.
func Capture(ctx context.Context, resolver WindowResolver, layouts LayoutAdapter, store LayoutStore, log *zap.SugaredLogger) error {
	window, err := resolver.ResolveFocused(ctx)
	if err != nil {
		return fmt.Errorf("resolve focused window: %w", err)
	}

	layout, err := layouts.Current(ctx)
	if err != nil {
		return fmt.Errorf("get current layout: %w", err)
	}

	if err := store.Put(window, layout); err != nil {
		return fmt.Errorf("store mapping: %w", err)
	}

	log.Infow("added mapping", "window", window, "layout", layout)
	return nil
}
