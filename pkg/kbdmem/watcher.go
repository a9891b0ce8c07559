package kbdmem

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPollInterval trades switch latency against CPU spent on focus
	// queries.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultDebounce is how long focus must rest on one window before the
	// watcher reconciles, so alt-tab flapping triggers at most one switch.
	DefaultDebounce = 75 * time.Millisecond
)

// WatcherConfig tunes the focus watcher. A zero PollInterval falls back to
// the default; a zero Debounce disables debouncing.
type WatcherConfig struct {
	PollInterval time.Duration
	Debounce     time.Duration

	// Learn records layout changes made while focus is stable, as if the
	// user had captured the window explicitly.
	Learn bool

	// DescribeLayout renders a layout index for log lines. Optional.
	DescribeLayout func(idx int) string
}

// Watcher polls the focused window and restores the stored layout when a
// mapped window settles into focus. All OS access and store access happens on
// the goroutine running Watch, so no locking is needed.
type Watcher struct {
	resolver WindowResolver
	layouts  LayoutAdapter
	store    LayoutStore
	log      *zap.SugaredLogger

	pollInterval time.Duration
	debounce     time.Duration
	learn        bool
	describe     func(idx int) string

	lastSeen     string
	pending      string
	pendingSince time.Time

	// lastLayout is the layout believed active for lastSeen, -1 when
	// unknown. Only maintained in learn mode and after a reconcile.
	lastLayout int
}

func NewWatcher(resolver WindowResolver, layouts LayoutAdapter, store LayoutStore, cfg WatcherConfig, log *zap.SugaredLogger) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Debounce < 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.DescribeLayout == nil {
		cfg.DescribeLayout = func(int) string { return "" }
	}

	return &Watcher{
		resolver:     resolver,
		layouts:      layouts,
		store:        store,
		log:          log,
		pollInterval: cfg.PollInterval,
		debounce:     cfg.Debounce,
		learn:        cfg.Learn,
		describe:     cfg.DescribeLayout,
		lastLayout:   -1,
	}
}

// Watch runs the poll loop until ctx is cancelled. It only ever returns the
// context's error: per-cycle failures are logged and the loop continues.
func (w *Watcher) Watch(ctx context.Context) error {
	w.log.Infow("watching focus changes",
		"poll_interval", w.pollInterval,
		"debounce", w.debounce,
		"learn", w.learn,
	)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			w.tick(ctx, now)
		}
	}
}

// tick is one poll cycle. A focus change only counts once the same identity
// has been observed for the debounce window, so a burst like A→B→A that
// settles back on A reconciles nothing.
func (w *Watcher) tick(ctx context.Context, now time.Time) {
	window, err := w.resolver.ResolveFocused(ctx)
	switch {
	case errors.Is(err, ErrNoFocusedWindow):
		w.pending = ""
		return
	case err != nil:
		w.log.Warnw("resolve focused window", "error", err)
		return
	}

	if window != w.pending {
		w.pending = window
		w.pendingSince = now
	}

	if window == w.lastSeen {
		if w.learn {
			w.observeLayout(ctx, window)
		}
		return
	}

	if now.Sub(w.pendingSince) < w.debounce {
		return
	}

	if err := w.reconcile(ctx, window); err != nil {
		// Transient failure: keep lastSeen unchanged so the next cycle
		// retries the reconciliation.
		w.log.Warnw("reconcile", "window", window, "error", err)
		return
	}

	w.lastSeen = window
}

// reconcile restores the stored layout for window, if any. Returns an error
// only for failures worth retrying next cycle; a missing mapping is a normal
// outcome and still advances the last-seen identity.
func (w *Watcher) reconcile(ctx context.Context, window string) error {
	w.lastLayout = -1

	mapping, ok, err := w.store.Get(window)
	if err != nil {
		return err
	}
	if !ok {
		w.log.Debugw("focus changed, no mapping", "window", window)
		return nil
	}

	current, err := w.layouts.Current(ctx)
	if err != nil {
		return err
	}
	if current == mapping.Layout {
		w.log.Debugw("focus changed, layout already active", "window", window, "layout", mapping.Layout)
		w.lastLayout = current
		return nil
	}

	if err := w.layouts.Switch(ctx, mapping.Layout); err != nil {
		return err
	}

	w.log.Infow("restored layout",
		"window", window,
		"layout", mapping.Layout,
		"layout_name", w.describe(mapping.Layout),
		"previous", current,
	)
	w.lastLayout = mapping.Layout
	return nil
}

// observeLayout records a layout the user switched to while focus stayed on
// window. The first observation after a focus change only establishes the
// baseline.
func (w *Watcher) observeLayout(ctx context.Context, window string) {
	current, err := w.layouts.Current(ctx)
	if err != nil {
		w.log.Debugw("learn: query layout", "error", err)
		return
	}

	if w.lastLayout < 0 {
		w.lastLayout = current
		return
	}
	if current == w.lastLayout {
		return
	}

	w.lastLayout = current
	if err := w.store.Put(window, current); err != nil {
		w.log.Warnw("learn: store mapping", "window", window, "layout", current, "error", err)
		return
	}

	w.log.Infow("learned layout",
		"window", window,
		"layout", current,
		"layout_name", w.describe(current),
	)
}
