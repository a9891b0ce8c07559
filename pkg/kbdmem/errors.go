package kbdmem

import "errors"

var (
	// ErrNoFocusedWindow means no window holds input focus right now. The
	// watcher skips the cycle; add mode reports it and exits non-zero.
	ErrNoFocusedWindow = errors.New("no window holds input focus")

	// ErrWindowQueryFailed and ErrLayoutQueryFailed mark transient external
	// tool failures. The watcher logs them and retries next cycle.
	ErrWindowQueryFailed = errors.New("query focused window")
	ErrLayoutQueryFailed = errors.New("query keyboard layout")

	// ErrLayoutSetFailed covers both an index outside the configured layout
	// group and a failed set command.
	ErrLayoutSetFailed = errors.New("set keyboard layout")

	// ErrCorruptStore marks unreadable persisted state. Loading recovers to
	// an empty store and keeps the original file as a backup.
	ErrCorruptStore = errors.New("layout store corrupt")

	// ErrPersistFailed marks a failed write. In-memory state is kept and the
	// write is retried on the next mutation.
	ErrPersistFailed = errors.New("persist layout store")
)
