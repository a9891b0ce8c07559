package x11

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/anver/kbdmem/pkg/kbdmem"
	"codeberg.org/anver/kbdmem/pkg/xkbregistry"
)

// Layouts reads and sets the active XKB layout group through xkblayout-state.
// The configured group list comes from setxkbmap and is cached after the
// first use; it only changes when the user reconfigures XKB, which restarts
// the session anyway.
type Layouts struct {
	XkblayoutStatePath string
	SetxkbmapPath      string

	// Registry provides human-readable layout names for log lines. Optional.
	Registry *xkbregistry.Registry

	run         runner
	codes       []string
	codesLoaded bool
}

func NewLayouts() *Layouts {
	return &Layouts{run: runCommand}
}

// Current returns the active layout group index.
func (l *Layouts) Current(ctx context.Context) (int, error) {
	out, err := l.run(ctx, orDefault(l.XkblayoutStatePath, "xkblayout-state"), "print", "%c")
	if err != nil {
		return 0, fmt.Errorf("%w: %v", kbdmem.ErrLayoutQueryFailed, err)
	}

	idx, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected output %q", kbdmem.ErrLayoutQueryFailed, out)
	}

	return idx, nil
}

// Switch activates the layout group idx. Indexes outside the configured
// group list fail without invoking the tool; switching to the already-active
// group is a no-op for xkblayout-state and succeeds.
func (l *Layouts) Switch(ctx context.Context, idx int) error {
	if idx < 0 {
		return fmt.Errorf("%w: negative index %d", kbdmem.ErrLayoutSetFailed, idx)
	}
	if codes, err := l.configuredCodes(ctx); err == nil && len(codes) > 0 && idx >= len(codes) {
		return fmt.Errorf("%w: index %d out of range, %d layouts configured", kbdmem.ErrLayoutSetFailed, idx, len(codes))
	}

	if _, err := l.run(ctx, orDefault(l.XkblayoutStatePath, "xkblayout-state"), "set", strconv.Itoa(idx)); err != nil {
		return fmt.Errorf("%w: %v", kbdmem.ErrLayoutSetFailed, err)
	}

	return nil
}

// Describe renders idx for log lines, e.g. "ru (Russian)" when the registry
// is available, falling back to the bare index.
func (l *Layouts) Describe(idx int) string {
	if idx < 0 || idx >= len(l.codes) {
		return strconv.Itoa(idx)
	}

	code := l.codes[idx]
	if l.Registry != nil {
		if name := l.Registry.Description(code, ""); name != "" {
			return fmt.Sprintf("%s (%s)", code, name)
		}
	}

	return code
}

func (l *Layouts) configuredCodes(ctx context.Context) ([]string, error) {
	if l.codesLoaded {
		return l.codes, nil
	}

	out, err := l.run(ctx, orDefault(l.SetxkbmapPath, "setxkbmap"), "-query")
	if err != nil {
		return nil, fmt.Errorf("query xkb map: %w", err)
	}

	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "layout:")
		if !ok {
			continue
		}
		for _, code := range strings.Split(rest, ",") {
			l.codes = append(l.codes, strings.TrimSpace(code))
		}
	}

	l.codesLoaded = true
	return l.codes, nil
}
