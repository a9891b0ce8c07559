package x11

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"codeberg.org/anver/kbdmem/pkg/kbdmem"
)

// wmClassPattern captures the second WM_CLASS string, the application class.
// The first one is the instance name, which varies per window.
var wmClassPattern = regexp.MustCompile(`WM_CLASS.*?"[^"]*",\s*"([^"]*)"`)

// Resolver derives the focused window's identity from xdotool and xprop.
type Resolver struct {
	XdotoolPath string
	XpropPath   string

	run runner
}

func NewResolver() *Resolver {
	return &Resolver{run: runCommand}
}

// ResolveFocused returns the lowercased application class of the focused
// window. A non-zero xdotool exit means nothing has focus; a tool that is
// missing or timing out is a transient query failure instead.
func (r *Resolver) ResolveFocused(ctx context.Context) (string, error) {
	windowID, err := r.run(ctx, orDefault(r.XdotoolPath, "xdotool"), "getactivewindow")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", kbdmem.ErrWindowQueryFailed, err)
		}
		return "", kbdmem.ErrNoFocusedWindow
	}
	if windowID == "" {
		return "", kbdmem.ErrNoFocusedWindow
	}

	props, err := r.run(ctx, orDefault(r.XpropPath, "xprop"), "-id", windowID, "WM_CLASS")
	if err != nil {
		return "", fmt.Errorf("%w: %v", kbdmem.ErrWindowQueryFailed, err)
	}

	match := wmClassPattern.FindStringSubmatch(props)
	if match == nil || match[1] == "" {
		return "", fmt.Errorf("%w: WM_CLASS missing in %q", kbdmem.ErrWindowQueryFailed, props)
	}

	return strings.ToLower(match[1]), nil
}

func orDefault(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}
