// Package x11 talks to the graphical session through external query tools
// (xdotool, xprop, xkblayout-state, setxkbmap). All output parsing lives
// here, behind the narrow resolver and adapter types.
package x11

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// commandTimeout bounds every external call so a hung tool never wedges the
// poll loop.
const commandTimeout = 2 * time.Second

// runner is swapped out in tests to avoid spawning subprocesses.
type runner func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	outStr := strings.TrimSpace(out.String())
	if ctxErr := ctx.Err(); ctxErr != nil {
		// Run reports the kill, not the timeout that caused it.
		return outStr, fmt.Errorf("%s: %w", name, ctxErr)
	}
	if err != nil {
		return outStr, fmt.Errorf("%s: %w, output: %s", name, err, outStr)
	}

	return outStr, nil
}
