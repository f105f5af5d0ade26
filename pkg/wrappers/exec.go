// Package wrappers adapts external security tools to the uniform
// prepare/run/parse contract and exposes each wrapper as a plugin factory.
package wrappers

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/probeflow/probeflow/pkg/protocol"
)

// RunCommand executes one external tool invocation, capturing stdout,
// stderr and exit code. On ctx expiry the process is killed and the output
// is flagged timed out; the partial capture is still returned so parsers
// can salvage whatever the tool emitted before dying.
func RunCommand(ctx context.Context, name string, args ...string) (*protocol.RawOutput, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	raw := &protocol.RawOutput{
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		DurationMs: duration.Milliseconds(),
		TimedOut:   errors.Is(ctx.Err(), context.DeadlineExceeded),
	}

	var exitErr *exec.ExitError

	switch {
	case err == nil:
		raw.ExitCode = 0
	case errors.As(err, &exitErr):
		// Tool ran and exited non-zero. Not an invocation failure: scanners
		// routinely use exit codes to signal "findings present".
		raw.ExitCode = exitErr.ExitCode()
	case raw.TimedOut:
		raw.ExitCode = -1
	default:
		return nil, err
	}

	return raw, nil
}
