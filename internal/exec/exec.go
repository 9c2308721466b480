// Package exec runs the auxiliary commands that script-backed fields
// invoke: value formatters, indicator classifiers, and plot helpers.
package exec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a classifier or formatter invocation so a hung
// script cannot stall the refresh loop for long.
const DefaultTimeout = 10 * time.Second

// ErrMultiLine indicates a command produced more than one line of output,
// which the single-line contract treats as invalid rather than fatal.
var ErrMultiLine = errors.New("exec: command produced multi-line output")

// IsMultiLine reports whether err is a single-line contract violation.
func IsMultiLine(err error) bool {
	return errors.Is(err, ErrMultiLine)
}

// Runner invokes auxiliary commands through a resolver, which maps a bare
// command name to the installation bin directory when the script lives
// there, or leaves it for PATH lookup otherwise.
type Runner struct {
	Resolve func(command string) string
	Timeout time.Duration
}

// NewRunner creates a runner with the given script resolver.
func NewRunner(resolve func(string) string) *Runner {
	return &Runner{Resolve: resolve, Timeout: DefaultTimeout}
}

// RunLine runs command with args and returns its single line of standard
// output, stripped of the trailing newline. Output with more than one
// newline fails with ErrMultiLine. A trailing newline after the single
// line is tolerated.
func (r *Runner) RunLine(ctx context.Context, command string, args ...string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := command
	if r.Resolve != nil {
		name = r.Resolve(command)
	}

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("exec %s: %w", command, err)
	}

	text := strings.TrimSuffix(string(out), "\n")
	if strings.Contains(text, "\n") {
		return "", fmt.Errorf("%w: %s", ErrMultiLine, command)
	}

	return text, nil
}

// Command builds an exec.Cmd for an interactive auxiliary command, with
// the same bin-directory resolution as RunLine. The caller owns stdio
// handoff (the dashboard releases the screen around the run).
func (r *Runner) Command(command string, args ...string) *exec.Cmd {
	name := command
	if r.Resolve != nil {
		name = r.Resolve(command)
	}
	return exec.Command(name, args...)
}
