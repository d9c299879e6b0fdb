package executil

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner abstracts invocation of an external executable so callers can
// substitute a fake in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec, capturing stdout. The command
// exit status is the only success signal; output is returned verbatim
// apart from trimming surrounding whitespace.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%w: %s: %v: %s", ErrExternalExecution, name, err, msg)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrExternalExecution, name, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
