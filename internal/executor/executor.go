package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

type Executor struct {
}

func (e *Executor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to run cmd: %w: %s", err, exitErr.Stderr)
		}

		return nil, fmt.Errorf("failed to run cmd: %w", err)
	}

	return output, nil
}

func New() *Executor {
	return &Executor{}
}
