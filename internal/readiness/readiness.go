package readiness

import (
	"context"
	"time"

	"github.com/hogwarts-cloud/clonectl/internal/remote"
)

const (
	DefaultAttempts = 30
	DefaultInterval = 5 * time.Second

	// Works under sh, cmd and powershell alike.
	probeCommand = "echo ok"
)

// Result is the typed outcome of a readiness wait. Budget exhaustion is a
// Timeout result, not an error.
type Result int

const (
	Ready Result = iota
	Timeout
)

func (r Result) String() string {
	if r == Ready {
		return "ready"
	}
	return "timeout"
}

// Poller confirms that a target accepts remote commands by retrying a
// no-op probe a fixed number of times with a fixed delay in between.
type Poller struct {
	Attempts int
	Interval time.Duration
}

func (p Poller) WaitReady(ctx context.Context, runner remote.Runner) (Result, error) {
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if _, err := runner.Run(ctx, probeCommand); err == nil {
			return Ready, nil
		}

		if attempt == p.Attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return Timeout, ctx.Err()
		case <-time.After(p.Interval):
		}
	}

	return Timeout, nil
}

func New() Poller {
	return Poller{
		Attempts: DefaultAttempts,
		Interval: DefaultInterval,
	}
}
