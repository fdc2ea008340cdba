package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRunner struct {
	calls     int
	failUntil int
}

func (r *fakeRunner) Run(ctx context.Context, command string) (string, error) {
	r.calls++
	if r.calls <= r.failUntil {
		return "", errors.New("connection refused")
	}

	return "ok", nil
}

func Test_WaitReady(t *testing.T) {
	testCases := []struct {
		name          string
		poller        Poller
		failUntil     int
		expected      Result
		expectedCalls int
	}{
		{
			name:          "ready on first attempt",
			poller:        Poller{Attempts: 3, Interval: time.Millisecond},
			failUntil:     0,
			expected:      Ready,
			expectedCalls: 1,
		},
		{
			name:          "ready after retries",
			poller:        Poller{Attempts: 5, Interval: time.Millisecond},
			failUntil:     3,
			expected:      Ready,
			expectedCalls: 4,
		},
		{
			name:          "budget exhausted returns timeout",
			poller:        Poller{Attempts: 3, Interval: time.Millisecond},
			failUntil:     10,
			expected:      Timeout,
			expectedCalls: 3,
		},
	}

	for _, tc := range testCases {
		runner := &fakeRunner{failUntil: tc.failUntil}

		result, err := tc.poller.WaitReady(context.Background(), runner)
		assert.NoError(t, err, tc.name)
		assert.Equal(t, tc.expected, result, tc.name)
		assert.Equal(t, tc.expectedCalls, runner.calls, tc.name)
	}
}

func Test_WaitReady_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := Poller{Attempts: 5, Interval: time.Second}
	runner := &fakeRunner{failUntil: 10}

	result, err := poller.WaitReady(ctx, runner)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Timeout, result)
	assert.Equal(t, 1, runner.calls)
}
