package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

// Clamps applied to waiting parameters.
const (
	MinPollInterval = 1
	MinTimeout      = 0
)

// Waiter polls a run until it reaches a terminal status or a timeout elapses.
type Waiter struct {
	remote      core.PipelineRemote
	clock       Clock
	logger      *logging.Logger
	pollRetries uint64
	retryDelay  time.Duration
	onPoll      func(*core.Execution)
}

// NewWaiter creates a waiter bound to a remote. Poll failures are fatal
// unless WithPollRetries is set.
func NewWaiter(remote core.PipelineRemote) *Waiter {
	return &Waiter{
		remote:     remote,
		clock:      RealClock{},
		logger:     logging.NewNop(),
		retryDelay: time.Second,
	}
}

// WithClock sets the clock used for sleeping and elapsed time.
func (w *Waiter) WithClock(c Clock) *Waiter {
	w.clock = c
	return w
}

// WithLogger sets the logger.
func (w *Waiter) WithLogger(l *logging.Logger) *Waiter {
	w.logger = l
	return w
}

// WithPollRetries retries a failed status read up to n times, delay apart,
// before it becomes a PollError. Domain errors marked non-retryable (auth,
// not found) are never retried.
func (w *Waiter) WithPollRetries(n int, delay time.Duration) *Waiter {
	if n < 0 {
		n = 0
	}
	w.pollRetries = uint64(n)
	if delay > 0 {
		w.retryDelay = delay
	}
	return w
}

// WithCallback registers a function called after every poll.
func (w *Waiter) WithCallback(fn func(*core.Execution)) *Waiter {
	w.onPoll = fn
	return w
}

// Clamp applies the interval and timeout minimums.
func Clamp(timeoutSeconds, intervalSeconds int) (int, int) {
	return max(timeoutSeconds, MinTimeout), max(intervalSeconds, MinPollInterval)
}

// Wait polls exec every intervalSeconds until its category is terminal or
// timeoutSeconds have elapsed. A timeout below 1 returns immediately without
// polling. Running out of time is not an error: exec is returned still
// IN_PROGRESS and the caller reports it.
func (w *Waiter) Wait(ctx context.Context, exec *core.Execution, timeoutSeconds, intervalSeconds int) (*core.Execution, error) {
	timeoutSeconds, intervalSeconds = Clamp(timeoutSeconds, intervalSeconds)
	if timeoutSeconds < 1 {
		w.logger.Info("timeout below 1s, not waiting for the pipeline", "run_id", exec.ID)
		return exec, nil
	}

	timeout := time.Duration(timeoutSeconds) * time.Second
	interval := time.Duration(intervalSeconds) * time.Second
	start := w.clock.Now()
	polls := 0

	w.logger.Info("waiting for pipeline",
		"run_id", exec.ID,
		"timeout", timeout,
		"interval", interval)

	for {
		if err := w.clock.Sleep(ctx, interval); err != nil {
			return exec, err
		}

		status, err := w.poll(ctx, exec)
		polls++
		if err != nil {
			return exec, core.ErrPoll(fmt.Sprintf("reading status of run %s", exec.ID)).WithCause(err)
		}

		now := w.clock.Now()
		exec.Observe(status, now)
		w.logger.Debug("polled pipeline", "run_id", exec.ID, "status", exec.Status, "poll", polls)
		if w.onPoll != nil {
			w.onPoll(exec)
		}

		if exec.IsTerminal() {
			w.logger.Info("pipeline finished",
				"run_id", exec.ID,
				"status", exec.Status,
				"category", exec.Category(),
				"duration", exec.DurationString())
			return exec, nil
		}
		if now.Sub(start) >= timeout {
			w.logger.Warn("pipeline did not finish within timeout",
				"run_id", exec.ID,
				"timeout", timeout,
				"polls", polls)
			return exec, nil
		}
	}
}

func (w *Waiter) poll(ctx context.Context, exec *core.Execution) (string, error) {
	backoff := retry.WithMaxRetries(w.pollRetries, retry.NewConstant(w.retryDelay))
	return retry.DoValue(ctx, backoff, func(ctx context.Context) (string, error) {
		status, err := w.remote.Status(ctx, exec)
		if err != nil && w.pollRetries > 0 && !permanent(err) {
			w.logger.Warn("status read failed, retrying", "run_id", exec.ID, "error", err)
			return "", retry.RetryableError(err)
		}
		return status, err
	})
}

func permanent(err error) bool {
	var domErr *core.DomainError
	return errors.As(err, &domErr) && !domErr.Retryable
}
