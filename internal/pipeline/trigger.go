// Package pipeline triggers remote CI/CD runs, waits for them to finish and
// imports what they produced.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

// RunURLBuilder is implemented by remotes that can derive the web URL of a run
// from its id without a network call.
type RunURLBuilder interface {
	RunURL(id string) string
}

// AdoptRequest identifies an already started run.
type AdoptRequest struct {
	ID   string
	Name string
	URL  string
}

// Trigger starts or adopts remote runs.
type Trigger struct {
	remote core.PipelineRemote
	clock  Clock
	logger *logging.Logger
}

// NewTrigger creates a trigger bound to a remote.
func NewTrigger(remote core.PipelineRemote) *Trigger {
	return &Trigger{
		remote: remote,
		clock:  RealClock{},
		logger: logging.NewNop(),
	}
}

// WithClock sets the clock used to stamp start times.
func (t *Trigger) WithClock(c Clock) *Trigger {
	t.clock = c
	return t
}

// WithLogger sets the logger.
func (t *Trigger) WithLogger(l *logging.Logger) *Trigger {
	t.logger = l
	return t
}

// Start triggers a new run. An empty branch is resolved to the remote's
// default branch first. The returned handle is always IN_PROGRESS; a remote
// that accepts the request but reports any other status is a failed start.
func (t *Trigger) Start(ctx context.Context, req core.TriggerRequest) (*core.Execution, error) {
	if req.Branch == "" {
		branch, err := t.remote.DefaultBranch(ctx)
		if err != nil {
			return nil, core.ErrTrigger(core.CodeBranchLookup,
				"resolving default branch").WithCause(err)
		}
		req.Branch = branch
		t.logger.Debug("resolved default branch", "branch", branch)
	}

	t.logger.Info("triggering pipeline",
		"system", t.remote.System(),
		"pipeline", req.Pipeline,
		"branch", req.Branch,
		"params", len(req.Params))

	exec, err := t.remote.Trigger(ctx, req)
	if err != nil {
		var domErr *core.DomainError
		if errors.As(err, &domErr) && domErr.Category == core.ErrCatTrigger {
			return nil, err
		}
		return nil, core.ErrTrigger(core.CodeTriggerRejected, "remote rejected the trigger request").WithCause(err)
	}
	if exec == nil {
		return nil, core.ErrTrigger(core.CodeNotStarted, "remote returned no run")
	}
	if exec.TimeStart.IsZero() {
		started := core.NewExecution(exec.ID, exec.Name, exec.URL, exec.Status, t.clock.Now())
		exec = started
	}

	if exec.Category() != core.CategoryInProgress {
		return exec, core.ErrTrigger(core.CodeNotStarted,
			fmt.Sprintf("pipeline was not started: status %q", exec.Status)).
			WithDetail("run_id", exec.ID)
	}

	t.logger.Info("pipeline started", "run_id", exec.ID, "url", exec.URL, "status", exec.Status)
	return exec, nil
}

// Adopt builds a handle for an existing run without contacting the remote.
// The status is UNKNOWN until the first poll.
func (t *Trigger) Adopt(req AdoptRequest) *core.Execution {
	url := req.URL
	if url == "" {
		if b, ok := t.remote.(RunURLBuilder); ok {
			url = b.RunURL(req.ID)
		}
	}
	name := req.Name
	if name == "" {
		name = req.ID
	}
	exec := core.NewExecution(req.ID, name, url, string(core.CategoryUnknown), t.clock.Now())
	t.logger.Info("adopted existing pipeline run", "run_id", exec.ID, "url", exec.URL)
	return exec
}
