package github

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gh "github.com/google/go-github/v74/github"
	"github.com/sethvargo/go-retry"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

const statusCompleted = "completed"

var errRunNotQueued = errors.New("dispatched run not visible yet")

// Trigger dispatches the workflow and waits, up to the queue timeout, for the
// new run to show up in the workflow's run list.
func (c *Client) Trigger(ctx context.Context, req core.TriggerRequest) (*core.Execution, error) {
	if req.Pipeline == "" {
		return nil, core.ErrValidation(core.CodeMissingParams, "workflow file name is required")
	}

	inputs := make(map[string]any, len(req.Params))
	for k, v := range req.Params {
		inputs[k] = v
	}
	since := c.now().UTC().Add(-dispatchSkew).Truncate(time.Second)

	resp, err := c.api.Actions.CreateWorkflowDispatchEventByFileName(ctx, c.owner, c.repo, req.Pipeline,
		gh.CreateWorkflowDispatchEventRequest{Ref: req.Branch, Inputs: inputs})
	if err != nil {
		return nil, apiError("dispatching workflow "+req.Pipeline, resp, err)
	}

	run, err := c.discoverRun(ctx, req.Pipeline, req.Branch, since)
	if err != nil {
		return nil, err
	}

	name := run.GetName()
	if name == "" {
		name = req.Pipeline
	}
	url := run.GetHTMLURL()
	id := strconv.FormatInt(run.GetID(), 10)
	if url == "" {
		url = c.RunURL(id)
	}
	start := run.GetCreatedAt().Time
	if start.IsZero() {
		start = c.now()
	}
	return core.NewExecution(id, name, url, runStatus(run), start), nil
}

// discoverRun lists workflow_dispatch runs of the workflow on branch created
// at or after since and returns the newest one.
func (c *Client) discoverRun(ctx context.Context, workflow, branch string, since time.Time) (*gh.WorkflowRun, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Branch:      branch,
		Event:       "workflow_dispatch",
		Created:     ">=" + since.Format(time.RFC3339),
		ListOptions: gh.ListOptions{PerPage: 20},
	}
	backoff := retry.WithMaxDuration(c.queueTimeout, retry.NewConstant(c.discoveryInterval))

	run, err := retry.DoValue(ctx, backoff, func(ctx context.Context) (*gh.WorkflowRun, error) {
		runs, resp, err := c.api.Actions.ListWorkflowRunsByFileName(ctx, c.owner, c.repo, workflow, opts)
		if err != nil {
			wrapped := apiError("listing runs of "+workflow, resp, err)
			if core.IsCategory(wrapped, core.ErrCatAuth) || core.IsCategory(wrapped, core.ErrCatNotFound) {
				return nil, wrapped
			}
			return nil, retry.RetryableError(wrapped)
		}
		if newest := newestSince(runs.WorkflowRuns, since); newest != nil {
			return newest, nil
		}
		return nil, retry.RetryableError(errRunNotQueued)
	})
	if err != nil {
		if errors.Is(err, errRunNotQueued) {
			return nil, core.ErrTrigger(core.CodeRunNotFound,
				fmt.Sprintf("run of %s on %s did not appear within %s", workflow, branch, c.queueTimeout))
		}
		return nil, err
	}
	return run, nil
}

func newestSince(runs []*gh.WorkflowRun, since time.Time) *gh.WorkflowRun {
	var newest *gh.WorkflowRun
	for _, r := range runs {
		created := r.GetCreatedAt().Time
		if created.Before(since) {
			continue
		}
		if newest == nil || created.After(newest.GetCreatedAt().Time) {
			newest = r
		}
	}
	return newest
}

// Status returns the run status while it is not completed, then its conclusion.
func (c *Client) Status(ctx context.Context, exec *core.Execution) (string, error) {
	id, err := parseRunID(exec.ID)
	if err != nil {
		return "", err
	}
	run, resp, err := c.api.Actions.GetWorkflowRunByID(ctx, c.owner, c.repo, id)
	if err != nil {
		return "", apiError("getting run "+exec.ID, resp, err)
	}
	return runStatus(run), nil
}

func runStatus(run *gh.WorkflowRun) string {
	if run.GetStatus() == statusCompleted && run.GetConclusion() != "" {
		return run.GetConclusion()
	}
	return run.GetStatus()
}

func parseRunID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, core.ErrValidation(core.CodeInvalidParam, fmt.Sprintf("invalid workflow run id %q", id))
	}
	return n, nil
}
