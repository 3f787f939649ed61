package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

// ImportPolicy decides which finished runs get their artifacts imported.
type ImportPolicy string

const (
	// ImportOnAccepted imports when the status matches the success allow-list.
	ImportOnAccepted ImportPolicy = "accepted"
	// ImportOnSuccess imports only when the status category is SUCCESS.
	ImportOnSuccess ImportPolicy = "success"
)

// ParseImportPolicy parses a policy name. Empty means ImportOnAccepted.
func ParseImportPolicy(s string) (ImportPolicy, error) {
	switch ImportPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportOnAccepted:
		return ImportOnAccepted, nil
	case ImportOnSuccess:
		return ImportOnSuccess, nil
	default:
		return "", core.ErrValidation(core.CodeInvalidParam,
			fmt.Sprintf("unknown artifact import policy %q (want %q or %q)", s, ImportOnAccepted, ImportOnSuccess))
	}
}

func (p ImportPolicy) allows(exec *core.Execution, successStatuses []string) bool {
	if p == ImportOnSuccess {
		return exec.Category() == core.CategorySuccess
	}
	return core.MatchesAny(exec.Status, successStatuses)
}

// RunOptions describes one trigger-wait-import cycle.
type RunOptions struct {
	Request core.TriggerRequest
	// AdoptRunID, when set, skips triggering and follows the existing run.
	AdoptRunID string

	TimeoutSeconds  int
	IntervalSeconds int
	// SuccessStatuses is the parsed allow-list. Empty means the default.
	SuccessStatuses []string

	ImportArtifacts bool
	ImportPolicy    ImportPolicy
	ArtifactsDir    string
}

// Outcome is the result of Runner.Run.
type Outcome struct {
	Execution         *core.Execution
	Success           bool
	Async             bool
	TimedOut          bool
	ArtifactsImported bool
	Message           string
}

// Runner composes Trigger, Waiter and Importer.
type Runner struct {
	trigger  *Trigger
	waiter   *Waiter
	importer *Importer
	logger   *logging.Logger
}

// NewRunner creates a runner for a remote.
func NewRunner(remote core.PipelineRemote) *Runner {
	return &Runner{
		trigger:  NewTrigger(remote),
		waiter:   NewWaiter(remote),
		importer: NewImporter(remote),
		logger:   logging.NewNop(),
	}
}

// WithClock sets the clock of every stage.
func (r *Runner) WithClock(c Clock) *Runner {
	r.trigger.WithClock(c)
	r.waiter.WithClock(c)
	return r
}

// WithLogger sets the logger of every stage.
func (r *Runner) WithLogger(l *logging.Logger) *Runner {
	r.logger = l
	r.trigger.WithLogger(l)
	r.waiter.WithLogger(l)
	r.importer.WithLogger(l)
	return r
}

// WithPollRetries configures the waiter's retry policy.
func (r *Runner) WithPollRetries(n int, delay time.Duration) *Runner {
	r.waiter.WithPollRetries(n, delay)
	return r
}

// WithTempDir sets the scratch area for artifact downloads.
func (r *Runner) WithTempDir(dir string) *Runner {
	r.importer.WithTempDir(dir)
	return r
}

// Run triggers (or adopts) a run, waits for it, classifies the final status
// and optionally imports artifacts. Validation, trigger and poll failures are
// returned as errors; artifact import problems never are. The outcome carries
// the execution whenever one exists, even alongside an error.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Outcome, error) {
	statuses := opts.SuccessStatuses
	if len(statuses) == 0 {
		statuses = core.ParseSuccessStatuses("")
	}

	var exec *core.Execution
	if opts.AdoptRunID != "" {
		exec = r.trigger.Adopt(AdoptRequest{ID: opts.AdoptRunID, Name: opts.Request.Pipeline})
	} else {
		started, err := r.trigger.Start(ctx, opts.Request)
		if err != nil {
			return &Outcome{Execution: started, Message: err.Error()}, err
		}
		exec = started
	}

	timeout, interval := Clamp(opts.TimeoutSeconds, opts.IntervalSeconds)
	if timeout < 1 {
		return &Outcome{
			Execution: exec,
			Success:   true,
			Async:     true,
			Message:   fmt.Sprintf("pipeline %s started asynchronously", exec.ID),
		}, nil
	}

	exec, err := r.waiter.Wait(ctx, exec, timeout, interval)
	if err != nil {
		return &Outcome{Execution: exec, Message: err.Error()}, err
	}

	out := &Outcome{Execution: exec}
	if exec.Category() == core.CategoryInProgress {
		out.TimedOut = true
		out.Message = fmt.Sprintf("pipeline %s was not completed within %ds", exec.ID, timeout)
		return out, nil
	}

	out.Success = core.MatchesAny(exec.Status, statuses)
	if out.Success {
		out.Message = fmt.Sprintf("pipeline %s finished with status %s", exec.ID, exec.Status)
	} else {
		out.Message = fmt.Sprintf("pipeline %s finished with status %s, expected one of %s",
			exec.ID, exec.Status, strings.Join(statuses, ", "))
	}

	policy := opts.ImportPolicy
	if policy == "" {
		policy = ImportOnAccepted
	}
	if opts.ImportArtifacts && policy.allows(exec, statuses) {
		out.ArtifactsImported = r.importer.TryImport(ctx, exec, opts.ArtifactsDir)
	}

	r.logger.Info("pipeline result",
		"run_id", exec.ID,
		"status", exec.Status,
		"success", out.Success,
		"artifacts_imported", out.ArtifactsImported)
	return out, nil
}
