package samples

import (
	"context"
	"time"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/pipeline"
)

// waitOptions are the polling params shared by the pipeline commands.
type waitOptions struct {
	TimeoutSeconds  int      `param:"params.timeout_seconds"`
	IntervalSeconds int      `param:"params.wait_interval"`
	SuccessStatuses []string `param:"params.success_statuses" validate:"min=1,dive,required"`
	ImportArtifacts bool     `param:"params.import_artifacts"`
	ImportPolicy    pipeline.ImportPolicy
}

// readWaitOptions reads the polling params. Negative timeouts mean "do not
// wait" and intervals below one second are raised to one.
func readWaitOptions(ec *execctx.Context, timeoutDef, intervalDef int, importDef bool) (waitOptions, error) {
	var (
		o   waitOptions
		err error
	)
	if o.TimeoutSeconds, err = ec.InputInt("params.timeout_seconds", timeoutDef); err != nil {
		return o, err
	}
	if o.IntervalSeconds, err = ec.InputInt("params.wait_interval", intervalDef); err != nil {
		return o, err
	}
	o.TimeoutSeconds, o.IntervalSeconds = pipeline.Clamp(o.TimeoutSeconds, o.IntervalSeconds)

	if o.ImportArtifacts, err = ec.InputBool("params.import_artifacts", importDef); err != nil {
		return o, err
	}
	o.SuccessStatuses = core.ParseSuccessStatuses(ec.InputString("params.success_statuses", ""))
	return o, nil
}

// runPipeline drives one trigger-wait-import cycle against remote and turns
// the outcome into a command result. The execution is recorded under
// params.build whenever a run exists, including failed and timed out ones.
func runPipeline(ctx context.Context, ec *execctx.Context, deps Deps, remote core.PipelineRemote, opts pipeline.RunOptions) (command.Result, error) {
	logger := ec.Logger()
	if opts.TimeoutSeconds < 1 {
		logger.Info("timeout is 0, the pipeline is started asynchronously and its status and artifacts are not processed")
	}
	if len(opts.Request.Params) == 0 && opts.AdoptRunID == "" {
		logger.Info("no pipeline params given, the pipeline runs with its default values")
	}
	if opts.ArtifactsDir == "" {
		opts.ArtifactsDir = ec.Paths().Output.Files
	}

	runner := pipeline.NewRunner(remote).
		WithClock(deps.Clock).
		WithLogger(logger).
		WithPollRetries(deps.Config.Pipeline.PollRetries, time.Duration(opts.IntervalSeconds)*time.Second).
		WithTempDir(ec.Paths().Temp)

	out, err := runner.Run(ctx, opts)
	if out != nil && out.Execution != nil {
		if recErr := pipeline.RecordExecution(ec, out.Execution); recErr != nil {
			return command.Result{}, recErr
		}
	}
	if err != nil {
		return command.Result{}, err
	}

	if out.Async {
		return command.Succeeded("Status: %s", out.Execution.Status), nil
	}
	if out.TimedOut {
		return command.Failedf("%s", out.Message), nil
	}
	if !out.Success {
		return command.Failedf("Status: %s. %s", out.Execution.Status, out.Message), nil
	}
	return command.Succeeded("Status: %s", out.Execution.Status), nil
}
