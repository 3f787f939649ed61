package samples

import (
	"context"
	"strings"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/adapters/github"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/pipeline"
)

type githubOptions struct {
	// APIURL is only needed for GitHub Enterprise.
	APIURL   string `param:"systems.github.url" validate:"omitempty,http_url"`
	Token    string `param:"systems.github.password" validate:"required"`
	Owner    string `param:"params.pipeline_owner" validate:"required"`
	Repo     string `param:"params.pipeline_repo_name" validate:"required"`
	Workflow string `param:"params.pipeline_workflow_file_name" validate:"required"`
	Branch   string `param:"params.pipeline_branch"`
	Params   map[string]string
	// ExistingRunID follows a run that was already started instead of
	// dispatching a new one.
	ExistingRunID string `param:"params.use_existing_pipeline" validate:"omitempty,numeric"`
	Wait          waitOptions
}

// GitHubRunPipeline dispatches a GitHub Actions workflow, waits for its run,
// optionally imports its artifact and records the run under params.build.
type GitHubRunPipeline struct {
	deps Deps
	opts githubOptions
}

func (c *GitHubRunPipeline) Name() string { return KindGitHubPipeline }

func (c *GitHubRunPipeline) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params", "paths.output.params_secure",
		"paths.output.files", "systems.github.password",
		"params.pipeline_owner", "params.pipeline_repo_name", "params.pipeline_workflow_file_name"); err != nil {
		return err
	}

	params, err := ec.InputStringMap("params.pipeline_params")
	if err != nil {
		return err
	}
	pcfg := c.deps.Config.Pipeline
	wait, err := readWaitOptions(ec, pcfg.TimeoutSeconds(), pcfg.WaitIntervalSeconds(), false)
	if err != nil {
		return err
	}
	policy, err := pipeline.ParseImportPolicy(ec.InputString("params.import_policy", ""))
	if err != nil {
		return err
	}
	wait.ImportPolicy = policy

	apiURL := ec.InputString("systems.github.url", "")
	if apiURL == "" {
		apiURL = c.deps.Config.GitHub.APIURL
	}
	c.opts = githubOptions{
		APIURL:        strings.TrimSpace(apiURL),
		Token:         ec.InputString("systems.github.password", ""),
		Owner:         ec.InputString("params.pipeline_owner", ""),
		Repo:          ec.InputString("params.pipeline_repo_name", ""),
		Workflow:      ec.InputString("params.pipeline_workflow_file_name", ""),
		Branch:        ec.InputString("params.pipeline_branch", ""),
		Params:        params,
		ExistingRunID: ec.InputString("params.use_existing_pipeline", ""),
		Wait:          wait,
	}
	return checkOptions(c.opts)
}

func (c *GitHubRunPipeline) Execute(ctx context.Context, ec *execctx.Context) (command.Result, error) {
	ec.Logger().Info("triggering GitHub workflow run and fetching results",
		"repository", c.opts.Owner+"/"+c.opts.Repo,
		"workflow", c.opts.Workflow)

	remote, err := c.deps.GitHubRemote(github.Config{
		Token:        c.opts.Token,
		Owner:        c.opts.Owner,
		Repo:         c.opts.Repo,
		APIURL:       c.opts.APIURL,
		QueueTimeout: c.deps.Config.Pipeline.QueueTimeout,
		HTTPClient:   c.deps.HTTPClient,
	})
	if err != nil {
		return command.Result{}, err
	}

	return runPipeline(ctx, ec, c.deps, remote, pipeline.RunOptions{
		Request: core.TriggerRequest{
			Pipeline: c.opts.Workflow,
			Branch:   c.opts.Branch,
			Params:   c.opts.Params,
		},
		AdoptRunID:      c.opts.ExistingRunID,
		TimeoutSeconds:  c.opts.Wait.TimeoutSeconds,
		IntervalSeconds: c.opts.Wait.IntervalSeconds,
		SuccessStatuses: c.opts.Wait.SuccessStatuses,
		ImportArtifacts: c.opts.Wait.ImportArtifacts,
		ImportPolicy:    c.opts.Wait.ImportPolicy,
	})
}
