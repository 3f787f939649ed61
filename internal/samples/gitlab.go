package samples

import (
	"context"
	"strings"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/adapters/gitlab"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/pipeline"
)

// GitLab pipeline defaults. They are shorter than the GitHub ones because the
// command mostly runs as an umbrella child.
const (
	gitlabTimeoutSeconds  = 60
	gitlabIntervalSeconds = 5
)

type gitlabOptions struct {
	URL     string `param:"systems.gitlab.url" validate:"required,http_url"`
	Token   string `param:"systems.gitlab.password" validate:"required"`
	Project string `param:"params.pipeline" validate:"required"`
	Branch  string `param:"params.pipeline_branch"`
	Params  map[string]string
	Wait    waitOptions
}

// GitLabRunPipeline triggers a GitLab CI pipeline of params.pipeline, waits
// for it and extracts the first job's artifacts into the output files when
// the pipeline succeeded.
type GitLabRunPipeline struct {
	deps Deps
	opts gitlabOptions
}

func (c *GitLabRunPipeline) Name() string { return KindGitLabPipeline }

func (c *GitLabRunPipeline) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params", "paths.output.files",
		"params.pipeline", "systems.gitlab.password"); err != nil {
		return err
	}

	params, err := ec.InputStringMap("params.pipeline_params")
	if err != nil {
		return err
	}
	wait, err := readWaitOptions(ec, gitlabTimeoutSeconds, gitlabIntervalSeconds, true)
	if err != nil {
		return err
	}
	policy, err := pipeline.ParseImportPolicy(ec.InputString("params.import_policy", string(pipeline.ImportOnSuccess)))
	if err != nil {
		return err
	}
	wait.ImportPolicy = policy

	c.opts = gitlabOptions{
		URL:     strings.TrimSpace(ec.InputString("systems.gitlab.url", c.deps.Config.GitLab.URL)),
		Token:   ec.InputString("systems.gitlab.password", ""),
		Project: ec.InputString("params.pipeline", ""),
		Branch:  ec.InputString("params.pipeline_branch", ""),
		Params:  params,
		Wait:    wait,
	}
	return checkOptions(c.opts)
}

func (c *GitLabRunPipeline) Execute(ctx context.Context, ec *execctx.Context) (command.Result, error) {
	ec.Logger().Info("executing GitLab pipeline and fetching results", "project", c.opts.Project)

	remote, err := c.deps.GitLabRemote(gitlab.Config{
		URL:        c.opts.URL,
		Token:      c.opts.Token,
		Project:    c.opts.Project,
		Timeout:    c.deps.Config.HTTP.Timeout,
		HTTPClient: c.deps.HTTPClient,
	})
	if err != nil {
		return command.Result{}, err
	}

	return runPipeline(ctx, ec, c.deps, remote, pipeline.RunOptions{
		Request: core.TriggerRequest{
			Pipeline: c.opts.Project,
			Branch:   c.opts.Branch,
			Params:   c.opts.Params,
		},
		TimeoutSeconds:  c.opts.Wait.TimeoutSeconds,
		IntervalSeconds: c.opts.Wait.IntervalSeconds,
		SuccessStatuses: c.opts.Wait.SuccessStatuses,
		ImportArtifacts: c.opts.Wait.ImportArtifacts,
		ImportPolicy:    c.opts.Wait.ImportPolicy,
	})
}
