package samples

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/fsutil"
)

// InputParamsEnv holds the YAML input params read by GenerateContext.
const InputParamsEnv = "input_params"

type downloadOptions struct {
	URL      string `param:"params.url" validate:"required,http_url"`
	Filename string `param:"params.filename" validate:"required"`
	Dir      string `param:"paths.output.files" validate:"required"`
}

// DownloadFile fetches params.url into the output files area as
// params.filename and records its size and download time.
type DownloadFile struct {
	deps Deps
	opts downloadOptions
}

func (c *DownloadFile) Name() string { return KindDownloadFile }

func (c *DownloadFile) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params", "paths.output.files",
		"params.url", "params.filename"); err != nil {
		return err
	}
	c.opts = downloadOptions{
		URL:      strings.TrimSpace(ec.InputString("params.url", "")),
		Filename: ec.InputString("params.filename", ""),
		Dir:      ec.Paths().Output.Files,
	}
	return checkOptions(c.opts)
}

func (c *DownloadFile) Execute(ctx context.Context, ec *execctx.Context) (command.Result, error) {
	ec.Logger().Info("downloading file to output files", "url", c.opts.URL, "filename", c.opts.Filename)

	if err := os.MkdirAll(c.opts.Dir, 0o750); err != nil {
		return command.Result{}, err
	}
	root, err := os.OpenRoot(c.opts.Dir)
	if err != nil {
		return command.Result{}, fmt.Errorf("opening output files: %w", err)
	}
	defer root.Close()

	start := c.deps.Clock.Now()
	resp, err := resty.NewWithClient(c.deps.HTTPClient).R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(c.opts.URL)
	if err != nil {
		return command.Result{}, core.ErrExecution("DOWNLOAD_FAILED", "downloading "+c.opts.URL).WithCause(err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return command.Result{}, core.ErrExecution("DOWNLOAD_FAILED",
			fmt.Sprintf("downloading %s: %s", c.opts.URL, resp.Status()))
	}

	n, err := fsutil.WriteScoped(root, c.opts.Filename, body, 0o644)
	if err != nil {
		return command.Result{}, fmt.Errorf("writing %s: %w", c.opts.Filename, err)
	}
	elapsed := c.deps.Clock.Now().Sub(start)

	size := fsutil.HumanSize(n)
	outputs := map[string]any{
		"params.filename":      c.opts.Filename,
		"params.filesize":      size,
		"params.download_time": fmt.Sprintf("%.3fs", elapsed.Seconds()),
	}
	for k, v := range outputs {
		if err := ec.SetOutputParam(k, v); err != nil {
			return command.Result{}, err
		}
	}
	return command.Succeeded("downloaded %s (%s)", c.opts.Filename, size), nil
}

// AnalyzeFile records the name and size of params.filename from the input
// files area.
type AnalyzeFile struct {
	filename string
}

func (c *AnalyzeFile) Name() string { return KindAnalyzeFile }

func (c *AnalyzeFile) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.input.files", "paths.output.params",
		"params.filename"); err != nil {
		return err
	}
	c.filename = ec.InputString("params.filename", "")
	return nil
}

func (c *AnalyzeFile) Execute(_ context.Context, ec *execctx.Context) (command.Result, error) {
	ec.Logger().Info("analyzing input file", "filename", c.filename)

	root, err := os.OpenRoot(ec.Paths().Input.Files)
	if err != nil {
		return command.Result{}, fmt.Errorf("opening input files: %w", err)
	}
	defer root.Close()
	info, err := root.Stat(c.filename)
	if err != nil {
		return command.Result{}, core.ErrNotFound("input file", c.filename).WithCause(err)
	}

	size := fsutil.HumanSize(info.Size())
	if err := ec.SetOutputParam("params.filename", c.filename); err != nil {
		return command.Result{}, err
	}
	if err := ec.SetOutputParam("params.filesize", size); err != nil {
		return command.Result{}, err
	}
	return command.Succeeded("%s is %s", c.filename, size), nil
}

// GenerateContext creates a new execution context at params.context_folder
// whose input params come from the YAML in the input_params environment
// variable.
type GenerateContext struct {
	deps   Deps
	folder string
}

func (c *GenerateContext) Name() string { return KindGenerateContext }

func (c *GenerateContext) Validate(ec *execctx.Context) error {
	if err := ec.Validate("params.context_folder"); err != nil {
		return err
	}
	c.folder = ec.InputString("params.context_folder", "")
	return nil
}

func (c *GenerateContext) Execute(_ context.Context, ec *execctx.Context) (command.Result, error) {
	var input execctx.Input
	if raw := c.deps.Getenv(InputParamsEnv); strings.TrimSpace(raw) != "" {
		if err := yaml.Unmarshal([]byte(raw), &input); err != nil {
			return command.Result{}, core.ErrValidation(core.CodeInvalidParam,
				"parsing "+InputParamsEnv+" environment variable").WithCause(err)
		}
	}

	created, err := execctx.Create(c.folder, input, execctx.CreateOptions{Logger: ec.Logger()})
	if err != nil {
		return command.Result{}, err
	}
	ec.Logger().Info("execution context created",
		"path", created.DescriptorPath(),
		"params", len(input.Params),
		"systems", len(input.Systems))

	if err := ec.SetOutputParam("params.context_path", created.DescriptorPath()); err != nil {
		return command.Result{}, err
	}
	return command.Succeeded("context created at %s", filepath.Dir(created.DescriptorPath())), nil
}
