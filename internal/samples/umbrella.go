package samples

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
)

// Defaults of the child run when params.children is not given.
const (
	DefaultChildName      = "run1_result"
	DefaultChildPipeline  = "quber-test/quber-pipeline"
	DefaultChildTestFile  = "name_from_first_job.txt"
	DefaultChildTokenEnv  = "GITLAB_QUBER_TOKEN"
	defaultChildTokenMiss = "UNKNOWN"
)

// ChildEntry is one element of params.children.
type ChildEntry struct {
	Name    string         `yaml:"name" param:"name" validate:"required,excludesall=/\\."`
	Kind    string         `yaml:"kind" param:"kind" validate:"required"`
	Params  map[string]any `yaml:"params,omitempty"`
	Systems map[string]any `yaml:"systems,omitempty"`
}

type umbrellaOptions struct {
	Children []ChildEntry `param:"params.children" validate:"min=1,unique=Name,dive"`
	FailFast bool         `param:"params.fail_fast"`
	// Strict fails the umbrella when any child failed.
	Strict bool `param:"params.strict"`
}

// Umbrella runs child commands one after another in derived contexts and
// collects their output files under <output files>/<child name>.
type Umbrella struct {
	deps     Deps
	registry *command.Registry
	opts     umbrellaOptions
}

func (c *Umbrella) Name() string { return KindUmbrella }

func (c *Umbrella) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params", "paths.output.files"); err != nil {
		return err
	}

	children, err := c.readChildren(ec)
	if err != nil {
		return err
	}
	c.opts.Children = children
	if c.opts.FailFast, err = ec.InputBool("params.fail_fast", false); err != nil {
		return err
	}
	if c.opts.Strict, err = ec.InputBool("params.strict", false); err != nil {
		return err
	}
	if err := checkOptions(c.opts); err != nil {
		return err
	}

	for _, child := range c.opts.Children {
		if child.Kind == KindUmbrella {
			return core.ErrValidation(core.CodeInvalidParam,
				fmt.Sprintf("child %s: umbrella commands cannot be nested", child.Name))
		}
		if _, err := c.registry.New(child.Kind); err != nil {
			return err
		}
	}
	return nil
}

func (c *Umbrella) readChildren(ec *execctx.Context) ([]ChildEntry, error) {
	raw, ok := ec.InputParam("params.children")
	if !ok || raw == nil {
		return []ChildEntry{c.defaultChild()}, nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding params.children: %w", err)
	}
	var children []ChildEntry
	if err := yaml.Unmarshal(data, &children); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidParam,
			"params.children must be a list of {name, kind, params, systems}").WithCause(err)
	}
	return children, nil
}

// defaultChild is a GitLab pipeline run whose token comes from the
// environment.
func (c *Umbrella) defaultChild() ChildEntry {
	token := c.deps.Getenv(DefaultChildTokenEnv)
	if token == "" {
		token = defaultChildTokenMiss
	}
	return ChildEntry{
		Name: DefaultChildName,
		Kind: KindGitLabPipeline,
		Params: map[string]any{
			"pipeline": DefaultChildPipeline,
			"pipeline_params": map[string]any{
				"TEST_FILE_NAME": DefaultChildTestFile,
			},
		},
		Systems: map[string]any{
			"gitlab": map[string]any{"password": token},
		},
	}
}

func (c *Umbrella) Execute(ctx context.Context, ec *execctx.Context) (command.Result, error) {
	logger := ec.Logger()
	logger.Info("executing child commands and collecting their output", "children", len(c.opts.Children))

	specs := make([]command.ChildSpec, 0, len(c.opts.Children))
	for _, child := range c.opts.Children {
		specs = append(specs, command.ChildSpec{
			Name:  child.Name,
			Kind:  child.Kind,
			Input: execctx.Input{Params: child.Params, Systems: child.Systems},
		})
	}

	results := command.NewCoordinator(ec, c.registry).RunAll(ctx, specs, c.opts.FailFast)

	var failed []string
	for _, res := range results {
		prefix := "params.children." + res.Name
		if err := ec.SetOutputParam(prefix+".success", res.Result.Success); err != nil {
			return command.Result{}, err
		}
		if err := ec.SetOutputParam(prefix+".message", res.Result.Message); err != nil {
			return command.Result{}, err
		}
		if !res.Result.Success {
			failed = append(failed, res.Name)
			logger.Warn("child failed", "child", res.Name, "message", res.Result.Message)
		}
	}
	if skipped := len(specs) - len(results); skipped > 0 {
		logger.Warn("children skipped after a failure", "skipped", skipped)
	}

	summary := fmt.Sprintf("%d of %d children succeeded", len(results)-len(failed), len(specs))
	if len(failed) > 0 && c.opts.Strict {
		return command.Failedf("%s; failed: %s", summary, strings.Join(failed, ", ")), nil
	}
	return command.Succeeded("%s", summary), nil
}
