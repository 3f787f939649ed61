package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

// ChildSpec fully describes a nested command.
type ChildSpec struct {
	// Name is both the child's label and the subdirectory its output files
	// land in under the parent's output files.
	Name string
	// Kind selects the command from the registry when Command is nil.
	Kind    string
	Command Command
	Input   execctx.Input
}

// ChildResult is what the parent observes of a finished child.
type ChildResult struct {
	Name    string
	Result  Result
	Context *execctx.Context
	// Outputs is a snapshot of the child's non-secure output params.
	Outputs map[string]any
	// FilesDir is where the child's output files were copied to.
	FilesDir string
	CopyErr  error
}

// Coordinator runs children against contexts derived from a parent.
type Coordinator struct {
	parent   *execctx.Context
	registry *Registry
	logger   *logging.Logger
}

// NewCoordinator creates a coordinator for parent. The registry may be nil
// when every spec carries its own Command.
func NewCoordinator(parent *execctx.Context, registry *Registry) *Coordinator {
	return &Coordinator{
		parent:   parent,
		registry: registry,
		logger:   parent.Logger(),
	}
}

// RunChild runs one child to completion. A failing child is reported in the
// result, never as a panic or process exit. Whatever output files the child
// produced are merged into <parent output files>/<spec.Name> even when it failed.
func (c *Coordinator) RunChild(ctx context.Context, spec ChildSpec) ChildResult {
	out := ChildResult{Name: spec.Name}
	logger := c.logger.WithChild(spec.Name)

	cmd, err := c.resolve(spec)
	if err != nil {
		out.Result = Failed(core.ErrChildExecution(spec.Name, err.Error()).WithCause(err))
		return out
	}

	childCtx, err := c.parent.Child(spec.Name, spec.Input)
	if err != nil {
		out.Result = Failed(core.ErrChildExecution(spec.Name, "creating child context").WithCause(err))
		return out
	}
	out.Context = childCtx

	logger.Info("running child", "kind", cmd.Name())
	out.Result = Run(ctx, cmd, childCtx)
	out.Outputs = childCtx.OutputParams()

	out.FilesDir, out.CopyErr = c.collectFiles(spec.Name, childCtx)
	if out.CopyErr != nil {
		logger.Warn("copying child output files", "error", out.CopyErr)
	}

	logger.Info("child finished",
		"success", out.Result.Success,
		"message", out.Result.Message,
		"outputs", logger.Sanitizer().SanitizeMap(out.Outputs))
	return out
}

// RunAll runs children strictly in order. With failFast the first failing
// child stops the sequence; otherwise every child runs.
func (c *Coordinator) RunAll(ctx context.Context, specs []ChildSpec, failFast bool) []ChildResult {
	results := make([]ChildResult, 0, len(specs))
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			results = append(results, ChildResult{Name: spec.Name, Result: Failed(err)})
			break
		}
		res := c.RunChild(ctx, spec)
		results = append(results, res)
		if failFast && !res.Result.Success {
			c.logger.Warn("stopping after failed child", "child", spec.Name)
			break
		}
	}
	return results
}

func (c *Coordinator) resolve(spec ChildSpec) (Command, error) {
	if spec.Name == "" {
		return nil, core.ErrValidation(core.CodeInvalidParam, "child name is required")
	}
	if spec.Command != nil {
		return spec.Command, nil
	}
	if c.registry == nil {
		return nil, core.ErrValidation(core.CodeUnknownKind, "no command registry for kind "+spec.Kind)
	}
	return c.registry.New(spec.Kind)
}

// collectFiles merges the child's output files into the parent's.
func (c *Coordinator) collectFiles(name string, child *execctx.Context) (string, error) {
	src := child.Paths().Output.Files
	parentFiles := c.parent.Paths().Output.Files
	if src == "" || parentFiles == "" {
		return "", nil
	}
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return "", nil
	}

	dest := filepath.Join(parentFiles, name)
	err := copy.Copy(src, dest, copy.Options{
		OnDirExists: func(_, _ string) copy.DirExistsAction { return copy.Merge },
		OnSymlink:   func(string) copy.SymlinkAction { return copy.Skip },
	})
	if err != nil {
		return dest, fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	return dest, nil
}
