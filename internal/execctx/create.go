package execctx

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

// Layout of a freshly created context folder, relative to the descriptor.
var defaultPaths = Paths{
	Logs: "logs",
	Temp: "temp",
	Input: IOPaths{
		Params:       filepath.Join("input", "params.yaml"),
		ParamsSecure: filepath.Join("input", "params_secure.yaml"),
		Files:        filepath.Join("input", "files"),
	},
	Output: IOPaths{
		Params:       filepath.Join("output", "params.yaml"),
		ParamsSecure: filepath.Join("output", "params_secure.yaml"),
		Files:        filepath.Join("output", "files"),
	},
}

// CreateOptions tunes Create.
type CreateOptions struct {
	// Secure is written to the secure input params file.
	Secure Input
	Logger *logging.Logger
}

// Create lays out a new context folder (descriptor, params files, file areas)
// and loads it. Existing files in folder are overwritten.
func Create(folder string, input Input, opts CreateOptions) (*Context, error) {
	if folder == "" {
		return nil, core.ErrValidation(core.CodeInvalidContext, "context folder is required")
	}
	root, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolving context folder: %w", err)
	}

	for _, dir := range []string{
		defaultPaths.Logs,
		defaultPaths.Temp,
		defaultPaths.Input.Files,
		defaultPaths.Output.Files,
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o750); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := writeParams(filepath.Join(root, defaultPaths.Input.Params), input.tree()); err != nil {
		return nil, err
	}
	if err := writeParams(filepath.Join(root, defaultPaths.Input.ParamsSecure), opts.Secure.tree()); err != nil {
		return nil, err
	}

	desc := Descriptor{Kind: DescriptorKind, APIVersion: APIVersion, Paths: defaultPaths}
	data, err := yaml.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encoding descriptor: %w", err)
	}
	descriptorPath := filepath.Join(root, DescriptorFile)
	if err := config.AtomicWrite(descriptorPath, data); err != nil {
		return nil, fmt.Errorf("writing descriptor: %w", err)
	}

	return Load(descriptorPath, opts.Logger)
}

// Child derives a context for a nested command. The child gets its own folder
// under the parent's temp area and its own output files. The parent's input
// params fill in whatever the explicit child input leaves unset, and the
// parent's logger is shared, tagged with the child name.
func (c *Context) Child(name string, input Input) (*Context, error) {
	if name == "" {
		return nil, core.ErrValidation(core.CodeInvalidParam, "child name is required")
	}
	base := c.paths.Temp
	if base == "" {
		base = filepath.Join(filepath.Dir(c.descriptorPath), defaultPaths.Temp)
	}
	folder := filepath.Join(base, "children", name+"-"+uuid.NewString()[:8])

	params, err := overlay(c.input, input.tree())
	if err != nil {
		return nil, fmt.Errorf("merging inputs for child %s: %w", name, err)
	}

	secure := Input{}
	if p, ok := c.inputSecure[NamespaceParams].(map[string]any); ok {
		secure.Params = p
	}
	if s, ok := c.inputSecure[NamespaceSystems].(map[string]any); ok {
		secure.Systems = s
	}

	child, err := Create(folder, inputFromTree(params), CreateOptions{
		Secure: secure,
		Logger: c.logger.WithChild(name),
	})
	if err != nil {
		return nil, fmt.Errorf("creating context for child %s: %w", name, err)
	}
	return child, nil
}

// overlay returns a deep copy of base with top laid over it. Values set in
// top win, including false and empty values.
func overlay(base, top map[string]any) (map[string]any, error) {
	merged := cloneMap(base)
	if err := mergo.Merge(&merged, cloneMap(top), mergo.WithOverride); err != nil {
		return nil, err
	}
	return merged, nil
}

func inputFromTree(tree map[string]any) Input {
	in := Input{}
	if p, ok := tree[NamespaceParams].(map[string]any); ok {
		in.Params = p
	}
	if s, ok := tree[NamespaceSystems].(map[string]any); ok {
		in.Systems = s
	}
	return in
}
