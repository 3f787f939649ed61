// Package execctx implements the execution context a command runs against:
// a descriptor pointing at input/output parameter files and file areas,
// read-only input parameters and write-only output parameters.
package execctx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/fsutil"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

const (
	// DescriptorKind identifies a context descriptor file.
	DescriptorKind = "ExecutionContext"
	// ParamsKind identifies a parameters file.
	ParamsKind = "ExecutionParams"
	// APIVersion is the only supported descriptor and params version.
	APIVersion = "v1"

	// DescriptorFile is the descriptor name inside a context folder.
	DescriptorFile = "context.yaml"
	// LogFile is the log file written under paths.logs.
	LogFile = "execution.log"
)

// Top-level namespaces of parameter keys.
const (
	NamespacePaths   = "paths"
	NamespaceParams  = "params"
	NamespaceSystems = "systems"
)

// Descriptor is the on-disk context.yaml.
type Descriptor struct {
	Kind       string `yaml:"kind"`
	APIVersion string `yaml:"apiVersion"`
	Paths      Paths  `yaml:"paths"`
}

// Paths lists the locations a command reads from and writes to.
type Paths struct {
	Logs   string  `yaml:"logs"`
	Temp   string  `yaml:"temp"`
	Input  IOPaths `yaml:"input"`
	Output IOPaths `yaml:"output"`
}

// IOPaths is one side (input or output) of the context.
type IOPaths struct {
	Params       string `yaml:"params"`
	ParamsSecure string `yaml:"params_secure"`
	Files        string `yaml:"files"`
}

// ParamsFile is the on-disk shape of every params file.
type ParamsFile struct {
	Kind       string         `yaml:"kind"`
	APIVersion string         `yaml:"apiVersion"`
	Params     map[string]any `yaml:"params"`
	Systems    map[string]any `yaml:"systems,omitempty"`
}

// Input is the parameter content a new context is created with.
type Input struct {
	Params  map[string]any `yaml:"params"`
	Systems map[string]any `yaml:"systems"`
}

func (in Input) tree() map[string]any {
	return map[string]any{
		NamespaceParams:  cloneMap(in.Params),
		NamespaceSystems: cloneMap(in.Systems),
	}
}

// Context is a loaded execution context. Input is read-only; output is
// accumulated in memory until SaveOutputParams.
type Context struct {
	descriptorPath string
	paths          Paths

	input        map[string]any
	inputSecure  map[string]any
	merged       map[string]any
	output       map[string]any
	outputSecure map[string]any

	logger *logging.Logger
	mu     sync.Mutex
}

// Load reads a context descriptor and its input parameter files. Relative
// paths in the descriptor resolve against the descriptor's directory.
func Load(descriptorPath string, logger *logging.Logger) (*Context, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	abs, err := filepath.Abs(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("resolving context path: %w", err)
	}

	data, err := fsutil.ReadFileScoped(abs)
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidContext,
			fmt.Sprintf("reading context descriptor %s", abs)).WithCause(err)
	}

	var desc Descriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidContext,
			fmt.Sprintf("parsing context descriptor %s", abs)).WithCause(err)
	}
	if desc.Kind != "" && desc.Kind != DescriptorKind {
		return nil, core.ErrValidation(core.CodeInvalidContext,
			fmt.Sprintf("unexpected descriptor kind %q", desc.Kind))
	}

	c := &Context{
		descriptorPath: abs,
		paths:          resolvePaths(filepath.Dir(abs), desc.Paths),
		output:         map[string]any{},
		outputSecure:   map[string]any{},
		logger:         logger,
	}

	if c.input, err = readParams(c.paths.Input.Params); err != nil {
		return nil, err
	}
	if c.inputSecure, err = readParams(c.paths.Input.ParamsSecure); err != nil {
		return nil, err
	}
	if c.merged, err = overlay(c.input, c.inputSecure); err != nil {
		return nil, err
	}
	for _, secret := range leafStrings(c.inputSecure) {
		logger.Sanitizer().AddLiteral(secret)
	}

	logger.Debug("execution context loaded", "path", abs)
	return c, nil
}

func resolvePaths(base string, p Paths) Paths {
	abs := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(base, s)
	}
	return Paths{
		Logs: abs(p.Logs),
		Temp: abs(p.Temp),
		Input: IOPaths{
			Params:       abs(p.Input.Params),
			ParamsSecure: abs(p.Input.ParamsSecure),
			Files:        abs(p.Input.Files),
		},
		Output: IOPaths{
			Params:       abs(p.Output.Params),
			ParamsSecure: abs(p.Output.ParamsSecure),
			Files:        abs(p.Output.Files),
		},
	}
}

// readParams loads a params file. A missing or empty path yields empty params.
func readParams(path string) (map[string]any, error) {
	tree := map[string]any{NamespaceParams: map[string]any{}, NamespaceSystems: map[string]any{}}
	if path == "" {
		return tree, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return tree, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading params %s: %w", path, err)
	}

	var pf ParamsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, core.ErrValidation(core.CodeInvalidContext,
			fmt.Sprintf("parsing params file %s", path)).WithCause(err)
	}
	if pf.Params != nil {
		tree[NamespaceParams] = pf.Params
	}
	if pf.Systems != nil {
		tree[NamespaceSystems] = pf.Systems
	}
	return tree, nil
}

// DescriptorPath returns the absolute path of context.yaml.
func (c *Context) DescriptorPath() string { return c.descriptorPath }

// Paths returns the resolved paths of the context.
func (c *Context) Paths() Paths { return c.paths }

// Logger returns the logger commands running against this context use.
func (c *Context) Logger() *logging.Logger { return c.logger }

// SetLogger replaces the context logger, e.g. to tee records into the log file.
func (c *Context) SetLogger(l *logging.Logger) {
	if l != nil {
		c.logger = l
	}
}

// OpenLogFile opens <paths.logs>/execution.log for appending.
func (c *Context) OpenLogFile() (io.WriteCloser, error) {
	if c.paths.Logs == "" {
		return nil, core.ErrValidation(core.CodeInvalidContext, "context has no logs path")
	}
	if err := os.MkdirAll(c.paths.Logs, 0o750); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(c.paths.Logs, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// =============================================================================
// Input
// =============================================================================

// Validate reports every key that is missing or an empty string.
func (c *Context) Validate(keys ...string) error {
	var missing []string
	for _, key := range keys {
		v, ok := c.InputParam(key)
		if !ok || v == nil {
			missing = append(missing, key)
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return core.ErrMissingParams(missing)
	}
	return nil
}

// InputParam looks up a dotted key. paths.* keys come from the descriptor;
// everything else from input params with secure values overlaid.
func (c *Context) InputParam(key string) (any, bool) {
	parts := strings.Split(key, ".")
	if parts[0] == NamespacePaths {
		return c.pathParam(parts[1:])
	}
	return lookup(c.merged, parts)
}

// InputParamOr is InputParam with a default for missing keys.
func (c *Context) InputParamOr(key string, def any) any {
	if v, ok := c.InputParam(key); ok && v != nil {
		return v
	}
	return def
}

// InputString returns the key formatted as a string.
func (c *Context) InputString(key, def string) string {
	v, ok := c.InputParam(key)
	if !ok || v == nil {
		return def
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}

// InputInt returns the key as an int. Numeric strings are accepted.
func (c *Context) InputInt(key string, def int) (int, error) {
	v, ok := c.InputParam(key)
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return def, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return def, core.ErrValidation(core.CodeInvalidParam,
				fmt.Sprintf("%s must be an integer, got %q", key, n))
		}
		return i, nil
	default:
		return def, core.ErrValidation(core.CodeInvalidParam,
			fmt.Sprintf("%s must be an integer, got %T", key, v))
	}
}

// InputFloat returns the key as a float64. Numeric strings are accepted.
func (c *Context) InputFloat(key string, def float64) (float64, error) {
	v, ok := c.InputParam(key)
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return def, core.ErrValidation(core.CodeInvalidParam,
				fmt.Sprintf("%s must be a number, got %q", key, n))
		}
		return f, nil
	default:
		return def, core.ErrValidation(core.CodeInvalidParam,
			fmt.Sprintf("%s must be a number, got %T", key, v))
	}
}

// InputBool returns the key as a bool. Strings like "true"/"false" are accepted.
func (c *Context) InputBool(key string, def bool) (bool, error) {
	v, ok := c.InputParam(key)
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		if strings.TrimSpace(b) == "" {
			return def, nil
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return def, core.ErrValidation(core.CodeInvalidParam,
				fmt.Sprintf("%s must be a boolean, got %q", key, b))
		}
		return parsed, nil
	default:
		return def, core.ErrValidation(core.CodeInvalidParam,
			fmt.Sprintf("%s must be a boolean, got %T", key, v))
	}
}

// InputMap returns the key as a mapping. A missing key yields nil.
func (c *Context) InputMap(key string) (map[string]any, error) {
	v, ok := c.InputParam(key)
	if !ok || v == nil {
		return nil, nil
	}
	m, isMap := v.(map[string]any)
	if !isMap {
		return nil, core.ErrValidation(core.CodeInvalidParam,
			fmt.Sprintf("%s must be a mapping, got %T", key, v))
	}
	return cloneMap(m), nil
}

// InputStringMap returns a mapping with every value formatted as a string.
func (c *Context) InputStringMap(key string) (map[string]string, error) {
	m, err := c.InputMap(key)
	if err != nil || m == nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

func (c *Context) pathParam(parts []string) (any, bool) {
	switch strings.Join(parts, ".") {
	case "logs":
		return c.paths.Logs, true
	case "temp":
		return c.paths.Temp, true
	case "input.params":
		return c.paths.Input.Params, true
	case "input.params_secure":
		return c.paths.Input.ParamsSecure, true
	case "input.files":
		return c.paths.Input.Files, true
	case "output.params":
		return c.paths.Output.Params, true
	case "output.params_secure":
		return c.paths.Output.ParamsSecure, true
	case "output.files":
		return c.paths.Output.Files, true
	}
	return nil, false
}

// =============================================================================
// Output
// =============================================================================

// SetOutputParam records an output value under a params.* or systems.* key.
func (c *Context) SetOutputParam(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return setOutput(c.output, key, value)
}

// SetOutputParamSecure records a value into the secure output channel. Its
// string leaves are redacted from subsequent log records.
func (c *Context) SetOutputParamSecure(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := setOutput(c.outputSecure, key, value); err != nil {
		return err
	}
	if s, ok := value.(string); ok {
		c.logger.Sanitizer().AddLiteral(s)
	}
	return nil
}

func setOutput(tree map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	if len(parts) < 2 || (parts[0] != NamespaceParams && parts[0] != NamespaceSystems) {
		return core.ErrValidation(core.CodeInvalidParam,
			fmt.Sprintf("output key %q must start with params. or systems.", key))
	}
	for _, p := range parts {
		if p == "" {
			return core.ErrValidation(core.CodeInvalidParam,
				fmt.Sprintf("output key %q has an empty segment", key))
		}
	}
	assign(tree, parts, value)
	return nil
}

// OutputParam reads back a recorded, non-secure output value.
func (c *Context) OutputParam(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lookup(c.output, strings.Split(key, "."))
}

// OutputParams returns a copy of the non-secure output tree.
func (c *Context) OutputParams() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneMap(c.output)
}

// SaveOutputParams writes both output params files atomically.
func (c *Context) SaveOutputParams() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeParams(c.paths.Output.Params, c.output); err != nil {
		return err
	}
	if err := writeParams(c.paths.Output.ParamsSecure, c.outputSecure); err != nil {
		return err
	}
	c.logger.Debug("output params saved", "path", c.paths.Output.Params)
	return nil
}

func writeParams(path string, tree map[string]any) error {
	if path == "" {
		return nil
	}
	pf := paramsFile(tree)
	data, err := yaml.Marshal(pf)
	if err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	if err := config.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("writing params %s: %w", path, err)
	}
	return nil
}

func paramsFile(tree map[string]any) ParamsFile {
	pf := ParamsFile{Kind: ParamsKind, APIVersion: APIVersion, Params: map[string]any{}}
	if p, ok := tree[NamespaceParams].(map[string]any); ok {
		pf.Params = p
	}
	if s, ok := tree[NamespaceSystems].(map[string]any); ok && len(s) > 0 {
		pf.Systems = s
	}
	return pf
}

// =============================================================================
// Tree helpers
// =============================================================================

func lookup(tree map[string]any, parts []string) (any, bool) {
	var cur any = tree
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[p]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func assign(tree map[string]any, parts []string, value any) {
	cur := tree
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func leafStrings(tree map[string]any) []string {
	var out []string
	for _, v := range tree {
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case map[string]any:
			out = append(out, leafStrings(val)...)
		}
	}
	sort.Strings(out)
	return out
}
