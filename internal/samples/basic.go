package samples

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
)

// RunSample adds params.param_1 and params.param_2 into params.result.
type RunSample struct {
	a, b int
}

func (c *RunSample) Name() string { return KindRunSample }

func (c *RunSample) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params", "params.param_1", "params.param_2"); err != nil {
		return err
	}
	var err error
	if c.a, err = ec.InputInt("params.param_1", 0); err != nil {
		return err
	}
	c.b, err = ec.InputInt("params.param_2", 0)
	return err
}

func (c *RunSample) Execute(_ context.Context, ec *execctx.Context) (command.Result, error) {
	ec.Logger().Info("calculating sum of param_1 and param_2")
	sum := c.a + c.b
	if err := ec.SetOutputParam("params.result", sum); err != nil {
		return command.Result{}, err
	}
	return command.Succeeded("result: %d", sum), nil
}

// Operation is an arithmetic operation supported by Calc.
type Operation string

const (
	OpAdd      Operation = "add"
	OpSubtract Operation = "subtract"
	OpMultiply Operation = "multiply"
	OpDivide   Operation = "divide"
)

// ParseOperation accepts the operation names case-insensitively.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpAdd, OpSubtract, OpMultiply, OpDivide:
		return op, nil
	default:
		return "", core.ErrValidation(core.CodeUnknownOperation, fmt.Sprintf("invalid operation: %s", s))
	}
}

// Apply computes a <op> b. Division always yields a float64; the other
// operations yield an int.
func (op Operation) Apply(a, b int) (any, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		if b == 0 {
			return nil, core.ErrValidation(core.CodeDivisionByZero, "division by zero")
		}
		return float64(a) / float64(b), nil
	}
	return nil, core.ErrValidation(core.CodeUnknownOperation, fmt.Sprintf("invalid operation: %s", op))
}

type calcOptions struct {
	Param1     int       `param:"params.param_1"`
	Param2     int       `param:"params.param_2"`
	Operation  Operation `param:"params.operation"`
	ResultName string    `param:"params.result_name" validate:"required,excludesall=."`
}

// Calc applies params.operation to params.param_1 and params.param_2 and
// writes the result to params.<result_name>.
type Calc struct {
	opts calcOptions
}

func (c *Calc) Name() string { return KindCalc }

func (c *Calc) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params",
		"params.param_1", "params.param_2", "params.operation", "params.result_name"); err != nil {
		return err
	}
	var err error
	if c.opts.Param1, err = ec.InputInt("params.param_1", 0); err != nil {
		return err
	}
	if c.opts.Param2, err = ec.InputInt("params.param_2", 0); err != nil {
		return err
	}
	if c.opts.Operation, err = ParseOperation(ec.InputString("params.operation", "")); err != nil {
		return err
	}
	c.opts.ResultName = strings.TrimSpace(ec.InputString("params.result_name", ""))
	return checkOptions(c.opts)
}

func (c *Calc) Execute(_ context.Context, ec *execctx.Context) (command.Result, error) {
	ec.Logger().Info("calculating operation on param_1 and param_2", "operation", c.opts.Operation)
	result, err := c.opts.Operation.Apply(c.opts.Param1, c.opts.Param2)
	if err != nil {
		return command.Result{}, err
	}
	if err := ec.SetOutputParam("params."+c.opts.ResultName, result); err != nil {
		return command.Result{}, err
	}
	return command.Succeeded("%s = %v", c.opts.ResultName, result), nil
}
