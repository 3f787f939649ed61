// Package command defines how sample commands run against an execution
// context: the Command contract, exit-as-value results and the coordinator
// that runs nested commands.
package command

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
)

// Command is one unit of work.
type Command interface {
	Name() string
	// Validate checks required inputs before any remote call is made.
	Validate(ec *execctx.Context) error
	// Execute does the work. A returned error is a failed Result.
	Execute(ctx context.Context, ec *execctx.Context) (Result, error)
}

// Result is how a command exits. It is a value, never a process exit.
type Result struct {
	Success bool
	Message string
	Err     error
}

// Succeeded builds a successful result.
func Succeeded(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

// Failed builds a failed result from an error.
func Failed(err error) Result {
	if err == nil {
		err = errors.New("command failed")
	}
	return Result{Success: false, Message: err.Error(), Err: err}
}

// Failedf builds a failed result with a message and no underlying error.
func Failedf(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps the result to a process exit code.
func (r Result) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}

// ExitError carries a failed Result up to main.
type ExitError struct {
	Result Result
}

func (e *ExitError) Error() string {
	return e.Result.Message
}

func (e *ExitError) Unwrap() error {
	return e.Result.Err
}

// ExitCode returns the code main should exit with.
func (e *ExitError) ExitCode() int {
	return e.Result.ExitCode()
}

// AsError turns a failed result into an *ExitError and a successful one into nil.
func (r Result) AsError() error {
	if r.Success {
		return nil
	}
	return &ExitError{Result: r}
}

// Run validates and executes cmd against ec, then persists its output
// params. Errors and panics become a failed Result; nothing here exits the
// process.
func Run(ctx context.Context, cmd Command, ec *execctx.Context) (res Result) {
	logger := ec.Logger().WithCommand(cmd.Name())

	defer func() {
		if r := recover(); r != nil {
			logger.Error("command panicked", "panic", r, "stack", string(debug.Stack()))
			res = Failed(core.ErrExecution(core.CodeCommandPanicked, fmt.Sprintf("%s panicked: %v", cmd.Name(), r)))
		}
		logExit(ec, cmd.Name(), res)
	}()

	if err := cmd.Validate(ec); err != nil {
		logger.Error("validation failed", "error", err)
		return Failed(err)
	}

	res, err := cmd.Execute(ctx, ec)
	if err != nil {
		res = Failed(err)
	}

	if saveErr := ec.SaveOutputParams(); saveErr != nil {
		logger.Error("saving output params", "error", saveErr)
		if res.Success {
			res = Failed(fmt.Errorf("saving output params: %w", saveErr))
		}
	}
	return res
}

func logExit(ec *execctx.Context, name string, res Result) {
	logger := ec.Logger().WithCommand(name)
	if res.Success {
		logger.Info("command finished", "status", "SUCCESS", "message", res.Message)
		return
	}
	logger.Error("command finished", "status", "FAILURE", "message", res.Message)
}
