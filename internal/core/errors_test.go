package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatExecution, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if ErrTrigger(CodeTriggerRejected, "m").Retryable {
		t.Fatalf("trigger should not be retryable")
	}
	if !ErrPoll("m").Retryable {
		t.Fatalf("poll should be retryable")
	}
	if ErrArtifactImport(CodeArtifactFetch, "m").Retryable {
		t.Fatalf("artifact import should not be retryable")
	}
	if !ErrExecution("C", "m").Retryable {
		t.Fatalf("execution should be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if ErrAuth("m").Retryable {
		t.Fatalf("auth should not be retryable")
	}
}

func TestErrMissingParams(t *testing.T) {
	err := ErrMissingParams([]string{"params.a", "params.b"})
	if err.Category != ErrCatValidation || err.Code != CodeMissingParams {
		t.Fatalf("unexpected category/code: %s/%s", err.Category, err.Code)
	}
	if got := err.Error(); got != "[validation] MISSING_PARAMS: required parameters are missing: params.a, params.b" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrChildExecution(t *testing.T) {
	err := ErrChildExecution("run1_result", "pipeline failed")
	if err.Details["child"] != "run1_result" {
		t.Fatalf("expected child detail")
	}
	if !IsCategory(fmt.Errorf("wrapped: %w", err), ErrCatChild) {
		t.Fatalf("expected wrapped error to keep its category")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrExecution("X", "m")) {
		t.Fatalf("expected retryable error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("expected non-domain error to be non-retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if GetCategory(ErrPoll("m")) != ErrCatPoll {
		t.Fatalf("expected poll category")
	}
	if GetCategory(errors.New("plain")) != ErrCatInternal {
		t.Fatalf("expected internal category for non-domain error")
	}
	if !IsCategory(ErrAuth("m"), ErrCatAuth) {
		t.Fatalf("expected category match")
	}
	if !IsCategory(ErrNotFound("run", "1"), ErrCatNotFound) {
		t.Fatalf("expected not_found category")
	}
}
