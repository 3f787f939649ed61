package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"Debug":   slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Format != "auto" || cfg.Output == nil {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}

func TestLogger_JSONFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})

	logger.WithCommand("calc").Info("result written", "key", "params.result")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "result written" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["command"] != "calc" {
		t.Errorf("command = %v", rec["command"])
	}
	if rec["key"] != "params.result" {
		t.Errorf("key = %v", rec["key"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Format: "text", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record passed a warn logger")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn record missing")
	}
}

func TestLogger_AutoFormatOnNonTerminal(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "auto", Output: &buf})

	logger.Info("plain")

	if !strings.Contains(buf.String(), "msg=plain") {
		t.Errorf("expected text handler output, got %q", buf.String())
	}
}

func TestLogger_ScopeHelpers(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "text", Output: &buf})

	logger.WithCommand("umbrella-test").WithChild("run1_result").WithRun("run-7").Debug("polling")

	out := buf.String()
	for _, want := range []string{"command=umbrella-test", "child=run1_result", "run_id=run-7"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestLogger_RedactsSecrets(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})
	token := "ghp_" + strings.Repeat("a", 36)

	logger.Info("dispatching with "+token, "auth", token)
	logger.With("header", "Bearer "+strings.Repeat("x", 24)).Info("request")

	out := buf.String()
	if strings.Contains(out, token) {
		t.Errorf("token leaked: %q", out)
	}
	if strings.Count(out, "[REDACTED]") < 3 {
		t.Errorf("expected three redactions, got %q", out)
	}
}

func TestLogger_RedactsLiterals(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "text", Output: &buf})
	logger.Sanitizer().AddLiteral("minio-secret-value")

	logger.Info("connecting", "secret_key", "minio-secret-value")

	if strings.Contains(buf.String(), "minio-secret-value") {
		t.Errorf("literal leaked: %q", buf.String())
	}
	if got := logger.Sanitize("x minio-secret-value y"); got != "x [REDACTED] y" {
		t.Errorf("Sanitize() = %q", got)
	}
}

func TestLogger_Nop(t *testing.T) {
	t.Parallel()
	logger := NewNop()
	logger.Info("discarded")
	if logger.Sanitizer() == nil {
		t.Fatal("nop logger has no sanitizer")
	}
}

func TestPrettyHandler_ScopePrefix(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, slog.LevelInfo))

	logger.With("command", "umbrella-test", "child", "run1").Info("running child", "kind", "calc")
	logger.Debug("below level")

	out := buf.String()
	if !strings.Contains(out, "[umbrella-test/run1] running child") {
		t.Errorf("missing scope prefix in %q", out)
	}
	if !strings.Contains(out, "kind") || !strings.Contains(out, "=calc") {
		t.Errorf("missing attribute in %q", out)
	}
	if strings.Contains(out, "below level") {
		t.Error("debug record passed an info handler")
	}
}

func TestPrettyHandler_Groups(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, slog.LevelDebug))

	logger.WithGroup("build").Info("recorded", "status", "SUCCESS")

	if !strings.Contains(buf.String(), "build.status") {
		t.Errorf("expected grouped key, got %q", buf.String())
	}
}

func TestLogger_SharedSanitizer(t *testing.T) {
	t.Parallel()
	first := New(Config{Format: "text", Output: &bytes.Buffer{}})
	first.Sanitizer().AddLiteral("s3cr3t-from-params")

	var buf bytes.Buffer
	second := New(Config{Format: "text", Output: &buf, Sanitizer: first.Sanitizer()})
	second.Info("using s3cr3t-from-params")

	if strings.Contains(buf.String(), "s3cr3t-from-params") {
		t.Errorf("shared literal leaked: %q", buf.String())
	}
}
