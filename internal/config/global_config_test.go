package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUserConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := UserConfigPath()
	if err != nil {
		t.Fatalf("UserConfigPath() error = %v", err)
	}
	want := filepath.Join(home, ".config", "pipeline-samples", "config.yaml")
	if path != want {
		t.Errorf("UserConfigPath() = %q, want %q", path, want)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ProjectConfigFile)

	if err := WriteDefaultConfig(path, false); err != nil {
		t.Fatalf("WriteDefaultConfig() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != DefaultConfigYAML {
		t.Error("written config differs from DefaultConfigYAML")
	}

	err = WriteDefaultConfig(path, false)
	if !errors.Is(err, ErrConfigExists) {
		t.Fatalf("second write error = %v, want ErrConfigExists", err)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := WriteDefaultConfig(path, true); err != nil {
		t.Fatalf("forced write error = %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "gitlab:") {
		t.Error("forced write did not restore the default config")
	}
}

func TestDefaultConfigYAML_LoadsAndValidates(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefaultConfig(path, false); err != nil {
		t.Fatalf("WriteDefaultConfig() error = %v", err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("ValidateConfig() error = %v", err)
	}
	if cfg.Pipeline.TimeoutSeconds() != 1800 {
		t.Errorf("TimeoutSeconds() = %d, want 1800", cfg.Pipeline.TimeoutSeconds())
	}
}
