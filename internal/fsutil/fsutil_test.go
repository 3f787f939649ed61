package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestReadFileScoped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	if err := os.WriteFile(path, []byte("params: {}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFileScoped(filepath.Join(dir, "sub", "..", "params.yaml"))
	if err != nil {
		t.Fatalf("ReadFileScoped() error = %v", err)
	}
	if string(got) != "params: {}\n" {
		t.Errorf("content = %q", got)
	}
}

func TestReadFileScoped_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"missing file":      filepath.Join(dir, "absent.yaml"),
		"missing directory": filepath.Join(dir, "nodir", "file.txt"),
		"directory":         dir,
		"root":              string(filepath.Separator),
		"empty":             "",
	}
	for name, path := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadFileScoped(path); err == nil {
				t.Errorf("ReadFileScoped(%q) succeeded", path)
			}
		})
	}
}

func TestWriteScoped(t *testing.T) {
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}
	defer root.Close()

	n, err := WriteScoped(root, "reports/2026/summary.txt", strings.NewReader("done"), 0)
	if err != nil {
		t.Fatalf("WriteScoped() error = %v", err)
	}
	if n != 4 {
		t.Errorf("written = %d, want 4", n)
	}
	data, err := os.ReadFile(filepath.Join(dir, "reports", "2026", "summary.txt"))
	if err != nil || string(data) != "done" {
		t.Errorf("content = %q, err = %v", data, err)
	}

	// Overwrites truncate.
	if _, err := WriteScoped(root, "reports/2026/summary.txt", strings.NewReader("ok"), 0o600); err != nil {
		t.Fatalf("second WriteScoped() error = %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(dir, "reports", "2026", "summary.txt"))
	if string(data) != "ok" {
		t.Errorf("content after overwrite = %q", data)
	}
}

func TestWriteScoped_RejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	root, err := os.OpenRoot(dir)
	if err != nil {
		t.Fatalf("OpenRoot: %v", err)
	}
	defer root.Close()

	names := []string{"../escape.txt", "a/../../escape.txt"}
	if runtime.GOOS != "windows" {
		names = append(names, "/etc/escape.txt")
	}
	for _, name := range names {
		if _, err := WriteScoped(root, name, strings.NewReader("x"), 0); err == nil {
			t.Errorf("WriteScoped(%q) succeeded", name)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt")); !os.IsNotExist(err) {
		t.Error("file written outside root")
	}
}

func TestHumanSize(t *testing.T) {
	tests := map[int64]string{
		0:       "0 B",
		5:       "5 B",
		2048:    "2.0 KiB",
		1536:    "1.5 KiB",
		1 << 20: "1.0 MiB",
		-2048:   "-2.0 KiB",
	}
	for in, want := range tests {
		if got := HumanSize(in); got != want {
			t.Errorf("HumanSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFileSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	if err := os.WriteFile(path, make([]byte, 3072), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	human, n, err := FileSize(path)
	if err != nil {
		t.Fatalf("FileSize() error = %v", err)
	}
	if human != "3.0 KiB" || n != 3072 {
		t.Errorf("FileSize() = %q, %d", human, n)
	}

	if _, _, err := FileSize(dir); err == nil {
		t.Error("FileSize(dir) succeeded")
	}
	if _, _, err := FileSize(filepath.Join(dir, "absent")); err == nil {
		t.Error("FileSize(absent) succeeded")
	}
}
