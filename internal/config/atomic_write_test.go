package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

func TestAtomicWrite_CreatesParents(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "output", "files", "report.html")

	if err := AtomicWrite(path, []byte("<html></html>")); err != nil {
		t.Fatalf("AtomicWrite error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Fatalf("content = %q", data)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".report.html*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestAtomicWrite_KeepsPermissions(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("original"), 0o640); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	if err := AtomicWrite(path, []byte("updated")); err != nil {
		t.Fatalf("AtomicWrite error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("perm = %v, want 0640", info.Mode().Perm())
	}
}

func TestAtomicWrite_ConcurrentWritersLeaveOneVersion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "report.html")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = AtomicWrite(path, []byte(fmt.Sprintf("version %d", n)))
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !strings.HasPrefix(string(data), "version ") || len(data) != len("version 0") {
		t.Errorf("content = %q", data)
	}
}
