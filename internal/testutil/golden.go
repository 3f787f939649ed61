package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var updateGolden = flag.Bool("update-golden", false, "rewrite golden files under testdata")

// Golden compares generated documents (reports, params files) against
// checked-in files. Both sides are normalized and scrubbed before comparing.
type Golden struct {
	t         *testing.T
	dir       string
	scrubbers []func(string) string
}

// NewGolden creates a helper reading <dir>/<name>.golden.
func NewGolden(t *testing.T, dir string, scrubbers ...func(string) string) *Golden {
	return &Golden{t: t, dir: dir, scrubbers: scrubbers}
}

// Assert compares actual with the golden file, or rewrites the file when
// the test binary runs with -update-golden.
func (g *Golden) Assert(name string, actual []byte) {
	g.t.Helper()
	path := filepath.Join(g.dir, name+".golden")

	if *updateGolden {
		if err := os.MkdirAll(g.dir, 0o750); err != nil {
			g.t.Fatalf("creating golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(g.clean(string(actual))+"\n"), 0o644); err != nil {
			g.t.Fatalf("writing golden file: %v", err)
		}
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		g.t.Fatalf("reading golden file %s: %v", path, err)
	}
	want, got := g.clean(string(expected)), g.clean(string(actual))
	if want != got {
		g.t.Errorf("%s does not match golden file:\n--- want ---\n%s\n--- got ---\n%s", name, want, got)
	}
}

func (g *Golden) clean(s string) string {
	for _, scrub := range g.scrubbers {
		s = scrub(s)
	}
	return Normalize(s)
}

// Normalize converts CRLF to LF, strips trailing blanks from every line and
// drops trailing newlines.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

var (
	timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})`)
	durationRe  = regexp.MustCompile(`\b(\d+h)?(\d+m)?\d+(\.\d+)?(ns|µs|us|ms|s)\b`)
	childDirRe  = regexp.MustCompile(`children([/\\])([A-Za-z0-9_.-]+)-[0-9a-f]{8}`)
)

// ScrubTimestamps replaces RFC 3339 timestamps such as params.build.date.
func ScrubTimestamps(s string) string {
	return timestampRe.ReplaceAllString(s, "[TIMESTAMP]")
}

// ScrubDurations replaces Go duration strings such as params.build.duration.
func ScrubDurations(s string) string {
	return durationRe.ReplaceAllString(s, "[DURATION]")
}

// ScrubPaths replaces a temp directory prefix.
func ScrubPaths(s, base string) string {
	return strings.ReplaceAll(s, base, "[WORKDIR]")
}

// ScrubChildDirs replaces the random suffix of child context folders.
func ScrubChildDirs(s string) string {
	return childDirRe.ReplaceAllString(s, "children${1}${2}-[ID]")
}
