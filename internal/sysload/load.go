package sysload

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
)

// DefaultNetworkURL is the file downloaded by the network test when none is given.
const DefaultNetworkURL = "http://speedtest.ftp.otenet.gr/files/test100Mb.db"

const (
	busySlice = 10 * time.Millisecond
	maxIdle   = 50 * time.Millisecond
	pageSize  = 4096
)

// Plan selects and sizes the load tests.
type Plan struct {
	CPU     bool
	CPUTime time.Duration
	// CPULoad is the target busy fraction, clamped to [0.1, 1].
	CPULoad float64

	RAM     bool
	RAMMB   float64
	RAMTime time.Duration
	// RAMChunks splits the allocation; at least 1.
	RAMChunks int
	// FailOnRAMShortage turns an allocation refusal into an error instead of
	// a recorded ram.error result.
	FailOnRAMShortage bool

	Network          bool
	NetworkURL       string
	NetworkDownloads int
	// DownloadDir receives the temporary downloads; they are removed afterwards.
	DownloadDir string

	Pause time.Duration
}

// Enabled reports whether any test is selected.
func (p Plan) Enabled() bool {
	return p.CPU || p.RAM || p.Network
}

// Tester runs load tests.
type Tester struct {
	http   *resty.Client
	logger *logging.Logger
	now    func() time.Time
}

// NewTester creates a tester using rc for network downloads. A nil rc gets a
// default client.
func NewTester(rc *resty.Client, logger *logging.Logger) *Tester {
	if rc == nil {
		rc = resty.New()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tester{http: rc, logger: logger, now: time.Now}
}

// Run executes the selected tests in order (CPU, RAM, network), pausing
// between them. Results use the flat keys "cpu.*", "ram.*" and "network.*".
// A failing test records "<test>.error" and the run goes on.
func (t *Tester) Run(ctx context.Context, p Plan) (map[string]any, error) {
	results := make(map[string]any)
	if !p.Enabled() {
		t.logger.Info("no load tests enabled")
		return results, nil
	}

	type step struct {
		enabled bool
		run     func() error
	}
	steps := []step{
		{p.CPU, func() error {
			t.logger.Info("starting CPU test", "duration", p.CPUTime, "target_load", clampLoad(p.CPULoad))
			t.cpu(ctx, p, results)
			return nil
		}},
		{p.RAM, func() error {
			t.logger.Info("starting RAM test", "size_mb", p.RAMMB, "duration", p.RAMTime)
			return t.ram(ctx, p, results)
		}},
		{p.Network, func() error {
			t.logger.Info("starting network test", "url", p.NetworkURL, "downloads", p.NetworkDownloads)
			t.network(ctx, p, results)
			return nil
		}},
	}

	ran := 0
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if ran > 0 && p.Pause > 0 {
			if err := sleep(ctx, p.Pause); err != nil {
				return results, err
			}
		}
		if err := s.run(); err != nil {
			return results, err
		}
		ran++
	}
	return results, ctx.Err()
}

func clampLoad(l float64) float64 {
	return math.Min(math.Max(l, 0.1), 1.0)
}

// cpu keeps one core busy for a share of each slice matching the target load.
func (t *Tester) cpu(ctx context.Context, p Plan, results map[string]any) {
	target := clampLoad(p.CPULoad)
	idle := time.Duration(float64(busySlice) * (1 - target) / target)
	if idle > maxIdle {
		idle = maxIdle
	}

	start := t.now()
	deadline := start.Add(p.CPUTime)
	var iterations int64
	var sink float64
	for t.now().Before(deadline) && ctx.Err() == nil {
		busyEnd := t.now().Add(busySlice)
		for t.now().Before(busyEnd) {
			iterations++
			sink += math.Sqrt(float64(iterations) * math.Pi)
		}
		if idle > 0 {
			_ = sleep(ctx, idle)
		}
	}
	runtime.KeepAlive(sink)

	elapsed := t.now().Sub(start)
	results["cpu.elapsed_seconds"] = seconds(elapsed)
	results["cpu.iterations"] = iterations
	results["cpu.target_load_percent"] = fmt.Sprintf("%.1f", target*100)
	t.logger.Info("CPU test completed", "elapsed", elapsed.Round(time.Millisecond), "iterations", iterations)
}

// ram allocates the requested memory, touches every page and holds it.
// Go cannot recover from an out-of-memory allocation, so the request is
// checked against the host's available memory first.
func (t *Tester) ram(ctx context.Context, p Plan, results map[string]any) error {
	chunks := max(p.RAMChunks, 1)
	if avail, err := AvailableMB(ctx); err == nil && p.RAMMB > avail {
		msg := fmt.Sprintf("insufficient memory: requested %.1fMB, available %.1fMB", p.RAMMB, avail)
		t.logger.Error("RAM test refused", "error", msg)
		results["ram.error"] = msg
		if p.FailOnRAMShortage {
			return fmt.Errorf("ram test: %s", msg)
		}
		return nil
	}

	chunkSize := int(p.RAMMB * 1024 * 1024 / float64(chunks))
	held := make([][]byte, 0, chunks)
	for i := 0; i < chunks; i++ {
		chunk := make([]byte, chunkSize)
		for j := 0; j < len(chunk); j += pageSize {
			chunk[j] = byte(rand.IntN(256))
		}
		held = append(held, chunk)
		t.logger.Debug("allocated chunk", "chunk", i+1, "mb", float64((i+1)*chunkSize)/1024/1024)
	}

	start := t.now()
	err := sleep(ctx, p.RAMTime)
	elapsed := t.now().Sub(start)
	runtime.KeepAlive(held)
	held = nil
	runtime.GC()

	results["ram.elapsed_seconds"] = seconds(elapsed)
	results["ram.requested_mb"] = fmt.Sprintf("%.1f", p.RAMMB)
	results["ram.chunks"] = chunks
	t.logger.Info("RAM test completed", "size_mb", p.RAMMB, "elapsed", elapsed.Round(time.Millisecond))
	return err
}

// network downloads the URL repeatedly and reports throughput.
func (t *Tester) network(ctx context.Context, p Plan, results map[string]any) {
	url := p.NetworkURL
	if url == "" {
		url = DefaultNetworkURL
	}
	dir := p.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	downloads := max(p.NetworkDownloads, 1)

	var files []string
	defer func() {
		for _, f := range files {
			if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
				t.logger.Debug("removing download", "file", f, "error", err)
			}
		}
	}()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		results["network.error"] = err.Error()
		return
	}

	var total int64
	var spent time.Duration
	for i := 0; i < downloads; i++ {
		target := filepath.Join(dir, fmt.Sprintf("download_%d_%d.tmp", i, t.now().Unix()))
		files = append(files, target)
		t.logger.Info("downloading", "url", url, "file", filepath.Base(target))

		start := t.now()
		resp, err := t.http.R().SetContext(ctx).SetOutput(target).Get(url)
		if err == nil && resp.IsError() {
			err = fmt.Errorf("unexpected status %s", resp.Status())
		}
		if err != nil {
			results["network.error"] = err.Error()
			t.logger.Error("network test failed", "error", err)
			return
		}
		spent += t.now().Sub(start)

		info, err := os.Stat(target)
		if err != nil {
			results["network.error"] = err.Error()
			return
		}
		total += info.Size()
	}

	secs := spent.Seconds()
	results["network.downloads"] = downloads
	results["network.total_mb"] = fmt.Sprintf("%.2f", float64(total)/1024/1024)
	results["network.avg_time"] = fmt.Sprintf("%.2f", secs/float64(downloads))
	if secs > 0 {
		results["network.avg_speed_mbps"] = fmt.Sprintf("%.2f", float64(total)*8/(secs*1_000_000))
	} else {
		results["network.avg_speed_mbps"] = "0.00"
	}
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Seconds())
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
