// Package sysload generates synthetic CPU, memory and network load and
// samples host metrics around it.
package sysload

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot holds host and process resource usage at one point in time.
type Snapshot struct {
	CPUModel   string  `json:"cpu_model" yaml:"cpu_model"`
	CPUCores   int     `json:"cpu_cores" yaml:"cpu_cores"`
	CPUThreads int     `json:"cpu_threads" yaml:"cpu_threads"`
	CPUPercent float64 `json:"cpu_percent" yaml:"cpu_percent"`

	MemTotalMB     float64 `json:"mem_total_mb" yaml:"mem_total_mb"`
	MemUsedMB      float64 `json:"mem_used_mb" yaml:"mem_used_mb"`
	MemAvailableMB float64 `json:"mem_available_mb" yaml:"mem_available_mb"`
	MemPercent     float64 `json:"mem_percent" yaml:"mem_percent"`

	// Load average, zero where the platform has none.
	LoadAvg1  float64 `json:"load_avg_1" yaml:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5" yaml:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15" yaml:"load_avg_15"`

	Goroutines  int     `json:"goroutines" yaml:"goroutines"`
	HeapAllocMB float64 `json:"heap_alloc_mb" yaml:"heap_alloc_mb"`
}

// Params flattens the snapshot into output parameters with two decimals.
func (s Snapshot) Params() map[string]any {
	return map[string]any{
		"cpu_model":        s.CPUModel,
		"cpu_cores":        s.CPUCores,
		"cpu_threads":      s.CPUThreads,
		"cpu_percent":      round2(s.CPUPercent),
		"mem_total_mb":     round2(s.MemTotalMB),
		"mem_used_mb":      round2(s.MemUsedMB),
		"mem_available_mb": round2(s.MemAvailableMB),
		"mem_percent":      round2(s.MemPercent),
		"load_avg_1":       round2(s.LoadAvg1),
		"load_avg_5":       round2(s.LoadAvg5),
		"load_avg_15":      round2(s.LoadAvg15),
		"goroutines":       s.Goroutines,
		"heap_alloc_mb":    round2(s.HeapAllocMB),
	}
}

// Collector samples host metrics. CPU percent is the busy share since the
// previous Collect, so the first sample reports zero.
type Collector struct {
	mu           sync.Mutex
	lastCPUTotal float64
	lastCPUIdle  float64

	infoCollected bool
	cpuModel      string
	cpuCores      int
	cpuThreads    int
}

// NewCollector creates a metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Collect gathers current statistics. Metrics the platform cannot provide
// are left at zero.
func (c *Collector) Collect(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Snapshot
	c.collectHardware(ctx, &s)
	c.collectMemory(ctx, &s)
	c.collectCPU(ctx, &s)
	c.collectLoad(ctx, &s)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.Goroutines = runtime.NumGoroutine()
	s.HeapAllocMB = float64(ms.HeapAlloc) / 1024 / 1024
	return s
}

// AvailableMB returns the memory the host can still hand out.
func AvailableMB(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading memory stats: %w", err)
	}
	return float64(vm.Available) / 1024 / 1024, nil
}

func (c *Collector) collectMemory(ctx context.Context, s *Snapshot) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return
	}
	s.MemTotalMB = float64(vm.Total) / 1024 / 1024
	s.MemUsedMB = float64(vm.Used) / 1024 / 1024
	s.MemAvailableMB = float64(vm.Available) / 1024 / 1024
	s.MemPercent = vm.UsedPercent
}

func (c *Collector) collectCPU(ctx context.Context, s *Snapshot) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil || len(times) == 0 {
		return
	}

	t := times[0]
	total := t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	idle := t.Idle + t.Iowait

	if c.lastCPUTotal > 0 {
		totalDelta := total - c.lastCPUTotal
		idleDelta := idle - c.lastCPUIdle
		if totalDelta > 0 {
			s.CPUPercent = (1 - idleDelta/totalDelta) * 100
		}
	}
	c.lastCPUTotal = total
	c.lastCPUIdle = idle
}

func (c *Collector) collectLoad(ctx context.Context, s *Snapshot) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return
	}
	s.LoadAvg1 = avg.Load1
	s.LoadAvg5 = avg.Load5
	s.LoadAvg15 = avg.Load15
}

func (c *Collector) collectHardware(ctx context.Context, s *Snapshot) {
	if !c.infoCollected {
		if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
			c.cpuModel = strings.TrimSpace(infos[0].ModelName)
		}
		if n, err := cpu.CountsWithContext(ctx, false); err == nil && n > 0 {
			c.cpuCores = n
		}
		if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
			c.cpuThreads = n
		}
		c.infoCollected = true
	}
	s.CPUModel = c.cpuModel
	s.CPUCores = c.cpuCores
	s.CPUThreads = c.cpuThreads
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
