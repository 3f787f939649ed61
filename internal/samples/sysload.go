package samples

import (
	"context"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/sysload"
)

type loadOptions struct {
	CPUSeconds     float64 `param:"params.cpu.duration" validate:"gte=0"`
	CPULoad        float64 `param:"params.cpu.load"`
	RAMMB          float64 `param:"params.ram.size_mb" validate:"gte=0"`
	RAMSeconds     float64 `param:"params.ram.duration" validate:"gte=0"`
	RAMChunks      int     `param:"params.ram.chunks" validate:"gte=1"`
	NetworkURL     string  `param:"params.network.url" validate:"omitempty,http_url"`
	Downloads      int     `param:"params.network.download_times" validate:"gte=1"`
	PauseSeconds   float64 `param:"params.sleep_between_tests" validate:"gte=0"`
	plan           sysload.Plan
	catchRAMErrors bool
}

// SystemLoad generates CPU, memory and network load as selected by
// params.{cpu,ram,network}.run_test and records the measurements under
// params.test_results, with host metrics before and after.
type SystemLoad struct {
	deps Deps
	opts loadOptions
}

func (c *SystemLoad) Name() string { return KindSystemLoad }

func (c *SystemLoad) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.params", "paths.output.params"); err != nil {
		return err
	}

	var (
		o   loadOptions
		err error
	)
	p := &o.plan
	floats := []struct {
		key string
		def float64
		dst *float64
	}{
		{"params.cpu.duration", 10, &o.CPUSeconds},
		{"params.cpu.load", 0.8, &o.CPULoad},
		{"params.ram.size_mb", 100, &o.RAMMB},
		{"params.ram.duration", 10, &o.RAMSeconds},
		{"params.sleep_between_tests", 1, &o.PauseSeconds},
	}
	for _, f := range floats {
		if *f.dst, err = ec.InputFloat(f.key, f.def); err != nil {
			return err
		}
	}
	bools := []struct {
		key string
		def bool
		dst *bool
	}{
		{"params.cpu.run_test", false, &p.CPU},
		{"params.ram.run_test", false, &p.RAM},
		{"params.network.run_test", false, &p.Network},
		{"params.ram.catch_memory_error", true, &o.catchRAMErrors},
	}
	for _, b := range bools {
		if *b.dst, err = ec.InputBool(b.key, b.def); err != nil {
			return err
		}
	}
	if o.RAMChunks, err = ec.InputInt("params.ram.chunks", 1); err != nil {
		return err
	}
	if o.Downloads, err = ec.InputInt("params.network.download_times", 1); err != nil {
		return err
	}
	o.NetworkURL = ec.InputString("params.network.url", sysload.DefaultNetworkURL)

	if err := checkOptions(o); err != nil {
		return err
	}

	p.CPUTime = seconds(o.CPUSeconds)
	p.CPULoad = o.CPULoad
	p.RAMMB = o.RAMMB
	p.RAMTime = seconds(o.RAMSeconds)
	p.RAMChunks = o.RAMChunks
	p.FailOnRAMShortage = !o.catchRAMErrors
	p.NetworkURL = o.NetworkURL
	p.NetworkDownloads = o.Downloads
	p.DownloadDir = ec.Paths().Output.Files
	p.Pause = seconds(o.PauseSeconds)
	c.opts = o
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (c *SystemLoad) Execute(ctx context.Context, ec *execctx.Context) (command.Result, error) {
	logger := ec.Logger()
	collector := sysload.NewCollector()

	before := collector.Collect(ctx)
	logger.Info("system metrics before load",
		"cpu_model", before.CPUModel,
		"mem_available_mb", before.MemAvailableMB,
		"load_avg_1", before.LoadAvg1)

	tester := sysload.NewTester(resty.NewWithClient(c.deps.HTTPClient), logger)
	results, runErr := tester.Run(ctx, c.opts.plan)

	after := collector.Collect(ctx)
	logger.Info("system metrics after load",
		"cpu_percent", after.CPUPercent,
		"mem_used_mb", after.MemUsedMB,
		"load_avg_1", after.LoadAvg1)

	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Info("test result", "key", k, "value", results[k])
		if err := ec.SetOutputParam("params.test_results."+k, results[k]); err != nil {
			return command.Result{}, err
		}
	}
	for name, snap := range map[string]sysload.Snapshot{"before": before, "after": after} {
		if err := ec.SetOutputParam("params.system_metrics."+name, snap.Params()); err != nil {
			return command.Result{}, err
		}
	}
	if runErr != nil {
		return command.Result{}, runErr
	}
	return command.Succeeded("%d load test results recorded", len(results)), nil
}
