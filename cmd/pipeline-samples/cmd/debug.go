package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/samples"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Diagnostic commands",
}

var systemLoadContextPath string

var systemLoadCmd = &cobra.Command{
	Use:   "system-load",
	Short: "Generate CPU, memory and network load and record host metrics",
	Long: `Run the load tests selected by params.cpu.run_test, params.ram.run_test and
params.network.run_test. Measurements are written to params.test_results and
host metrics before and after the tests to params.system_metrics.`,
	Args: cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		return runKind(c, samples.KindSystemLoad, loadContext(systemLoadContextPath))
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(systemLoadCmd)
	addContextPathFlag(systemLoadCmd, &systemLoadContextPath)
}
