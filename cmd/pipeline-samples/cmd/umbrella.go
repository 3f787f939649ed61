package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/samples"
)

// DefaultResultsFolder is where umbrella-test creates its context when no
// descriptor is given.
const DefaultResultsFolder = "./RESULTS_FOLDER"

var umbrellaCmd = &cobra.Command{
	Use:   samples.KindUmbrella,
	Short: "Run child commands and collect their output files",
	Long: `Run the commands listed in params.children one after another, each in its own
child context, and copy their output files into <output files>/<child name>.

Without --context-path a fresh context is created in --results-folder whose
only child triggers a GitLab pipeline with the token from GITLAB_QUBER_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: runUmbrella,
}

var (
	umbrellaContextPath   string
	umbrellaResultsFolder string
)

func init() {
	rootCmd.AddCommand(umbrellaCmd)
	umbrellaCmd.Flags().StringVar(&umbrellaContextPath, "context-path", "",
		"Path to an existing execution context descriptor")
	umbrellaCmd.Flags().StringVar(&umbrellaResultsFolder, "results-folder", DefaultResultsFolder,
		"Folder of the context created when --context-path is not given")
}

func runUmbrella(c *cobra.Command, _ []string) error {
	if umbrellaContextPath != "" {
		return runKind(c, samples.KindUmbrella, loadContext(umbrellaContextPath))
	}

	return runKind(c, samples.KindUmbrella, func(cfg *config.Config, logger *logging.Logger) (*execctx.Context, error) {
		return execctx.Create(umbrellaResultsFolder, execctx.Input{
			Systems: map[string]any{
				"gitlab": map[string]any{"url": cfg.GitLab.URL},
			},
		}, execctx.CreateOptions{Logger: logger})
	})
}
