package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/logging"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/samples"
)

var generateContextCmd = &cobra.Command{
	Use:   samples.KindGenerateContext,
	Short: "Create an execution context from the input_params environment variable",
	Long: `Create a new execution context in --context-folder. Its input params are read
as YAML ({params: ..., systems: ...}) from the input_params environment variable.`,
	Args: cobra.NoArgs,
	RunE: runGenerateContext,
}

var generateContextFolder string

func init() {
	rootCmd.AddCommand(generateContextCmd)
	generateContextCmd.Flags().StringVar(&generateContextFolder, "context-folder", "",
		"Path of the context folder to create")
	_ = generateContextCmd.MarkFlagRequired("context-folder")
}

// runGenerateContext runs the command against a throwaway bootstrap context
// that only carries params.context_folder.
func runGenerateContext(c *cobra.Command, _ []string) error {
	bootstrap, err := os.MkdirTemp("", "pipeline-samples-bootstrap-*")
	if err != nil {
		return fmt.Errorf("creating bootstrap context: %w", err)
	}
	defer os.RemoveAll(bootstrap)

	return runKind(c, samples.KindGenerateContext, func(_ *config.Config, logger *logging.Logger) (*execctx.Context, error) {
		return execctx.Create(bootstrap, execctx.Input{
			Params: map[string]any{"context_folder": generateContextFolder},
		}, execctx.CreateOptions{Logger: logger})
	})
}
