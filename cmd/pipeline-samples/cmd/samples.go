package cmd

import (
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/samples"
)

// contextCommands run one sample command against --context-path.
var contextCommands = []struct {
	kind  string
	short string
}{
	{samples.KindRunSample, "Add params.param_1 and params.param_2 into params.result"},
	{samples.KindCalc, "Apply params.operation to params.param_1 and params.param_2"},
	{samples.KindListMinioFiles, "List the objects of params.bucket_name into params.minio_objects"},
	{samples.KindDownloadFile, "Download params.url into the output files"},
	{samples.KindAnalyzeFile, "Record name and size of params.filename from the input files"},
	{samples.KindGitHubPipeline, "Dispatch a GitHub Actions workflow, wait for it and import its artifact"},
	{samples.KindGitLabPipeline, "Trigger a GitLab CI pipeline, wait for it and import its artifacts"},
	{samples.KindHTMLReport, "Render pipeline_report.json from the input files into report.html"},
}

func init() {
	for _, spec := range contextCommands {
		rootCmd.AddCommand(newContextCommand(spec.kind, spec.short))
	}
}

func newContextCommand(kind, short string) *cobra.Command {
	var contextPath string
	c := &cobra.Command{
		Use:   kind,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runKind(c, kind, loadContext(contextPath))
		},
	}
	addContextPathFlag(c, &contextPath)
	return c
}
