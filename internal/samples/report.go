package samples

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/report"
)

// HTMLReport renders <input files>/pipeline_report.json into
// <output files>/report.html. params.report_template names a custom template;
// a relative path resolves against the input files area.
type HTMLReport struct {
	dataPath     string
	templatePath string
	outputPath   string
}

func (c *HTMLReport) Name() string { return KindHTMLReport }

func (c *HTMLReport) Validate(ec *execctx.Context) error {
	if err := ec.Validate("paths.input.files", "paths.output.files"); err != nil {
		return err
	}
	paths := ec.Paths()
	c.dataPath = filepath.Join(paths.Input.Files, report.DataFile)
	c.outputPath = filepath.Join(paths.Output.Files, report.OutputFile)
	if tmpl := ec.InputString("params.report_template", ""); tmpl != "" {
		if !filepath.IsAbs(tmpl) {
			tmpl = filepath.Join(paths.Input.Files, tmpl)
		}
		c.templatePath = tmpl
	}
	return nil
}

func (c *HTMLReport) Execute(_ context.Context, ec *execctx.Context) (command.Result, error) {
	data, err := report.LoadData(c.dataPath)
	if err != nil {
		return command.Result{}, err
	}

	var r *report.Renderer
	if c.templatePath != "" {
		ec.Logger().Info("using custom report template", "template", c.templatePath)
		r, err = report.NewRendererFromFile(c.templatePath)
	} else {
		r, err = report.NewRenderer("")
	}
	if err != nil {
		ec.Logger().Error("loading report template", "template", c.templatePath, "error", err)
		return command.Result{}, err
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, data); err != nil {
		return command.Result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(c.outputPath), 0o750); err != nil {
		return command.Result{}, err
	}
	if err := config.AtomicWrite(c.outputPath, buf.Bytes()); err != nil {
		return command.Result{}, err
	}

	ec.Logger().Info("HTML report generated", "path", c.outputPath, "stages", len(data.Stages))
	if err := ec.SetOutputParam("params.report.path", c.outputPath); err != nil {
		return command.Result{}, err
	}
	return command.Succeeded("report written to %s", c.outputPath), nil
}
