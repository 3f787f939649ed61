package samples_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/report"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/samples"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/testutil"
)

const reportData = `{
  "apiVersion": "v1",
  "execution": {"user": "Ada Lovelace", "status": "SUCCESS", "url": "https://ci.example.com/runs/7"},
  "stages": [
    {"name": "build", "type": "job", "status": "SUCCESS", "time": "12s"},
    {"name": "deploy", "type": "job", "status": "FAILED"}
  ]
}`

func TestHTMLReport_DefaultTemplate(t *testing.T) {
	d := newTestDeps()
	ec := newContext(t, nil, nil)
	testutil.TempFile(t, ec.Paths().Input.Files, report.DataFile, reportData)

	res := d.run(t, samples.KindHTMLReport, ec)

	require.True(t, res.Success, res.Message)
	out := filepath.Join(ec.Paths().Output.Files, report.OutputFile)
	assert.Equal(t, out, output(t, ec, "params.report.path"))
	html := testutil.ReadFile(t, out)
	assert.Contains(t, html, "Ada Lovelace")
	assert.Contains(t, html, "deploy")
}

func TestHTMLReport_CustomTemplate(t *testing.T) {
	d := newTestDeps()
	ec := newContext(t, map[string]any{"report_template": "templates/short.tmpl"}, nil)
	files := ec.Paths().Input.Files
	testutil.TempFile(t, files, report.DataFile, reportData)
	require.NoError(t, os.MkdirAll(filepath.Join(files, "templates"), 0o750))
	testutil.TempFile(t, filepath.Join(files, "templates"), "short.tmpl",
		`{{ .Execution.User | upper }}:{{ len .Stages }}`)

	res := d.run(t, samples.KindHTMLReport, ec)

	require.True(t, res.Success, res.Message)
	html := testutil.ReadFile(t, filepath.Join(ec.Paths().Output.Files, report.OutputFile))
	assert.Equal(t, "ADA LOVELACE:2", html)
}

func TestHTMLReport_Failures(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		data     string
		template string
		want     string
	}{
		{name: "missing data", want: "reading report data"},
		{name: "malformed data", data: "{", want: "decoding"},
		{
			name:   "missing template",
			params: map[string]any{"report_template": "absent.tmpl"},
			data:   reportData,
			want:   "reading report template",
		},
		{
			name:     "broken template",
			params:   map[string]any{"report_template": "broken.tmpl"},
			data:     reportData,
			template: "{{ .Execution.User ",
			want:     "parsing report template",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			ec := newContext(t, tt.params, nil)
			files := ec.Paths().Input.Files
			if tt.data != "" {
				testutil.TempFile(t, files, report.DataFile, tt.data)
			}
			if tt.template != "" {
				testutil.TempFile(t, files, "broken.tmpl", tt.template)
			}

			res := d.run(t, samples.KindHTMLReport, ec)

			assert.False(t, res.Success)
			assert.Contains(t, res.Message, tt.want)
			assert.NoFileExists(t, filepath.Join(ec.Paths().Output.Files, report.OutputFile))
		})
	}
}
