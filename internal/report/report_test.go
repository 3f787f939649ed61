package report_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/report"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/testutil"
)

func loadFixture(t *testing.T) *report.Data {
	t.Helper()
	d, err := report.LoadData(filepath.Join("testdata", report.DataFile))
	require.NoError(t, err)
	return d
}

func TestLoadData_FillsPlaceholders(t *testing.T) {
	d := loadFixture(t)

	assert.Equal(t, "v1", d.APIVersion)
	assert.Equal(t, "alice", d.Execution.User)
	require.Len(t, d.Stages, 2)
	assert.Equal(t, "job", d.Stages[0].Type)
	assert.Equal(t, "N/A", d.Stages[1].Type)
	assert.Equal(t, "N/A", d.Stages[1].Time)
	assert.Equal(t, "#", d.Stages[1].URL)
}

func TestLoadData_EmptyDocument(t *testing.T) {
	path := testutil.TempFile(t, t.TempDir(), report.DataFile, "{}")

	d, err := report.LoadData(path)

	require.NoError(t, err)
	assert.Equal(t, "N/A", d.APIVersion)
	assert.Equal(t, "Unknown User", d.Execution.User)
	assert.Equal(t, "unknown@example.com", d.Execution.Email)
	assert.Equal(t, "#", d.Execution.URL)
	assert.Empty(t, d.Stages)
}

func TestLoadData_Errors(t *testing.T) {
	_, err := report.LoadData(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := testutil.TempFile(t, t.TempDir(), "bad.json", "{not json")
	_, err = report.LoadData(bad)
	assert.ErrorContains(t, err, "decoding")
}

func TestRender_DefaultTemplate(t *testing.T) {
	r, err := report.NewRenderer("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, loadFixture(t)))
	html := buf.String()

	assert.Contains(t, html, "<title>Pipeline report</title>")
	assert.Contains(t, html, "alice &lt;alice@example.com&gt;")
	assert.Contains(t, html, `<td class="success">SUCCESS</td>`)
	assert.Contains(t, html, `<td class="failed">FAILED</td>`)
	assert.Contains(t, html, "<td>deploy &amp; verify</td>")
	assert.Contains(t, html, `<a href="https://ci.example.com/pipelines/42">`)
	assert.Contains(t, html, "Stages (2)")
	assert.Contains(t, html, "<td>2</td>")
}

func TestRender_EscapesHostileValues(t *testing.T) {
	r, err := report.NewRenderer("")
	require.NoError(t, err)
	d := loadFixture(t)
	d.Stages[0].Name = "<script>alert(1)</script>"
	d.Stages[0].URL = "javascript:alert(1)"

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, d))

	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.NotContains(t, buf.String(), `href="javascript:`)
}

func TestRender_CustomTemplateGolden(t *testing.T) {
	r, err := report.NewRendererFromFile(filepath.Join("testdata", "custom_report.tmpl"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, loadFixture(t)))

	testutil.NewGolden(t, "testdata").Assert("custom_report", buf.Bytes())
}

func TestRender_TemplateErrors(t *testing.T) {
	_, err := report.NewRenderer("{{ .Execution.User ")
	assert.ErrorContains(t, err, "parsing report template")

	r, err := report.NewRenderer("{{ .Nope }}")
	require.NoError(t, err)
	var buf bytes.Buffer
	assert.Error(t, r.Render(&buf, loadFixture(t)))
	assert.Zero(t, buf.Len())

	_, err = report.NewRendererFromFile(filepath.Join(t.TempDir(), "none.tmpl"))
	assert.Error(t, err)
}
