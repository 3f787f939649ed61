// Package report renders pipeline execution reports to HTML.
package report

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/fsutil"
)

// DataFile is the report input expected in a context's input files.
const DataFile = "pipeline_report.json"

// OutputFile is the rendered report written to a context's output files.
const OutputFile = "report.html"

//go:embed default_report.html.tmpl
var defaultTemplate string

const notAvailable = "N/A"

// Data is the content of pipeline_report.json.
type Data struct {
	APIVersion string    `json:"apiVersion"`
	Kind       string    `json:"kind,omitempty"`
	Execution  Execution `json:"execution"`
	Stages     []Stage   `json:"stages"`
}

// Execution summarizes the whole pipeline run.
type Execution struct {
	User      string `json:"user"`
	Email     string `json:"email"`
	StartedAt string `json:"startedAt"`
	Time      string `json:"time"`
	Status    string `json:"status"`
	URL       string `json:"url"`
}

// Stage is one row of the report.
type Stage struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Time   string `json:"time"`
	URL    string `json:"url"`
}

// LoadData reads and decodes a report data file. Absent fields get
// placeholders so templates never render empty cells.
func LoadData(path string) (*Data, error) {
	raw, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, fmt.Errorf("reading report data: %w", err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	d.fillDefaults()
	return &d, nil
}

func (d *Data) fillDefaults() {
	d.APIVersion = or(d.APIVersion, notAvailable)
	e := &d.Execution
	e.User = or(e.User, "Unknown User")
	e.Email = or(e.Email, "unknown@example.com")
	e.StartedAt = or(e.StartedAt, notAvailable)
	e.Time = or(e.Time, notAvailable)
	e.Status = or(e.Status, notAvailable)
	e.URL = or(e.URL, "#")
	for i := range d.Stages {
		s := &d.Stages[i]
		s.Name = or(s.Name, notAvailable)
		s.Type = or(s.Type, notAvailable)
		s.Status = or(s.Status, notAvailable)
		s.Time = or(s.Time, notAvailable)
		s.URL = or(s.URL, "#")
	}
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Renderer executes one parsed report template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses text as an html/template with the sprig function set.
// An empty text selects the built-in template.
func NewRenderer(text string) (*Renderer, error) {
	if text == "" {
		text = defaultTemplate
	}
	tmpl, err := template.New("report").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// NewRendererFromFile loads a template from disk.
func NewRendererFromFile(path string) (*Renderer, error) {
	raw, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, fmt.Errorf("reading report template: %w", err)
	}
	return NewRenderer(string(raw))
}

// Render writes the report for d to w. Output is buffered so a template
// error never leaves a partial report behind.
func (r *Renderer) Render(w io.Writer, d *Data) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, d); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
