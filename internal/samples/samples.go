// Package samples holds the concrete commands of the CLI. Every command reads
// its inputs from an execution context, validates them into an options struct
// and records its results as output params.
package samples

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/adapters/github"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/adapters/gitlab"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/adapters/objectstore"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/command"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/config"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/pipeline"
)

// Command kinds, as used on the command line and in umbrella children.
const (
	KindRunSample       = "run-sample"
	KindCalc            = "calc"
	KindListMinioFiles  = "list-minio-files"
	KindDownloadFile    = "download-file"
	KindAnalyzeFile     = "analyze-file"
	KindGenerateContext = "generate-context-from-env"
	KindGitHubPipeline  = "github-run-pipeline"
	KindGitLabPipeline  = "gitlab-run-pipeline"
	KindUmbrella        = "umbrella-test"
	KindHTMLReport      = "generate-html-report"
	KindSystemLoad      = "system-load"
)

// Deps are the collaborators commands are built with. Zero fields get
// production defaults.
type Deps struct {
	Config     *config.Config
	HTTPClient *http.Client
	Clock      pipeline.Clock
	Getenv     func(string) string

	GitHubRemote func(github.Config) (core.PipelineRemote, error)
	GitLabRemote func(gitlab.Config) (core.PipelineRemote, error)
	ObjectLister func(objectstore.Config) (core.ObjectLister, error)
}

func (d Deps) withDefaults() Deps {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: d.Config.HTTP.Timeout}
	}
	if d.Clock == nil {
		d.Clock = pipeline.RealClock{}
	}
	if d.Getenv == nil {
		d.Getenv = os.Getenv
	}
	if d.GitHubRemote == nil {
		d.GitHubRemote = func(cfg github.Config) (core.PipelineRemote, error) {
			return github.NewClient(cfg)
		}
	}
	if d.GitLabRemote == nil {
		d.GitLabRemote = func(cfg gitlab.Config) (core.PipelineRemote, error) {
			return gitlab.NewClient(cfg)
		}
	}
	if d.ObjectLister == nil {
		d.ObjectLister = func(cfg objectstore.Config) (core.ObjectLister, error) {
			return objectstore.NewLister(cfg)
		}
	}
	return d
}

// NewRegistry registers every sample command. The umbrella command builds
// its children from the same registry.
func NewRegistry(deps Deps) *command.Registry {
	deps = deps.withDefaults()
	reg := command.NewRegistry()
	reg.MustRegister(KindRunSample, func() command.Command { return &RunSample{} })
	reg.MustRegister(KindCalc, func() command.Command { return &Calc{} })
	reg.MustRegister(KindListMinioFiles, func() command.Command { return &ListMinioFiles{deps: deps} })
	reg.MustRegister(KindDownloadFile, func() command.Command { return &DownloadFile{deps: deps} })
	reg.MustRegister(KindAnalyzeFile, func() command.Command { return &AnalyzeFile{} })
	reg.MustRegister(KindGenerateContext, func() command.Command { return &GenerateContext{deps: deps} })
	reg.MustRegister(KindGitHubPipeline, func() command.Command { return &GitHubRunPipeline{deps: deps} })
	reg.MustRegister(KindGitLabPipeline, func() command.Command { return &GitLabRunPipeline{deps: deps} })
	reg.MustRegister(KindUmbrella, func() command.Command { return &Umbrella{deps: deps, registry: reg} })
	reg.MustRegister(KindHTMLReport, func() command.Command { return &HTMLReport{} })
	reg.MustRegister(KindSystemLoad, func() command.Command { return &SystemLoad{deps: deps} })
	return reg
}

// =============================================================================
// Option validation
// =============================================================================

var validate = newValidator()

// newValidator reports fields by their "param" tag so messages name the
// context key the value came from.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("param")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// checkOptions validates a parsed options struct.
func checkOptions(opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating options: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return core.ErrValidation(core.CodeInvalidParam, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "url", "http_url":
		return fe.Field() + " must be a URL"
	case "unique":
		return fmt.Sprintf("%s entries must have a unique %s", fe.Field(), strings.ToLower(fe.Param()))
	case "excludesall":
		return fmt.Sprintf("%s must not contain any of %q", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}
