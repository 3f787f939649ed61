// Package gitlab runs GitLab CI pipelines through the v4 REST API.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

const (
	// SystemName identifies this remote.
	SystemName = "gitlab"

	defaultTimeout = 60 * time.Second
	apiPrefix      = "/api/v4"
)

// Config binds a client to one project.
type Config struct {
	// URL is the GitLab host, e.g. https://gitlab.com.
	URL   string
	Token string
	// Project is the numeric id or the full path ("group/project").
	Project    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements core.PipelineRemote for GitLab CI.
type Client struct {
	rest    *resty.Client
	host    string
	project string
	now     func() time.Time
}

type project struct {
	ID            int64  `json:"id"`
	DefaultBranch string `json:"default_branch"`
	WebURL        string `json:"web_url"`
}

type variable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type createPipelineRequest struct {
	Ref       string     `json:"ref"`
	Variables []variable `json:"variables,omitempty"`
}

type pipeline struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Ref       string    `json:"ref"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
}

type job struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type apiMessage struct {
	Message any    `json:"message"`
	Error   string `json:"error"`
}

// NewClient creates a GitLab client.
func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if host == "" {
		return nil, core.ErrValidation(core.CodeMissingParams, "gitlab url is required")
	}
	if cfg.Project == "" {
		return nil, core.ErrValidation(core.CodeMissingParams, "gitlab project is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, core.ErrValidation(core.CodeMissingParams, "gitlab token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		rc = resty.NewWithClient(cfg.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(host+apiPrefix).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("PRIVATE-TOKEN", strings.TrimSpace(cfg.Token)).
		SetPathParam("project", cfg.Project)

	return &Client{
		rest:    rc,
		host:    host,
		project: cfg.Project,
		now:     time.Now,
	}, nil
}

// System returns "gitlab".
func (c *Client) System() string {
	return SystemName
}

// DefaultBranch returns the project's default branch.
func (c *Client) DefaultBranch(ctx context.Context) (string, error) {
	var p project
	resp, err := c.rest.R().SetContext(ctx).SetResult(&p).SetError(&apiMessage{}).
		Get("/projects/{project}")
	if err := checkResponse("getting project "+c.project, resp, err); err != nil {
		return "", err
	}
	if p.DefaultBranch == "" {
		return "", fmt.Errorf("project %s has no default branch", c.project)
	}
	return p.DefaultBranch, nil
}

// Trigger creates a pipeline on req.Branch with req.Params as variables.
func (c *Client) Trigger(ctx context.Context, req core.TriggerRequest) (*core.Execution, error) {
	body := createPipelineRequest{Ref: req.Branch}
	for _, k := range sortedKeys(req.Params) {
		body.Variables = append(body.Variables, variable{Key: k, Value: req.Params[k]})
	}

	var p pipeline
	resp, err := c.rest.R().SetContext(ctx).SetBody(body).SetResult(&p).SetError(&apiMessage{}).
		Post("/projects/{project}/pipeline")
	if err := checkResponse("creating pipeline in "+c.project, resp, err); err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, core.ErrTrigger(core.CodeTriggerRejected, "gitlab returned a pipeline without id")
	}

	id := strconv.FormatInt(p.ID, 10)
	url := p.WebURL
	if url == "" {
		url = c.RunURL(id)
	}
	start := p.CreatedAt
	if start.IsZero() {
		start = c.now()
	}
	return core.NewExecution(id, c.project, url, p.Status, start), nil
}

// Status returns the pipeline's raw status.
func (c *Client) Status(ctx context.Context, exec *core.Execution) (string, error) {
	var p pipeline
	resp, err := c.rest.R().SetContext(ctx).SetPathParam("pipeline", exec.ID).
		SetResult(&p).SetError(&apiMessage{}).
		Get("/projects/{project}/pipelines/{pipeline}")
	if err := checkResponse("getting pipeline "+exec.ID, resp, err); err != nil {
		return "", err
	}
	return p.Status, nil
}

// RunURL returns the web URL of a pipeline.
func (c *Client) RunURL(id string) string {
	return fmt.Sprintf("%s/%s/-/pipelines/%s", c.host, c.project, id)
}

// checkResponse folds transport errors and HTTP error statuses into one error.
func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return core.ErrExecution("GITLAB_REQUEST_FAILED", op).WithCause(err)
	}
	if !resp.IsError() {
		return nil
	}

	detail := resp.Status()
	if msg, ok := resp.Error().(*apiMessage); ok && msg != nil {
		switch {
		case msg.Message != nil:
			detail = fmt.Sprintf("%s: %v", detail, msg.Message)
		case msg.Error != "":
			detail = detail + ": " + msg.Error
		}
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.ErrAuth(op + ": " + detail)
	case http.StatusNotFound:
		return core.ErrNotFound("gitlab resource", op)
	}
	return fmt.Errorf("%s: %s", op, detail)
}
