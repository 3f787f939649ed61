// Package github runs GitHub Actions workflows through the REST API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

const (
	// SystemName identifies this remote.
	SystemName = "github"

	// DefaultWebURL is the web host used to build run URLs when no API URL is configured.
	DefaultWebURL = "https://github.com"

	defaultQueueTimeout      = 60 * time.Second
	defaultDiscoveryInterval = 2 * time.Second
	defaultHTTPTimeout       = 60 * time.Second

	// dispatchSkew widens the created-at window for runs discovered after a
	// dispatch, to tolerate clock drift between us and GitHub.
	dispatchSkew = 5 * time.Second
)

// Config binds a client to one repository.
type Config struct {
	Token string
	Owner string
	Repo  string
	// APIURL is the API root of a GitHub Enterprise server. Empty means github.com.
	APIURL string
	// QueueTimeout bounds how long Trigger waits for the dispatched run to appear.
	QueueTimeout time.Duration
	// DiscoveryInterval is the delay between run listing attempts.
	DiscoveryInterval time.Duration
	// HTTPClient is the base client for API and artifact requests.
	HTTPClient *http.Client
}

// Client implements core.PipelineRemote for GitHub Actions.
type Client struct {
	api      *gh.Client
	download *http.Client
	owner    string
	repo     string
	webURL   string

	queueTimeout      time.Duration
	discoveryInterval time.Duration
	now               func() time.Time
}

// NewClient creates a GitHub Actions client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, core.ErrValidation(core.CodeInvalidParam, "github owner and repository are required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, core.ErrValidation(core.CodeMissingParams, "github token is required")
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: defaultHTTPTimeout}
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(cfg.Token)})
	api := gh.NewClient(oauth2.NewClient(ctx, ts))

	webURL := DefaultWebURL
	if cfg.APIURL != "" {
		var err error
		api, err = api.WithEnterpriseURLs(cfg.APIURL, cfg.APIURL)
		if err != nil {
			return nil, core.ErrValidation(core.CodeInvalidParam, "invalid github api url").WithCause(err)
		}
		webURL = webURLFromAPI(cfg.APIURL)
	}

	c := &Client{
		api:               api,
		download:          base,
		owner:             cfg.Owner,
		repo:              cfg.Repo,
		webURL:            webURL,
		queueTimeout:      cfg.QueueTimeout,
		discoveryInterval: cfg.DiscoveryInterval,
		now:               time.Now,
	}
	if c.queueTimeout <= 0 {
		c.queueTimeout = defaultQueueTimeout
	}
	if c.discoveryInterval <= 0 {
		c.discoveryInterval = defaultDiscoveryInterval
	}
	return c, nil
}

// System returns "github".
func (c *Client) System() string {
	return SystemName
}

// DefaultBranch returns the repository's default branch.
func (c *Client) DefaultBranch(ctx context.Context) (string, error) {
	repo, resp, err := c.api.Repositories.Get(ctx, c.owner, c.repo)
	if err != nil {
		return "", apiError("getting repository "+c.owner+"/"+c.repo, resp, err)
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch", c.owner, c.repo)
	}
	return branch, nil
}

// RunURL returns the web URL of a workflow run.
func (c *Client) RunURL(id string) string {
	return fmt.Sprintf("%s/%s/%s/actions/runs/%s", c.webURL, c.owner, c.repo, id)
}

// webURLFromAPI derives the web host from an API root: api.github.com and
// <host>/api/v3 both map to their browsable host.
func webURLFromAPI(apiURL string) string {
	u := strings.TrimRight(apiURL, "/")
	u = strings.TrimSuffix(u, "/api/v3")
	return strings.Replace(u, "://api.", "://", 1)
}

// apiError maps an API failure onto the domain taxonomy.
func apiError(op string, resp *gh.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp != nil && resp.Response != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return core.ErrAuth(op + ": " + http.StatusText(resp.StatusCode)).WithCause(err)
		case http.StatusNotFound:
			return core.ErrNotFound("github resource", op).WithCause(err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
