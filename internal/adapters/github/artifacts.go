package github

import (
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v74/github"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

// ArtifactStream opens the first artifact of the run. The archive itself is
// fetched from the signed redirect location without API credentials.
func (c *Client) ArtifactStream(ctx context.Context, exec *core.Execution) (*core.ArtifactStream, error) {
	id, err := parseRunID(exec.ID)
	if err != nil {
		return nil, err
	}

	list, resp, err := c.api.Actions.ListWorkflowRunArtifacts(ctx, c.owner, c.repo, id, &gh.ListOptions{PerPage: 1})
	if err != nil {
		return nil, apiError("listing artifacts of run "+exec.ID, resp, err)
	}
	if len(list.Artifacts) == 0 {
		return nil, core.ErrArtifactImport(core.CodeNoArtifacts, "run "+exec.ID+" has no artifacts")
	}
	artifact := list.Artifacts[0]

	location, resp, err := c.api.Actions.DownloadArtifact(ctx, c.owner, c.repo, artifact.GetID(), 1)
	if err != nil {
		return nil, apiError("resolving artifact download", resp, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("building artifact request: %w", err)
	}
	dl, err := c.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading artifact %s: %w", artifact.GetName(), err)
	}
	if dl.StatusCode != http.StatusOK {
		dl.Body.Close()
		return nil, fmt.Errorf("downloading artifact %s: unexpected status %s", artifact.GetName(), dl.Status)
	}
	return &core.ArtifactStream{Name: artifact.GetName(), Body: dl.Body}, nil
}
