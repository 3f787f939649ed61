package gitlab

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

// ArtifactStream opens the artifacts archive of the pipeline's first job.
func (c *Client) ArtifactStream(ctx context.Context, exec *core.Execution) (*core.ArtifactStream, error) {
	var jobs []job
	resp, err := c.rest.R().SetContext(ctx).SetPathParam("pipeline", exec.ID).
		SetResult(&jobs).SetError(&apiMessage{}).
		Get("/projects/{project}/pipelines/{pipeline}/jobs")
	if err := checkResponse("listing jobs of pipeline "+exec.ID, resp, err); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, core.ErrArtifactImport(core.CodeNoArtifacts, "pipeline "+exec.ID+" has no jobs")
	}
	jobID := strconv.FormatInt(jobs[0].ID, 10)

	resp, err = c.rest.R().SetContext(ctx).SetPathParam("job", jobID).
		SetDoNotParseResponse(true).
		Get("/projects/{project}/jobs/{job}/artifacts")
	if err != nil {
		return nil, fmt.Errorf("downloading artifacts of job %s: %w", jobID, err)
	}
	if resp.IsError() {
		resp.RawBody().Close()
		if resp.StatusCode() == 404 {
			return nil, core.ErrArtifactImport(core.CodeNoArtifacts, "job "+jobID+" has no artifacts")
		}
		return nil, fmt.Errorf("downloading artifacts of job %s: %s", jobID, resp.Status())
	}
	return &core.ArtifactStream{Name: jobID, Body: resp.RawBody()}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
