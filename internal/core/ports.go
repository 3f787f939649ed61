package core

import (
	"context"
	"io"
)

// =============================================================================
// Pipeline Remote Port
// =============================================================================

// PipelineRemote is the contract a CI/CD system adapter fulfils. An adapter is
// bound to one project (GitLab) or repository (GitHub) at construction.
type PipelineRemote interface {
	// System returns the adapter identifier (e.g., "github", "gitlab").
	System() string

	// DefaultBranch returns the default branch of the bound project.
	DefaultBranch(ctx context.Context) (string, error)

	// Trigger starts a new run and returns its handle.
	Trigger(ctx context.Context, req TriggerRequest) (*Execution, error)

	// Status reads the current remote status string of a run.
	Status(ctx context.Context, exec *Execution) (string, error)

	// ArtifactStream opens the packaged artifact of the first job of a run.
	// The caller closes the returned reader.
	ArtifactStream(ctx context.Context, exec *Execution) (*ArtifactStream, error)
}

// TriggerRequest describes a run to start.
type TriggerRequest struct {
	// Pipeline is the workflow file name (GitHub) or empty for the project
	// pipeline (GitLab).
	Pipeline string
	// Branch is the ref to run on. Resolved to the default branch when empty.
	Branch string
	// Params are passed as workflow inputs or pipeline variables.
	Params map[string]string
}

// ArtifactStream is an opened artifact download.
type ArtifactStream struct {
	// Name identifies the artifact (job id or artifact name).
	Name string
	Body io.ReadCloser
}

// =============================================================================
// Object Store Port
// =============================================================================

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Name         string `yaml:"name" json:"name"`
	Size         int64  `yaml:"size" json:"size"`
	ETag         string `yaml:"etag,omitempty" json:"etag,omitempty"`
	ContentType  string `yaml:"content_type,omitempty" json:"content_type,omitempty"`
	LastModified string `yaml:"last_modified,omitempty" json:"last_modified,omitempty"`
}

// ObjectLister lists objects in a bucket.
type ObjectLister interface {
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}
