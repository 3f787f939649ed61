package pipeline

import (
	"time"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

// OutputSink receives output parameters. *execctx.Context satisfies it.
type OutputSink interface {
	SetOutputParam(key string, value any) error
}

// Output keys written by RecordExecution.
const (
	KeyBuildURL          = "params.build.url"
	KeyBuildID           = "params.build.id"
	KeyBuildStatus       = "params.build.status"
	KeyBuildRemoteStatus = "params.build.remote_status"
	KeyBuildDate         = "params.build.date"
	KeyBuildDuration     = "params.build.duration"
	KeyBuildName         = "params.build.name"
)

// RecordExecution writes the handle's fields under params.build. The status
// is the canonical category; the raw remote string goes to remote_status.
func RecordExecution(sink OutputSink, exec *core.Execution) error {
	values := []struct {
		key   string
		value any
	}{
		{KeyBuildURL, exec.URL},
		{KeyBuildID, exec.ID},
		{KeyBuildStatus, string(exec.Category())},
		{KeyBuildRemoteStatus, exec.Status},
		{KeyBuildDate, exec.TimeStart.Format(time.RFC3339)},
		{KeyBuildDuration, exec.DurationString()},
		{KeyBuildName, exec.Name},
	}
	for _, v := range values {
		if err := sink.SetOutputParam(v.key, v.value); err != nil {
			return err
		}
	}
	return nil
}
