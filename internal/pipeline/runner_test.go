package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/pipeline"
	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/testutil"
)

func newRunner(remote *testutil.MockRemote) *pipeline.Runner {
	return pipeline.NewRunner(remote).WithClock(testutil.NewFakeClock(epoch))
}

func TestRunner_CompletesWithinTimeout(t *testing.T) {
	t.Parallel()
	dest := filepath.Join(t.TempDir(), "files")
	remote := testutil.NewMockRemote().
		WithStatuses("in_progress", "in_progress", "success").
		WithArtifact(testutil.ZipBytes(t, map[string]string{"result.txt": "ok"}))

	out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
		Request:         core.TriggerRequest{Branch: "main"},
		TimeoutSeconds:  60,
		IntervalSeconds: 5,
		ImportArtifacts: true,
		ArtifactsDir:    dest,
	})

	require.NoError(t, err)
	assert.Equal(t, core.CategorySuccess, out.Execution.Category())
	assert.True(t, core.MatchesSuccess(out.Execution.Status, core.DefaultSuccessStatuses))
	assert.True(t, out.Success)
	assert.Equal(t, 3, remote.CallCount("Status"))
	assert.Equal(t, 1, remote.CallCount("ArtifactStream"))
	assert.True(t, out.ArtifactsImported)
	assert.FileExists(t, filepath.Join(dest, "result.txt"))
}

func TestRunner_TimesOutInProgress(t *testing.T) {
	t.Parallel()
	remote := testutil.NewMockRemote().WithStatuses("in_progress")
	rec := &recorder{}

	out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
		Request:         core.TriggerRequest{Branch: "main"},
		TimeoutSeconds:  20,
		IntervalSeconds: 5,
		ImportArtifacts: true,
		ArtifactsDir:    t.TempDir(),
	})

	require.NoError(t, err)
	assert.True(t, out.TimedOut)
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "not completed within 20s")
	assert.Equal(t, 0, remote.CallCount("ArtifactStream"))

	require.NoError(t, pipeline.RecordExecution(rec, out.Execution))
	assert.Equal(t, "IN_PROGRESS", rec.values[pipeline.KeyBuildStatus])
	assert.Equal(t, "in_progress", rec.values[pipeline.KeyBuildRemoteStatus])
}

func TestRunner_ZeroTimeoutIsAsync(t *testing.T) {
	t.Parallel()
	remote := testutil.NewMockRemote()
	rec := &recorder{}

	out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
		Request:         core.TriggerRequest{Branch: "main"},
		TimeoutSeconds:  0,
		IntervalSeconds: 5,
	})

	require.NoError(t, err)
	assert.True(t, out.Async)
	assert.True(t, out.Success)
	assert.Equal(t, "in_progress", out.Execution.Status)
	assert.Equal(t, 0, remote.CallCount("Status"))

	require.NoError(t, pipeline.RecordExecution(rec, out.Execution))
	assert.Equal(t, 1, rec.writes[pipeline.KeyBuildID])
}

func TestRunner_AdoptedRunResolvesOnFirstPoll(t *testing.T) {
	t.Parallel()
	remote := testutil.NewMockRemote().WithStatuses("success")

	out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
		AdoptRunID:      "1234",
		TimeoutSeconds:  60,
		IntervalSeconds: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, core.CategorySuccess, out.Execution.Category())
	assert.True(t, out.Success)
	assert.Equal(t, 0, remote.CallCount("Trigger"))
	assert.Equal(t, 1, remote.CallCount("Status"))
}

func TestRunner_ArtifactFailureDoesNotChangeResult(t *testing.T) {
	t.Parallel()
	remote := testutil.NewMockRemote().WithArtifact([]byte("corrupt"))

	out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
		Request:         core.TriggerRequest{Branch: "main"},
		TimeoutSeconds:  60,
		IntervalSeconds: 5,
		ImportArtifacts: true,
		ArtifactsDir:    t.TempDir(),
	})

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.False(t, out.ArtifactsImported)
	assert.Equal(t, 1, remote.CallCount("ArtifactStream"))
}

func TestRunner_SuccessAllowList(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		status      string
		allow       string
		policy      pipeline.ImportPolicy
		wantSuccess bool
		wantImport  bool
	}{
		{"default rejects unstable", "unstable", "", pipeline.ImportOnAccepted, false, false},
		{"allow-list accepts unstable", "unstable", "SUCCESS, UNSTABLE", pipeline.ImportOnAccepted, true, true},
		{"success-only policy skips unstable import", "unstable", "SUCCESS,UNSTABLE", pipeline.ImportOnSuccess, true, false},
		{"failed is failure", "failed", "SUCCESS", pipeline.ImportOnAccepted, false, false},
		{"success-only imports success", "success", "SUCCESS", pipeline.ImportOnSuccess, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			remote := testutil.NewMockRemote().
				WithStatuses(tt.status).
				WithArtifact(testutil.ZipBytes(t, map[string]string{"a.txt": "a"}))

			out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
				Request:         core.TriggerRequest{Branch: "main"},
				TimeoutSeconds:  60,
				IntervalSeconds: 5,
				SuccessStatuses: core.ParseSuccessStatuses(tt.allow),
				ImportArtifacts: true,
				ImportPolicy:    tt.policy,
				ArtifactsDir:    t.TempDir(),
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, out.Success)
			assert.Equal(t, tt.wantImport, remote.CallCount("ArtifactStream") == 1)
		})
	}
}

func TestRunner_TriggerFailureIsFatal(t *testing.T) {
	t.Parallel()
	remote := testutil.NewMockRemote().WithTriggerError(errors.New("unknown workflow"))

	out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
		Request:        core.TriggerRequest{Branch: "main"},
		TimeoutSeconds: 60,
	})

	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatTrigger))
	assert.Nil(t, out.Execution)
	assert.Equal(t, 0, remote.CallCount("Status"))
}

func TestRunner_PollFailureIsFatal(t *testing.T) {
	t.Parallel()
	remote := testutil.NewMockRemote().WithStatusFunc(func(int) (string, error) {
		return "", errors.New("timeout")
	})

	out, err := newRunner(remote).Run(context.Background(), pipeline.RunOptions{
		Request:         core.TriggerRequest{Branch: "main"},
		TimeoutSeconds:  60,
		IntervalSeconds: 5,
	})

	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatPoll))
	require.NotNil(t, out.Execution)
	assert.False(t, out.Success)
}

func TestParseImportPolicy(t *testing.T) {
	t.Parallel()
	p, err := pipeline.ParseImportPolicy("")
	require.NoError(t, err)
	assert.Equal(t, pipeline.ImportOnAccepted, p)

	p, err = pipeline.ParseImportPolicy(" Success ")
	require.NoError(t, err)
	assert.Equal(t, pipeline.ImportOnSuccess, p)

	_, err = pipeline.ParseImportPolicy("always")
	assert.Error(t, err)
}

func TestRecordExecution(t *testing.T) {
	t.Parallel()
	exec := core.NewExecution("77", "deploy", "https://ci/77", "in_progress", epoch)
	exec.Observe("failed", epoch.Add(90_000_000_000))
	rec := &recorder{}

	require.NoError(t, pipeline.RecordExecution(rec, exec))

	assert.Equal(t, "https://ci/77", rec.values[pipeline.KeyBuildURL])
	assert.Equal(t, "77", rec.values[pipeline.KeyBuildID])
	assert.Equal(t, "FAILED", rec.values[pipeline.KeyBuildStatus])
	assert.Equal(t, "2026-03-01T12:00:00Z", rec.values[pipeline.KeyBuildDate])
	assert.Equal(t, "1m30s", rec.values[pipeline.KeyBuildDuration])
	assert.Equal(t, "deploy", rec.values[pipeline.KeyBuildName])
}

func TestRecordExecution_PropagatesSinkError(t *testing.T) {
	t.Parallel()
	rec := &recorder{err: errors.New("read-only")}
	assert.Error(t, pipeline.RecordExecution(rec, newExec("success")))
}

type recorder struct {
	values map[string]any
	writes map[string]int
	err    error
}

func (r *recorder) SetOutputParam(key string, value any) error {
	if r.err != nil {
		return r.err
	}
	if r.values == nil {
		r.values = map[string]any{}
		r.writes = map[string]int{}
	}
	r.values[key] = value
	r.writes[key]++
	return nil
}
