package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/core"
)

// MockRemote implements core.PipelineRemote for testing. Statuses are served
// in order; the last one repeats once the script is exhausted.
type MockRemote struct {
	system        string
	defaultBranch string
	branchErr     error
	triggerStatus string
	triggerErr    error
	statuses      []string
	statusFunc    func(call int) (string, error)
	artifact      []byte
	artifactErr   error
	calls         []MockCall
	mu            sync.Mutex
}

// MockCall records a call to the mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

// NewMockRemote creates a remote whose triggers start IN_PROGRESS and whose
// runs report "success" on the first poll.
func NewMockRemote() *MockRemote {
	return &MockRemote{
		system:        "mock",
		defaultBranch: "main",
		triggerStatus: "in_progress",
		statuses:      []string{"success"},
		calls:         make([]MockCall, 0),
	}
}

// System returns the mock system name.
func (m *MockRemote) System() string {
	return m.system
}

// DefaultBranch mocks the default branch lookup.
func (m *MockRemote) DefaultBranch(ctx context.Context) (string, error) {
	m.recordCall("DefaultBranch", nil)
	if m.branchErr != nil {
		return "", m.branchErr
	}
	return m.defaultBranch, nil
}

// Trigger mocks starting a run. Run ids are "run-<n>" with n the trigger count.
func (m *MockRemote) Trigger(ctx context.Context, req core.TriggerRequest) (*core.Execution, error) {
	n := m.recordCall("Trigger", req)
	if m.triggerErr != nil {
		return nil, m.triggerErr
	}
	id := fmt.Sprintf("run-%d", n)
	return &core.Execution{
		ID:     id,
		Name:   req.Pipeline,
		URL:    "https://ci.example.com/runs/" + id,
		Status: m.triggerStatus,
	}, nil
}

// Status serves the next scripted status.
func (m *MockRemote) Status(ctx context.Context, exec *core.Execution) (string, error) {
	n := m.recordCall("Status", exec.ID)
	if m.statusFunc != nil {
		return m.statusFunc(n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return "", nil
	}
	idx := min(n-1, len(m.statuses)-1)
	return m.statuses[idx], nil
}

// ArtifactStream serves the configured archive bytes.
func (m *MockRemote) ArtifactStream(ctx context.Context, exec *core.Execution) (*core.ArtifactStream, error) {
	m.recordCall("ArtifactStream", exec.ID)
	if m.artifactErr != nil {
		return nil, m.artifactErr
	}
	return &core.ArtifactStream{
		Name: exec.ID + "-artifacts",
		Body: io.NopCloser(bytes.NewReader(m.artifact)),
	}, nil
}

// RunURL derives a run URL from its id.
func (m *MockRemote) RunURL(id string) string {
	return "https://ci.example.com/runs/" + id
}

// WithStatuses scripts the statuses returned by successive polls.
func (m *MockRemote) WithStatuses(statuses ...string) *MockRemote {
	m.statuses = statuses
	return m
}

// WithStatusFunc sets a custom status function; call is 1-based.
func (m *MockRemote) WithStatusFunc(fn func(call int) (string, error)) *MockRemote {
	m.statusFunc = fn
	return m
}

// WithTriggerStatus sets the status a freshly triggered run reports.
func (m *MockRemote) WithTriggerStatus(status string) *MockRemote {
	m.triggerStatus = status
	return m
}

// WithTriggerError configures Trigger to fail.
func (m *MockRemote) WithTriggerError(err error) *MockRemote {
	m.triggerErr = err
	return m
}

// WithDefaultBranch sets the default branch, or an error for the lookup.
func (m *MockRemote) WithDefaultBranch(branch string, err error) *MockRemote {
	m.defaultBranch = branch
	m.branchErr = err
	return m
}

// WithArtifact sets the archive bytes served by ArtifactStream.
func (m *MockRemote) WithArtifact(data []byte) *MockRemote {
	m.artifact = data
	return m
}

// WithArtifactError configures ArtifactStream to fail.
func (m *MockRemote) WithArtifactError(err error) *MockRemote {
	m.artifactErr = err
	return m
}

// Calls returns recorded calls.
func (m *MockRemote) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// CallCount returns number of calls to a method.
func (m *MockRemote) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastTrigger returns the most recent trigger request.
func (m *MockRemote) LastTrigger() (core.TriggerRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Method == "Trigger" {
			return m.calls[i].Args.(core.TriggerRequest), true
		}
	}
	return core.TriggerRequest{}, false
}

// Reset clears call history.
func (m *MockRemote) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make([]MockCall, 0)
}

// recordCall appends a call and returns how many calls of that method exist.
func (m *MockRemote) recordCall(method string, args interface{}) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// MockObjectLister implements core.ObjectLister for testing.
type MockObjectLister struct {
	Objects map[string][]core.ObjectInfo
	Err     error
}

// List returns the objects configured for bucket whose names start with prefix.
func (l *MockObjectLister) List(ctx context.Context, bucket, prefix string) ([]core.ObjectInfo, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	var out []core.ObjectInfo
	for _, o := range l.Objects[bucket] {
		if len(o.Name) >= len(prefix) && o.Name[:len(prefix)] == prefix {
			out = append(out, o)
		}
	}
	return out, nil
}

// FakeClock is a manually advanced clock. Sleep advances it instantly.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewFakeClock creates a clock frozen at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d unless ctx is already done.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return nil
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns every duration passed to Sleep.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration{}, c.sleeps...)
}

// Ensure interfaces are implemented
var _ core.PipelineRemote = (*MockRemote)(nil)
var _ core.ObjectLister = (*MockObjectLister)(nil)
