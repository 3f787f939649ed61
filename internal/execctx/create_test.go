package execctx_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/pipeline-samples/internal/execctx"
)

func TestChild_InheritsParentInputsUnderExplicitParams(t *testing.T) {
	t.Parallel()
	parent := newContext(t, execctx.Input{
		Params: map[string]any{
			"import_artifacts": true,
			"pipeline_params":  map[string]any{"A": "parent", "B": "parent"},
		},
		Systems: map[string]any{"gitlab": map[string]any{"url": "https://gitlab.com"}},
	})

	child, err := parent.Child("run1_result", execctx.Input{
		Params: map[string]any{
			"import_artifacts": false,
			"pipeline":         "group/project",
			"pipeline_params":  map[string]any{"B": "child"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.com", child.InputString("systems.gitlab.url", ""))
	assert.Equal(t, "group/project", child.InputString("params.pipeline", ""))
	assert.Equal(t, "parent", child.InputString("params.pipeline_params.A", ""))
	assert.Equal(t, "child", child.InputString("params.pipeline_params.B", ""))

	imp, err := child.InputBool("params.import_artifacts", true)
	require.NoError(t, err)
	assert.False(t, imp, "explicit false in child must win over parent true")

	// parent input is untouched
	assert.Equal(t, "parent", parent.InputString("params.pipeline_params.B", ""))
	_, ok := parent.InputParam("params.pipeline")
	assert.False(t, ok)
}

func TestChild_OwnsDistinctOutput(t *testing.T) {
	t.Parallel()
	parent := newContext(t, execctx.Input{})

	child, err := parent.Child("c1", execctx.Input{})
	require.NoError(t, err)

	assert.NotEqual(t, parent.Paths().Output.Files, child.Paths().Output.Files)
	assert.True(t, strings.HasPrefix(child.DescriptorPath(), filepath.Join(parent.Paths().Temp, "children")))
	assert.Contains(t, filepath.Base(filepath.Dir(child.DescriptorPath())), "c1-")

	require.NoError(t, child.SetOutputParam("params.result", "from-child"))
	require.NoError(t, child.SaveOutputParams())

	_, ok := parent.OutputParam("params.result")
	assert.False(t, ok, "child writes must not leak into the parent")

	_, err = os.Stat(parent.Paths().Output.Params)
	assert.True(t, os.IsNotExist(err))
}

func TestChild_RequiresName(t *testing.T) {
	t.Parallel()
	parent := newContext(t, execctx.Input{})
	_, err := parent.Child("", execctx.Input{})
	assert.Error(t, err)
}

func TestCreate_RequiresFolder(t *testing.T) {
	t.Parallel()
	_, err := execctx.Create("", execctx.Input{}, execctx.CreateOptions{})
	assert.Error(t, err)
}
