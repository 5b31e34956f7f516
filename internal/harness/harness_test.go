package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(f)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "file name must match scenario name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsExpectationMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatch
description: "expectations that do not hold"
files:
  - path: a.png
    content: "a"
steps:
  - tick: true
    expect:
      queued: []
      failed: [a.png]
      outputs: [b.png]
      missing: [a.png]
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, "step 1: queued = [a.png], want []", result.Errors[0])
	assert.Contains(t, result.Errors[1], "failed")
	assert.Contains(t, result.Errors[2], "output b.png does not exist")
	assert.Contains(t, result.Errors[3], "output a.png exists")
}

func TestRun_TouchUnknownFileFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: touch_missing
description: "touching a file that was never written"
steps:
  - touch: ghost.png
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (touch)")
}

func TestRun_IsolatedTrees(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: isolated
description: "two runs do not share state"
files:
  - path: a.png
    content: "a"
steps:
  - tick: true
    expect:
      queued: [a.png]
`))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := Run(scenario)
		require.NoError(t, err)
		assert.True(t, result.Pass, "run %d: %v", i, result.Errors)
	}
}
