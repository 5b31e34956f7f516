package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetpipe/internal/config"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: sample
description: "sample"
config:
  raw: [PNG, .jpg]
files:
  - path: a.png
    content: "x"
  - path: m/ship.glb
    mesh: glb
steps:
  - tick: true
    expect:
      queued: [a.png]
      failed: []
  - touch: a.png
  - remove_output: "."
`))
	require.NoError(t, err)

	assert.Equal(t, "sample", s.Name)
	require.Len(t, s.Files, 2)
	assert.Equal(t, "glb", s.Files[1].Mesh)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, ActionTick, s.Steps[0].Action())
	assert.Equal(t, []string{"a.png"}, s.Steps[0].Expect.Queued)
	assert.NotNil(t, s.Steps[0].Expect.Failed, "explicit empty list is checked")
	assert.Nil(t, s.Steps[0].Expect.Processed, "absent list is not checked")
	assert.Equal(t, ActionTouch, s.Steps[1].Action())
	assert.Equal(t, ActionRemoveOutput, s.Steps[2].Action())
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "name: x\ndescription: y\nstep: []\n", "field step not found"},
		{"missing name", "description: y\nsteps: [{tick: true}]\n", "name is required"},
		{"missing description", "name: x\nsteps: [{tick: true}]\n", "description is required"},
		{"no steps", "name: x\ndescription: y\n", "steps list is required"},
		{"empty step", "name: x\ndescription: y\nsteps: [{}]\n", "exactly one action"},
		{"two actions", "name: x\ndescription: y\nsteps: [{tick: true, touch: a.png}]\n", "exactly one action"},
		{"expect on touch", "name: x\ndescription: y\nsteps: [{touch: a.png, expect: {queued: []}}]\n", "only allowed on tick"},
		{"escaping path", "name: x\ndescription: y\nfiles: [{path: ../a.png}]\nsteps: [{tick: true}]\n", "escapes the tree"},
		{"absolute path", "name: x\ndescription: y\nsteps: [{mkdir: /etc}]\n", "must be relative"},
		{"bad mesh", "name: x\ndescription: y\nfiles: [{path: a.glb, mesh: fbx}]\nsteps: [{tick: true}]\n", "mesh must be glb or gltf"},
		{"mesh and content", "name: x\ndescription: y\nfiles: [{path: a.glb, mesh: glb, content: z}]\nsteps: [{tick: true}]\n", "mutually exclusive"},
		{"bad config", "name: x\ndescription: y\nconfig: {storage: fbx}\nsteps: [{tick: true}]\n", "config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_AllTestdataScenariosParse(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		_, err := LoadScenario(f)
		assert.NoError(t, err, f)
	}
}

func TestConfigOverrides_Apply(t *testing.T) {
	o := &ConfigOverrides{Raw: []string{".PNG"}, Storage: "gltf", Workers: 4}
	cfg, err := o.Apply(config.Default())
	require.NoError(t, err)

	assert.Equal(t, []string{"png"}, cfg.Extensions.Raw)
	assert.Equal(t, config.Default().Extensions.Mesh, cfg.Extensions.Mesh)
	assert.Equal(t, config.MeshStorageGLTF, cfg.Meshes.Storage)
	assert.Equal(t, 4, cfg.Workers)

	var nilOverrides *ConfigOverrides
	cfg, err = nilOverrides.Apply(config.Default())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestGoldenPath(t *testing.T) {
	got := GoldenPath(filepath.Join("scenarios", "mesh_retry.yaml"))
	assert.Equal(t, filepath.Join("scenarios", "golden", "mesh_retry.golden"), got)
}

func TestUpdateThenCompareGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "golden", "x.golden")
	result := NewResult()
	result.Trace = append(result.Trace, TraceEvent{Step: 1, Action: ActionTick, Tick: 1})

	require.NoError(t, UpdateGolden(path, "x", result))
	match, err := CompareGolden(path, "x", result)
	require.NoError(t, err)
	assert.True(t, match)

	result.Trace[0].Queued = []string{"a.png"}
	match, err = CompareGolden(path, "x", result)
	require.NoError(t, err)
	assert.False(t, match)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario_name": "x"`)
}
