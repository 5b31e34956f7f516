package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/assetpipe/internal/config"
)

// Scenario is a scripted sequence of source-tree edits and pipeline ticks,
// with expectations checked after each tick.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides fields of the default configuration.
	Config *ConfigOverrides `yaml:"config,omitempty"`

	// Files are written to the source tree before the first step, all with
	// the same old modification time.
	Files []FileSpec `yaml:"files"`

	// Steps run in order. Each performs exactly one action.
	Steps []Step `yaml:"steps"`
}

// ConfigOverrides replaces the named configuration fields when set.
type ConfigOverrides struct {
	Raw     []string `yaml:"raw,omitempty"`
	Mesh    []string `yaml:"mesh,omitempty"`
	Storage string   `yaml:"storage,omitempty"`
	Workers int      `yaml:"workers,omitempty"`
}

// FileSpec describes a source file. Set Mesh to "glb" or "gltf" to
// generate a valid triangle mesh instead of literal Content.
type FileSpec struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content,omitempty"`
	Mesh    string `yaml:"mesh,omitempty"`
}

// Step is one scenario action.
type Step struct {
	// Tick scans once and waits for every queued item to finish.
	Tick bool `yaml:"tick,omitempty"`

	// Write creates or replaces a source file, newer than its output.
	Write *FileSpec `yaml:"write,omitempty"`

	// Touch makes an existing source file newer than its output.
	Touch string `yaml:"touch,omitempty"`

	// Mkdir creates a source directory.
	Mkdir string `yaml:"mkdir,omitempty"`

	// RemoveOutput deletes a path from the destination tree; "." deletes
	// the whole tree.
	RemoveOutput string `yaml:"remove_output,omitempty"`

	// Expect is checked after a tick. Only allowed on tick steps.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step action names, as they appear in traces.
const (
	ActionTick         = "tick"
	ActionWrite        = "write"
	ActionTouch        = "touch"
	ActionMkdir        = "mkdir"
	ActionRemoveOutput = "remove_output"
)

// Action returns the name of the step's action, or "" when the step sets
// none or more than one.
func (s Step) Action() string {
	var actions []string
	if s.Tick {
		actions = append(actions, ActionTick)
	}
	if s.Write != nil {
		actions = append(actions, ActionWrite)
	}
	if s.Touch != "" {
		actions = append(actions, ActionTouch)
	}
	if s.Mkdir != "" {
		actions = append(actions, ActionMkdir)
	}
	if s.RemoveOutput != "" {
		actions = append(actions, ActionRemoveOutput)
	}
	if len(actions) != 1 {
		return ""
	}
	return actions[0]
}

// Expect lists the outcome of a tick. A nil list is not checked; an empty
// list must match nothing. Paths are relative to the tree root.
type Expect struct {
	// Queued must match the queued sources in walk order.
	Queued []string `yaml:"queued,omitempty"`

	// Processed and Failed are compared ignoring order.
	Processed []string `yaml:"processed,omitempty"`
	Failed    []string `yaml:"failed,omitempty"`

	// Unhandled must match in walk order.
	Unhandled []string `yaml:"unhandled,omitempty"`

	// Outputs must exist in the destination tree; Missing must not.
	Outputs []string `yaml:"outputs,omitempty"`
	Missing []string `yaml:"missing,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "step:" vs "steps:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, f := range s.Files {
		if err := validateFile(f); err != nil {
			return fmt.Errorf("files[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		action := step.Action()
		if action == "" {
			return fmt.Errorf("steps[%d]: exactly one action is required", i)
		}
		if step.Expect != nil && action != ActionTick {
			return fmt.Errorf("steps[%d]: expect is only allowed on tick steps", i)
		}
		switch action {
		case ActionWrite:
			if err := validateFile(*step.Write); err != nil {
				return fmt.Errorf("steps[%d].write: %w", i, err)
			}
		case ActionTouch:
			if err := validateRelPath(step.Touch); err != nil {
				return fmt.Errorf("steps[%d].touch: %w", i, err)
			}
		case ActionMkdir:
			if err := validateRelPath(step.Mkdir); err != nil {
				return fmt.Errorf("steps[%d].mkdir: %w", i, err)
			}
		case ActionRemoveOutput:
			if step.RemoveOutput != "." {
				if err := validateRelPath(step.RemoveOutput); err != nil {
					return fmt.Errorf("steps[%d].remove_output: %w", i, err)
				}
			}
		}
	}

	if s.Config != nil {
		if _, err := s.Config.Apply(config.Default()); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	return nil
}

func validateFile(f FileSpec) error {
	if err := validateRelPath(f.Path); err != nil {
		return err
	}
	switch f.Mesh {
	case "", "glb", "gltf":
	default:
		return fmt.Errorf("mesh must be glb or gltf, got %q", f.Mesh)
	}
	if f.Mesh != "" && f.Content != "" {
		return fmt.Errorf("content and mesh are mutually exclusive")
	}
	return nil
}

// validateRelPath rejects paths that would escape the tree root.
func validateRelPath(p string) error {
	if p == "" {
		return fmt.Errorf("path is required")
	}
	if path.IsAbs(p) || strings.HasPrefix(p, "\\") {
		return fmt.Errorf("path %q must be relative", p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path %q escapes the tree", p)
	}
	return nil
}

// Apply returns base with the overrides applied, normalized and validated.
func (o *ConfigOverrides) Apply(base config.Config) (config.Config, error) {
	cfg := base
	if o != nil {
		if o.Raw != nil {
			cfg.Extensions.Raw = o.Raw
		}
		if o.Mesh != nil {
			cfg.Extensions.Mesh = o.Mesh
		}
		if o.Storage != "" {
			cfg.Meshes.Storage = config.MeshStorage(o.Storage)
		}
		if o.Workers != 0 {
			cfg.Workers = o.Workers
		}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
