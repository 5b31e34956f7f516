package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// FileName is the well-known configuration file at the source root.
const FileName = "config.toml"

// MeshStorage selects the canonical container written for every mesh.
type MeshStorage string

const (
	MeshStorageGLB  MeshStorage = "glb"
	MeshStorageGLTF MeshStorage = "gltf"
)

// TextureFilter is the sampling filter recorded for textures.
type TextureFilter string

const (
	TextureFilterNearest TextureFilter = "nearest"
	TextureFilterLinear  TextureFilter = "linear"
)

// Ext returns the destination file extension for the storage format, with
// leading dot.
func (s MeshStorage) Ext() string {
	return "." + string(s)
}

// Config is the pipeline configuration snapshot.
// It is never mutated after Load returns.
type Config struct {
	// FileWatchingRateSeconds is the poll interval between scan ticks.
	FileWatchingRateSeconds float64 `toml:"file_watching_rate_seconds" json:"file_watching_rate_seconds"`

	// Workers bounds the number of items each processor kind transforms concurrently.
	Workers int `toml:"workers" json:"workers"`

	Extensions Extensions `toml:"extensions" json:"extensions"`
	Meshes     MeshConfig `toml:"meshes" json:"meshes"`
	Textures   Textures   `toml:"textures" json:"textures"`
}

// Extensions lists the recognized file extensions per processor kind.
// Texture and Audio are reserved for kinds that have no processor yet.
type Extensions struct {
	Raw     []string `toml:"raw" json:"raw"`
	Mesh    []string `toml:"mesh" json:"mesh"`
	Texture []string `toml:"texture" json:"texture"`
	Audio   []string `toml:"audio" json:"audio"`
}

// MeshConfig holds mesh-specific options.
type MeshConfig struct {
	// UseMeshlets is accepted and logged; meshlet generation is not implemented.
	UseMeshlets bool        `toml:"use_meshlets" json:"use_meshlets"`
	Storage     MeshStorage `toml:"storage" json:"storage"`
}

// Textures holds texture-specific options.
type Textures struct {
	Filter TextureFilter `toml:"filter" json:"filter"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		FileWatchingRateSeconds: 0.3,
		Workers:                 2,
		Extensions: Extensions{
			Raw:     []string{"png", "jpg", "jpeg", "ktx2", "ogg", "wav", "ttf", "otf"},
			Mesh:    []string{"glb", "gltf"},
			Texture: []string{},
			Audio:   []string{},
		},
		Meshes: MeshConfig{
			UseMeshlets: false,
			Storage:     MeshStorageGLB,
		},
		Textures: Textures{
			Filter: TextureFilterLinear,
		},
	}
}

// PollInterval returns the scan interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.FileWatchingRateSeconds * float64(time.Second))
}

// Normalize case-folds extensions, strips leading dots and removes
// duplicates within each list. Nil lists become empty lists. Enum values
// are folded too, so "Glb" and "Linear" are accepted.
func (c *Config) Normalize() {
	c.Extensions.Raw = normalizeExtensions(c.Extensions.Raw)
	c.Extensions.Mesh = normalizeExtensions(c.Extensions.Mesh)
	c.Extensions.Texture = normalizeExtensions(c.Extensions.Texture)
	c.Extensions.Audio = normalizeExtensions(c.Extensions.Audio)
	c.Meshes.Storage = MeshStorage(NormalizeExtension(string(c.Meshes.Storage)))
	c.Textures.Filter = TextureFilter(cases.Fold().String(strings.TrimSpace(string(c.Textures.Filter))))
}

// NormalizeExtension returns ext case-folded, trimmed and without a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimPrefix(ext, ".")
	return cases.Fold().String(ext)
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		n := NormalizeExtension(ext)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Overlap describes an extension listed by more than one kind.
type Overlap struct {
	Extension string
	Winner    string
	Shadowed  string
}

func (o Overlap) String() string {
	return fmt.Sprintf("extension %q listed by %s and %s; %s wins", o.Extension, o.Winner, o.Shadowed, o.Winner)
}

// Overlaps returns every extension that appears in more than one kind's list,
// in kind priority order (raw, mesh, texture, audio).
func (c Config) Overlaps() []Overlap {
	lists := []struct {
		kind string
		exts []string
	}{
		{"raw", c.Extensions.Raw},
		{"mesh", c.Extensions.Mesh},
		{"texture", c.Extensions.Texture},
		{"audio", c.Extensions.Audio},
	}

	owner := make(map[string]string)
	var overlaps []Overlap
	for _, l := range lists {
		for _, ext := range l.exts {
			if first, ok := owner[ext]; ok {
				overlaps = append(overlaps, Overlap{Extension: ext, Winner: first, Shadowed: l.kind})
				continue
			}
			owner[ext] = l.kind
		}
	}
	return overlaps
}
