package processor

import (
	"context"
	"slices"

	"github.com/roach88/assetpipe/internal/config"
	"github.com/roach88/assetpipe/internal/mesh"
)

// Processor is the capability every kind implements.
type Processor interface {
	// Kind identifies the processor.
	Kind() Kind

	// Matches reports whether the normalized extension belongs to this kind.
	Matches(ext string) bool

	// Destination maps a source path to its output path.
	Destination(source string) (string, bool)

	// Execute transforms source into destination and returns the number of
	// bytes written. Errors are item-fatal.
	Execute(ctx context.Context, source, destination string) (int64, error)
}

// Registry is an ordered list of processors. Earlier entries win when
// extension sets overlap.
type Registry struct {
	processors []Processor
}

// NewRegistry creates a registry with processors in priority order.
func NewRegistry(processors ...Processor) *Registry {
	return &Registry{processors: slices.Clone(processors)}
}

// NewDefaultRegistry registers raw passthrough then mesh transcode, using
// the extension lists and mesh storage from cfg.
func NewDefaultRegistry(cfg config.Config, mapper Mapper) *Registry {
	return NewRegistry(
		NewRaw(cfg.Extensions.Raw, mapper),
		NewMesh(cfg.Extensions.Mesh, mapper, mesh.Format(cfg.Meshes.Storage)),
	)
}

// Route returns the first processor whose extension set contains ext.
func (r *Registry) Route(ext string) (Processor, bool) {
	if ext == "" {
		return nil, false
	}
	for _, p := range r.processors {
		if p.Matches(ext) {
			return p, true
		}
	}
	return nil, false
}

// Classify routes path by its extension.
func (r *Registry) Classify(path string) (Processor, bool) {
	return r.Route(Ext(path))
}

// Processors returns the registered processors in priority order.
func (r *Registry) Processors() []Processor {
	return slices.Clone(r.processors)
}

// extensionSet is the Matches implementation shared by the built-in kinds.
type extensionSet []string

func newExtensionSet(exts []string) extensionSet {
	out := make(extensionSet, 0, len(exts))
	for _, e := range exts {
		if n := config.NormalizeExtension(e); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (s extensionSet) contains(ext string) bool {
	return slices.Contains(s, ext)
}
