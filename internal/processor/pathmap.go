package processor

import (
	"path/filepath"
	"strings"

	"github.com/roach88/assetpipe/internal/config"
)

// Mapper computes mirrored destination paths. It is pure: the same source
// and kind always map to the same destination.
type Mapper struct {
	SourceRoot string
	DestRoot   string

	// MeshExt is the canonical mesh container extension, with leading dot.
	MeshExt string
}

// NewMapper creates a Mapper for the given roots and mesh storage.
func NewMapper(sourceRoot, destRoot string, storage config.MeshStorage) Mapper {
	return Mapper{
		SourceRoot: filepath.Clean(sourceRoot),
		DestRoot:   filepath.Clean(destRoot),
		MeshExt:    storage.Ext(),
	}
}

// Mirror replaces the source root prefix of path with the destination root.
// It returns false when path is not inside the source root.
func (m Mapper) Mirror(path string) (string, bool) {
	rel, err := filepath.Rel(m.SourceRoot, filepath.Clean(path))
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", false
	}
	return filepath.Join(m.DestRoot, rel), true
}

// Destination returns the output path for source when processed as kind.
// Mesh outputs always take the canonical container extension; every other
// kind keeps the source extension.
func (m Mapper) Destination(source string, kind Kind) (string, bool) {
	dest, ok := m.Mirror(source)
	if !ok {
		return "", false
	}
	if kind == KindMesh {
		dest = strings.TrimSuffix(dest, filepath.Ext(dest)) + m.MeshExt
	}
	return dest, true
}

// Ext returns the normalized extension of path (lowercase, no dot).
func Ext(path string) string {
	return config.NormalizeExtension(filepath.Ext(path))
}
