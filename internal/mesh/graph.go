package mesh

import (
	"errors"
	"strings"

	"github.com/qmuntal/gltf"
)

var (
	// ErrUnsupportedFormat is returned for container variants the codec cannot handle.
	ErrUnsupportedFormat = errors.New("unsupported mesh format")

	// ErrInvalidContainer is returned when input bytes are not a valid container.
	ErrInvalidContainer = errors.New("invalid mesh container")
)

// Format identifies a glTF container variant.
type Format string

const (
	FormatGLB  Format = "glb"
	FormatGLTF Format = "gltf"
	FormatGLXF Format = "glxf"
)

// FormatFromExt maps a lowercase extension without dot to a Format.
func FormatFromExt(ext string) (Format, bool) {
	switch Format(strings.ToLower(ext)) {
	case FormatGLB:
		return FormatGLB, true
	case FormatGLTF:
		return FormatGLTF, true
	case FormatGLXF:
		return FormatGLXF, true
	default:
		return "", false
	}
}

// Graph is the intermediate scene representation.
//
// After Decode the document holds at most one buffer, and every bufferView
// points into it.
type Graph struct {
	Document *gltf.Document
}

// Buffer returns the consolidated binary buffer, or nil when the document
// carries no binary data.
func (g *Graph) Buffer() []byte {
	if g == nil || g.Document == nil || len(g.Document.Buffers) == 0 {
		return nil
	}
	return g.Document.Buffers[0].Data
}

// Transcoder is the decode/encode capability used by the mesh processor.
type Transcoder interface {
	Decode(data []byte, format Format) (*Graph, error)
	Encode(g *Graph, format Format) ([]byte, error)
}

func pad4(n int) int {
	return (4 - n%4) % 4
}
