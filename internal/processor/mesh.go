package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/assetpipe/internal/mesh"
)

// TranscoderFactory returns a transcoder that resolves external resources
// relative to dir (the source file's directory).
type TranscoderFactory func(dir string) mesh.Transcoder

// DefaultTranscoder builds a mesh.Codec with a directory resolver.
func DefaultTranscoder(dir string) mesh.Transcoder {
	return mesh.NewCodec(mesh.DirResolver(dir))
}

// Mesh decodes glTF containers and re-encodes them in the canonical format.
type Mesh struct {
	exts       extensionSet
	mapper     Mapper
	output     mesh.Format
	transcoder TranscoderFactory
}

// MeshOption configures a Mesh processor.
type MeshOption func(*Mesh)

// WithTranscoder overrides the transcode capability.
func WithTranscoder(f TranscoderFactory) MeshOption {
	return func(m *Mesh) {
		m.transcoder = f
	}
}

// NewMesh creates the mesh transcode processor writing output containers.
func NewMesh(exts []string, mapper Mapper, output mesh.Format, opts ...MeshOption) *Mesh {
	m := &Mesh{
		exts:       newExtensionSet(exts),
		mapper:     mapper,
		output:     output,
		transcoder: DefaultTranscoder,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (p *Mesh) Kind() Kind { return KindMesh }

func (p *Mesh) Matches(ext string) bool { return p.exts.contains(ext) }

func (p *Mesh) Destination(source string) (string, bool) {
	return p.mapper.Destination(source, KindMesh)
}

func (p *Mesh) Execute(ctx context.Context, source, destination string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	format, ok := mesh.FormatFromExt(Ext(source))
	if !ok {
		return 0, NewError(ErrCodeUnsupportedFormat, KindMesh, source,
			fmt.Errorf("%w: valid mesh extensions are glb, gltf, glxf", mesh.ErrUnsupportedFormat))
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return 0, NewError(ErrCodeReadFailed, KindMesh, source, err)
	}

	tc := p.transcoder(filepath.Dir(source))
	graph, err := tc.Decode(data, format)
	if err != nil {
		return 0, NewError(decodeCode(err), KindMesh, source, err)
	}

	out, err := tc.Encode(graph, p.output)
	if err != nil {
		return 0, NewError(ErrCodeEncodeFailed, KindMesh, source, err)
	}

	n, err := writeBytesAtomic(destination, out)
	if err != nil {
		return 0, NewError(ErrCodeWriteFailed, KindMesh, source, err)
	}
	return n, nil
}

func decodeCode(err error) ErrorCode {
	if errors.Is(err, mesh.ErrUnsupportedFormat) {
		return ErrCodeUnsupportedFormat
	}
	return ErrCodeDecodeFailed
}
