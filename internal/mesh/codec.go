package mesh

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/fs"
	"strings"

	"github.com/qmuntal/gltf"
)

const (
	glbMagic   = 0x46546C67 // "glTF"
	glbVersion = 2
)

// Codec is the default Transcoder.
type Codec struct {
	// FS serves external buffers referenced by JSON glTF files.
	// Nil restricts glTF input to embedded data URIs.
	FS fs.FS
}

// NewCodec creates a Codec loading external resources from fsys.
func NewCodec(fsys fs.FS) *Codec {
	return &Codec{FS: fsys}
}

// Decode parses data in the given container format and merges its buffers
// into one.
func (c *Codec) Decode(data []byte, format Format) (*Graph, error) {
	switch format {
	case FormatGLB:
		if err := checkGLBHeader(data); err != nil {
			return nil, err
		}
	case FormatGLTF:
	default:
		return nil, fmt.Errorf("%w: decode %q", ErrUnsupportedFormat, format)
	}

	fsys := c.FS
	if fsys == nil {
		fsys = noResources{}
	}
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(bytes.NewReader(data), fsys).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContainer, err)
	}

	switch v := doc.Asset.Version; {
	case v == "":
		return nil, fmt.Errorf("%w: missing asset version", ErrInvalidContainer)
	case !strings.HasPrefix(v, "2."):
		return nil, fmt.Errorf("%w: asset version %q", ErrUnsupportedFormat, v)
	}

	merged, err := consolidate(doc)
	if err != nil {
		return nil, err
	}
	return &Graph{Document: merged}, nil
}

// Encode serializes g into the given container format. GLB output carries
// the buffer in its BIN chunk; glTF output embeds it as a data URI.
func (c *Codec) Encode(g *Graph, format Format) ([]byte, error) {
	if g == nil || g.Document == nil {
		return nil, fmt.Errorf("%w: empty graph", ErrInvalidContainer)
	}
	if format != FormatGLB && format != FormatGLTF {
		return nil, fmt.Errorf("%w: encode %q", ErrUnsupportedFormat, format)
	}

	doc, err := consolidate(g.Document)
	if err != nil {
		return nil, err
	}
	for _, b := range doc.Buffers {
		if format == FormatGLB {
			b.URI = ""
		} else {
			b.EmbeddedResource()
		}
	}

	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = format == FormatGLB
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return out.Bytes(), nil
}

// checkGLBHeader rejects non-GLB bytes and GLB versions other than 2 before
// the decoder sees them.
func checkGLBHeader(data []byte) error {
	if len(data) < 12 {
		return fmt.Errorf("%w: %d bytes is shorter than a GLB header", ErrInvalidContainer, len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != glbMagic {
		return fmt.Errorf("%w: bad GLB magic", ErrInvalidContainer)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != glbVersion {
		return fmt.Errorf("%w: GLB version %d", ErrUnsupportedFormat, v)
	}
	return nil
}

// consolidate returns a copy of doc whose buffers are concatenated into a
// single buffer, each starting on a 4-byte boundary. BufferViews are
// rewritten to point into the merged buffer; doc is left untouched.
func consolidate(doc *gltf.Document) (*gltf.Document, error) {
	out := *doc
	out.Buffers = nil
	out.BufferViews = make([]*gltf.BufferView, len(doc.BufferViews))

	offsets := make([]int, len(doc.Buffers))
	var merged []byte
	for i, b := range doc.Buffers {
		if len(b.Data) < b.ByteLength {
			return nil, fmt.Errorf("%w: buffers[%d] has %d of %d bytes", ErrInvalidContainer, i, len(b.Data), b.ByteLength)
		}
		merged = append(merged, make([]byte, pad4(len(merged)))...)
		offsets[i] = len(merged)
		merged = append(merged, b.Data[:b.ByteLength]...)
	}
	if len(doc.Buffers) > 0 {
		out.Buffers = []*gltf.Buffer{{
			Name:       doc.Buffers[0].Name,
			ByteLength: len(merged),
			Data:       merged,
		}}
	}

	for i, v := range doc.BufferViews {
		if v == nil || v.Buffer < 0 || v.Buffer >= len(doc.Buffers) {
			return nil, fmt.Errorf("%w: bufferViews[%d] references a missing buffer", ErrInvalidContainer, i)
		}
		view := *v
		view.ByteOffset += offsets[v.Buffer]
		view.Buffer = 0
		out.BufferViews[i] = &view
	}
	return &out, nil
}
