// Package testutil provides deterministic fixtures shared by pipeline tests:
// a fake wall clock, source-tree builders with pinned modification times,
// and minimal valid mesh containers.
package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/qmuntal/gltf"
	"github.com/roach88/assetpipe/internal/mesh"
)

// SourceTime is the modification time given to fixture source files. It is
// well in the past so that any output written during a test is newer.
var SourceTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// WriteFile creates root/rel with content and sets its modification time.
func WriteFile(root, rel string, content []byte, mtime time.Time) (string, error) {
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", rel, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		return "", fmt.Errorf("chtimes %s: %w", rel, err)
	}
	return path, nil
}

// Touch sets the modification time of path.
func Touch(path string, mtime time.Time) error {
	return os.Chtimes(path, mtime, mtime)
}

// TriangleGraph returns a minimal scene with one mesh over a 36-byte buffer.
func TriangleGraph() *mesh.Graph {
	buf := make([]byte, 36)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	return &mesh.Graph{Document: &gltf.Document{
		Asset:       gltf.Asset{Version: "2.0", Generator: "assetpipe-testutil"},
		Buffers:     []*gltf.Buffer{{ByteLength: len(buf), Data: buf}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: 36}},
		Meshes:      []*gltf.Mesh{{Name: "triangle"}},
	}}
}

// TriangleGLB returns TriangleGraph encoded as GLB.
func TriangleGLB() ([]byte, error) {
	return mesh.NewCodec(nil).Encode(TriangleGraph(), mesh.FormatGLB)
}

// TriangleGLTF returns TriangleGraph encoded as self-contained glTF.
func TriangleGLTF() ([]byte, error) {
	return mesh.NewCodec(nil).Encode(TriangleGraph(), mesh.FormatGLTF)
}

// ListTree returns every regular file and directory under root as sorted
// slash-separated relative paths. Directories carry a trailing slash.
func ListTree(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			rel += "/"
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
