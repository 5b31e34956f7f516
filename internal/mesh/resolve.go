package mesh

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirResolver serves external glTF resources from dir. Remote URIs and
// absolute paths are refused with ErrUnsupportedFormat.
func DirResolver(dir string) fs.FS {
	return dirResolver{root: os.DirFS(dir)}
}

type dirResolver struct {
	root fs.FS
}

func (r dirResolver) Open(name string) (fs.File, error) {
	if strings.Contains(name, "://") || filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrUnsupportedFormat}
	}
	return r.root.Open(name)
}

// noResources is used when a Codec has no FS; every external URI fails.
type noResources struct{}

func (noResources) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: ErrUnsupportedFormat}
}
