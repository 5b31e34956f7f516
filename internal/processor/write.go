package processor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// writeAtomic streams r into path through a pending file in the same
// directory. Readers of path see either the old content or all of the new.
func writeAtomic(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}

	pf, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)),
		renameio.WithPermissions(0o644))
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	defer pf.Cleanup()

	n, err := io.Copy(pf, r)
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return n, nil
}

func writeBytesAtomic(path string, data []byte) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return int64(len(data)), nil
}
