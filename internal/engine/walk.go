package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/karrick/godirwalk"
)

// walker does a depth-first traversal in name order, following symbolic
// links. Entry errors are logged and the entry is skipped; only context
// cancellation stops the walk.
//
// godirwalk follows links but does not detect cycles, so the walker keeps
// the resolved paths of the directories currently open and refuses to
// descend into one of them again.
type walker struct {
	log   *slog.Logger
	visit func(path string, isDir bool)

	open map[string]int
}

func (w *walker) Walk(ctx context.Context, root string) error {
	w.open = make(map[string]int)

	err := godirwalk.Walk(root, &godirwalk.Options{
		FollowSymbolicLinks: true,
		Callback: func(path string, _ *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return w.enter(root, path)
		},
		PostChildrenCallback: func(path string, _ *godirwalk.Dirent) error {
			w.leave(path)
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if ctx.Err() != nil {
				return godirwalk.Halt
			}
			w.log.Warn("scan entry error", "path", path, "error", err)
			return godirwalk.SkipNode
		},
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		w.log.Warn("scan entry error", "path", root, "error", err)
	}
	return nil
}

// enter classifies path by its link target. Returning godirwalk.SkipThis
// keeps godirwalk from descending into it.
func (w *walker) enter(root, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		w.log.Warn("scan entry error", "path", path, "error", err)
		return godirwalk.SkipThis
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			w.log.Debug("skipping special file", "path", path, "mode", info.Mode().String())
			return godirwalk.SkipThis
		}
		w.visit(path, false)
		return nil
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.log.Warn("scan entry error", "path", path, "error", err)
		return godirwalk.SkipThis
	}
	if w.open[real] > 0 {
		w.log.Warn("symlink loop skipped", "path", path, "target", real)
		return godirwalk.SkipThis
	}
	w.open[real]++
	if path != root {
		w.visit(path, true)
	}
	return nil
}

func (w *walker) leave(path string) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return
	}
	if w.open[real]--; w.open[real] <= 0 {
		delete(w.open, real)
	}
}
