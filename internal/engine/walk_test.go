package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetpipe/internal/testutil"
)

type visited struct {
	files, dirs []string
}

func walkTree(t *testing.T, ctx context.Context, root string) (visited, error) {
	t.Helper()
	var v visited
	w := walker{
		log: quietLogger(),
		visit: func(path string, isDir bool) {
			rel, err := filepath.Rel(root, path)
			require.NoError(t, err)
			if isDir {
				v.dirs = append(v.dirs, filepath.ToSlash(rel))
			} else {
				v.files = append(v.files, filepath.ToSlash(rel))
			}
		},
	}
	err := w.Walk(ctx, root)
	return v, err
}

func TestWalker_NameOrderDepthFirst(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"b.png", "a/z.png", "a/c/y.png", "c.png"} {
		_, err := testutil.WriteFile(root, rel, []byte("x"), testutil.SourceTime)
		require.NoError(t, err)
	}

	v, err := walkTree(t, context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/c/y.png", "a/z.png", "b.png", "c.png"}, v.files)
	assert.Equal(t, []string{"a", "a/c"}, v.dirs)
}

func TestWalker_SameTargetTwiceIsNotALoop(t *testing.T) {
	root := t.TempDir()
	shared := t.TempDir()
	_, err := testutil.WriteFile(shared, "s.png", []byte("s"), testutil.SourceTime)
	require.NoError(t, err)
	require.NoError(t, os.Symlink(shared, filepath.Join(root, "one")))
	require.NoError(t, os.Symlink(shared, filepath.Join(root, "two")))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "back")))

	v, err := walkTree(t, context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"one/s.png", "two/s.png"}, v.files)
}

func TestWalker_StopsOnCancel(t *testing.T) {
	root := t.TempDir()
	_, err := testutil.WriteFile(root, "a.png", []byte("a"), testutil.SourceTime)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v, err := walkTree(t, ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, v.files)
}
