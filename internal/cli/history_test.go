package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetpipe/internal/engine"
	"github.com/roach88/assetpipe/internal/processor"
	"github.com/roach88/assetpipe/internal/store"
)

func seedJournal(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pipeline.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []engine.WorkItem{
		{ID: "item-1", Seq: 1, Source: "/src/a.png", Destination: "/dst/a.png", Kind: processor.KindRaw, EnqueuedAt: at},
		{ID: "item-2", Seq: 2, Source: "/src/m.glb", Destination: "/dst/m.glb", Kind: processor.KindMesh, EnqueuedAt: at},
		{ID: "item-3", Seq: 3, Source: "/src/b.png", Destination: "/dst/b.png", Kind: processor.KindRaw, EnqueuedAt: at},
	}
	for _, item := range items {
		require.NoError(t, st.RecordQueued(ctx, item))
	}
	require.NoError(t, st.RecordOutcome(ctx, engine.Outcome{
		ItemID: "item-1", Seq: 1, Source: "/src/a.png", Kind: processor.KindRaw,
		Status: engine.StatusDone, Bytes: 2048, Elapsed: 3 * time.Millisecond,
	}))
	require.NoError(t, st.RecordOutcome(ctx, engine.Outcome{
		ItemID: "item-2", Seq: 2, Source: "/src/m.glb", Kind: processor.KindMesh,
		Status: engine.StatusFailed, Code: processor.ErrCodeDecodeFailed, Err: "bad magic",
	}))
	return dbPath
}

func TestHistoryText(t *testing.T) {
	dbPath := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "✗ #2 /src/m.glb [mesh] DECODE_FAILED: bad magic")
	assert.Contains(t, out, "✓ #1 /src/a.png [raw] 2.0 kB in 3ms")
	assert.Contains(t, out, "1 done, 1 failed, 0 abandoned, 1 unfinished")
}

func TestHistoryLimit(t *testing.T) {
	dbPath := seedJournal(t)

	buf := &bytes.Buffer{}
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--limit", "1"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "#2")
	assert.NotContains(t, buf.String(), "#1 ")
}

func TestHistoryInvalidLimit(t *testing.T) {
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", seedJournal(t), "--limit", "0"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryMissingDatabaseFlag(t *testing.T) {
	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestHistoryMissingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nope.db")

	cmd := NewHistoryCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
	assert.NoFileExists(t, dbPath)
}
