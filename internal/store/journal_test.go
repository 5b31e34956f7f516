package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetpipe/internal/config"
	"github.com/roach88/assetpipe/internal/engine"
	"github.com/roach88/assetpipe/internal/processor"
	"github.com/roach88/assetpipe/internal/testutil"
)

func TestRecordQueued_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	item := testItem("a", 1)
	require.NoError(t, s.RecordQueued(ctx, item))
	require.NoError(t, s.RecordQueued(ctx, item))

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM work_items").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRecordOutcome_OnePerItem(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	item := testItem("a", 1)
	require.NoError(t, s.RecordQueued(ctx, item))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(item, engine.StatusDone)))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(item, engine.StatusFailed)), "second outcome is ignored")

	entries, err := s.RecentOutcomes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.StatusDone, entries[0].Outcome.Status)
}

func TestRecordOutcome_UnknownItemFails(t *testing.T) {
	s := createTestStore(t)
	err := s.RecordOutcome(context.Background(), testOutcome(testItem("ghost", 1), engine.StatusDone))
	assert.Error(t, err)
}

func TestRecentOutcomes_RoundTripAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, b, c := testItem("a", 1), testItem("b", 2), testItem("c", 3)
	for _, it := range []engine.WorkItem{a, b, c} {
		require.NoError(t, s.RecordQueued(ctx, it))
	}
	// Finish out of seq order.
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(b, engine.StatusDone)))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(a, engine.StatusFailed)))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(c, engine.StatusDone)))

	entries, err := s.RecentOutcomes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].Item.ID)
	assert.Equal(t, "a", entries[1].Item.ID)

	got := entries[1]
	assert.Equal(t, a, got.Item)
	assert.Equal(t, testOutcome(a, engine.StatusFailed), got.Outcome)
}

func TestRecentOutcomes_EmptyJournal(t *testing.T) {
	s := createTestStore(t)
	entries, err := s.RecentOutcomes(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestOutcomeCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	items := []engine.WorkItem{testItem("a", 1), testItem("b", 2), testItem("c", 3), testItem("d", 4)}
	for _, it := range items {
		require.NoError(t, s.RecordQueued(ctx, it))
	}
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(items[0], engine.StatusDone)))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(items[1], engine.StatusDone)))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(items[2], engine.StatusFailed)))

	counts, err := s.OutcomeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Done: 2, Failed: 1, Unfinished: 1}, counts)
}

func TestUnfinished_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordQueued(ctx, testItem("late", 9)))
	require.NoError(t, s.RecordQueued(ctx, testItem("early", 2)))
	done := testItem("done", 5)
	require.NoError(t, s.RecordQueued(ctx, done))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(done, engine.StatusDone)))

	items, err := s.Unfinished(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "early", items[0].ID)
	assert.Equal(t, "late", items[1].ID)
	assert.Equal(t, processor.KindRaw, items[0].Kind)
	assert.Equal(t, testEnqueued, items[0].EnqueuedAt)
}

func TestAbandonUnfinished_ClosesOutInterruptedItems(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	done := testItem("done", 1)
	require.NoError(t, s.RecordQueued(ctx, done))
	require.NoError(t, s.RecordOutcome(ctx, testOutcome(done, engine.StatusDone)))
	require.NoError(t, s.RecordQueued(ctx, testItem("x", 2)))
	require.NoError(t, s.RecordQueued(ctx, testItem("y", 3)))

	n, err := s.AbandonUnfinished(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	items, err := s.Unfinished(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "a second run must not report the same items")

	counts, err := s.OutcomeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Done: 1, Abandoned: 2}, counts)

	entries, err := s.RecentOutcomes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, engine.StatusAbandoned, entries[0].Outcome.Status)

	n, err = s.AbandonUnfinished(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.RecordQueued(ctx, testItem("a", 7)))
	require.NoError(t, s.RecordQueued(ctx, testItem("b", 3)))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestJournal_ConcurrentWriters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			it := testItem(fmt.Sprintf("item-%02d", i), int64(i+1))
			errs <- s.RecordQueued(ctx, it)
			errs <- s.RecordOutcome(ctx, testOutcome(it, engine.StatusDone))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	counts, err := s.OutcomeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), counts.Done)
}

func TestStore_AsEngineJournal(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	root := t.TempDir()
	src := filepath.Join(root, "assets-dev")
	_, err := testutil.WriteFile(src, "a.png", []byte("a"), testutil.SourceTime)
	require.NoError(t, err)
	_, err = testutil.WriteFile(src, "broken.glb", []byte("nope"), testutil.SourceTime)
	require.NoError(t, err)

	e, err := engine.New(config.Default(), src, filepath.Join(root, "assets"),
		engine.WithJournal(s),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	_, err = e.RunOnce(ctx)
	require.NoError(t, err)

	counts, err := s.OutcomeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Done: 1, Failed: 1}, counts)

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}
