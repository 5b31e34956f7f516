package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/assetpipe/internal/engine"
	"github.com/roach88/assetpipe/internal/processor"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testEnqueued = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// testItem creates a raw work item with minimal required fields.
func testItem(id string, seq int64) engine.WorkItem {
	return engine.WorkItem{
		ID:          id,
		Seq:         seq,
		Source:      "/src/" + id + ".png",
		Destination: "/dst/" + id + ".png",
		Kind:        processor.KindRaw,
		EnqueuedAt:  testEnqueued,
	}
}

func testOutcome(item engine.WorkItem, status engine.Status) engine.Outcome {
	o := engine.Outcome{
		ItemID:  item.ID,
		Seq:     item.Seq,
		Source:  item.Source,
		Kind:    item.Kind,
		Status:  status,
		Bytes:   42,
		Elapsed: 250 * time.Millisecond,
	}
	if status == engine.StatusFailed {
		o.Code = processor.ErrCodeReadFailed
		o.Err = "READ_FAILED: raw " + item.Source + ": permission denied"
		o.Bytes = 0
	}
	return o
}
