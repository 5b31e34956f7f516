package engine

import (
	"time"

	"github.com/roach88/assetpipe/internal/processor"
)

// WorkItem links a stale source file to its destination and the kind that
// will process it. Items are immutable once created.
type WorkItem struct {
	ID          string
	Seq         int64
	Source      string
	Destination string
	Kind        processor.Kind
	EnqueuedAt  time.Time
}

// Status is the terminal state of a processed WorkItem.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"

	// StatusAbandoned marks an item released without running, at shutdown
	// or because the previous run ended before it finished.
	StatusAbandoned Status = "abandoned"
)

// Outcome records how a WorkItem finished.
type Outcome struct {
	ItemID  string
	Seq     int64
	Source  string
	Kind    processor.Kind
	Status  Status
	Code    processor.ErrorCode
	Err     string
	Bytes   int64
	Elapsed time.Duration
}
