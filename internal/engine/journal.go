package engine

import "context"

// Journal persists work items and their outcomes. Write failures are logged
// by the caller and never affect processing.
type Journal interface {
	RecordQueued(ctx context.Context, item WorkItem) error
	RecordOutcome(ctx context.Context, outcome Outcome) error
}

type nopJournal struct{}

func (nopJournal) RecordQueued(context.Context, WorkItem) error { return nil }

func (nopJournal) RecordOutcome(context.Context, Outcome) error { return nil }
